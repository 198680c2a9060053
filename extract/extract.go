// Package extract rebuilds the original payload from a compressed record:
// replay the same weighted-ensemble mixer the encoder used, but let the
// arithmetic decoder's running value pick each bit instead of an already-known
// one.
package extract

import (
	"fcmp/bitstream"
	"fcmp/coder"
	"fcmp/compressor"
	"fcmp/container"
	"fcmp/fcmperr"
)

// Bytes decodes record back into the exact byte sequence that produced it.
func Bytes(record *container.Record) ([]byte, error) {
	c := compressor.New()
	for _, m := range record.Models {
		c.AddModel(m.Context, m.Weight)
	}

	dec := coder.NewDecoder(record.CodedBits)
	out := make([]byte, 0, (record.BitPayloadLength+7)/8)

	var state bitstream.ReadState
	var cur byte
	var curBits uint
	for i := 0; i < record.BitPayloadLength; i++ {
		interval := c.Probability(state, true)
		bit, err := dec.DecodeBit(interval)
		if err != nil {
			return nil, fcmperr.Wrap(fcmperr.Corrupt, err, "decoding bit %d of %d", i, record.BitPayloadLength)
		}
		c.Update(state, bit)

		cur = (cur << 1) | bit
		curBits++
		if curBits == 8 {
			out = append(out, cur)
			cur = 0
			curBits = 0
		}
		state = state.AdvanceWith(bit)
	}
	if curBits != 0 {
		out = append(out, cur<<(8-curBits))
	}
	return out, nil
}
