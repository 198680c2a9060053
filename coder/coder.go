// Package coder implements the renormalising arithmetic coder shared by the
// compressor's encode and decode paths: a 31-bit [low, high] interval coder
// with pending-bit carry propagation.
package coder

import (
	"bytes"

	"fcmp/bitstream"
	"fcmp/compressor"
	"fcmp/fcmperr"

	"github.com/icza/bitio"
)

// Precision and derived range-coder constants, fixed per the chosen
// High/Low coder variant (see design notes on the two discarded variants).
const (
	precision    = 31
	codeMax      = (1 << precision) - 1
	half         = 1 << (precision - 1)
	quarter      = half / 2
	threeQuarter = half + quarter
)

// Interval is an alias of compressor.Interval, the probability partition
// produced by the mixer for a target bit.
type Interval = compressor.Interval

// Encoder holds the (low, high, pending) state of the range coder's encode
// side and accumulates emitted bits into a BitWriter.
type Encoder struct {
	low, high uint64
	pending   int
	out       *bitstream.BitWriter
}

// NewEncoder returns an encoder with an empty output bitstream.
func NewEncoder() *Encoder {
	return &Encoder{low: 0, high: codeMax, out: bitstream.NewBitWriter()}
}

// Bits returns the bits emitted so far.
func (e *Encoder) Bits() *bitstream.BitWriter {
	return e.out
}

// EncodeBit narrows [low, high] to the sub-interval matching bit under the
// given probability interval (the partition for target=true), then
// renormalises, emitting any bits that have become determined.
func (e *Encoder) EncodeBit(bit uint8, interval Interval) {
	if e.low >= e.high {
		panic("coder: encoder range inconsistency; low >= high")
	}
	rng := e.high - e.low + 1

	if bit != 0 {
		e.high = e.low + rng*interval.Upper/interval.Denominator - 1
		e.low = e.low + rng*interval.Lower/interval.Denominator
	} else {
		e.high = e.low + rng*interval.Lower/interval.Denominator - 1
	}

	for {
		switch {
		case e.high < half:
			e.emit(0)
		case e.low >= half:
			e.emit(1)
			e.low -= half
			e.high -= half
		case e.low >= quarter && e.high < threeQuarter:
			e.pending++
			e.low -= quarter
			e.high -= quarter
		default:
			return
		}
		e.low = (e.low << 1) & codeMax
		e.high = ((e.high << 1) + 1) & codeMax
	}
}

// Finish flushes the final bit required to disambiguate the terminal
// interval. Must be called exactly once, after the last EncodeBit.
func (e *Encoder) Finish() {
	e.pending++
	if e.low < quarter {
		e.emit(0)
	} else {
		e.emit(1)
	}
}

// emit writes bit followed by pending copies of its complement, the
// deferred carry-bits mechanism.
func (e *Encoder) emit(bit uint8) {
	e.out.WriteBit(bit)
	comp := uint8(1) - bit
	for ; e.pending > 0; e.pending-- {
		e.out.WriteBit(comp)
	}
}

// bitSource reads individual bits from a fixed byte slice via a bitio.Reader,
// yielding 0 once the cursor runs past the end (the container pads its coded
// bit stream with zeros to the next byte boundary, so this only matters for
// the small number of lookahead bits consumed right at the tail of the
// stream).
type bitSource struct {
	r *bitio.Reader
}

func newBitSource(data []byte) *bitSource {
	return &bitSource{r: bitio.NewReader(bytes.NewReader(data))}
}

func (s *bitSource) next() uint8 {
	bit, err := s.r.ReadBool()
	if err != nil {
		return 0
	}
	if bit {
		return 1
	}
	return 0
}

// Decoder holds the (low, high, value) state of the range coder's decode
// side, reading coded bits from a fixed byte slice.
type Decoder struct {
	low, high, value uint64
	src              *bitSource
}

// NewDecoder returns a decoder over codedBits, prefilling its value register
// with the first `precision` bits of the stream.
func NewDecoder(codedBits []byte) *Decoder {
	d := &Decoder{low: 0, high: codeMax, src: newBitSource(codedBits)}
	for i := 0; i < precision; i++ {
		d.value = (d.value << 1) | uint64(d.src.next())
	}
	return d
}

// DecodeBit decodes one bit given the canonical probability interval (the
// mixer's partition for target=true), narrows [low, high] to match, and
// renormalises low/high/value in lockstep with the encoder.
func (d *Decoder) DecodeBit(interval Interval) (uint8, error) {
	if d.low >= d.high || d.value < d.low || d.value > d.high {
		return 0, fcmperr.New(fcmperr.Corrupt, "decoder range inconsistency: low=%d high=%d value=%d", d.low, d.high, d.value)
	}
	rng := d.high - d.low + 1

	prediction := ((d.value-d.low+1)*interval.Denominator - 1) / rng
	var bit uint8
	if prediction >= interval.Lower {
		bit = 1
	}

	if bit != 0 {
		d.high = d.low + rng*interval.Upper/interval.Denominator - 1
		d.low = d.low + rng*interval.Lower/interval.Denominator
	} else {
		d.high = d.low + rng*interval.Lower/interval.Denominator - 1
	}

	for {
		switch {
		case d.high < half:
			// no subtraction.
		case d.low >= half:
			d.low -= half
			d.high -= half
			d.value -= half
		case d.low >= quarter && d.high < threeQuarter:
			d.low -= quarter
			d.high -= quarter
			d.value -= quarter
		default:
			return bit, nil
		}
		d.low = (d.low << 1) & codeMax
		d.high = ((d.high << 1) + 1) & codeMax
		d.value = ((d.value << 1) | uint64(d.src.next())) & codeMax
	}
}
