// Package container defines the in-memory compressed record and its
// self-describing on-disk serialization.
package container

import (
	"bytes"

	"fcmp/fcmperr"

	"github.com/icza/bitio"
)

// MaxBitPayloadLength is one past the largest payload bit-count the 24-bit
// length field can represent; payload lengths must be strictly below it.
const MaxBitPayloadLength = 1 << 24

// MaxModels is the largest model count the 8-bit model_count field can
// represent.
const MaxModels = 255

// ModelDescriptor is a (context, weight) pair as stored in the container
// header.
type ModelDescriptor struct {
	Context uint8
	Weight  uint8
}

// Record is the in-memory compressed container: the model ensemble that
// produced it, the exact uncompressed bit length, and the coded bit stream.
type Record struct {
	Models           []ModelDescriptor
	BitPayloadLength int
	CodedBits        []byte // packed MSB-first, zero-padded to a byte boundary
	codedBitLength   int    // exact number of meaningful bits in CodedBits
}

// NewRecord validates and constructs a Record.
func NewRecord(models []ModelDescriptor, bitPayloadLength int, codedBits []byte, codedBitLength int) (*Record, error) {
	if len(models) > MaxModels {
		return nil, fcmperr.New(fcmperr.InputTooLarge, "model count %d exceeds %d", len(models), MaxModels)
	}
	if bitPayloadLength < 0 || bitPayloadLength >= MaxBitPayloadLength {
		return nil, fcmperr.New(fcmperr.InputTooLarge, "bit payload length %d exceeds %d", bitPayloadLength, MaxBitPayloadLength)
	}
	return &Record{
		Models:           models,
		BitPayloadLength: bitPayloadLength,
		CodedBits:        codedBits,
		codedBitLength:   codedBitLength,
	}, nil
}

// CodedBitLength returns the number of coded bits. For a record built with
// NewRecord this is the exact count before zero-padding to a byte boundary;
// for a record returned by Parse it is len(CodedBits)*8, padding included.
func (r *Record) CodedBitLength() int {
	return r.codedBitLength
}

// Serialize encodes r per the container format:
//
//	 8 bits  model_count
//	 model_count * 16 bits: (8 bits context, 8 bits weight)
//	24 bits  bit_payload_length, LSB-first across the three bytes
//	remaining bits: the coded bit stream, MSB-first, zero-padded to a byte
//	boundary
func Serialize(r *Record) ([]byte, error) {
	if len(r.Models) > MaxModels {
		return nil, fcmperr.New(fcmperr.InputTooLarge, "model count %d exceeds %d", len(r.Models), MaxModels)
	}
	if r.BitPayloadLength >= MaxBitPayloadLength {
		return nil, fcmperr.New(fcmperr.InputTooLarge, "bit payload length %d exceeds %d", r.BitPayloadLength, MaxBitPayloadLength)
	}

	buf := new(bytes.Buffer)
	bw := bitio.NewWriter(buf)

	if err := bw.WriteByte(byte(len(r.Models))); err != nil {
		return nil, fcmperr.Wrap(fcmperr.Internal, err, "writing model count")
	}
	for _, m := range r.Models {
		if err := bw.WriteByte(m.Context); err != nil {
			return nil, fcmperr.Wrap(fcmperr.Internal, err, "writing model context")
		}
		if err := bw.WriteByte(m.Weight); err != nil {
			return nil, fcmperr.Wrap(fcmperr.Internal, err, "writing model weight")
		}
	}

	length := uint32(r.BitPayloadLength)
	for i := 0; i < 3; i++ {
		if err := bw.WriteByte(byte(length >> (8 * uint(i)))); err != nil {
			return nil, fcmperr.Wrap(fcmperr.Internal, err, "writing payload length")
		}
	}

	for i := 0; i < r.codedBitLength; i++ {
		byteIdx := i / 8
		shift := 7 - uint(i%8)
		bit := (r.CodedBits[byteIdx] >> shift) & 1
		if err := bw.WriteBits(uint64(bit), 1); err != nil {
			return nil, fcmperr.Wrap(fcmperr.Internal, err, "writing coded bit")
		}
	}

	if err := bw.Close(); err != nil {
		return nil, fcmperr.Wrap(fcmperr.Internal, err, "flushing container")
	}
	return buf.Bytes(), nil
}

// Parse decodes a serialized container, returning a Corrupt error on any
// malformed header or premature end of input.
func Parse(data []byte) (*Record, error) {
	br := bitio.NewReader(bytes.NewReader(data))

	modelCount, err := br.ReadByte()
	if err != nil {
		return nil, fcmperr.Wrap(fcmperr.Corrupt, err, "reading model count")
	}

	models := make([]ModelDescriptor, modelCount)
	for i := range models {
		context, err := br.ReadByte()
		if err != nil {
			return nil, fcmperr.Wrap(fcmperr.Corrupt, err, "reading model %d context", i)
		}
		weight, err := br.ReadByte()
		if err != nil {
			return nil, fcmperr.Wrap(fcmperr.Corrupt, err, "reading model %d weight", i)
		}
		models[i] = ModelDescriptor{Context: context, Weight: weight}
	}

	var length uint32
	for i := 0; i < 3; i++ {
		b, err := br.ReadByte()
		if err != nil {
			return nil, fcmperr.Wrap(fcmperr.Corrupt, err, "reading bit payload length")
		}
		length |= uint32(b) << (8 * uint(i))
	}
	if length >= MaxBitPayloadLength {
		return nil, fcmperr.New(fcmperr.Corrupt, "bit payload length %d exceeds %d", length, MaxBitPayloadLength)
	}

	// The remainder of the container is the coded bit stream, byte-aligned
	// and zero-padded at the tail; its exact meaningful bit count is not
	// recoverable from the header (nor does decoding need it -- the decoder
	// stops once it has produced bit_payload_length decoded bits and never
	// reads more than a handful of bits beyond that).
	var coded []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			break
		}
		coded = append(coded, b)
	}

	return &Record{
		Models:           models,
		BitPayloadLength: int(length),
		CodedBits:        coded,
		codedBitLength:   len(coded) * 8,
	}, nil
}
