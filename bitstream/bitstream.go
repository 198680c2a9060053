// Package bitstream presents byte sequences as bit-addressed cursors and
// tracks the rolling byte-context view (ReadState) that the predictor bank
// keys its lookups on.
package bitstream

import (
	"bytes"

	"github.com/icza/bitio"
)

// BitReader walks an immutable byte sequence one bit at a time, MSB-first
// within each byte, while maintaining a ReadState mirror for predictor
// lookups.
type BitReader struct {
	data  []byte
	pos   int // bit cursor, 0..len(data)*8
	state ReadState
}

// NewBitReader returns a BitReader positioned at the start of data.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// Len returns the total number of addressable bits.
func (r *BitReader) Len() int {
	return len(r.data) * 8
}

// Pos returns the current bit cursor.
func (r *BitReader) Pos() int {
	return r.pos
}

// State returns the ReadState mirror for the current cursor position.
func (r *BitReader) State() ReadState {
	return r.state
}

// CurrentBit peeks the bit at the cursor. Undefined if the cursor is at or
// past the end of the stream.
func (r *BitReader) CurrentBit() uint8 {
	byteIdx := r.pos / 8
	bitIdx := 7 - uint(r.pos%8)
	return (r.data[byteIdx] >> bitIdx) & 1
}

// Advance moves the cursor one bit forward and folds the consumed bit into
// the ReadState mirror. It returns false once the cursor reaches the end of
// the stream (no bits left to advance past).
func (r *BitReader) Advance() bool {
	if r.pos >= r.Len() {
		return false
	}
	bit := r.CurrentBit()
	r.state = r.state.advanceWith(bit)
	r.pos++
	return r.pos < r.Len()
}

// BitWriter appends single bits to a growing bit vector, packing them
// MSB-first within each output byte via a bitio.Writer over an in-memory
// buffer.
type BitWriter struct {
	buf   *bytes.Buffer
	w     *bitio.Writer
	nbits int
}

// NewBitWriter returns an empty BitWriter.
func NewBitWriter() *BitWriter {
	buf := new(bytes.Buffer)
	return &BitWriter{buf: buf, w: bitio.NewWriter(buf)}
}

// WriteBit appends a single bit.
func (w *BitWriter) WriteBit(bit uint8) {
	if err := w.w.WriteBool(bit != 0); err != nil {
		panic("bitstream: write to in-memory buffer failed: " + err.Error())
	}
	w.nbits++
}

// BitLength returns the number of bits written so far.
func (w *BitWriter) BitLength() int {
	return w.nbits
}

// Bytes flushes any bits still pending in the underlying bitio.Writer
// (padding the final byte with zeros) and returns the packed result. The
// returned slice must not be mutated by the caller. Bytes must be called at
// most once, after the last WriteBit.
func (w *BitWriter) Bytes() []byte {
	if err := w.w.Close(); err != nil {
		panic("bitstream: flushing in-memory buffer failed: " + err.Error())
	}
	return w.buf.Bytes()
}

// ReadState is the rolling view of "previous whole bytes" (history) and
// "current partial byte" (partial, bitsInPartial) that predictor keys are
// built from. The zero value is the state at the start of a stream.
type ReadState struct {
	// History holds, from least-significant to most-significant byte, the
	// 1st-previous, 2nd-previous, ... whole bytes relative to the cursor.
	// Bytes before the start of the stream read as 0.
	History uint64
	// Partial holds the bits of the byte currently being consumed, packed
	// MSB-first within the byte.
	Partial uint8
	// BitsInPartial is the number of valid bits in Partial, 0..7.
	BitsInPartial uint8
}

// advanceWith folds an observed bit into the state, crossing a byte boundary
// into History once 8 bits have accumulated in Partial.
func (s ReadState) advanceWith(bit uint8) ReadState {
	s.Partial = (s.Partial << 1) | bit
	s.BitsInPartial++
	if s.BitsInPartial == 8 {
		s.History = (s.History << 8) | uint64(s.Partial)
		s.Partial = 0
		s.BitsInPartial = 0
	}
	return s
}

// AdvanceWith replays the same history/partial update the BitReader applies
// on Advance, given an externally observed bit. Used by the arithmetic
// decoder, which does not have a BitReader over the (unknown) payload.
func (s ReadState) AdvanceWith(bit uint8) ReadState {
	return s.advanceWith(bit)
}
