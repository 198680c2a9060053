package bitstream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fcmp/bitstream"
)

func Test_BitWriter_RoundTrips_Through_BitReader(t *testing.T) {
	t.Parallel()

	w := bitstream.NewBitWriter()
	bits := []uint8{1, 0, 1, 1, 0, 0, 0, 1, 1, 0}
	for _, b := range bits {
		w.WriteBit(b)
	}
	require.Equal(t, len(bits), w.BitLength())

	r := bitstream.NewBitReader(w.Bytes())
	for i, want := range bits {
		require.Equal(t, want, r.CurrentBit(), "bit %d", i)
		r.Advance()
	}
}

func Test_BitWriter_Pads_Final_Byte_With_Zeros(t *testing.T) {
	t.Parallel()

	w := bitstream.NewBitWriter()
	w.WriteBit(1)
	w.WriteBit(1)
	w.WriteBit(1)

	require.Equal(t, []byte{0b11100000}, w.Bytes())
}

func Test_BitReader_Advance_Reports_End_Of_Stream(t *testing.T) {
	t.Parallel()

	r := bitstream.NewBitReader([]byte{0xFF})
	for i := 0; i < 7; i++ {
		require.True(t, r.Advance())
	}
	require.False(t, r.Advance())
}

func Test_ReadState_Tracks_History_Across_Byte_Boundary(t *testing.T) {
	t.Parallel()

	r := bitstream.NewBitReader([]byte{0xAB, 0x00})
	for i := 0; i < 8; i++ {
		r.Advance()
	}
	state := r.State()
	require.Equal(t, uint64(0xAB), state.History)
	require.Equal(t, uint8(0), state.BitsInPartial)
}

func Test_ReadState_AdvanceWith_Matches_BitReader_Advance(t *testing.T) {
	t.Parallel()

	data := []byte{0x5C, 0x3D}
	r := bitstream.NewBitReader(data)

	var state bitstream.ReadState
	for pos := 0; pos < r.Len(); pos++ {
		require.Equal(t, state, r.State())
		bit := r.CurrentBit()
		r.Advance()
		state = state.AdvanceWith(bit)
	}
}
