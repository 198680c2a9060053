package predictor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fcmp/bitstream"
	"fcmp/predictor"
)

func Test_Table_Lookup_Misses_Before_First_Update(t *testing.T) {
	t.Parallel()

	tbl := predictor.NewTable()
	key := predictor.NewKey(0xFF, bitstream.ReadState{})
	_, ok := tbl.Lookup(key)
	require.False(t, ok)
}

func Test_Table_Update_Seeds_Default_Then_Halves_Opposite_Count(t *testing.T) {
	t.Parallel()

	tbl := predictor.NewTable()
	key := predictor.NewKey(0x01, bitstream.ReadState{})

	tbl.Update(key, 1)
	v, ok := tbl.Lookup(key)
	require.True(t, ok)
	require.Equal(t, uint32(2), v.CountOne)
	require.Equal(t, uint32(1), v.CountZero)

	tbl.Update(key, 1)
	v, _ = tbl.Lookup(key)
	require.Equal(t, uint32(3), v.CountOne)
	require.Equal(t, uint32(1), v.CountZero)

	tbl.Update(key, 0)
	v, _ = tbl.Lookup(key)
	require.Equal(t, uint32(2), v.CountOne)
	require.Equal(t, uint32(2), v.CountZero)
}

func Test_Table_Update_Caps_Counts_At_CounterMax(t *testing.T) {
	t.Parallel()

	tbl := predictor.NewTable()
	key := predictor.NewKey(0x00, bitstream.ReadState{})

	for i := 0; i < 64; i++ {
		tbl.Update(key, 1)
	}
	v, ok := tbl.Lookup(key)
	require.True(t, ok)
	require.LessOrEqual(t, v.CountOne, uint32(predictor.CounterMax))
}

func Test_NewKey_Masks_History_To_Selected_Context_Bytes(t *testing.T) {
	t.Parallel()

	state := bitstream.ReadState{History: 0x1122334455667788, Partial: 0xAA, BitsInPartial: 4}

	// context 0x01 selects only the most recent previous byte (bit 0).
	k1 := predictor.NewKey(0x01, state)
	k2 := predictor.NewKey(0x01, bitstream.ReadState{History: 0x0000000000000088, Partial: 0xAA, BitsInPartial: 4})
	require.Equal(t, k1, k2)

	// A different context mask produces a different key for the same state.
	k3 := predictor.NewKey(0x03, state)
	require.NotEqual(t, k1, k3)
}

func Test_Table_Clone_Is_Independent_Of_Original(t *testing.T) {
	t.Parallel()

	tbl := predictor.NewTable()
	key := predictor.NewKey(0x02, bitstream.ReadState{})
	tbl.Update(key, 1)

	clone := tbl.Clone()
	clone.Update(key, 1)

	original, _ := tbl.Lookup(key)
	cloned, _ := clone.Lookup(key)
	require.NotEqual(t, original, cloned)
}
