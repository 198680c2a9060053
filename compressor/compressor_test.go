package compressor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fcmp/bitstream"
	"fcmp/compressor"
)

func Test_AddModel_Adds_Updates_And_Removes(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	require.True(t, c.AddModel(0x01, 10))
	require.Equal(t, 1, c.Len())

	// Same weight is a no-op.
	require.False(t, c.AddModel(0x01, 10))

	// Different weight updates in place.
	require.True(t, c.AddModel(0x01, 20))
	require.Equal(t, 1, c.Len())
	require.Equal(t, uint8(20), c.ModelAt(0).Weight())

	// Zero weight removes.
	require.True(t, c.AddModel(0x01, 0))
	require.Equal(t, 0, c.Len())

	// Zero weight on an absent context is a no-op.
	require.False(t, c.AddModel(0x02, 0))
}

func Test_Mutate_Returns_Nil_When_Nothing_Changes(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 10)

	require.Nil(t, c.Mutate(0x01, 10))
	require.NotNil(t, c.Mutate(0x01, 11))
	require.Equal(t, 1, c.Len(), "mutate must not modify the receiver")
}

func Test_Mutate_Deep_Copies_Predictor_State(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 10)
	c.Update(bitstream.ReadState{}, 1)

	clone := c.Mutate(0x02, 5)
	require.NotNil(t, clone)
	clone.Update(bitstream.ReadState{}, 1)

	origPred, _ := c.ModelAt(0).Predict(bitstream.ReadState{})
	cloneModel := clone.ModelAt(0)
	clonePred, _ := cloneModel.Predict(bitstream.ReadState{})
	require.NotEqual(t, origPred, clonePred)
}

func Test_Probability_Degenerates_To_Even_Split_With_No_Data(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 10)

	interval := c.Probability(bitstream.ReadState{}, true)
	require.Equal(t, uint64(1), interval.Lower)
	require.Equal(t, uint64(2), interval.Upper)
	require.Equal(t, uint64(2), interval.Denominator)
}

func Test_Probability_Weights_Models_By_Their_Weight(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 1)
	c.AddModel(0x02, 3)

	// Both models see the same (empty) context, so both fire on every
	// lookup; bias their counts and check the mix reflects the 1:3 weights.
	c.Update(bitstream.ReadState{}, 1)
	c.Update(bitstream.ReadState{}, 1)

	// Each model now holds (countOne=3, countZero=1), so the weighted sums are
	// sumZero = 1*1 + 3*1 = 4 and total = 1*4 + 3*4 = 16.
	interval := c.Probability(bitstream.ReadState{}, true)
	require.Equal(t, interval.Denominator, interval.Upper)
	require.Greater(t, interval.Upper, interval.Lower)
	require.Equal(t, uint64(4), interval.Lower)
	require.Equal(t, uint64(16), interval.Denominator)
}

func Test_Rebase_Divides_By_Gcd(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 8)
	c.AddModel(0x02, 12)

	changed := c.Rebase(false)
	require.True(t, changed)
	require.Equal(t, uint8(2), c.ModelAt(0).Weight())
	require.Equal(t, uint8(3), c.ModelAt(1).Weight())
}

func Test_Rebase_NoOp_When_Already_Coprime(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 5)
	c.AddModel(0x02, 7)

	changed := c.Rebase(false)
	require.False(t, changed)
	require.Equal(t, uint8(5), c.ModelAt(0).Weight())
	require.Equal(t, uint8(7), c.ModelAt(1).Weight())
}

func Test_Rebase_Doubles_When_Stuck_At_Weight_One(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	c.AddModel(0x01, 1)
	c.AddModel(0x02, 1)

	changed := c.Rebase(false)
	require.True(t, changed)
	require.Equal(t, uint8(2), c.ModelAt(0).Weight())
	require.Equal(t, uint8(2), c.ModelAt(1).Weight())
}

func Test_Rebase_Empty_Compressor_Is_NoOp(t *testing.T) {
	t.Parallel()

	c := compressor.New()
	require.False(t, c.Rebase(true))
}
