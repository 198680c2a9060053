package coder_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"fcmp/coder"
	"fcmp/fcmperr"
)

// fixedInterval is an even split, used to exercise the coder's own
// renormalization logic independent of the mixer.
var fixedInterval = coder.Interval{Lower: 1, Upper: 2, Denominator: 2}

func Test_Encoder_Decoder_Round_Trip_Random_Bits(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	bits := make([]uint8, 5000)
	for i := range bits {
		bits[i] = uint8(rng.Intn(2))
	}

	enc := coder.NewEncoder()
	for _, b := range bits {
		enc.EncodeBit(b, fixedInterval)
	}
	enc.Finish()

	dec := coder.NewDecoder(enc.Bits().Bytes())
	for i, want := range bits {
		got, err := dec.DecodeBit(fixedInterval)
		require.NoError(t, err)
		require.Equal(t, want, got, "bit %d", i)
	}
}

func Test_Encoder_Decoder_Round_Trip_Skewed_Interval(t *testing.T) {
	t.Parallel()

	// Heavily skewed toward zero: most of the probability mass sits below
	// the bit=1 threshold.
	interval := coder.Interval{Lower: 1000, Upper: 1024, Denominator: 1024}

	rng := rand.New(rand.NewSource(2))
	bits := make([]uint8, 2000)
	for i := range bits {
		if rng.Intn(100) < 5 {
			bits[i] = 1
		}
	}

	enc := coder.NewEncoder()
	for _, b := range bits {
		enc.EncodeBit(b, interval)
	}
	enc.Finish()

	dec := coder.NewDecoder(enc.Bits().Bytes())
	for i, want := range bits {
		got, err := dec.DecodeBit(interval)
		require.NoError(t, err)
		require.Equal(t, want, got, "bit %d", i)
	}
}

func Test_Encoder_Empty_Stream_Still_Finishes(t *testing.T) {
	t.Parallel()

	enc := coder.NewEncoder()
	enc.Finish()
	require.GreaterOrEqual(t, enc.Bits().BitLength(), 1)
}

func Test_Decoder_On_Truncated_Garbage_Reports_Corrupt_Or_Decodes_Cleanly(t *testing.T) {
	t.Parallel()

	// A single zero byte is a legal (if degenerate) coded stream: the
	// decoder must either decode without error or report fcmperr.Corrupt,
	// never panic.
	dec := coder.NewDecoder([]byte{0x00})
	var err error
	require.NotPanics(t, func() {
		_, err = dec.DecodeBit(fixedInterval)
	})
	if err != nil {
		require.True(t, fcmperr.Is(err, fcmperr.Corrupt))
	}
}
