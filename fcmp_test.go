package fcmp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fcmp"
	"fcmp/search"
)

func Test_Compress_Extract_Round_Trip(t *testing.T) {
	if testing.Short() {
		t.Skip("exhaustive weight-space search is slow; skipped with -short")
	}
	t.Parallel()

	original := []byte("round trip through the serialized container format")
	coded, err := fcmp.Compress(original, search.Options{Threads: 2})
	require.NoError(t, err)

	decoded, err := fcmp.Extract(coded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func Test_Extract_Rejects_Corrupt_Container(t *testing.T) {
	t.Parallel()

	_, err := fcmp.Extract([]byte{0x02, 0x01}) // claims 2 models, truncated
	require.Error(t, err)
}
