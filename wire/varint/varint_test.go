package varint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/tinylog/wire/varint"
)

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 27, 252, 253, 300, 0xffff, 0x10000, 0xffffffff, 0x100000000, 1 << 40}
	for _, v := range cases {
		enc := varint.Encode(v)
		got, n, err := varint.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestSingleByteBoundary(t *testing.T) {
	require.Equal(t, []byte{252}, varint.Encode(252))
	require.Equal(t, byte(0xfd), varint.Encode(253)[0])
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := varint.Decode([]byte{0xfd, 1})
	require.Error(t, err)
	_, _, err = varint.Decode(nil)
	require.Error(t, err)
}
