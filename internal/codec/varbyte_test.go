package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarbyteRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 129, 16383, 16384, 1 << 20, 1<<56 - 1}
	for _, v := range values {
		enc := EncodeVarbyte(v)
		got, n, err := DecodeVarbyte(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, len(enc), VarbyteLen(v))
	}
}

func TestZeroEncodesAsSingleByte(t *testing.T) {
	enc := EncodeVarbyte(0)
	assert.Equal(t, []byte{0x80}, enc)
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := DecodeVarbyte([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestAppendVarbyteSequence(t *testing.T) {
	var buf []byte
	buf = AppendVarbyte(buf, 5)
	buf = AppendVarbyte(buf, 300)
	v1, n1, err := DecodeVarbyte(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v1)
	v2, _, err := DecodeVarbyte(buf[n1:])
	require.NoError(t, err)
	assert.Equal(t, uint64(300), v2)
}
