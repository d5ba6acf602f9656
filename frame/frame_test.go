package frame

import (
	"encoding/binary"
	"testing"

	"github.com/hupe1980/bitvec"
	"github.com/hupe1980/bitvec/internal/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *bitvec.BitVector {
	t.Helper()
	bv, err := bitvec.New(20)
	require.NoError(t, err)
	for _, i := range []uint32{0, 5, 19} {
		require.NoError(t, bv.Set(i))
	}
	return bv
}

func TestRoundTrip(t *testing.T) {
	bv := sample(t)
	data, err := Encode(bv)
	require.NoError(t, err)
	require.Len(t, data, HeaderSize+bitvec.HeaderSize+3)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(Version), h.Version)
	assert.Equal(t, NativeOrder(), h.ByteOrder)
	assert.Equal(t, uint32(bitvec.HeaderSize+3), h.PayloadLen)

	raw, err := bitvec.Serialize(bv)
	require.NoError(t, err)
	assert.Equal(t, raw, data[HeaderSize:])

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, bv.Equal(got))
}

func TestDecode_ForeignByteOrder(t *testing.T) {
	bv := sample(t)
	data, err := Encode(bv)
	require.NoError(t, err)

	// Rewrite the payload as the opposite-endian host would have produced it.
	foreign := OrderBig
	var order binary.ByteOrder = binary.BigEndian
	if NativeOrder() == OrderBig {
		foreign, order = OrderLittle, binary.LittleEndian
	}
	payload := data[HeaderSize:]
	order.PutUint32(payload[0:4], bv.Len())
	order.PutUint32(payload[4:8], bv.ByteLen())
	data[5] = foreign
	binary.LittleEndian.PutUint32(data[12:16], hash.CRC32C(payload))

	snapshot := append([]byte(nil), data...)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, bv.Equal(got))
	assert.Equal(t, snapshot, data)
}

func TestDecode_Errors(t *testing.T) {
	good, err := Encode(sample(t))
	require.NoError(t, err)

	corrupt := func(f func([]byte)) []byte {
		b := append([]byte(nil), good...)
		f(b)
		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"nil", nil, bitvec.ErrNullArgument},
		{"short header", good[:HeaderSize-1], ErrTruncated},
		{"bad magic", corrupt(func(b []byte) { b[0] = 'X' }), ErrInvalidMagic},
		{"bad version", corrupt(func(b []byte) { b[4] = 9 }), ErrUnsupportedVersion},
		{"bad order", corrupt(func(b []byte) { b[5] = '?' }), ErrInvalidByteOrder},
		{"truncated payload", good[:len(good)-1], ErrTruncated},
		{"flipped bit", corrupt(func(b []byte) { b[len(b)-1] ^= 0x01 }), ErrChecksumMismatch},
		{"bad checksum", corrupt(func(b []byte) { b[12] ^= 0xFF }), ErrChecksumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bv, err := Decode(tt.data)
			assert.Nil(t, bv)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_InvalidPayload(t *testing.T) {
	// A well-framed payload whose raw header is inconsistent.
	payload := binary.NativeEndian.AppendUint32(nil, 16)
	payload = binary.NativeEndian.AppendUint32(payload, 1)
	payload = append(payload, 0xFF)

	data := make([]byte, HeaderSize, HeaderSize+len(payload))
	copy(data, Magic)
	data[4] = Version
	data[5] = NativeOrder()
	binary.LittleEndian.PutUint32(data[8:12], uint32(len(payload)))
	binary.LittleEndian.PutUint32(data[12:16], hash.CRC32C(payload))
	data = append(data, payload...)

	_, err := Decode(data)
	assert.ErrorIs(t, err, bitvec.ErrInvalidArgument)
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, bitvec.ErrNullArgument)

	bv := sample(t)
	bv.Release()
	_, err = Encode(bv)
	assert.ErrorIs(t, err, bitvec.ErrNotInitialized)
}
