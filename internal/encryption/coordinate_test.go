package encryption_test

import (
	"encoding/base64"
	"math"
	"strings"
	"testing"

	"github.com/rongwang/yana-server/internal/encryption"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, key string) *encryption.CoordinateCodec {
	t.Helper()
	codec, err := encryption.NewCoordinateCodec(key)
	require.NoError(t, err)
	return codec
}

func TestNewCoordinateCodecRequiresKey(t *testing.T) {
	_, err := encryption.NewCoordinateCodec("")
	assert.ErrorIs(t, err, encryption.ErrEmptyKey)
}

func TestEncodeDecode(t *testing.T) {
	codec := newCodec(t, "test-field-key")

	for _, v := range []float64{40.7128, -74.0060, 0, 90, -180, 1e-7} {
		enc, err := codec.Encode(v)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(enc, encryption.Prefix))
		assert.NotContains(t, enc, "40.7128")

		got, err := codec.Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEncodeUsesFreshNonce(t *testing.T) {
	codec := newCodec(t, "test-field-key")

	a, err := codec.Encode(12.5)
	require.NoError(t, err)
	b, err := codec.Encode(12.5)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEncodeRejectsNonFinite(t *testing.T) {
	codec := newCodec(t, "test-field-key")

	_, err := codec.Encode(math.NaN())
	assert.ErrorIs(t, err, encryption.ErrInvalidValue)
	_, err = codec.Encode(math.Inf(-1))
	assert.ErrorIs(t, err, encryption.ErrInvalidValue)
}

func TestDecodeDistinguishesFailures(t *testing.T) {
	codec := newCodec(t, "test-field-key")
	other := newCodec(t, "another-key")

	sealed, err := other.Encode(51.5074)
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{"plaintext legacy value", "51.5074", encryption.ErrNotEncrypted},
		{"wrong key", sealed, encryption.ErrCorrupt},
		{"bad base64", encryption.Prefix + "!!!", encryption.ErrCorrupt},
		{"too short", encryption.Prefix + base64.StdEncoding.EncodeToString([]byte("short")), encryption.ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeLenient(t *testing.T) {
	codec := newCodec(t, "test-field-key")

	v, err := codec.DecodeLenient("-0.1278")
	require.NoError(t, err)
	assert.Equal(t, -0.1278, v)

	enc, err := codec.Encode(-0.1278)
	require.NoError(t, err)
	v, err = codec.DecodeLenient(enc)
	require.NoError(t, err)
	assert.Equal(t, -0.1278, v)

	_, err = codec.DecodeLenient("gAAAAABnot-a-number")
	assert.ErrorIs(t, err, encryption.ErrCorrupt)

	_, err = codec.DecodeLenient("NaN")
	assert.ErrorIs(t, err, encryption.ErrCorrupt)

	_, err = newCodec(t, "another-key").DecodeLenient(enc)
	assert.ErrorIs(t, err, encryption.ErrCorrupt, "corrupt ciphertext never falls back to plaintext")
}
