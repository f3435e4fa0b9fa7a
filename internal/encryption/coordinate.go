// Package encryption implements the at-rest codec for shared emotion coordinates.
//
// Values are sealed with AES-256-GCM under a key derived from FIELD_ENCRYPTION_KEY
// using HKDF-SHA256. The stored form is:
//
//	enc:v1:base64(nonce || ciphertext || tag)
//
// Rows written before encryption was introduced hold the plain decimal string.
// Decode reports those as ErrNotEncrypted; DecodeLenient parses them as plaintext.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// Prefix marks a value produced by this codec.
	Prefix = "enc:v1:"

	hkdfSalt = "yana-server-coordinates"
	hkdfInfo = "coordinate-encryption-v1"

	aesKeySize   = 32
	gcmNonceSize = 12
)

var (
	// ErrEmptyKey is returned when no encryption key is configured.
	ErrEmptyKey = errors.New("field encryption key cannot be empty")

	// ErrNotEncrypted is returned by Decode for values without the codec prefix.
	ErrNotEncrypted = errors.New("value is not encrypted")

	// ErrCorrupt is returned when an encrypted value cannot be opened or parsed.
	ErrCorrupt = errors.New("encrypted value is corrupt or was sealed with another key")

	// ErrInvalidValue is returned when encoding NaN or an infinity.
	ErrInvalidValue = errors.New("coordinate must be a finite number")
)

// CoordinateCodec encodes coordinates to opaque strings and back.
type CoordinateCodec struct {
	aead cipher.AEAD
}

// NewCoordinateCodec derives the AES key from secret and prepares the AEAD.
func NewCoordinateCodec(secret string) (*CoordinateCodec, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, aesKeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(hkdfSalt), []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &CoordinateCodec{aead: gcm}, nil
}

// Encode seals v and returns the prefixed, base64-encoded ciphertext.
func (c *CoordinateCodec) Encode(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", ErrInvalidValue
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	plaintext := strconv.FormatFloat(v, 'f', -1, 64)
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode opens a value produced by Encode.
func (c *CoordinateCodec) Decode(s string) (float64, error) {
	if !strings.HasPrefix(s, Prefix) {
		return 0, ErrNotEncrypted
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, Prefix))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(raw) < gcmNonceSize+c.aead.Overhead() {
		return 0, fmt.Errorf("%w: ciphertext too short", ErrCorrupt)
	}

	nonce, sealed := raw[:gcmNonceSize], raw[gcmNonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	v, err := strconv.ParseFloat(string(plaintext), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, nil
}

// DecodeLenient behaves like Decode but accepts legacy plaintext decimals.
// Corrupt ciphertext is never reinterpreted as plaintext.
func (c *CoordinateCodec) DecodeLenient(s string) (float64, error) {
	v, err := c.Decode(s)
	if !errors.Is(err, ErrNotEncrypted) {
		return v, err
	}

	v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if perr != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: not a ciphertext and not a decimal", ErrCorrupt)
	}
	return v, nil
}
