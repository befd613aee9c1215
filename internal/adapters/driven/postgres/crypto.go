package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// payloadVersion prefixes every sealed payload so the format can change
	payloadVersion = 0x01

	nonceSize = 12

	// keySize is the AES-256 key length
	keySize = 32
)

var (
	ErrInvalidKeySize     = errors.New("payload key must be 32 bytes")
	ErrInvalidBlobSize    = errors.New("sealed payload is too small")
	ErrUnsupportedVersion = errors.New("unsupported sealed payload version")
	ErrDecryptionFailed   = errors.New("failed to open sealed payload")
)

// PayloadCipher seals document payloads with AES-256-GCM before they are
// written to document_payloads.
// Sealed format: version(1) || nonce(12) || ciphertext(N)
type PayloadCipher struct {
	gcm cipher.AEAD
}

// NewPayloadCipher creates a cipher from a 32-byte key.
func NewPayloadCipher(key []byte) (*PayloadCipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &PayloadCipher{gcm: gcm}, nil
}

// NewPayloadCipherFromHex parses a 64-character hex key.
// An empty key returns a nil cipher, meaning payloads are stored in clear.
func NewPayloadCipherFromHex(hexKey string) (*PayloadCipher, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode payload key: %w", err)
	}
	return NewPayloadCipher(key)
}

// Seal encrypts plaintext. The document ID is bound as associated data so a
// sealed payload cannot be moved to another document row.
func (c *PayloadCipher) Seal(documentID string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := c.gcm.Seal(nil, nonce, plaintext, []byte(documentID))

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = payloadVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)
	return blob, nil
}

// Open decrypts a blob produced by Seal for the same document ID.
func (c *PayloadCipher) Open(documentID string, blob []byte) ([]byte, error) {
	if len(blob) < 1+nonceSize+c.gcm.Overhead() {
		return nil, ErrInvalidBlobSize
	}
	if blob[0] != payloadVersion {
		return nil, fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	plaintext, err := c.gcm.Open(nil, nonce, blob[1+nonceSize:], []byte(documentID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
