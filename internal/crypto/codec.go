package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Codec encrypts and decrypts capsule content with a single shared key.
// The nonce is prepended to the ciphertext and the result is base64 encoded
// so it can live in a text column.
//
// Decrypt never fails hard: records written before encryption was introduced
// (or corrupted ones) decode to themselves, which keeps legacy plaintext
// capsules readable.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives an AES-256-GCM codec from the given passphrase.
func NewCodec(passphrase string) (*Codec, error) {
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (c *Codec) Encrypt(plaintext string) (string, error) {
	sealed, err := c.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Input that was never produced by this codec is
// returned unchanged.
func (c *Codec) Decrypt(ciphertext string) string {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ciphertext
	}
	plain, err := c.DecryptBytes(raw)
	if err != nil {
		return ciphertext
	}
	return string(plain)
}

// EncryptBytes seals an opaque payload (file attachments).
func (c *Codec) EncryptBytes(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBytes opens a payload produced by EncryptBytes.
func (c *Codec) DecryptBytes(sealed []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plain, nil
}

// DecryptFileData decodes a file payload with the same fallback semantics as
// Decrypt: unopenable data comes back as-is.
func (c *Codec) DecryptFileData(data []byte) []byte {
	plain, err := c.DecryptBytes(data)
	if err != nil {
		return data
	}
	return plain
}
