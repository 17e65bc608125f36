package sync

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize          = 32 // AES-256
	nonceSize        = 12
	saltSize         = 16
	pbkdf2Iterations = 100000
)

// ErrDecrypt is returned for a wrong key or a tampered document
var ErrDecrypt = errors.New("decryption failed: invalid key or corrupted data")

// Crypto seals project documents before they leave the machine
type Crypto struct {
	key []byte
}

// NewCrypto derives the document key from a passphrase
func NewCrypto(passphrase string, salt []byte) *Crypto {
	return &Crypto{key: deriveKey(passphrase, salt)}
}

// NewCryptoFromKey restores a Crypto from an encoded key
func NewCryptoFromKey(encoded string) (*Crypto, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid encryption key length %d", len(key))
	}
	return &Crypto{key: key}, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

// GenerateSalt returns a random salt
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Key returns the encoded key for storage
func (c *Crypto) Key() string {
	return base64.StdEncoding.EncodeToString(c.key)
}

// Fingerprint is a short, non-secret identifier of the key
func (c *Crypto) Fingerprint() string {
	sum := sha256.Sum256(c.key)
	return base64.RawURLEncoding.EncodeToString(sum[:])[:12]
}

// Encrypt seals plaintext with AES-256-GCM; the nonce is prepended
func (c *Crypto) Encrypt(plaintext []byte) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (c *Crypto) Decrypt(encrypted string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, err
	}
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func (c *Crypto) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
