package vfskit

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Cryptor encrypts and decrypts the passwords embedded in URIs as {HEX}.
type Cryptor interface {
	Encrypt(plain string) (string, error)
	Decrypt(encrypted string) (string, error)
}

// defaultKey is used when no key is configured. It only obscures passwords.
var defaultKey = []byte("vfskit-cryptor!!")

var (
	defaultCryptorOnce sync.Once
	defaultCryptor     Cryptor
)

// DefaultCryptor returns the process-wide AES cryptor using the built-in key.
func DefaultCryptor() Cryptor {
	defaultCryptorOnce.Do(func() {
		c, err := NewAESCryptor(defaultKey)
		if err != nil {
			panic(err)
		}
		defaultCryptor = c
	})
	return defaultCryptor
}

// AESCryptor encrypts with AES-GCM and encodes nonce and ciphertext as upper-case hex.
type AESCryptor struct {
	gcm cipher.AEAD
}

// NewAESCryptor creates a cryptor. The key must be 16, 24 or 32 bytes long.
func NewAESCryptor(key []byte) (*AESCryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptor: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptor: %w", err)
	}
	return &AESCryptor{gcm: gcm}, nil
}

// Encrypt implements Cryptor
func (c *AESCryptor) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.gcm.Seal(nonce, nonce, []byte(plain), nil)
	return strings.ToUpper(hex.EncodeToString(sealed)), nil
}

// Decrypt implements Cryptor
func (c *AESCryptor) Decrypt(encrypted string) (string, error) {
	data, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("cryptor: %w", err)
	}
	n := c.gcm.NonceSize()
	if len(data) < n+c.gcm.Overhead() {
		return "", errors.New("cryptor: ciphertext too short")
	}
	plain, err := c.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("cryptor: %w", err)
	}
	return string(plain), nil
}

// WrapPassword encrypts plain and returns it in the {HEX} form accepted in URIs.
func WrapPassword(c Cryptor, plain string) (string, error) {
	enc, err := c.Encrypt(plain)
	if err != nil {
		return "", err
	}
	return "{" + enc + "}", nil
}
