package vfskit

import (
	"strings"
	"testing"
)

func TestAESCryptor(t *testing.T) {
	c, err := NewAESCryptor([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewAESCryptor() error = %v", err)
	}

	enc, err := c.Encrypt("s3cret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if enc != strings.ToUpper(enc) {
		t.Errorf("Encrypt() = %q, want upper-case hex", enc)
	}
	again, _ := c.Encrypt("s3cret")
	if again == enc {
		t.Error("Encrypt() reused a nonce")
	}

	for _, e := range []string{enc, again, strings.ToLower(enc)} {
		plain, err := c.Decrypt(e)
		if err != nil || plain != "s3cret" {
			t.Errorf("Decrypt(%q) = %q, %v", e, plain, err)
		}
	}

	other, _ := NewAESCryptor([]byte("fedcba9876543210"))
	if _, err := other.Decrypt(enc); err == nil {
		t.Error("Decrypt() with the wrong key succeeded")
	}
	for _, bad := range []string{"zz", "00", ""} {
		if _, err := c.Decrypt(bad); err == nil {
			t.Errorf("Decrypt(%q) succeeded", bad)
		}
	}
}

func TestNewAESCryptorKeySize(t *testing.T) {
	for _, n := range []int{16, 24, 32} {
		if _, err := NewAESCryptor(make([]byte, n)); err != nil {
			t.Errorf("NewAESCryptor(%d bytes) error = %v", n, err)
		}
	}
	if _, err := NewAESCryptor([]byte("short")); err == nil {
		t.Error("NewAESCryptor() accepted a 5 byte key")
	}
}

func TestWrapPassword(t *testing.T) {
	c := DefaultCryptor()
	if c != DefaultCryptor() {
		t.Error("DefaultCryptor() is not shared")
	}
	wrapped, err := WrapPassword(c, "pw")
	if err != nil {
		t.Fatalf("WrapPassword() error = %v", err)
	}
	if !strings.HasPrefix(wrapped, "{") || !strings.HasSuffix(wrapped, "}") {
		t.Fatalf("WrapPassword() = %q", wrapped)
	}
	plain, err := c.Decrypt(wrapped[1 : len(wrapped)-1])
	if err != nil || plain != "pw" {
		t.Errorf("Decrypt() = %q, %v", plain, err)
	}
}
