package secrets

import (
	"encoding/base64"
	"testing"
)

func testKey() []byte {
	return []byte("01234567890123456789012345678901")
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	original := "ya29.a0AfH6SMC-provider-access-token"

	blob, err := c.EncryptString(original)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if blob == original {
		t.Error("ciphertext should not equal plaintext")
	}

	// Verify blob format
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("blob is not valid base64: %v", err)
	}
	if len(raw) < 1+nonceSize {
		t.Fatalf("blob too short: %d bytes", len(raw))
	}
	if raw[0] != blobVersion {
		t.Errorf("version byte: got %d, want %d", raw[0], blobVersion)
	}

	decrypted, err := c.DecryptString(blob)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if decrypted != original {
		t.Errorf("got %q, want %q", decrypted, original)
	}
}

func TestNewCipher_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{"too short", 16},
		{"too long", 64},
		{"empty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := make([]byte, tt.keySize)
			_, err := NewCipher(key)
			if err == nil {
				t.Error("expected error for invalid key size")
			}
		})
	}
}

func TestNewCipherFromHex(t *testing.T) {
	c, err := NewCipherFromHex("3031323334353637383930313233343536373839303132333435363738393031")
	if err != nil {
		t.Fatalf("NewCipherFromHex: %v", err)
	}

	blob, err := c.EncryptString("secret")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	decrypted, err := c.DecryptString(blob)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if decrypted != "secret" {
		t.Errorf("got %q, want %q", decrypted, "secret")
	}
}

func TestNewCipherFromHex_Invalid(t *testing.T) {
	if _, err := NewCipherFromHex("not-hex"); err == nil {
		t.Error("expected error for non-hex key")
	}
	if _, err := NewCipherFromHex("abcd"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestCipher_DecryptInvalidBlob(t *testing.T) {
	c, _ := NewCipher(testKey())

	tests := []struct {
		name string
		blob string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
		{"too short", base64.StdEncoding.EncodeToString([]byte{0x01, 0x02})},
		{"wrong version", base64.StdEncoding.EncodeToString(append([]byte{0x99}, make([]byte, 100)...))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.DecryptString(tt.blob); err == nil {
				t.Error("expected error for invalid blob")
			}
		})
	}
}

func TestCipher_WrongKey(t *testing.T) {
	c1, _ := NewCipher(testKey())
	c2, _ := NewCipher([]byte("10987654321098765432109876543210"))

	blob, err := c1.EncryptString("secret data")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}

	if _, err := c2.DecryptString(blob); err == nil {
		t.Error("expected error when decrypting with wrong key")
	}
}

func TestCipher_Tampered(t *testing.T) {
	c, _ := NewCipher(testKey())

	blob, err := c.EncryptString("secret data")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(blob)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.DecryptString(tampered); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestCipher_UniqueNonce(t *testing.T) {
	c, _ := NewCipher(testKey())

	nonces := make(map[string]bool)
	for i := 0; i < 10; i++ {
		blob, err := c.EncryptString("same value")
		if err != nil {
			t.Fatalf("EncryptString %d: %v", i, err)
		}
		raw, _ := base64.StdEncoding.DecodeString(blob)
		nonce := string(raw[1 : 1+nonceSize])
		if nonces[nonce] {
			t.Errorf("duplicate nonce at iteration %d", i)
		}
		nonces[nonce] = true
	}
}

func TestCipher_RandomToken(t *testing.T) {
	c, _ := NewCipher(testKey())

	token, err := c.RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	// 32 random bytes hex-encode to 64 characters
	if len(token) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(token))
	}

	other, _ := c.RandomToken(32)
	if token == other {
		t.Error("expected distinct random tokens")
	}
}
