package mocks

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockSecretCipher is a transparent cipher for testing. Encryption prefixes
// the plaintext so tests can assert that stored values are not plaintext,
// while still being able to read them back.
type MockSecretCipher struct {
	mu      sync.Mutex
	counter int

	EncryptErr error
	DecryptErr error
	RandomErr  error
}

// NewMockSecretCipher creates a new MockSecretCipher
func NewMockSecretCipher() *MockSecretCipher {
	return &MockSecretCipher{}
}

func (m *MockSecretCipher) EncryptString(plaintext string) (string, error) {
	if m.EncryptErr != nil {
		return "", m.EncryptErr
	}
	return "enc:" + plaintext, nil
}

func (m *MockSecretCipher) DecryptString(ciphertext string) (string, error) {
	if m.DecryptErr != nil {
		return "", m.DecryptErr
	}
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not a mock ciphertext")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// RandomToken returns deterministic, unique values per call.
func (m *MockSecretCipher) RandomToken(byteLen int) (string, error) {
	if m.RandomErr != nil {
		return "", m.RandomErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("random-token-%d", m.counter), nil
}
