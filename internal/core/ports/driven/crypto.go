package driven

// SecretCipher encrypts token secrets at rest and mints opaque random values
// for the handshake flows. Plaintext never leaves the core except as an
// explicit response to an authorized caller.
type SecretCipher interface {
	// EncryptString encrypts a plaintext credential to a storable ciphertext.
	EncryptString(plaintext string) (string, error)

	// DecryptString reverses EncryptString.
	DecryptString(ciphertext string) (string, error)

	// RandomToken returns a cryptographically random opaque string built
	// from byteLen random bytes.
	RandomToken(byteLen int) (string, error)
}
