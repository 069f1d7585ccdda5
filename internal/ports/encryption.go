package ports

// EncryptionService reversibly encrypts secret material before persistence.
// The key comes from process configuration, never from code.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
