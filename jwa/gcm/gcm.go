// Package gcm implements the AxxxGCM content encryption algorithms,
// RFC 7518 Section 5.3, using the standard library's native AES-GCM.
package gcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"github.com/joselock/jwe/aead"
	"github.com/joselock/jwe/jwa"
)

var a128 = &Algorithm{keyLen: 16}
var a192 = &Algorithm{keyLen: 24}
var a256 = &Algorithm{keyLen: 32}

func New128() aead.Algorithm { return a128 }
func New192() aead.Algorithm { return a192 }
func New256() aead.Algorithm { return a256 }

func init() {
	jwa.RegisterEncryptionAlgorithm(jwa.A128GCM, New128)
	jwa.RegisterEncryptionAlgorithm(jwa.A192GCM, New192)
	jwa.RegisterEncryptionAlgorithm(jwa.A256GCM, New256)
}

var _ aead.Algorithm = (*Algorithm)(nil)

// Algorithm is AES-GCM pinned to a key size. The 96-bit IV RFC 7518
// Section 5.3 mandates is the standard library cipher.NewGCM default,
// so no custom GCM construction is needed here.
type Algorithm struct {
	keyLen int
}

func (alg *Algorithm) CEKSize() int { return alg.keyLen }
func (alg *Algorithm) IVSize() int  { return 12 }

func (alg *Algorithm) GenerateCEK() ([]byte, error) {
	cek := make([]byte, alg.keyLen)
	if _, err := rand.Read(cek); err != nil {
		return nil, err
	}
	return cek, nil
}

func (alg *Algorithm) GenerateIV() ([]byte, error) {
	iv := make([]byte, alg.IVSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func (alg *Algorithm) newAEAD(cek []byte) (cipher.AEAD, error) {
	if len(cek) != alg.keyLen {
		return nil, errors.New("gcm: invalid content encryption key length")
	}
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under cek/iv, authenticating aad, and
// splits the sealed output into ciphertext and tag so each can occupy
// its own compact-serialization segment.
func (alg *Algorithm) Encrypt(cek, iv, aad, plaintext []byte) (ciphertext, tag []byte, err error) {
	g, err := alg.newAEAD(cek)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != g.NonceSize() {
		return nil, nil, errors.New("gcm: invalid iv length")
	}
	sealed := g.Seal(nil, iv, plaintext, aad)
	return sealed[:len(sealed)-g.Overhead()], sealed[len(sealed)-g.Overhead():], nil
}

func (alg *Algorithm) Decrypt(cek, iv, aad, ciphertext, tag []byte) (plaintext []byte, err error) {
	g, err := alg.newAEAD(cek)
	if err != nil {
		return nil, err
	}
	if len(iv) != g.NonceSize() {
		return nil, errors.New("gcm: invalid iv length")
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err = g.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, errors.New("gcm: authentication tag mismatch")
	}
	return plaintext, nil
}
