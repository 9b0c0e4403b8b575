// Package gcmkw implements the AxxxGCMKW key management algorithms,
// RFC 7518 Section 4.7: wrapping the CEK with AES-GCM under a shared
// symmetric key, using the header's "iv"/"tag" fields to carry the
// GCM nonce and authentication tag.
package gcmkw

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/keywrap"
)

var a128 = &Algorithm{keySize: 16}
var a192 = &Algorithm{keySize: 24}
var a256 = &Algorithm{keySize: 32}

func New128() keywrap.Algorithm { return a128 }
func New192() keywrap.Algorithm { return a192 }
func New256() keywrap.Algorithm { return a256 }

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.A128GCMKW, New128)
	jwa.RegisterKeyManagementAlgorithm(jwa.A192GCMKW, New192)
	jwa.RegisterKeyManagementAlgorithm(jwa.A256GCMKW, New256)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

type Algorithm struct {
	keySize int
}

func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	raw, ok := key.PrivateKey().([]byte)
	if !ok {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("gcmkw: invalid key type: %T", key.PrivateKey()))
	}
	if len(raw) != alg.keySize {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("gcmkw: invalid key size: %d-bit key required, got %d-bit", alg.keySize*8, len(raw)*8))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("gcmkw: failed to initialize cipher: %w", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("gcmkw: failed to initialize gcm: %w", err))
	}
	return &KeyWrapper{aead: gcm}
}

var _ keywrap.KeyWrapper = (*KeyWrapper)(nil)

type KeyWrapper struct {
	aead cipher.AEAD
}

// WrapKey seals cek under a nonce, stores the nonce in the header's
// "iv" field and the tag in "tag", and returns the ciphertext as the
// JWE Encrypted Key. If the header already carries an "iv" of the
// correct size, it is honored as-is rather than overwritten; one is
// generated only when absent.
func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	iv := h.InitializationVector()
	if len(iv) == 0 {
		iv = make([]byte, w.aead.NonceSize())
		if _, err := rand.Read(iv); err != nil {
			return nil, fmt.Errorf("gcmkw: failed to generate iv: %w", err)
		}
		h.SetInitializationVector(iv)
	} else if len(iv) != w.aead.NonceSize() {
		return nil, fmt.Errorf("gcmkw: invalid iv size: %d", len(iv))
	}

	sealed := w.aead.Seal(nil, iv, cek, nil)
	ciphertext, tag := sealed[:len(cek)], sealed[len(cek):]
	h.SetAuthenticationTag(tag)
	return ciphertext, nil
}

// UnwrapKey reads the nonce and tag back from h and opens data.
func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	iv := h.InitializationVector()
	if len(iv) != w.aead.NonceSize() {
		return nil, fmt.Errorf("gcmkw: invalid iv size: %d", len(iv))
	}
	tag := h.AuthenticationTag()
	sealed := make([]byte, 0, len(data)+len(tag))
	sealed = append(sealed, data...)
	sealed = append(sealed, tag...)

	cek, err := w.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("gcmkw: failed to decrypt CEK: %w", err)
	}
	return cek, nil
}
