// Package direct implements the "dir" key management algorithm:
// direct use of a shared symmetric key as the Content Encryption Key,
// RFC 7518 Section 4.5.
package direct

import (
	"fmt"

	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/keywrap"
)

var alg = &Algorithm{}

func New() keywrap.Algorithm { return alg }

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.Dir, New)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

type Algorithm struct{}

func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	cek, ok := key.PrivateKey().([]byte)
	if !ok {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("dir: invalid key type: %T", key.PrivateKey()))
	}
	return &KeyWrapper{cek: cek}
}

var (
	_ keywrap.KeyWrapper = (*KeyWrapper)(nil)
	_ keywrap.KeyDeriver = (*KeyWrapper)(nil)
)

// KeyWrapper carries the shared key forward as the CEK itself; there
// is no wrapped-key segment to produce or consume.
type KeyWrapper struct {
	cek []byte
}

// WrapKey returns the empty encrypted key, matching RFC 7516 Section
// 5.1 step 7 ("Direct Key Agreement" and "Direct Encryption" both
// produce an empty JWE Encrypted Key).
func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	return []byte{}, nil
}

// UnwrapKey ignores the (empty) encrypted key segment and returns the
// shared key directly.
func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	return w.cek, nil
}

// DeriveKey lets jwe.Encrypt skip generating a random CEK: for
// "dir", the CEK is the shared key itself.
func (w *KeyWrapper) DeriveKey(h keywrap.Header) (cek, encryptedKey []byte, err error) {
	return w.cek, []byte{}, nil
}
