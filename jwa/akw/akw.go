// Package akw implements the AES Key Wrap key management algorithms
// (RFC 7518 Section 4.4), A128KW/A192KW/A256KW, built on the NIST
// SP 800-38F / RFC 3394 key wrap construction.
package akw

import (
	"crypto/aes"
	"crypto/subtle"
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
	jwa.RegisterKeyManagementAlgorithm(jwa.A128KW, New128)
	jwa.RegisterKeyManagementAlgorithm(jwa.A192KW, New192)
	jwa.RegisterKeyManagementAlgorithm(jwa.A256KW, New256)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

// Algorithm is AES Key Wrap pinned to a given key size.
type Algorithm struct {
	keySize int
}

// NewKeyWrapper returns a KeyWrapper bound to key.PrivateKey(), which
// must be []byte of the algorithm's key size.
func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	raw, ok := key.PrivateKey().([]byte)
	if !ok {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("akw: invalid key type: []byte is required but got %T", key.PrivateKey()))
	}
	if len(raw) != alg.keySize {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("akw: invalid key size: %d is required but got %d", alg.keySize, len(raw)))
	}
	return &KeyWrapper{key: raw}
}

var _ keywrap.KeyWrapper = (*KeyWrapper)(nil)

// KeyWrapper wraps/unwraps a CEK under a fixed symmetric key.
type KeyWrapper struct {
	key []byte
}

// defaultIV is the RFC 3394 Section 2.2.3.1 default initial value.
var defaultIV = []byte{0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6}

const chunkLen = 8

// WrapKey wraps cek per RFC 3394 Section 2.2.1. cek must be a
// multiple of 8 bytes; every CEK size this library generates is.
func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	if len(cek)%chunkLen != 0 || len(cek) == 0 {
		return nil, fmt.Errorf("akw: invalid CEK length: %d", len(cek))
	}
	block, err := aes.NewCipher(w.key)
	if err != nil {
		return nil, err
	}

	n := len(cek) / chunkLen
	buf := make([]byte, len(cek)+chunkLen*2)
	r := buf[chunkLen*2:]
	copy(r, cek)

	a := buf[:chunkLen]
	b := buf[chunkLen : chunkLen*2]
	ab := buf[:chunkLen*2]
	copy(a, defaultIV)
	for t := 0; t < 6*n; t++ {
		copy(b, r[(t%n)*chunkLen:])
		block.Encrypt(ab, ab)

		u := t + 1
		a[0] ^= byte(u >> 56)
		a[1] ^= byte(u >> 48)
		a[2] ^= byte(u >> 40)
		a[3] ^= byte(u >> 32)
		a[4] ^= byte(u >> 24)
		a[5] ^= byte(u >> 16)
		a[6] ^= byte(u >> 8)
		a[7] ^= byte(u)

		copy(r[(t%n)*chunkLen:], b)
	}

	copy(b, a)
	return buf[chunkLen:], nil
}

// maxWrappedKeyLen bounds the wrapped-key length UnwrapKey accepts,
// protecting against oversized attacker-controlled input; no CEK this
// library wraps exceeds 64 bytes (A256CBC-HS512), so 72 bytes covers
// the largest wrapped output plus the 8-byte integrity block with no
// legitimate case excluded.
const maxWrappedKeyLen = 72

// UnwrapKey reverses WrapKey, rejecting data whose recovered
// integrity check register does not match defaultIV.
func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	if len(data)%chunkLen != 0 || len(data) < chunkLen*2 || len(data) > maxWrappedKeyLen {
		return nil, fmt.Errorf("akw: invalid wrapped key length: %d: %w", len(data), keywrap.ErrInvalidInput)
	}
	block, err := aes.NewCipher(w.key)
	if err != nil {
		return nil, err
	}

	n := (len(data) / chunkLen) - 1
	buf := make([]byte, len(data)+chunkLen)
	r := buf[chunkLen*2:]
	copy(r, data[chunkLen:])

	a := buf[:chunkLen]
	b := buf[chunkLen : chunkLen*2]
	ab := buf[:chunkLen*2]
	copy(a, data)
	for t := 0; t < 6*n; t++ {
		u := 6*n - t
		a[0] ^= byte(u >> 56)
		a[1] ^= byte(u >> 48)
		a[2] ^= byte(u >> 40)
		a[3] ^= byte(u >> 32)
		a[4] ^= byte(u >> 24)
		a[5] ^= byte(u >> 16)
		a[6] ^= byte(u >> 8)
		a[7] ^= byte(u)

		copy(b, r[((u-1)%n)*chunkLen:])
		block.Decrypt(ab, ab)
		copy(r[((u-1)%n)*chunkLen:], b)
	}

	if subtle.ConstantTimeCompare(a, defaultIV) == 0 {
		return nil, fmt.Errorf("akw: failed to unwrap key: integrity check failed")
	}

	return buf[chunkLen*2:], nil
}
