// Package pbes2 implements the PBES2-HS256/384/512+AxxxKW password-based
// key management algorithms, RFC 7518 Section 4.8.
package pbes2

import (
	"crypto"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/rand"
	"fmt"
	"hash"

	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/jwa/akw"
	"github.com/joselock/jwe/keywrap"
	"golang.org/x/crypto/pbkdf2"
)

// defaultIterationCount is the PBKDF2 iteration count used when a
// caller wraps a key without setting one explicitly. RFC 7518
// Section 4.8.1.2 recommends "at least 1,000"; this library defaults
// to 4096.
const defaultIterationCount = 4096

// defaultSaltInputSize is the length, in bytes, of a generated
// random PBES2 Salt Input (the "p2s" component before the algorithm
// name and null separator are prepended).
const defaultSaltInputSize = 32

// minSaltInputSize is the shortest "p2s" this library accepts on
// unwrap; RFC 7518 Section 4.8.1.1 requires at least 8 bytes of
// random salt input.
const minSaltInputSize = 8

var a128kw = &Algorithm{name: string(jwa.PBES2_HS256_A128KW), hash: crypto.SHA256.New, size: 16}
var a192kw = &Algorithm{name: string(jwa.PBES2_HS384_A192KW), hash: crypto.SHA384.New, size: 24}
var a256kw = &Algorithm{name: string(jwa.PBES2_HS512_A256KW), hash: crypto.SHA512.New, size: 32}

func NewHS256A128KW() keywrap.Algorithm { return a128kw }
func NewHS384A192KW() keywrap.Algorithm { return a192kw }
func NewHS512A256KW() keywrap.Algorithm { return a256kw }

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.PBES2_HS256_A128KW, NewHS256A128KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.PBES2_HS384_A192KW, NewHS384A192KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.PBES2_HS512_A256KW, NewHS512A256KW)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

type Algorithm struct {
	name string
	hash func() hash.Hash
	size int
}

// akw returns the AES Key Wrap algorithm matching this PBES2
// variant's derived-key size.
func (alg *Algorithm) akw() keywrap.Algorithm {
	switch alg.size {
	case 16:
		return akw.New128()
	case 24:
		return akw.New192()
	default:
		return akw.New256()
	}
}

// NewKeyWrapper returns a KeyWrapper bound to the password bytes in
// key.PrivateKey().
func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	password, ok := key.PrivateKey().([]byte)
	if !ok {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("pbes2: invalid key type: %T", key.PrivateKey()))
	}
	return &KeyWrapper{alg: alg, password: password}
}

var _ keywrap.KeyWrapper = (*KeyWrapper)(nil)

type KeyWrapper struct {
	alg      *Algorithm
	password []byte
}

func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	p2s := h.PBES2SaltInput()
	if len(p2s) == 0 {
		p2s = make([]byte, defaultSaltInputSize)
		if _, err := rand.Read(p2s); err != nil {
			return nil, fmt.Errorf("pbes2: failed to generate salt input: %w", err)
		}
		h.SetPBES2SaltInput(p2s)
	}
	p2c := h.PBES2Count()
	if p2c == 0 {
		p2c = defaultIterationCount
		h.SetPBES2Count(p2c)
	}
	dk := w.derive(p2s, p2c)
	data, err := w.alg.akw().NewKeyWrapper(rawKey(dk)).WrapKey(cek, h)
	if err != nil {
		return nil, fmt.Errorf("pbes2: failed to wrap key: %w", err)
	}
	return data, nil
}

func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	p2s := h.PBES2SaltInput()
	if len(p2s) < minSaltInputSize {
		return nil, fmt.Errorf("pbes2: p2s is too short: %d bytes, at least %d required: %w", len(p2s), minSaltInputSize, keywrap.ErrInvalidInput)
	}
	p2c := h.PBES2Count()
	if p2c <= 0 {
		return nil, fmt.Errorf("pbes2: invalid p2c: %d: %w", p2c, keywrap.ErrInvalidInput)
	}
	dk := w.derive(p2s, p2c)
	cek, err := w.alg.akw().NewKeyWrapper(rawKey(dk)).UnwrapKey(data, h)
	if err != nil {
		return nil, fmt.Errorf("pbes2: failed to unwrap key: %w", err)
	}
	return cek, nil
}

// derive runs PBKDF2 over the salt formed by the algorithm name, a
// NUL byte, and p2s, per RFC 7518 Section 4.8.1.1.
func (w *KeyWrapper) derive(p2s []byte, p2c int) []byte {
	salt := make([]byte, 0, len(w.alg.name)+1+len(p2s))
	salt = append(salt, w.alg.name...)
	salt = append(salt, 0)
	salt = append(salt, p2s...)
	return pbkdf2.Key(w.password, salt, p2c, w.alg.size, w.alg.hash)
}

// rawKey adapts a derived symmetric key to keywrap.Key so it can be
// handed to akw.Algorithm.NewKeyWrapper without a keyset.Key value.
type rawKey []byte

func (k rawKey) PrivateKey() any { return []byte(k) }
func (k rawKey) PublicKey() any  { return []byte(k) }
