// Package keywrap defines the interfaces Key Management Algorithms
// (RFC 7518 Section 4) implement to wrap and unwrap a Content
// Encryption Key.
package keywrap

import "errors"

// ErrInvalidInput is wrapped by a KeyWrapper's UnwrapKey error when the
// wrapped-key bytes or an accompanying header field (p2s, p2c, ...)
// are structurally malformed — wrong length, out of range — rather
// than failing an integrity or authentication check. Callers use
// errors.Is against this sentinel to tell the two apart, e.g. to
// report a distinct error kind for malformed input versus a failed
// tag/agreement check.
var ErrInvalidInput = errors.New("keywrap: malformed input")

// Key is the recipient or sender key material handed to an Algorithm.
// It is deliberately opaque here: the concrete shape (RSA key pair, EC
// key pair, raw symmetric bytes, password bytes) is interpreted by
// each Algorithm implementation.
type Key interface {
	PrivateKey() any
	PublicKey() any
}

// Header is the subset of the protected header an Algorithm may read
// or write while wrapping/unwrapping. It is implemented by
// *header.Header; it lives here, not in the header package, so that
// jwa/* packages never import the jwe core.
type Header interface {
	// AlgorithmName and EncryptionAlgorithmName return the raw "alg"
	// and "enc" header values. They are plain strings, not jwa-typed,
	// so that this package does not import jwa (which imports this
	// package for its own Algorithm/KeyWrapper return types).
	AlgorithmName() string
	EncryptionAlgorithmName() string

	InitializationVector() []byte
	SetInitializationVector(iv []byte)

	AuthenticationTag() []byte
	SetAuthenticationTag(tag []byte)

	PBES2SaltInput() []byte
	SetPBES2SaltInput(p2s []byte)

	PBES2Count() int
	SetPBES2Count(p2c int)

	EphemeralPublicKey() any
	SetEphemeralPublicKey(epk any)

	AgreementPartyUInfo() []byte
	SetAgreementPartyUInfo(apu []byte)

	AgreementPartyVInfo() []byte
	SetAgreementPartyVInfo(apv []byte)
}

// Algorithm is a Key Management Algorithm: given a key, it produces a
// KeyWrapper bound to that key.
type Algorithm interface {
	NewKeyWrapper(key Key) KeyWrapper
}

// KeyWrapper wraps or unwraps a Content Encryption Key. Implementations
// read and write alg-specific header fields (epk, iv, tag, p2s, p2c)
// through h as needed; see spec.md §4.3 for the per-alg contract.
type KeyWrapper interface {
	WrapKey(cek []byte, h Header) (encryptedKey []byte, err error)
	UnwrapKey(encryptedKey []byte, h Header) (cek []byte, err error)
}

// KeyDeriver is implemented by KeyWrapper values for algorithms where
// the CEK is not generated by the caller but derived as a side effect
// of wrapping (ECDH-ES direct mode: the agreed, KDF-derived key *is*
// the CEK). jwe.Encrypt checks for this interface before falling
// back to generating a random CEK itself.
type KeyDeriver interface {
	DeriveKey(h Header) (cek, encryptedKey []byte, err error)
}

// NewInvalidKeyWrapper returns a KeyWrapper whose every operation fails
// with err. Algorithm.NewKeyWrapper implementations return this instead
// of a nil KeyWrapper when the supplied Key is unusable, so that the
// failure surfaces at the call site with a clear message rather than a
// nil-pointer panic.
func NewInvalidKeyWrapper(err error) KeyWrapper {
	return invalidKeyWrapper{err: err}
}

type invalidKeyWrapper struct {
	err error
}

func (w invalidKeyWrapper) WrapKey(cek []byte, h Header) ([]byte, error) {
	return nil, w.err
}

func (w invalidKeyWrapper) UnwrapKey(data []byte, h Header) ([]byte, error) {
	return nil, w.err
}
