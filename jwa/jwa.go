// Package jwa enumerates the JSON Web Encryption algorithm identifiers
// defined by RFC 7518 and RFC 8037, and the pluggable registries that
// back them.
package jwa

import (
	"github.com/joselock/jwe/aead"
	"github.com/joselock/jwe/keywrap"
)

// KeyManagementAlgorithm is the "alg" (Algorithm) Header Parameter value,
// RFC 7516 Section 4.1.1.
type KeyManagementAlgorithm string

const (
	KeyManagementAlgorithmUnknown KeyManagementAlgorithm = ""

	// RSA1_5 is RSAES-PKCS1-v1_5.
	RSA1_5 KeyManagementAlgorithm = "RSA1_5"

	// RSA_OAEP is RSAES OAEP using SHA-1 and MGF1 with SHA-1.
	RSA_OAEP KeyManagementAlgorithm = "RSA-OAEP"

	// RSA_OAEP_256 is RSAES OAEP using SHA-256 and MGF1 with SHA-256.
	RSA_OAEP_256 KeyManagementAlgorithm = "RSA-OAEP-256"

	// A128KW is AES Key Wrap using a 128-bit key.
	A128KW KeyManagementAlgorithm = "A128KW"

	// A192KW is AES Key Wrap using a 192-bit key.
	A192KW KeyManagementAlgorithm = "A192KW"

	// A256KW is AES Key Wrap using a 256-bit key.
	A256KW KeyManagementAlgorithm = "A256KW"

	// Dir is direct use of a shared symmetric key as the CEK.
	Dir KeyManagementAlgorithm = "dir"

	// ECDH_ES is Elliptic Curve Diffie-Hellman Ephemeral Static key
	// agreement using Concat KDF; the derived key is used directly as
	// the CEK.
	ECDH_ES KeyManagementAlgorithm = "ECDH-ES"

	// ECDH_ES_A128KW is ECDH-ES with the derived key used to wrap the
	// CEK with A128KW.
	ECDH_ES_A128KW KeyManagementAlgorithm = "ECDH-ES+A128KW"

	// ECDH_ES_A192KW is ECDH-ES with A192KW wrapping.
	ECDH_ES_A192KW KeyManagementAlgorithm = "ECDH-ES+A192KW"

	// ECDH_ES_A256KW is ECDH-ES with A256KW wrapping.
	ECDH_ES_A256KW KeyManagementAlgorithm = "ECDH-ES+A256KW"

	// A128GCMKW is key wrapping with AES GCM using a 128-bit key.
	A128GCMKW KeyManagementAlgorithm = "A128GCMKW"

	// A192GCMKW is key wrapping with AES GCM using a 192-bit key.
	A192GCMKW KeyManagementAlgorithm = "A192GCMKW"

	// A256GCMKW is key wrapping with AES GCM using a 256-bit key.
	A256GCMKW KeyManagementAlgorithm = "A256GCMKW"

	// PBES2_HS256_A128KW is PBES2 with HMAC-SHA-256 and A128KW wrapping.
	PBES2_HS256_A128KW KeyManagementAlgorithm = "PBES2-HS256+A128KW"

	// PBES2_HS384_A192KW is PBES2 with HMAC-SHA-384 and A192KW wrapping.
	PBES2_HS384_A192KW KeyManagementAlgorithm = "PBES2-HS384+A192KW"

	// PBES2_HS512_A256KW is PBES2 with HMAC-SHA-512 and A256KW wrapping.
	PBES2_HS512_A256KW KeyManagementAlgorithm = "PBES2-HS512+A256KW"

	// None is the "none" algorithm. Reserved: no implementation is
	// registered for it, so it is never Available and the jwe package
	// rejects it; there is no opt-in that enables it.
	None KeyManagementAlgorithm = "none"
)

func (alg KeyManagementAlgorithm) String() string {
	if alg == KeyManagementAlgorithmUnknown {
		return "(unknown)"
	}
	return string(alg)
}

// New returns the registered keywrap.Algorithm for alg.
// It panics if alg is not registered; callers that accept untrusted
// algorithm names should check Available first.
func (alg KeyManagementAlgorithm) New() keywrap.Algorithm {
	f := keyManagementAlgorithms[alg]
	if f == nil {
		panic("jwa: requested key management algorithm " + alg.String() + " is not available")
	}
	return f()
}

// Available reports whether alg has a registered implementation.
func (alg KeyManagementAlgorithm) Available() bool {
	return keyManagementAlgorithms[alg] != nil
}

var keyManagementAlgorithms = map[KeyManagementAlgorithm]func() keywrap.Algorithm{
	RSA1_5:             nil,
	RSA_OAEP:           nil,
	RSA_OAEP_256:       nil,
	A128KW:             nil,
	A192KW:             nil,
	A256KW:             nil,
	Dir:                nil,
	ECDH_ES:            nil,
	ECDH_ES_A128KW:     nil,
	ECDH_ES_A192KW:     nil,
	ECDH_ES_A256KW:     nil,
	A128GCMKW:          nil,
	A192GCMKW:          nil,
	A256GCMKW:          nil,
	PBES2_HS256_A128KW: nil,
	PBES2_HS384_A192KW: nil,
	PBES2_HS512_A256KW: nil,
	None:               nil,
}

// RegisterKeyManagementAlgorithm wires f as the implementation of alg.
// Algorithm packages call this from their init() function.
func RegisterKeyManagementAlgorithm(alg KeyManagementAlgorithm, f func() keywrap.Algorithm) {
	g, ok := keyManagementAlgorithms[alg]
	if !ok {
		panic("jwa: RegisterKeyManagementAlgorithm of unknown algorithm " + string(alg))
	}
	if g != nil {
		panic("jwa: RegisterKeyManagementAlgorithm of already registered algorithm " + string(alg))
	}
	keyManagementAlgorithms[alg] = f
}

// EncryptionAlgorithm is the "enc" (Encryption Algorithm) Header
// Parameter value, RFC 7518 Section 5.
type EncryptionAlgorithm string

const (
	EncryptionAlgorithmUnknown EncryptionAlgorithm = ""

	// A128CBC_HS256 is AES_128_CBC_HMAC_SHA_256, RFC 7518 Section 5.2.3.
	A128CBC_HS256 EncryptionAlgorithm = "A128CBC-HS256"

	// A192CBC_HS384 is AES_192_CBC_HMAC_SHA_384, RFC 7518 Section 5.2.4.
	A192CBC_HS384 EncryptionAlgorithm = "A192CBC-HS384"

	// A256CBC_HS512 is AES_256_CBC_HMAC_SHA_512, RFC 7518 Section 5.2.5.
	A256CBC_HS512 EncryptionAlgorithm = "A256CBC-HS512"

	// A128GCM is AES-GCM using a 128-bit key.
	A128GCM EncryptionAlgorithm = "A128GCM"

	// A192GCM is AES-GCM using a 192-bit key.
	A192GCM EncryptionAlgorithm = "A192GCM"

	// A256GCM is AES-GCM using a 256-bit key.
	A256GCM EncryptionAlgorithm = "A256GCM"
)

func (enc EncryptionAlgorithm) String() string {
	if enc == EncryptionAlgorithmUnknown {
		return "(unknown)"
	}
	return string(enc)
}

// New returns the registered aead.Algorithm for enc.
// It panics if enc is not registered; see Available.
func (enc EncryptionAlgorithm) New() aead.Algorithm {
	f := encryptionAlgorithms[enc]
	if f == nil {
		panic("jwa: requested content encryption algorithm " + enc.String() + " is not available")
	}
	return f()
}

// Available reports whether enc has a registered implementation.
func (enc EncryptionAlgorithm) Available() bool {
	return encryptionAlgorithms[enc] != nil
}

var encryptionAlgorithms = map[EncryptionAlgorithm]func() aead.Algorithm{
	A128CBC_HS256: nil,
	A192CBC_HS384: nil,
	A256CBC_HS512: nil,
	A128GCM:       nil,
	A192GCM:       nil,
	A256GCM:       nil,
}

// RegisterEncryptionAlgorithm wires f as the implementation of enc.
func RegisterEncryptionAlgorithm(enc EncryptionAlgorithm, f func() aead.Algorithm) {
	g, ok := encryptionAlgorithms[enc]
	if !ok {
		panic("jwa: RegisterEncryptionAlgorithm of unknown algorithm " + string(enc))
	}
	if g != nil {
		panic("jwa: RegisterEncryptionAlgorithm of already registered algorithm " + string(enc))
	}
	encryptionAlgorithms[enc] = f
}

// CompressionAlgorithm is the "zip" Header Parameter value,
// RFC 7516 Section 4.1.3.
type CompressionAlgorithm string

const (
	CompressionAlgorithmUnknown CompressionAlgorithm = ""

	// DEF is raw DEFLATE compression, RFC 1951.
	DEF CompressionAlgorithm = "DEF"
)

func (zip CompressionAlgorithm) String() string {
	return string(zip)
}

// KeyType is the "kty" Key Type, RFC 7517 Section 4.1 / RFC 8037 Section 2.
type KeyType string

const (
	KeyTypeUnknown KeyType = ""

	EC  KeyType = "EC"
	RSA KeyType = "RSA"
	OKP KeyType = "OKP"
	Oct KeyType = "oct"
)

func (kty KeyType) String() string {
	if kty == KeyTypeUnknown {
		return "(unknown)"
	}
	return string(kty)
}

// EllipticCurve is the "crv" curve identifier.
type EllipticCurve string

const (
	P256   EllipticCurve = "P-256"
	P384   EllipticCurve = "P-384"
	P521   EllipticCurve = "P-521"
	X25519 EllipticCurve = "X25519"
	X448   EllipticCurve = "X448"
)

func (crv EllipticCurve) String() string {
	return string(crv)
}
