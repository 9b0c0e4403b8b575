// Package rsapkcs1 implements the RSA1_5 key management algorithm,
// RFC 7518 Section 4.2 (RSAES-PKCS1-v1_5).
package rsapkcs1

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/keywrap"
)

var alg = &Algorithm{}

func New() keywrap.Algorithm { return alg }

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.RSA1_5, New)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

type Algorithm struct{}

func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	var priv *rsa.PrivateKey
	if p := key.PrivateKey(); p != nil {
		var ok bool
		priv, ok = p.(*rsa.PrivateKey)
		if !ok {
			return keywrap.NewInvalidKeyWrapper(fmt.Errorf("rsapkcs1: invalid private key type: %T", p))
		}
	}
	var pub *rsa.PublicKey
	if p := key.PublicKey(); p != nil {
		var ok bool
		pub, ok = p.(*rsa.PublicKey)
		if !ok {
			return keywrap.NewInvalidKeyWrapper(fmt.Errorf("rsapkcs1: invalid public key type: %T", p))
		}
	} else if priv != nil {
		pub = &priv.PublicKey
	}
	if priv == nil && pub == nil {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("rsapkcs1: no usable key material"))
	}
	return &KeyWrapper{priv: priv, pub: pub}
}

var _ keywrap.KeyWrapper = (*KeyWrapper)(nil)

type KeyWrapper struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	if w.pub == nil {
		return nil, fmt.Errorf("rsapkcs1: no public key available to wrap with")
	}
	return rsa.EncryptPKCS1v15(rand.Reader, w.pub, cek)
}

// UnwrapKey decrypts data using rsa.DecryptPKCS1v15SessionKey rather
// than rsa.DecryptPKCS1v15: on a padding error or length mismatch it
// silently substitutes a random key of the expected length instead of
// returning an error, so that callers who go on to use the returned
// bytes as a CEK (and fail a later MAC/tag check the same way they
// would for a bad-but-well-formed key) cannot distinguish a padding
// oracle from a MAC failure. This is the standard Bleichenbacher
// countermeasure RFC 7518 Section 4.2 Appendix calls for.
func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	if w.priv == nil {
		return nil, fmt.Errorf("rsapkcs1: no private key available to unwrap with")
	}

	cekLen, err := expectedCEKSize(h)
	if err != nil {
		return nil, err
	}

	random := make([]byte, cekLen)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("rsapkcs1: failed to generate fallback session key: %w", err)
	}

	if err := rsa.DecryptPKCS1v15SessionKey(rand.Reader, w.priv, data, random); err != nil {
		return nil, fmt.Errorf("rsapkcs1: failed to decrypt CEK: %w", err)
	}
	return random, nil
}

func expectedCEKSize(h keywrap.Header) (int, error) {
	enc := jwa.EncryptionAlgorithm(h.EncryptionAlgorithmName())
	if !enc.Available() {
		return 0, fmt.Errorf("rsapkcs1: unknown or unregistered enc %q", h.EncryptionAlgorithmName())
	}
	return enc.New().CEKSize(), nil
}
