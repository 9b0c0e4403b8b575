// Package rsaoaep implements the RSA-OAEP and RSA-OAEP-256 key
// management algorithms, RFC 7518 Section 4.3.
package rsaoaep

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	_ "crypto/sha1"
	_ "crypto/sha256"

	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/keywrap"
)

var algSHA1 = &Algorithm{hash: crypto.SHA1}
var algSHA256 = &Algorithm{hash: crypto.SHA256}

func New() keywrap.Algorithm    { return algSHA1 }
func New256() keywrap.Algorithm { return algSHA256 }

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.RSA_OAEP, New)
	jwa.RegisterKeyManagementAlgorithm(jwa.RSA_OAEP_256, New256)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

// Algorithm is RSAES OAEP pinned to a MGF1 hash.
type Algorithm struct {
	hash crypto.Hash
}

// label is the empty OAEP label RFC 7518 Section 4.3 mandates.
var label = []byte{}

func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	var priv *rsa.PrivateKey
	if p := key.PrivateKey(); p != nil {
		var ok bool
		priv, ok = p.(*rsa.PrivateKey)
		if !ok {
			return keywrap.NewInvalidKeyWrapper(fmt.Errorf("rsaoaep: invalid private key type: %T", p))
		}
	}
	var pub *rsa.PublicKey
	if p := key.PublicKey(); p != nil {
		var ok bool
		pub, ok = p.(*rsa.PublicKey)
		if !ok {
			return keywrap.NewInvalidKeyWrapper(fmt.Errorf("rsaoaep: invalid public key type: %T", p))
		}
	} else if priv != nil {
		pub = &priv.PublicKey
	}
	if priv == nil && pub == nil {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("rsaoaep: no usable key material"))
	}
	return &KeyWrapper{alg: alg, priv: priv, pub: pub}
}

var _ keywrap.KeyWrapper = (*KeyWrapper)(nil)

type KeyWrapper struct {
	alg  *Algorithm
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	if w.pub == nil {
		return nil, fmt.Errorf("rsaoaep: no public key available to wrap with")
	}
	hash := w.alg.hash.New()
	return rsa.EncryptOAEP(hash, rand.Reader, w.pub, cek, label)
}

func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	if w.priv == nil {
		return nil, fmt.Errorf("rsaoaep: no private key available to unwrap with")
	}
	hash := w.alg.hash.New()
	cek, err := rsa.DecryptOAEP(hash, rand.Reader, w.priv, data, label)
	if err != nil {
		return nil, fmt.Errorf("rsaoaep: failed to decrypt CEK: %w", err)
	}
	return cek, nil
}
