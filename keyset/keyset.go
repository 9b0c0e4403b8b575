// Package keyset is the opaque key store the jwe package treats as an
// external collaborator, per spec.md §1: "The JWK / JWKS data model
// and its import/export from PEM/DER/JSON: treated as an opaque key
// store exposing typed lookups." It holds already-parsed key material
// (RSA/EC/OKP key pairs, raw symmetric octets, or passwords) behind a
// minimal typed-lookup API; parsing JWK JSON, PEM, or DER, and
// resolving jku/x5u, are left to a higher layer.
package keyset

import (
	"crypto/ecdh"
	"crypto/rsa"

	"github.com/joselock/jwe/jwa"
)

// KeyOp names a permitted key operation, RFC 7517 Section 4.3.
type KeyOp string

const (
	OpEncrypt   KeyOp = "encrypt"
	OpDecrypt   KeyOp = "decrypt"
	OpWrapKey   KeyOp = "wrapKey"
	OpUnwrapKey KeyOp = "unwrapKey"
	OpDeriveKey KeyOp = "deriveKey"
)

// Key is one entry in a Set: a typed key plus the metadata the
// key-management dispatcher needs to decide whether it may use it.
type Key struct {
	KeyID   string
	KeyType jwa.KeyType
	Curve   jwa.EllipticCurve
	Algo    jwa.KeyManagementAlgorithm // alg this key is pinned to, if any
	Ops     []KeyOp

	priv any
	pub  any
}

// PrivateKey implements keywrap.Key.
func (k *Key) PrivateKey() any {
	if k == nil {
		return nil
	}
	return k.priv
}

// PublicKey implements keywrap.Key.
func (k *Key) PublicKey() any {
	if k == nil {
		return nil
	}
	return k.pub
}

// CanUseFor reports whether k's declared key_ops (if any) permit op.
// A key with no declared Ops is treated as unrestricted, matching
// RFC 7517's guidance that "use" and "key_ops" are advisory hints, not
// enforced by the format itself.
func (k *Key) CanUseFor(op KeyOp) bool {
	if k == nil || len(k.Ops) == 0 {
		return true
	}
	for _, o := range k.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// NewSymmetric wraps raw symmetric key bytes (used for Dir, AxxxKW,
// AxxxGCMKW) or a password (used for PBES2).
func NewSymmetric(kid string, secret []byte) *Key {
	return &Key{KeyID: kid, KeyType: jwa.Oct, priv: secret, pub: secret}
}

// NewRSA wraps an RSA key pair. priv may be nil for a public-only key
// used on the wrap side of RSA1_5/RSA-OAEP; if pub is nil, it is taken
// from priv.
func NewRSA(kid string, priv *rsa.PrivateKey, pub *rsa.PublicKey) *Key {
	if priv != nil && pub == nil {
		pub = &priv.PublicKey
	}
	var p any
	if priv != nil {
		p = priv
	}
	return &Key{KeyID: kid, KeyType: jwa.RSA, priv: p, pub: pub}
}

// NewEC wraps an ECDH key pair on P-256/P-384/P-521, used for ECDH-ES
// and its KW variants. Callers holding an *ecdsa.PrivateKey should
// convert it with its ECDH method first.
func NewEC(kid string, crv jwa.EllipticCurve, priv *ecdh.PrivateKey, pub *ecdh.PublicKey) *Key {
	return newECDH(kid, jwa.EC, crv, priv, pub)
}

// NewOKP wraps an X25519 key pair (RFC 8037), used for ECDH-ES. X448
// is not supported, see jwa/ecdhes.
func NewOKP(kid string, crv jwa.EllipticCurve, priv *ecdh.PrivateKey, pub *ecdh.PublicKey) *Key {
	return newECDH(kid, jwa.OKP, crv, priv, pub)
}

func newECDH(kid string, kty jwa.KeyType, crv jwa.EllipticCurve, priv *ecdh.PrivateKey, pub *ecdh.PublicKey) *Key {
	if priv != nil && pub == nil {
		pub = priv.PublicKey()
	}
	var p any
	if priv != nil {
		p = priv
	}
	var q any
	if pub != nil {
		q = pub
	}
	return &Key{KeyID: kid, KeyType: kty, Curve: crv, priv: p, pub: q}
}

// Set is an ordered collection of keys, used as the jwks_pubkey /
// jwks_privkey sets of spec.md §3.2: when a caller encrypts or
// decrypts without passing an explicit key, the dispatcher looks the
// key up by the header's "kid" with Find, then rejects it if its
// pinned Algo or its Ops do not allow the operation.
type Set struct {
	keys []*Key
}

// NewSet returns a Set containing keys, in order.
func NewSet(keys ...*Key) *Set {
	return &Set{keys: append([]*Key(nil), keys...)}
}

// Add appends k to the set.
func (s *Set) Add(k *Key) {
	s.keys = append(s.keys, k)
}

// Find returns the first key whose KeyID equals kid. If kid is empty
// and the set holds exactly one key, that key is returned — the
// common case of a single-recipient token with no "kid" hint; with an
// empty kid and any other number of keys, Find reports false.
func (s *Set) Find(kid string) (*Key, bool) {
	if s == nil {
		return nil, false
	}
	if kid == "" {
		if len(s.keys) == 1 {
			return s.keys[0], true
		}
		return nil, false
	}
	for _, k := range s.keys {
		if k.KeyID == kid {
			return k, true
		}
	}
	return nil, false
}

// Len returns the number of keys in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
