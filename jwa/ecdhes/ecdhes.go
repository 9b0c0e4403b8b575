// Package ecdhes implements ECDH-ES key agreement (RFC 7518
// Section 4.6) over the curves exposed by the standard library's
// crypto/ecdh: P-256, P-384, P-521, and X25519 (RFC 8037).
//
// X448 is not supported: Go's standard library has no crypto/ecdh
// curve for it, and this module carries no X448 implementation, so
// an ECDH-ES key bound to an X448 key always fails with an invalid
// key-wrapper error.
package ecdhes

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/joselock/jwe/internal/concatkdf"
	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/jwa/akw"
	"github.com/joselock/jwe/jwa/direct"
	"github.com/joselock/jwe/keywrap"
)

var bare = &Algorithm{
	f: func(key []byte) keywrap.Algorithm { return direct.New() },
}

// New returns ECDH-ES with the agreed key used directly as the CEK.
func New() keywrap.Algorithm { return bare }

var a128kw = &Algorithm{size: 16, f: func(key []byte) keywrap.Algorithm { return akw.New128() }}
var a192kw = &Algorithm{size: 24, f: func(key []byte) keywrap.Algorithm { return akw.New192() }}
var a256kw = &Algorithm{size: 32, f: func(key []byte) keywrap.Algorithm { return akw.New256() }}

func NewA128KW() keywrap.Algorithm { return a128kw }
func NewA192KW() keywrap.Algorithm { return a192kw }
func NewA256KW() keywrap.Algorithm { return a256kw }

func init() {
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES, New)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES_A128KW, NewA128KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES_A192KW, NewA192KW)
	jwa.RegisterKeyManagementAlgorithm(jwa.ECDH_ES_A256KW, NewA256KW)
}

var _ keywrap.Algorithm = (*Algorithm)(nil)

// Algorithm is ECDH-ES, bare or combined with an AxxxKW variant. size
// is 0 for the bare variant, which instead sizes the derived key to
// the "enc" algorithm's CEK length.
type Algorithm struct {
	size int
	f    func([]byte) keywrap.Algorithm
}

// NewKeyWrapper returns the wrapper type matching alg's mode: bare
// ECDH-ES (size == 0) returns an *AgreementKeyWrapper, which also
// implements keywrap.KeyDeriver; ECDH-ES+AxxxKW returns a *KeyWrapper,
// which does not. Keeping these as distinct concrete types makes
// KeyDeriver satisfaction structural rather than something callers
// have to discover fails at runtime for the AxxxKW variants.
func (alg *Algorithm) NewKeyWrapper(key keywrap.Key) keywrap.KeyWrapper {
	priv, privOK := key.PrivateKey().(*ecdh.PrivateKey)
	pub, pubOK := key.PublicKey().(*ecdh.PublicKey)
	if !privOK && !pubOK {
		return keywrap.NewInvalidKeyWrapper(fmt.Errorf("ecdhes: key is not an ECDH key (got %T/%T); X448 is not supported", key.PrivateKey(), key.PublicKey()))
	}
	a := agreement{alg: alg, priv: priv, pub: pub}
	if alg.size == 0 {
		return &AgreementKeyWrapper{agreement: a}
	}
	return &KeyWrapper{agreement: a}
}

// Options carries caller-supplied Concat KDF PartyUInfo/PartyVInfo
// inputs for an ECDH-ES key agreement, RFC 7518's "apu"/"apv"
// parameters. Call SetOptions on a *KeyWrapper or *AgreementKeyWrapper
// before WrapKey/DeriveKey to have PartyUInfo/PartyVInfo written into
// the header and used in derivation, instead of only picking up
// whatever apu/apv a caller already placed on the header directly.
type Options struct {
	PartyUInfo []byte
	PartyVInfo []byte
}

// agreement holds the ECDH-ES key-agreement state shared by the bare
// and AxxxKW wrapper types.
type agreement struct {
	alg  *Algorithm
	priv *ecdh.PrivateKey // set on the recipient (unwrap) side
	pub  *ecdh.PublicKey  // set on the sender (wrap) side
	opts Options
}

// SetOptions installs opts, applied on the next agree call.
func (a *agreement) SetOptions(opts Options) { a.opts = opts }

func (a *agreement) applyOptions(h keywrap.Header) {
	if a.opts.PartyUInfo != nil {
		h.SetAgreementPartyUInfo(a.opts.PartyUInfo)
	}
	if a.opts.PartyVInfo != nil {
		h.SetAgreementPartyVInfo(a.opts.PartyVInfo)
	}
}

// agree is the sender side of ECDH-ES: generate an ephemeral key pair
// on the recipient's curve, write it to the header's "epk" field as
// required by RFC 7518 Section 4.6.1, agree on z, and derive the
// wrapping/CEK key via Concat KDF.
func (a *agreement) agree(h keywrap.Header) ([]byte, error) {
	if a.pub == nil {
		return nil, fmt.Errorf("ecdhes: no recipient public key available to wrap with")
	}
	a.applyOptions(h)
	eph, err := a.pub.Curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ecdhes: failed to generate ephemeral key: %w", err)
	}
	h.SetEphemeralPublicKey(eph.PublicKey())

	z, err := eph.ECDH(a.pub)
	if err != nil {
		return nil, fmt.Errorf("ecdhes: key agreement failed: %w", err)
	}
	return a.derive(z, h)
}

// unagree is the recipient side: read the sender's ephemeral public
// key back from the header, agree on z, and re-derive the same key
// agree computed.
func (a *agreement) unagree(h keywrap.Header) ([]byte, error) {
	if a.priv == nil {
		return nil, fmt.Errorf("ecdhes: no recipient private key available to unwrap with")
	}
	eph, ok := h.EphemeralPublicKey().(*ecdh.PublicKey)
	if !ok {
		return nil, fmt.Errorf("ecdhes: missing or invalid epk header parameter")
	}
	z, err := a.priv.ECDH(eph)
	if err != nil {
		return nil, fmt.Errorf("ecdhes: key agreement failed: %w", err)
	}
	return a.derive(z, h)
}

// derive runs the Concat KDF over z, choosing the output length and
// AlgorithmID per RFC 7518 Section 4.6.2: for bare ECDH-ES the output
// is sized to (and the AlgorithmID is) the "enc" algorithm; for the
// AxxxKW combinations, the output is sized to (and the AlgorithmID
// is) the "alg" value itself, since what's being derived there is a
// key-wrapping key, not the CEK.
func (a *agreement) derive(z []byte, h keywrap.Header) ([]byte, error) {
	size := a.alg.size
	var algorithmID string
	if size == 0 {
		enc := jwa.EncryptionAlgorithm(h.EncryptionAlgorithmName())
		if !enc.Available() {
			return nil, fmt.Errorf("ecdhes: unknown or unregistered enc %q", h.EncryptionAlgorithmName())
		}
		size = enc.New().CEKSize()
		algorithmID = enc.String()
	} else {
		algorithmID = h.AlgorithmName()
	}
	return concatkdf.Derive(z, []byte(algorithmID), h.AgreementPartyUInfo(), h.AgreementPartyVInfo(), size), nil
}

var _ keywrap.KeyWrapper = (*KeyWrapper)(nil)

// KeyWrapper is ECDH-ES+AxxxKW: the Concat-KDF output is used as a Key
// Encryption Key to wrap a separately generated CEK with AES Key
// Wrap. Unlike AgreementKeyWrapper, it implements only
// keywrap.KeyWrapper — there is no CEK to derive directly in this
// mode, so it has no DeriveKey method at all.
type KeyWrapper struct {
	agreement
}

func (w *KeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	derived, err := w.agree(h)
	if err != nil {
		return nil, err
	}
	return w.alg.f(derived).NewKeyWrapper(rawKey(derived)).WrapKey(cek, h)
}

func (w *KeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	derived, err := w.unagree(h)
	if err != nil {
		return nil, err
	}
	return w.alg.f(derived).NewKeyWrapper(rawKey(derived)).UnwrapKey(data, h)
}

var (
	_ keywrap.KeyWrapper = (*AgreementKeyWrapper)(nil)
	_ keywrap.KeyDeriver = (*AgreementKeyWrapper)(nil)
)

// AgreementKeyWrapper is bare ECDH-ES, RFC 7518 Section 4.6's "Direct
// Key Agreement" mode: the Concat-KDF output *is* the CEK, and there
// is no wrapped-key segment.
type AgreementKeyWrapper struct {
	agreement
}

func (w *AgreementKeyWrapper) WrapKey(cek []byte, h keywrap.Header) ([]byte, error) {
	derived, err := w.agree(h)
	if err != nil {
		return nil, err
	}
	return w.alg.f(derived).NewKeyWrapper(rawKey(derived)).WrapKey(cek, h)
}

func (w *AgreementKeyWrapper) UnwrapKey(data []byte, h keywrap.Header) ([]byte, error) {
	derived, err := w.unagree(h)
	if err != nil {
		return nil, err
	}
	return w.alg.f(derived).NewKeyWrapper(rawKey(derived)).UnwrapKey(data, h)
}

// DeriveKey performs the key agreement and returns its output directly
// as the CEK, with an empty JWE Encrypted Key.
func (w *AgreementKeyWrapper) DeriveKey(h keywrap.Header) (cek, encryptedKey []byte, err error) {
	cek, err = w.agree(h)
	if err != nil {
		return nil, nil, err
	}
	return cek, []byte{}, nil
}

// rawKey adapts a derived symmetric key to keywrap.Key.
type rawKey []byte

func (k rawKey) PrivateKey() any { return []byte(k) }
func (k rawKey) PublicKey() any  { return []byte(k) }
