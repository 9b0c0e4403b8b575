// Package header implements the JOSE Header for a single-recipient,
// compact-serialization JWE (RFC 7516 Section 4), and the codec
// between it and the wire's base64url JSON segment.
package header

import (
	"bytes"
	"crypto/ecdh"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/joselock/jwe/internal/jsonutil"
	"github.com/joselock/jwe/jwa"
)

// Header Parameter names, RFC 7516 Section 4.1 and RFC 7518
// Section 4.6.1/4.7.1/4.8.1.
const (
	paramAlgorithm           = "alg"
	paramEncryption          = "enc"
	paramCompression         = "zip"
	paramJWKSetURL           = "jku"
	paramJWK                 = "jwk"
	paramKeyID               = "kid"
	paramX509URL             = "x5u"
	paramX509Chain           = "x5c"
	paramX509SHA1            = "x5t"
	paramX509SHA256          = "x5t#S256"
	paramType                = "typ"
	paramContentType         = "cty"
	paramCritical            = "crit"
	paramEphemeralPublicKey  = "epk"
	paramAgreementPartyUInfo = "apu"
	paramAgreementPartyVInfo = "apv"
	paramInitializationVctor = "iv"
	paramAuthenticationTag   = "tag"
	paramPBES2SaltInput      = "p2s"
	paramPBES2Count          = "p2c"
)

// recognizedParams is every header parameter this package models
// explicitly, used to validate "crit" (RFC 7516 Section 4.1.11): a
// recipient must reject a message listing a parameter it does not
// understand and process.
var recognizedParams = map[string]bool{
	paramAlgorithm:           true,
	paramEncryption:          true,
	paramCompression:         true,
	paramJWKSetURL:           true,
	paramJWK:                 true,
	paramKeyID:               true,
	paramX509URL:             true,
	paramX509Chain:           true,
	paramX509SHA1:            true,
	paramX509SHA256:          true,
	paramType:                true,
	paramContentType:         true,
	paramCritical:            true,
	paramEphemeralPublicKey:  true,
	paramAgreementPartyUInfo: true,
	paramAgreementPartyVInfo: true,
	paramInitializationVctor: true,
	paramAuthenticationTag:   true,
	paramPBES2SaltInput:      true,
	paramPBES2Count:          true,
}

// Recognized reports whether param names a header parameter this
// package understands and processes.
func Recognized(param string) bool {
	return recognizedParams[param]
}

var b64 = base64.RawURLEncoding

// Header is a decoded JOSE Header. The zero value is an empty header
// ready to be populated by a caller building a new message.
type Header struct {
	alg     jwa.KeyManagementAlgorithm
	enc     jwa.EncryptionAlgorithm
	zip     jwa.CompressionAlgorithm
	jku     *url.URL
	jwk     map[string]any // opaque passthrough; this library does not parse embedded JWKs
	kid     string
	x5u     *url.URL
	x5c     []*x509.Certificate
	x5t     []byte
	x5tS256 []byte
	typ     string
	cty     string
	crit    []string
	epk     any // *ecdh.PublicKey once parsed
	apu     []byte
	apv     []byte
	iv      []byte
	tag     []byte
	p2s     []byte
	p2c     int

	// Raw preserves any header field this package does not model
	// explicitly, so that round-tripping an unrecognized parameter
	// keeps it intact. After Decode it holds every decoded member,
	// modeled ones included; on Encode the modeled fields overwrite
	// their entries.
	Raw map[string]any
}

// New returns an empty Header.
func New() *Header {
	return &Header{Raw: make(map[string]any)}
}

// Clone returns a deep-enough copy of h for a new message: Raw is
// copied, everything else is copied by value or reference-shared
// (slices/pointers the header treats as immutable once set).
func (h *Header) Clone() *Header {
	if h == nil {
		return New()
	}
	clone := *h
	clone.Raw = make(map[string]any, len(h.Raw))
	for k, v := range h.Raw {
		clone.Raw[k] = v
	}
	return &clone
}

func (h *Header) Algorithm() jwa.KeyManagementAlgorithm { return h.alg }
func (h *Header) SetAlgorithm(alg jwa.KeyManagementAlgorithm) { h.alg = alg }

func (h *Header) EncryptionAlgorithm() jwa.EncryptionAlgorithm { return h.enc }
func (h *Header) SetEncryptionAlgorithm(enc jwa.EncryptionAlgorithm) { h.enc = enc }

func (h *Header) CompressionAlgorithm() jwa.CompressionAlgorithm { return h.zip }
func (h *Header) SetCompressionAlgorithm(zip jwa.CompressionAlgorithm) { h.zip = zip }

func (h *Header) JWKSetURL() *url.URL       { return h.jku }
func (h *Header) SetJWKSetURL(jku *url.URL) { h.jku = jku }

func (h *Header) KeyID() string       { return h.kid }
func (h *Header) SetKeyID(kid string) { h.kid = kid }

func (h *Header) X509URL() *url.URL       { return h.x5u }
func (h *Header) SetX509URL(x5u *url.URL) { h.x5u = x5u }

func (h *Header) X509CertificateChain() []*x509.Certificate { return h.x5c }
func (h *Header) SetX509CertificateChain(x5c []*x509.Certificate) { h.x5c = x5c }

func (h *Header) X509CertificateSHA1() []byte       { return h.x5t }
func (h *Header) SetX509CertificateSHA1(x5t []byte) { h.x5t = x5t }

func (h *Header) X509CertificateSHA256() []byte           { return h.x5tS256 }
func (h *Header) SetX509CertificateSHA256(x5tS256 []byte) { h.x5tS256 = x5tS256 }

func (h *Header) Type() string       { return h.typ }
func (h *Header) SetType(typ string) { h.typ = typ }

func (h *Header) ContentType() string       { return h.cty }
func (h *Header) SetContentType(cty string) { h.cty = cty }

func (h *Header) Critical() []string         { return h.crit }
func (h *Header) SetCritical(crit []string)  { h.crit = crit }

// AlgorithmName and EncryptionAlgorithmName implement keywrap.Header.
func (h *Header) AlgorithmName() string           { return string(h.alg) }
func (h *Header) EncryptionAlgorithmName() string { return string(h.enc) }

func (h *Header) InitializationVector() []byte       { return h.iv }
func (h *Header) SetInitializationVector(iv []byte)  { h.iv = iv }

func (h *Header) AuthenticationTag() []byte       { return h.tag }
func (h *Header) SetAuthenticationTag(tag []byte) { h.tag = tag }

func (h *Header) PBES2SaltInput() []byte       { return h.p2s }
func (h *Header) SetPBES2SaltInput(p2s []byte) { h.p2s = p2s }

func (h *Header) PBES2Count() int { return h.p2c }
func (h *Header) SetPBES2Count(p2c int) {
	if p2c < 0 {
		panic("header: p2c is out of range")
	}
	h.p2c = p2c
}

// EphemeralPublicKey and SetEphemeralPublicKey implement
// keywrap.Header. The value is a *ecdh.PublicKey once parsed.
func (h *Header) EphemeralPublicKey() any      { return h.epk }
func (h *Header) SetEphemeralPublicKey(epk any) { h.epk = epk }

func (h *Header) AgreementPartyUInfo() []byte       { return h.apu }
func (h *Header) SetAgreementPartyUInfo(apu []byte) { h.apu = apu }

func (h *Header) AgreementPartyVInfo() []byte       { return h.apv }
func (h *Header) SetAgreementPartyVInfo(apv []byte) { h.apv = apv }

func (h *Header) MarshalJSON() ([]byte, error) {
	raw, err := h.encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

func (h *Header) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	raw := make(map[string]any)
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	decoded, err := decode(raw)
	if err != nil {
		return err
	}
	*h = *decoded
	return nil
}

func decode(raw map[string]any) (*Header, error) {
	d := jsonutil.NewDecoder("jwe", raw)
	h := &Header{Raw: raw}

	if alg, ok := d.GetString(paramAlgorithm); ok {
		h.alg = jwa.KeyManagementAlgorithm(alg)
	}
	if enc, ok := d.GetString(paramEncryption); ok {
		h.enc = jwa.EncryptionAlgorithm(enc)
	}
	if zip, ok := d.GetString(paramCompression); ok {
		h.zip = jwa.CompressionAlgorithm(zip)
	}
	if jku, ok := d.GetURL(paramJWKSetURL); ok {
		h.jku = jku
	}
	if jwk, ok := d.GetObject(paramJWK); ok {
		h.jwk = jwk
	}
	h.kid, _ = d.GetString(paramKeyID)
	if x5u, ok := d.GetURL(paramX509URL); ok {
		h.x5u = x5u
	}

	var leafDER []byte
	if x5c, ok := d.GetStringArray(paramX509Chain); ok {
		certs := make([]*x509.Certificate, 0, len(x5c))
		for i, s := range x5c {
			der, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				d.SaveError(fmt.Errorf("jwe: failed to decode x5c[%d]: %w", i, err))
				continue
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				d.SaveError(fmt.Errorf("jwe: failed to parse x5c[%d]: %w", i, err))
				continue
			}
			if leafDER == nil {
				leafDER = der
			}
			certs = append(certs, cert)
		}
		h.x5c = certs
	}
	if x5t, ok := d.GetBytes(paramX509SHA1); ok {
		h.x5t = x5t
		if leafDER != nil {
			sum := sha1.Sum(leafDER)
			if subtle.ConstantTimeCompare(sum[:], x5t) == 0 {
				d.SaveError(errors.New("jwe: x5t does not match leaf certificate"))
			}
		}
	}
	if x5t256, ok := d.GetBytes(paramX509SHA256); ok {
		h.x5tS256 = x5t256
		if leafDER != nil {
			sum := sha256.Sum256(leafDER)
			if subtle.ConstantTimeCompare(sum[:], x5t256) == 0 {
				d.SaveError(errors.New("jwe: x5t#S256 does not match leaf certificate"))
			}
		}
	}
	h.typ, _ = d.GetString(paramType)
	h.cty, _ = d.GetString(paramContentType)
	h.crit, _ = d.GetStringArray(paramCritical)

	if epk, ok := d.GetObject(paramEphemeralPublicKey); ok {
		pub, err := decodeECDHPublicKey(epk)
		if err != nil {
			d.SaveError(fmt.Errorf("jwe: failed to parse epk: %w", err))
		} else {
			h.epk = pub
		}
	}
	if apu, ok := d.GetBytes(paramAgreementPartyUInfo); ok {
		h.apu = apu
	}
	if apv, ok := d.GetBytes(paramAgreementPartyVInfo); ok {
		h.apv = apv
	}
	if iv, ok := d.GetBytes(paramInitializationVctor); ok {
		h.iv = iv
	}
	if tag, ok := d.GetBytes(paramAuthenticationTag); ok {
		h.tag = tag
	}
	if p2s, ok := d.GetBytes(paramPBES2SaltInput); ok {
		h.p2s = p2s
	}
	if p2c, ok := d.GetInt64(paramPBES2Count); ok {
		if p2c < 0 || p2c > math.MaxInt {
			d.SaveError(errors.New("jwe: p2c is out of range"))
		}
		h.p2c = int(p2c)
	}

	if err := d.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) encode() (map[string]any, error) {
	raw := make(map[string]any, len(h.Raw))
	for k, v := range h.Raw {
		raw[k] = v
	}
	e := jsonutil.NewEncoder(raw)

	if h.alg != "" {
		e.Set(paramAlgorithm, string(h.alg))
	}
	if h.enc != "" {
		e.Set(paramEncryption, string(h.enc))
	}
	if h.zip != "" {
		e.Set(paramCompression, h.zip.String())
	}
	if h.jku != nil {
		e.Set(paramJWKSetURL, h.jku.String())
	}
	if h.jwk != nil {
		e.Set(paramJWK, h.jwk)
	}
	if h.kid != "" {
		e.Set(paramKeyID, h.kid)
	}
	if h.x5u != nil {
		e.Set(paramX509URL, h.x5u.String())
	}
	if len(h.x5c) > 0 {
		chain := make([]string, 0, len(h.x5c))
		for _, cert := range h.x5c {
			chain = append(chain, base64.StdEncoding.EncodeToString(cert.Raw))
		}
		e.Set(paramX509Chain, chain)
		if h.x5t == nil {
			sum := sha1.Sum(h.x5c[0].Raw)
			e.SetBytes(paramX509SHA1, sum[:])
		}
		if h.x5tS256 == nil {
			sum := sha256.Sum256(h.x5c[0].Raw)
			e.SetBytes(paramX509SHA256, sum[:])
		}
	}
	if h.x5t != nil {
		e.SetBytes(paramX509SHA1, h.x5t)
	}
	if h.x5tS256 != nil {
		e.SetBytes(paramX509SHA256, h.x5tS256)
	}
	if h.typ != "" {
		e.Set(paramType, h.typ)
	}
	if h.cty != "" {
		e.Set(paramContentType, h.cty)
	}
	if len(h.crit) > 0 {
		e.Set(paramCritical, h.crit)
	}
	if h.epk != nil {
		pub, ok := h.epk.(*ecdh.PublicKey)
		if !ok {
			return nil, fmt.Errorf("jwe: unsupported epk type %T", h.epk)
		}
		jwk, err := encodeECDHPublicKey(pub)
		if err != nil {
			return nil, err
		}
		e.Set(paramEphemeralPublicKey, jwk)
	}
	if h.apu != nil {
		e.SetBytes(paramAgreementPartyUInfo, h.apu)
	}
	if h.apv != nil {
		e.SetBytes(paramAgreementPartyVInfo, h.apv)
	}
	if h.iv != nil {
		e.SetBytes(paramInitializationVctor, h.iv)
	}
	if h.tag != nil {
		e.SetBytes(paramAuthenticationTag, h.tag)
	}
	if h.p2s != nil {
		e.SetBytes(paramPBES2SaltInput, h.p2s)
	}
	if h.p2c != 0 {
		e.Set(paramPBES2Count, h.p2c)
	}

	if err := e.Err(); err != nil {
		return nil, err
	}
	return e.Data(), nil
}

// b64Encode base64url-encodes src without padding, RFC 7516 Section 2.
func b64Encode(src []byte) []byte {
	dst := make([]byte, b64.EncodedLen(len(src)))
	b64.Encode(dst, src)
	return dst
}

func b64Decode(src []byte) ([]byte, error) {
	dst := make([]byte, b64.DecodedLen(len(src)))
	n, err := b64.Decode(dst, src)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// Encode returns the header's canonical JSON form and its
// base64url encoding, used as the protected-header segment and as
// the Additional Authenticated Data input to the content encryption
// algorithm (RFC 7516 Section 5.1 steps 13-14).
func (h *Header) Encode() (raw, b64Header []byte, err error) {
	m, err := h.encode()
	if err != nil {
		return nil, nil, err
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return raw, b64Encode(raw), nil
}

// Decode parses b64Header (the first compact-serialization segment)
// into a Header.
func Decode(b64Header []byte) (*Header, error) {
	raw, err := b64Decode(b64Header)
	if err != nil {
		return nil, fmt.Errorf("jwe: failed to decode header: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("jwe: failed to decode header: %w", err)
	}
	return decode(m)
}
