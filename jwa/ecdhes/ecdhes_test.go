package ecdhes

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	_ "github.com/joselock/jwe/jwa/gcm"
	"github.com/joselock/jwe/keywrap"
)

type testHeader struct {
	alg, enc string
	epk      any
	apu, apv []byte
}

func (h *testHeader) AlgorithmName() string           { return h.alg }
func (h *testHeader) EncryptionAlgorithmName() string { return h.enc }
func (*testHeader) InitializationVector() []byte      { return nil }
func (*testHeader) SetInitializationVector([]byte)    {}
func (*testHeader) AuthenticationTag() []byte         { return nil }
func (*testHeader) SetAuthenticationTag([]byte)       {}
func (*testHeader) PBES2SaltInput() []byte            { return nil }
func (*testHeader) SetPBES2SaltInput([]byte)          {}
func (*testHeader) PBES2Count() int                   { return 0 }
func (*testHeader) SetPBES2Count(int)                 {}
func (h *testHeader) EphemeralPublicKey() any         { return h.epk }
func (h *testHeader) SetEphemeralPublicKey(epk any)   { h.epk = epk }
func (h *testHeader) AgreementPartyUInfo() []byte     { return h.apu }
func (h *testHeader) SetAgreementPartyUInfo(apu []byte) { h.apu = apu }
func (h *testHeader) AgreementPartyVInfo() []byte     { return h.apv }
func (h *testHeader) SetAgreementPartyVInfo(apv []byte) { h.apv = apv }

type ecdhKey struct {
	priv *ecdh.PrivateKey
	pub  *ecdh.PublicKey
}

func (k ecdhKey) PrivateKey() any {
	if k.priv == nil {
		return nil
	}
	return k.priv
}
func (k ecdhKey) PublicKey() any {
	if k.pub == nil {
		return nil
	}
	return k.pub
}

func TestRoundTrip_bareOnX25519(t *testing.T) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	sender := bare.NewKeyWrapper(ecdhKey{pub: priv.PublicKey()})
	h := &testHeader{enc: "A128GCM"}
	wrapped, err := sender.WrapKey([]byte("unused-in-direct-mode"), h)
	if err != nil {
		t.Fatal(err)
	}
	if len(wrapped) != 0 {
		t.Errorf("bare ECDH-ES must produce an empty encrypted key, got %x", wrapped)
	}
	if h.epk == nil {
		t.Fatal("WrapKey must set epk")
	}

	recipient := bare.NewKeyWrapper(ecdhKey{priv: priv})
	got, err := recipient.UnwrapKey(wrapped, h)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 16 {
		t.Errorf("want a 16-byte derived key for A128GCM, got %d bytes", len(got))
	}
}

func TestDeriveKeyAndUnwrapAgree(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	sender := bare.NewKeyWrapper(ecdhKey{pub: priv.PublicKey()})
	senderDeriver, ok := sender.(keywrap.KeyDeriver)
	if !ok {
		t.Fatal("bare ECDH-ES KeyWrapper must implement keywrap.KeyDeriver")
	}

	h := &testHeader{enc: "A128GCM"}
	cek, encryptedKey, err := senderDeriver.DeriveKey(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(encryptedKey) != 0 {
		t.Errorf("want empty encrypted key, got %x", encryptedKey)
	}

	recipient := bare.NewKeyWrapper(ecdhKey{priv: priv})
	got, err := recipient.UnwrapKey(encryptedKey, h)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cek, got) {
		t.Errorf("sender/recipient derived different keys: %x vs %x", cek, got)
	}
}

func TestRoundTrip_A128KW(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	cek := []byte("0123456789abcdef0123456789abcdef")

	sender := a128kw.NewKeyWrapper(ecdhKey{pub: priv.PublicKey()})
	h := &testHeader{alg: "ECDH-ES+A128KW"}
	wrapped, err := sender.WrapKey(cek, h)
	if err != nil {
		t.Fatal(err)
	}
	if h.epk == nil {
		t.Fatal("WrapKey must set epk")
	}

	recipient := a128kw.NewKeyWrapper(ecdhKey{priv: priv})
	got, err := recipient.UnwrapKey(wrapped, h)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cek, got) {
		t.Errorf("roundtrip mismatch: want %x, got %x", cek, got)
	}
}

func TestNewKeyWrapper_rejectsNonECDHKey(t *testing.T) {
	w := bare.NewKeyWrapper(notECDHKey{})
	if _, err := w.WrapKey([]byte("x"), &testHeader{enc: "A128GCM"}); err == nil {
		t.Error("want error for non-ECDH key material, got nil")
	}
}

type notECDHKey struct{}

func (notECDHKey) PrivateKey() any { return "not-a-key" }
func (notECDHKey) PublicKey() any  { return "not-a-key" }

func TestUnwrapKey_missingEPK(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	w := bare.NewKeyWrapper(ecdhKey{priv: priv})
	if _, err := w.UnwrapKey(nil, &testHeader{enc: "A128GCM"}); err == nil {
		t.Error("want error when epk is missing, got nil")
	}
}

// TestAxxxKWDoesNotImplementKeyDeriver guards the fix for the bug where
// a shared wrapper type made every ECDH-ES variant satisfy
// keywrap.KeyDeriver, routing AxxxKW wraps into a DeriveKey call that
// always rejected them. ECDH-ES+AxxxKW must go through WrapKey only.
func TestAxxxKWDoesNotImplementKeyDeriver(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	w := a128kw.NewKeyWrapper(ecdhKey{pub: priv.PublicKey()})
	if _, ok := w.(keywrap.KeyDeriver); ok {
		t.Fatal("ECDH-ES+A128KW's KeyWrapper must not implement keywrap.KeyDeriver")
	}
}

func TestOptions_setsApuApvOnWrap(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	sender := bare.NewKeyWrapper(ecdhKey{pub: priv.PublicKey()})
	agreer, ok := sender.(*AgreementKeyWrapper)
	if !ok {
		t.Fatal("want *AgreementKeyWrapper")
	}
	agreer.SetOptions(Options{PartyUInfo: []byte("Alice"), PartyVInfo: []byte("Bob")})

	h := &testHeader{enc: "A128GCM"}
	if _, err := sender.WrapKey([]byte("unused-in-direct-mode"), h); err != nil {
		t.Fatal(err)
	}
	if string(h.apu) != "Alice" {
		t.Errorf("want apu %q, got %q", "Alice", h.apu)
	}
	if string(h.apv) != "Bob" {
		t.Errorf("want apv %q, got %q", "Bob", h.apv)
	}
}
