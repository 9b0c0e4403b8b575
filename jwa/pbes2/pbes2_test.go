package pbes2

import (
	"bytes"
	"errors"
	"testing"

	"github.com/joselock/jwe/keywrap"
)

type testHeader struct {
	p2s  []byte
	p2c  int
	alg  string
}

func (h *testHeader) AlgorithmName() string           { return h.alg }
func (*testHeader) EncryptionAlgorithmName() string   { return "" }
func (*testHeader) InitializationVector() []byte      { return nil }
func (*testHeader) SetInitializationVector([]byte)    {}
func (*testHeader) AuthenticationTag() []byte         { return nil }
func (*testHeader) SetAuthenticationTag([]byte)       {}
func (h *testHeader) PBES2SaltInput() []byte          { return h.p2s }
func (h *testHeader) SetPBES2SaltInput(p2s []byte)    { h.p2s = p2s }
func (h *testHeader) PBES2Count() int                 { return h.p2c }
func (h *testHeader) SetPBES2Count(p2c int)           { h.p2c = p2c }
func (*testHeader) EphemeralPublicKey() any           { return nil }
func (*testHeader) SetEphemeralPublicKey(any)         {}
func (*testHeader) AgreementPartyUInfo() []byte       { return nil }
func (*testHeader) SetAgreementPartyUInfo([]byte)     {}
func (*testHeader) AgreementPartyVInfo() []byte       { return nil }
func (*testHeader) SetAgreementPartyVInfo([]byte)     {}

type passwordKey []byte

func (k passwordKey) PrivateKey() any { return []byte(k) }
func (k passwordKey) PublicKey() any  { return []byte(k) }

func TestRoundTrip_generatesSaltAndCount(t *testing.T) {
	password := passwordKey("correct horse battery staple")
	cek := []byte("0123456789abcdef0123456789abcdef")

	w := a128kw.NewKeyWrapper(password)
	h := &testHeader{alg: string(a128kw.name)}
	wrapped, err := w.WrapKey(cek, h)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.p2s) != defaultSaltInputSize {
		t.Errorf("want generated p2s of %d bytes, got %d", defaultSaltInputSize, len(h.p2s))
	}
	if h.p2c != defaultIterationCount {
		t.Errorf("want default iteration count %d, got %d", defaultIterationCount, h.p2c)
	}

	got, err := w.UnwrapKey(wrapped, h)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cek, got) {
		t.Errorf("roundtrip mismatch: want %x, got %x", cek, got)
	}
}

func TestRoundTrip_allVariants(t *testing.T) {
	password := passwordKey("hunter2")
	cek := []byte("0123456789abcdef0123456789abcdef")

	for _, alg := range []*Algorithm{a128kw, a192kw, a256kw} {
		w := alg.NewKeyWrapper(password)
		h := &testHeader{alg: alg.name}
		wrapped, err := w.WrapKey(cek, h)
		if err != nil {
			t.Fatal(err)
		}
		got, err := w.UnwrapKey(wrapped, h)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(cek, got) {
			t.Errorf("%s: roundtrip mismatch: want %x, got %x", alg.name, cek, got)
		}
	}
}

func TestUnwrapKey_saltTooShort(t *testing.T) {
	password := passwordKey("hunter2")
	w := a128kw.NewKeyWrapper(password)
	h := &testHeader{p2s: []byte{1, 2, 3}, p2c: defaultIterationCount}
	_, err := w.UnwrapKey([]byte{0, 1, 2, 3, 4, 5, 6, 7}, h)
	if err == nil {
		t.Fatal("want error for p2s shorter than minimum, got nil")
	}
	if !errors.Is(err, keywrap.ErrInvalidInput) {
		t.Errorf("want a p2s-too-short error to wrap keywrap.ErrInvalidInput, got %v", err)
	}
}

func TestUnwrapKey_missingCount(t *testing.T) {
	password := passwordKey("hunter2")
	w := a128kw.NewKeyWrapper(password)
	h := &testHeader{p2s: make([]byte, minSaltInputSize)}
	_, err := w.UnwrapKey([]byte{0, 1, 2, 3, 4, 5, 6, 7}, h)
	if err == nil {
		t.Fatal("want error for missing p2c, got nil")
	}
	if !errors.Is(err, keywrap.ErrInvalidInput) {
		t.Errorf("want an invalid p2c error to wrap keywrap.ErrInvalidInput, got %v", err)
	}
}

func TestWrongPassword(t *testing.T) {
	cek := []byte("0123456789abcdef0123456789abcdef")
	w := a128kw.NewKeyWrapper(passwordKey("right password"))
	h := &testHeader{alg: a128kw.name}
	wrapped, err := w.WrapKey(cek, h)
	if err != nil {
		t.Fatal(err)
	}

	wrongW := a128kw.NewKeyWrapper(passwordKey("wrong password"))
	if _, err := wrongW.UnwrapKey(wrapped, h); err == nil {
		t.Error("want error unwrapping with the wrong password, got nil")
	}
}
