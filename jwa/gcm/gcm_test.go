package gcm

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, alg := range []*Algorithm{a128, a192, a256} {
		cek, err := alg.GenerateCEK()
		if err != nil {
			t.Fatal(err)
		}
		iv, err := alg.GenerateIV()
		if err != nil {
			t.Fatal(err)
		}
		aad := []byte("protected-header")
		plaintext := []byte("the quick brown fox jumps over the lazy dog")

		ciphertext, tag, err := alg.Encrypt(cek, iv, aad, plaintext)
		if err != nil {
			t.Fatal(err)
		}
		if len(tag) != 16 {
			t.Errorf("want 16-byte GCM tag, got %d", len(tag))
		}
		got, err := alg.Decrypt(cek, iv, aad, ciphertext, tag)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(plaintext, got) {
			t.Errorf("roundtrip mismatch: want %q, got %q", plaintext, got)
		}
	}
}

func TestSizes(t *testing.T) {
	tests := []struct {
		alg     *Algorithm
		cekSize int
	}{
		{a128, 16},
		{a192, 24},
		{a256, 32},
	}
	for _, tt := range tests {
		if tt.alg.CEKSize() != tt.cekSize {
			t.Errorf("want CEKSize %d, got %d", tt.cekSize, tt.alg.CEKSize())
		}
		if tt.alg.IVSize() != 12 {
			t.Errorf("want IVSize 12, got %d", tt.alg.IVSize())
		}
	}
}

func TestDecrypt_tamperedCiphertext(t *testing.T) {
	cek, _ := a256.GenerateCEK()
	iv, _ := a256.GenerateIV()
	ciphertext, tag, err := a256.Encrypt(cek, iv, []byte("aad"), []byte("plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	ciphertext[0] ^= 0xff
	if _, err := a256.Decrypt(cek, iv, []byte("aad"), ciphertext, tag); err == nil {
		t.Error("want error for tampered ciphertext, got nil")
	}
}

func TestDecrypt_wrongAAD(t *testing.T) {
	cek, _ := a128.GenerateCEK()
	iv, _ := a128.GenerateIV()
	ciphertext, tag, err := a128.Encrypt(cek, iv, []byte("aad-one"), []byte("plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a128.Decrypt(cek, iv, []byte("aad-two"), ciphertext, tag); err == nil {
		t.Error("want error for mismatched AAD, got nil")
	}
}

func TestEncrypt_invalidCEKLength(t *testing.T) {
	if _, _, err := a128.Encrypt(make([]byte, 7), make([]byte, 12), nil, []byte("x")); err == nil {
		t.Error("want error for invalid CEK length, got nil")
	}
}

func TestEncrypt_invalidIVLength(t *testing.T) {
	cek, _ := a128.GenerateCEK()
	if _, _, err := a128.Encrypt(cek, make([]byte, 8), nil, []byte("x")); err == nil {
		t.Error("want error for invalid iv length, got nil")
	}
}
