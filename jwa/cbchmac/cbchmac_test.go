package cbchmac

import (
	"bytes"
	"crypto/subtle"
	"testing"

	"github.com/joselock/jwe/jwa"
)

func TestDecrypt_rfc7516AppendixA2(t *testing.T) {
	cek := []byte{
		4, 211, 31, 197, 84, 157, 252, 254, 11, 100, 157, 250, 63, 170, 106,
		206, 107, 124, 212, 45, 111, 107, 9, 219, 200, 177, 0, 240, 143, 156,
		44, 207,
	}
	iv := []byte{
		3, 22, 60, 12, 43, 67, 104, 105, 108, 108, 105, 99, 111, 116, 104,
		101,
	}
	aad := []byte{
		101, 121, 74, 104, 98, 71, 99, 105, 79, 105, 74, 83, 85, 48, 69,
		120, 88, 122, 85, 105, 76, 67, 74, 108, 98, 109, 77, 105, 79, 105,
		74, 66, 77, 84, 73, 52, 81, 48, 74, 68, 76, 85, 104, 84, 77, 106, 85,
		50, 73, 110, 48,
	}
	ciphertext := []byte{
		40, 57, 83, 181, 119, 33, 133, 148, 198, 185, 243, 24, 152, 230, 6,
		75, 129, 223, 127, 19, 210, 82, 183, 230, 168, 33, 215, 104, 143,
		112, 56, 102,
	}
	tag := []byte{
		246, 17, 244, 190, 4, 95, 98, 3, 231, 0, 115, 157, 242, 203, 100,
		191,
	}
	want := []byte{
		76, 105, 118, 101, 32, 108, 111, 110, 103, 32, 97, 110, 100, 32,
		112, 114, 111, 115, 112, 101, 114, 46,
	}

	got, err := a128.Decrypt(cek, iv, aad, ciphertext, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("want %#v, got %#v", want, got)
	}
}

func TestEncrypt_rfc7516AppendixA2(t *testing.T) {
	cek := []byte{
		4, 211, 31, 197, 84, 157, 252, 254, 11, 100, 157, 250, 63, 170, 106,
		206, 107, 124, 212, 45, 111, 107, 9, 219, 200, 177, 0, 240, 143, 156,
		44, 207,
	}
	iv := []byte{
		3, 22, 60, 12, 43, 67, 104, 105, 108, 108, 105, 99, 111, 116, 104,
		101,
	}
	aad := []byte{
		101, 121, 74, 104, 98, 71, 99, 105, 79, 105, 74, 83, 85, 48, 69,
		120, 88, 122, 85, 105, 76, 67, 74, 108, 98, 109, 77, 105, 79, 105,
		74, 66, 77, 84, 73, 52, 81, 48, 74, 68, 76, 85, 104, 84, 77, 106, 85,
		50, 73, 110, 48,
	}
	plaintext := []byte{
		76, 105, 118, 101, 32, 108, 111, 110, 103, 32, 97, 110, 100, 32,
		112, 114, 111, 115, 112, 101, 114, 46,
	}

	ciphertext, tag, err := a128.Encrypt(cek, iv, aad, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	wantCiphertext := []byte{
		40, 57, 83, 181, 119, 33, 133, 148, 198, 185, 243, 24, 152, 230, 6,
		75, 129, 223, 127, 19, 210, 82, 183, 230, 168, 33, 215, 104, 143,
		112, 56, 102,
	}
	if subtle.ConstantTimeCompare(ciphertext, wantCiphertext) == 0 {
		t.Errorf("want %#v, got %#v", wantCiphertext, ciphertext)
	}
	wantTag := []byte{
		246, 17, 244, 190, 4, 95, 98, 3, 231, 0, 115, 157, 242, 203, 100, 191,
	}
	if !bytes.Equal(tag, wantTag) {
		t.Errorf("want %#v, got %#v", wantTag, tag)
	}
}

func TestCEKSizeAndIVSize(t *testing.T) {
	tests := []jwa.EncryptionAlgorithm{
		jwa.A128CBC_HS256,
		jwa.A192CBC_HS384,
		jwa.A256CBC_HS512,
	}
	for _, enc := range tests {
		alg := enc.New()
		if alg.IVSize() != 16 {
			t.Errorf("%s: want IVSize 16, got %d", enc, alg.IVSize())
		}
	}
	if a128.CEKSize() != 32 {
		t.Errorf("A128CBC-HS256: want CEKSize 32, got %d", a128.CEKSize())
	}
	if a192.CEKSize() != 48 {
		t.Errorf("A192CBC-HS384: want CEKSize 48, got %d", a192.CEKSize())
	}
	if a256.CEKSize() != 64 {
		t.Errorf("A256CBC-HS512: want CEKSize 64, got %d", a256.CEKSize())
	}
}

func TestRoundTrip_emptyPlaintext(t *testing.T) {
	cek, err := a128.GenerateCEK()
	if err != nil {
		t.Fatal(err)
	}
	iv, err := a128.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	aad := []byte("header")

	ciphertext, tag, err := a128.Encrypt(cek, iv, aad, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := a128.Decrypt(cek, iv, aad, ciphertext, tag)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("want empty plaintext, got %x", got)
	}
}

func TestRoundTrip_exactBlockBoundary(t *testing.T) {
	cek, err := a256.GenerateCEK()
	if err != nil {
		t.Fatal(err)
	}
	iv, err := a256.GenerateIV()
	if err != nil {
		t.Fatal(err)
	}
	plaintext := make([]byte, 32) // exactly two AES blocks
	aad := []byte("aad")

	ciphertext, tag, err := a256.Encrypt(cek, iv, aad, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	// PKCS#7 padding always adds a full extra block, even on an
	// exact boundary, so ciphertext must be 48 bytes.
	if len(ciphertext) != 48 {
		t.Errorf("want 48-byte ciphertext on an exact block boundary, got %d", len(ciphertext))
	}
	got, err := a256.Decrypt(cek, iv, aad, ciphertext, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plaintext, got) {
		t.Errorf("roundtrip mismatch: want %x, got %x", plaintext, got)
	}
}

func TestDecrypt_tamperedTagRejected(t *testing.T) {
	cek, _ := a128.GenerateCEK()
	iv, _ := a128.GenerateIV()
	ciphertext, tag, err := a128.Encrypt(cek, iv, []byte("aad"), []byte("hello, world"))
	if err != nil {
		t.Fatal(err)
	}
	tag[0] ^= 0xff
	if _, err := a128.Decrypt(cek, iv, []byte("aad"), ciphertext, tag); err == nil {
		t.Error("want error for tampered tag, got nil")
	}
}

func TestDecrypt_tamperedPaddingRejected(t *testing.T) {
	cek, _ := a128.GenerateCEK()
	iv, _ := a128.GenerateIV()
	aad := []byte("aad")
	ciphertext, tag, err := a128.Encrypt(cek, iv, aad, []byte("hello, world"))
	if err != nil {
		t.Fatal(err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := a128.Decrypt(cek, iv, aad, ciphertext, tag); err == nil {
		t.Error("want error for corrupted final ciphertext block, got nil")
	}
}
