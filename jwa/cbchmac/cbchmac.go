// Package cbchmac implements the AES_CBC_HMAC_SHA2 composite content
// encryption algorithms, RFC 7518 Section 5.2: AES-CBC for
// confidentiality and HMAC-SHA2 for integrity, combined into a single
// AEAD-shaped interface.
package cbchmac

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/joselock/jwe/aead"
	"github.com/joselock/jwe/jwa"
)

var a128 = &Algorithm{encKeyLen: 16, macKeyLen: 16, hash: crypto.SHA256, tagLen: 16}
var a192 = &Algorithm{encKeyLen: 24, macKeyLen: 24, hash: crypto.SHA384, tagLen: 24}
var a256 = &Algorithm{encKeyLen: 32, macKeyLen: 32, hash: crypto.SHA512, tagLen: 32}

func New128() aead.Algorithm { return a128 }
func New192() aead.Algorithm { return a192 }
func New256() aead.Algorithm { return a256 }

func init() {
	jwa.RegisterEncryptionAlgorithm(jwa.A128CBC_HS256, New128)
	jwa.RegisterEncryptionAlgorithm(jwa.A192CBC_HS384, New192)
	jwa.RegisterEncryptionAlgorithm(jwa.A256CBC_HS512, New256)
}

var _ aead.Algorithm = (*Algorithm)(nil)

// Algorithm is one AES_CBC_HMAC_SHA2 variant. The CEK is the
// concatenation of a MAC key (macKeyLen bytes) followed by an
// encryption key (encKeyLen bytes), RFC 7518 Section 5.2.2.1.
type Algorithm struct {
	encKeyLen int
	macKeyLen int
	hash      crypto.Hash
	tagLen    int
}

func (alg *Algorithm) CEKSize() int { return alg.encKeyLen + alg.macKeyLen }
func (alg *Algorithm) IVSize() int  { return aes.BlockSize }

func (alg *Algorithm) GenerateCEK() ([]byte, error) {
	cek := make([]byte, alg.CEKSize())
	if _, err := rand.Read(cek); err != nil {
		return nil, err
	}
	return cek, nil
}

func (alg *Algorithm) GenerateIV() ([]byte, error) {
	iv := make([]byte, alg.IVSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func (alg *Algorithm) Encrypt(cek, iv, aad, plaintext []byte) (ciphertext, tag []byte, err error) {
	if len(cek) != alg.CEKSize() {
		return nil, nil, errors.New("cbchmac: invalid content encryption key length")
	}
	macKey, encKey := cek[:alg.macKeyLen], cek[alg.macKeyLen:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, nil, errors.New("cbchmac: invalid iv length")
	}

	size := block.BlockSize()
	ciphertext = pad(plaintext, size)
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, ciphertext)

	tag = alg.authTag(macKey, aad, iv, ciphertext)
	return ciphertext, tag, nil
}

func (alg *Algorithm) Decrypt(cek, iv, aad, ciphertext, tag []byte) (plaintext []byte, err error) {
	if len(cek) != alg.CEKSize() {
		return nil, errors.New("cbchmac: invalid content encryption key length")
	}
	macKey, encKey := cek[:alg.macKeyLen], cek[alg.macKeyLen:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	size := block.BlockSize()
	if len(iv) != size {
		return nil, errors.New("cbchmac: invalid iv length")
	}
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, errors.New("cbchmac: invalid ciphertext length")
	}

	plaintext = make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	toRemove, good := extractPadding(plaintext, size)

	expectedTag := alg.authTag(macKey, aad, iv, ciphertext)
	match := subtle.ConstantTimeCompare(tag, expectedTag) & int(good)
	if match != 1 {
		return nil, errors.New("cbchmac: authentication tag mismatch")
	}
	return plaintext[:len(plaintext)-toRemove], nil
}

func (alg *Algorithm) authTag(macKey, aad, iv, ciphertext []byte) []byte {
	w := hmac.New(alg.hash.New, macKey)
	w.Write(aad)
	w.Write(iv)
	w.Write(ciphertext)
	var al [8]byte
	binary.BigEndian.PutUint64(al[:], uint64(len(aad))*8)
	w.Write(al[:])
	return w.Sum(nil)[:alg.tagLen]
}

func pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

// extractPadding returns, in constant time, the number of PKCS#7
// padding bytes to remove from the end of payload, and a byte equal
// to 0xff if the padding was well-formed or 0x00 otherwise. A valid
// padding length is always in 1..blockSize; a decrypted payload whose
// final byte claims a larger value is rejected without ever branching
// on the claimed length, so padding-oracle timing cannot leak it.
// Adapted from crypto/tls's POODLE-era extractPadding, bounded to
// blockSize rather than 256 since AES-CBC padding never exceeds one
// block.
func extractPadding(payload []byte, blockSize int) (toRemove int, good byte) {
	if len(payload) < blockSize {
		return 0, 0
	}

	paddingLen := payload[len(payload)-1]
	t := uint(len(payload)) - uint(paddingLen)
	good = byte(int32(^t) >> 31)

	// A valid PKCS#7 padding length is 1..blockSize; reject 0 and
	// anything above blockSize without a data-dependent branch.
	inRange := subtle.ConstantTimeLessOrEq(int(paddingLen), blockSize) &^ subtle.ConstantTimeByteEq(paddingLen, 0)
	good &= byte(-inRange)

	for i := 1; i <= blockSize; i++ {
		t := uint(paddingLen) - uint(i)
		mask := byte(int32(^t) >> 31)
		b := payload[len(payload)-i]
		good &^= mask&paddingLen ^ mask&b
	}

	good &= good << 4
	good &= good << 2
	good &= good << 1
	good = uint8(int8(good) >> 7)

	paddingLen &= good
	toRemove = int(paddingLen)
	return
}
