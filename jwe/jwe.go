// Package jwe implements JSON Web Encryption compact serialization,
// RFC 7516.
package jwe

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/joselock/jwe/header"
	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/keywrap"
)

var b64 = base64.RawURLEncoding

// NewKeyWrapper resolves alg's registered jwa.Algorithm and binds it
// to key, the way the jwa registry is meant to be driven from the
// outside: callers name an algorithm and a key, this package does the
// dispatch.
func NewKeyWrapper(alg jwa.KeyManagementAlgorithm, key keywrap.Key) (keywrap.KeyWrapper, error) {
	if !alg.Available() {
		return nil, newError(InvalidParam, "NewKeyWrapper", fmt.Errorf("unregistered key management algorithm %q", alg))
	}
	return alg.New().NewKeyWrapper(key), nil
}

// EncryptCompact builds a message with Encrypt and alg/kw/enc/protected,
// and renders it straight to its compact serialization.
func EncryptCompact(alg jwa.KeyManagementAlgorithm, key keywrap.Key, enc jwa.EncryptionAlgorithm, protected *header.Header, plaintext []byte) ([]byte, error) {
	kw, err := NewKeyWrapper(alg, key)
	if err != nil {
		return nil, err
	}
	h := protected.Clone()
	h.SetAlgorithm(alg)
	msg, err := Encrypt(kw, enc, h, plaintext)
	if err != nil {
		return nil, err
	}
	return msg.Compact(), nil
}

// DecryptCompact parses data as a compact-serialization JWE and
// decrypts it with the key management algorithm its header names and
// key, failing with InvalidParam if that algorithm is not registered.
// key's Algo pin and Ops are not checked here; DecryptCompactWithKeySet
// checks them.
func DecryptCompact(data []byte, key keywrap.Key) ([]byte, error) {
	msg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	kw, err := NewKeyWrapper(msg.header.Algorithm(), key)
	if err != nil {
		return nil, err
	}
	return msg.Decrypt(kw)
}

// maxDecompressedSize bounds how much a single DEFLATE segment may
// expand to on decrypt, so a crafted small ciphertext cannot force an
// unbounded allocation (a decompression bomb).
const maxDecompressedSize = 64 << 20 // 64 MiB

// Message is a parsed or freshly-built compact-serialization JWE: the
// protected header, the (possibly empty) JWE Encrypted Key, the IV,
// the ciphertext, and the authentication tag, together with the
// base64url encoding of each segment so re-serializing never needs to
// re-encode unchanged bytes.
type Message struct {
	header *header.Header

	encryptedKey, b64encryptedKey []byte
	iv, b64iv                     []byte
	ciphertext, b64ciphertext     []byte
	tag, b64tag                   []byte
	rawHeader, b64header          []byte
}

// Header returns the message's protected header.
func (msg *Message) Header() *header.Header {
	return msg.header
}

// Encrypt builds a new Message: it wraps a Content Encryption Key
// with kw (or, for algorithms implementing keywrap.KeyDeriver such as
// "dir" and bare "ECDH-ES", derives the CEK as a side effect of key
// agreement), compresses plaintext first if protected requests "zip":
// "DEF", and seals plaintext under the CEK with enc. protected is
// cloned and mutated with "enc" and any algorithm-specific fields
// (epk, iv, tag, p2s, p2c) the key wrapper writes; the caller's
// Header is left untouched.
func Encrypt(kw keywrap.KeyWrapper, enc jwa.EncryptionAlgorithm, protected *header.Header, plaintext []byte) (*Message, error) {
	if !enc.Available() {
		return nil, newError(InvalidParam, "Encrypt", fmt.Errorf("unregistered content encryption algorithm %q", enc))
	}
	h := protected.Clone()
	h.SetEncryptionAlgorithm(enc)

	if h.CompressionAlgorithm() == jwa.DEF {
		compressed, err := deflate(plaintext)
		if err != nil {
			return nil, newError(CryptoFailure, "Encrypt", err)
		}
		plaintext = compressed
	}

	encAlg := enc.New()

	var cek, encryptedKey []byte
	var err error
	if deriver, ok := kw.(keywrap.KeyDeriver); ok {
		cek, encryptedKey, err = deriver.DeriveKey(h)
		if err != nil {
			return nil, newError(CryptoFailure, "Encrypt", fmt.Errorf("failed to derive key: %w", err))
		}
	} else {
		cek, err = encAlg.GenerateCEK()
		if err != nil {
			return nil, newError(CryptoFailure, "Encrypt", fmt.Errorf("failed to generate CEK: %w", err))
		}
		encryptedKey, err = kw.WrapKey(cek, h)
		if err != nil {
			return nil, newError(CryptoFailure, "Encrypt", fmt.Errorf("failed to wrap key: %w", err))
		}
	}

	iv, err := encAlg.GenerateIV()
	if err != nil {
		return nil, newError(CryptoFailure, "Encrypt", fmt.Errorf("failed to generate iv: %w", err))
	}

	rawHeader, b64header, err := h.Encode()
	if err != nil {
		return nil, newError(InvalidParam, "Encrypt", fmt.Errorf("failed to encode header: %w", err))
	}

	ciphertext, tag, err := encAlg.Encrypt(cek, iv, b64header, plaintext)
	if err != nil {
		return nil, newError(CryptoFailure, "Encrypt", fmt.Errorf("failed to encrypt content: %w", err))
	}

	return &Message{
		header:          h,
		rawHeader:       rawHeader,
		b64header:       b64header,
		encryptedKey:    encryptedKey,
		b64encryptedKey: b64EncodeNew(encryptedKey),
		iv:              iv,
		b64iv:           b64EncodeNew(iv),
		ciphertext:      ciphertext,
		b64ciphertext:   b64EncodeNew(ciphertext),
		tag:             tag,
		b64tag:          b64EncodeNew(tag),
	}, nil
}

// Decrypt unwraps the message's Encrypted Key with kw, decrypts and
// authenticates the ciphertext, and reverses DEFLATE compression if
// the header requested it.
func (msg *Message) Decrypt(kw keywrap.KeyWrapper) ([]byte, error) {
	enc := msg.header.EncryptionAlgorithm()
	if !enc.Available() {
		return nil, newError(InvalidParam, "Decrypt", fmt.Errorf("unregistered content encryption algorithm %q", enc))
	}

	cek, err := kw.UnwrapKey(msg.encryptedKey, msg.header)
	if err != nil {
		if errors.Is(err, keywrap.ErrInvalidInput) {
			return nil, newError(InvalidParam, "Decrypt", fmt.Errorf("failed to unwrap key: %w", err))
		}
		return nil, newError(InvalidTag, "Decrypt", fmt.Errorf("failed to unwrap key: %w", err))
	}

	plaintext, err := enc.New().Decrypt(cek, msg.iv, msg.b64header, msg.ciphertext, msg.tag)
	if err != nil {
		return nil, newError(InvalidTag, "Decrypt", fmt.Errorf("failed to decrypt content: %w", err))
	}

	if msg.header.CompressionAlgorithm() == jwa.DEF {
		plaintext, err = inflate(plaintext)
		if err != nil {
			return nil, newError(InvalidParam, "Decrypt", fmt.Errorf("failed to decompress content: %w", err))
		}
	}
	return plaintext, nil
}

// stripWhitespace removes the ASCII whitespace characters (SP, HT, LF,
// CR, VT, FF) that a compact serialization may have had inserted for
// readability, such as line wrapping, before it is split on '.'.
func stripWhitespace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			out = append(out, b)
		}
	}
	return out
}

// Parse decodes a compact-serialization JWE: five base64url segments
// joined by '.'. Leading/trailing/embedded ASCII whitespace is
// stripped before splitting, so a token wrapped or indented for
// display still parses; the grammar itself allows no whitespace.
func Parse(data []byte) (*Message, error) {
	data = stripWhitespace(data)
	segments := bytes.Split(data, []byte{'.'})
	if len(segments) != 5 {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("expected 5 segments, got %d", len(segments)))
	}
	b64header, b64encryptedKey, b64iv, b64ciphertext, b64tag := segments[0], segments[1], segments[2], segments[3], segments[4]

	h, err := header.Decode(b64header)
	if err != nil {
		return nil, newError(InvalidParam, "Parse", err)
	}
	for _, name := range h.Critical() {
		if !header.Recognized(name) {
			return nil, newError(InvalidHeader, "Parse", fmt.Errorf("unrecognized crit parameter %q", name))
		}
	}
	if alg := h.Algorithm(); alg == "" || !alg.Available() {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("unknown or missing alg %q", alg))
	}
	if h.EncryptionAlgorithm() == "" || !h.EncryptionAlgorithm().Available() {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("unknown or missing enc %q", h.EncryptionAlgorithm()))
	}

	encryptedKey, err := b64DecodeNew(b64encryptedKey)
	if err != nil {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("invalid encrypted key: %w", err))
	}
	iv, err := b64DecodeNew(b64iv)
	if err != nil {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("invalid iv: %w", err))
	}
	ciphertext, err := b64DecodeNew(b64ciphertext)
	if err != nil {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("invalid ciphertext: %w", err))
	}
	tag, err := b64DecodeNew(b64tag)
	if err != nil {
		return nil, newError(InvalidParam, "Parse", fmt.Errorf("invalid tag: %w", err))
	}

	raw, err := b64DecodeNew(b64header)
	if err != nil {
		return nil, newError(InvalidParam, "Parse", err)
	}

	return &Message{
		header:          h,
		rawHeader:       raw,
		b64header:       b64header,
		encryptedKey:    encryptedKey,
		b64encryptedKey: b64encryptedKey,
		iv:              iv,
		b64iv:           b64iv,
		ciphertext:      ciphertext,
		b64ciphertext:   b64ciphertext,
		tag:             tag,
		b64tag:          b64tag,
	}, nil
}

// Compact renders msg as the five-segment compact serialization,
// RFC 7516 Section 5.1 step 23 / Section 7.1.
func (msg *Message) Compact() []byte {
	out := make([]byte, 0, len(msg.b64header)+len(msg.b64encryptedKey)+len(msg.b64iv)+len(msg.b64ciphertext)+len(msg.b64tag)+4)
	out = append(out, msg.b64header...)
	out = append(out, '.')
	out = append(out, msg.b64encryptedKey...)
	out = append(out, '.')
	out = append(out, msg.b64iv...)
	out = append(out, '.')
	out = append(out, msg.b64ciphertext...)
	out = append(out, '.')
	out = append(out, msg.b64tag...)
	return out
}

func deflate(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	limited := io.LimitReader(r, maxDecompressedSize+1)
	var buf bytes.Buffer
	n, err := buf.ReadFrom(limited)
	if err != nil {
		return nil, err
	}
	if n > maxDecompressedSize {
		return nil, newError(Memory, "inflate", fmt.Errorf("decompressed content exceeds %d bytes", maxDecompressedSize))
	}
	return buf.Bytes(), nil
}

func b64EncodeNew(src []byte) []byte {
	dst := make([]byte, b64.EncodedLen(len(src)))
	b64.Encode(dst, src)
	return dst
}

func b64DecodeNew(src []byte) ([]byte, error) {
	dst := make([]byte, b64.DecodedLen(len(src)))
	n, err := b64.Decode(dst, src)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}
