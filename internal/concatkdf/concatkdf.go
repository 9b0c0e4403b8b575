// Package concatkdf implements the key derivation function of NIST
// SP 800-56A Section 5.8.1 ("Concat KDF"), as used by ECDH-ES
// (RFC 7518 Section 4.6).
package concatkdf

import (
	"crypto/sha256"
	"encoding/binary"
)

// Derive returns keyLen bytes derived from the shared secret z.
//
// Each hash round's input is, in order: a 4-byte big-endian round
// counter starting at 1, z, the 4-byte-length-prefixed algorithmID,
// apu, apv, and a final 4-byte big-endian SuppPubInfo equal to keyLen
// in *bits*. This is the exact byte layout of spec.md §4.1.3. Rounds
// are concatenated and truncated to keyLen, covering CEKs longer than
// one SHA-256 block (e.g. the 64-byte A256CBC-HS512 key).
func Derive(z, algorithmID, apu, apv []byte, keyLen int) []byte {
	out := make([]byte, 0, keyLen+sha256.Size)
	var be4 [4]byte
	for round := uint32(1); len(out) < keyLen; round++ {
		h := sha256.New()

		binary.BigEndian.PutUint32(be4[:], round)
		h.Write(be4[:])

		h.Write(z)

		binary.BigEndian.PutUint32(be4[:], uint32(len(algorithmID)))
		h.Write(be4[:])
		h.Write(algorithmID)

		binary.BigEndian.PutUint32(be4[:], uint32(len(apu)))
		h.Write(be4[:])
		h.Write(apu)

		binary.BigEndian.PutUint32(be4[:], uint32(len(apv)))
		h.Write(be4[:])
		h.Write(apv)

		binary.BigEndian.PutUint32(be4[:], uint32(keyLen*8))
		h.Write(be4[:])

		out = h.Sum(out)
	}
	return out[:keyLen]
}
