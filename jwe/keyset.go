package jwe

import (
	"fmt"

	"github.com/joselock/jwe/header"
	"github.com/joselock/jwe/jwa"
	"github.com/joselock/jwe/keyset"
)

// EncryptCompactWithKeySet behaves like EncryptCompact, but resolves
// the recipient key from pubkeys instead of requiring the caller to
// look one up first, per spec.md §3.2's jwks_pubkey: the header's
// "kid" (if set) selects the key; with no "kid" and exactly one key
// in pubkeys, that key is used.
func EncryptCompactWithKeySet(alg jwa.KeyManagementAlgorithm, pubkeys *keyset.Set, enc jwa.EncryptionAlgorithm, protected *header.Header, plaintext []byte) ([]byte, error) {
	key, ok := pubkeys.Find(protected.KeyID())
	if !ok {
		return nil, newError(InvalidParam, "EncryptCompactWithKeySet", fmt.Errorf("no key found in key set for kid %q", protected.KeyID()))
	}
	if key.Algo != "" && key.Algo != alg {
		return nil, newError(InvalidParam, "EncryptCompactWithKeySet", fmt.Errorf("key %q is pinned to alg %q, cannot use it with %q", key.KeyID, key.Algo, alg))
	}
	if !key.CanUseFor(keyset.OpEncrypt) && !key.CanUseFor(keyset.OpWrapKey) && !key.CanUseFor(keyset.OpDeriveKey) {
		return nil, newError(InvalidParam, "EncryptCompactWithKeySet", fmt.Errorf("key %q does not permit key-wrap/encrypt operations", key.KeyID))
	}

	h := protected.Clone()
	if h.KeyID() == "" {
		h.SetKeyID(key.KeyID)
	}
	return EncryptCompact(alg, key, enc, h, plaintext)
}

// DecryptCompactWithKeySet behaves like DecryptCompact, but resolves
// the decryption key from privkeys using the parsed message's "kid",
// per spec.md §3.2's jwks_privkey.
func DecryptCompactWithKeySet(data []byte, privkeys *keyset.Set) ([]byte, error) {
	msg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	key, ok := privkeys.Find(msg.header.KeyID())
	if !ok {
		return nil, newError(InvalidParam, "DecryptCompactWithKeySet", fmt.Errorf("no key found in key set for kid %q", msg.header.KeyID()))
	}
	if key.Algo != "" && key.Algo != msg.header.Algorithm() {
		return nil, newError(InvalidParam, "DecryptCompactWithKeySet", fmt.Errorf("key %q is pinned to alg %q, cannot use it with %q", key.KeyID, key.Algo, msg.header.Algorithm()))
	}
	if !key.CanUseFor(keyset.OpDecrypt) && !key.CanUseFor(keyset.OpUnwrapKey) && !key.CanUseFor(keyset.OpDeriveKey) {
		return nil, newError(InvalidParam, "DecryptCompactWithKeySet", fmt.Errorf("key %q does not permit key-unwrap/decrypt operations", key.KeyID))
	}

	kw, err := NewKeyWrapper(msg.header.Algorithm(), key)
	if err != nil {
		return nil, err
	}
	return msg.Decrypt(kw)
}
