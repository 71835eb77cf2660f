package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. Bump the /vN suffix whenever the hashed encoding changes.
const (
	DomainNetwork = "pulsenet/network/v1"
	DomainState   = "pulsenet/state/v1"
)

// domainHash is hex(SHA-256(domain || 0x00 || data)).
func domainHash(domain string, data []byte) string {
	sum := sha256.Sum256(append(append([]byte(domain), 0), data...))
	return hex.EncodeToString(sum[:])
}

// NetworkHash computes the content-addressed identity of a declaration list.
// Two lists hash equal only if they declare the same modules in the same
// order with the same ordered outputs.
func NetworkHash(decls []Declaration) (string, error) {
	canonical, err := MarshalCanonical(DeclarationsValue(decls))
	if err != nil {
		return "", fmt.Errorf("NetworkHash: failed to marshal: %w", err)
	}
	return domainHash(DomainNetwork, canonical), nil
}

// StateHash computes the fingerprint of a global-state object.
// Object keys are canonically sorted, so the hash does not depend on
// map iteration order.
func StateHash(state IRObject) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return domainHash(DomainState, canonical), nil
}

// MustNetworkHash is NetworkHash for declarations that are known to
// encode, such as test fixtures.
func MustNetworkHash(decls []Declaration) string {
	h, err := NetworkHash(decls)
	if err != nil {
		panic(err)
	}
	return h
}
