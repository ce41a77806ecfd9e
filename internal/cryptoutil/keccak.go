// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package cryptoutil wraps the secp256k1/Keccak-256 primitives the
// sequencer needs for signing, recovery and address derivation (spec
// §4.A). It intentionally uses the original Keccak padding (0x01), not
// FIPS SHA3 (0x06) — the two are easy to confuse and the spec's Open
// Questions call this out explicitly as a source of past bugs.
package cryptoutil

import (
	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes the concatenation of data using the original Keccak-256
// submission, as used throughout Ethereum for hashing and address
// derivation. golang.org/x/crypto/sha3 exposes this as NewLegacyKeccak256,
// distinct from the FIPS-finalized sha3.New256.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Array is Keccak256 with the result copied into a fixed-size
// array, for callers that want a comparable, stack-allocated hash.
func Keccak256Array(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], Keccak256(data...))
	return out
}
