// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package types

import "math/big"

// Signature is the (r, s, v) component triple of an ECDSA secp256k1
// signature over a transaction hash. v follows legacy Ethereum convention:
// 27/28 pre-EIP-155, or >= 35 for EIP-155 chain-bound signatures.
type Signature struct {
	R *big.Int
	S *big.Int
	V *big.Int
}

// secp256k1N is the order of the secp256k1 curve group.
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// Secp256k1N returns the curve order N, exported for invariant checks
// outside this package (r, s validation in internal/sigverify).
func Secp256k1N() *big.Int { return new(big.Int).Set(secp256k1N) }

// IsEIP155 reports whether v encodes a chain-bound EIP-155 signature
// (v >= 35, per spec §3).
func (s Signature) IsEIP155() bool {
	return s.V != nil && s.V.Cmp(big.NewInt(35)) >= 0
}

// ChainID recovers the chain id encoded in v for an EIP-155 signature.
// Only meaningful when IsEIP155() is true.
func (s Signature) ChainID() *big.Int {
	// chain_id = (v - 35) / 2
	v := new(big.Int).Sub(s.V, big.NewInt(35))
	return v.Rsh(v, 1)
}

// RecoveryID returns the 0/1 recovery bit encoded in v, accounting for both
// the legacy (27/28) and EIP-155 (>=35) encodings.
func (s Signature) RecoveryID() byte {
	if s.IsEIP155() {
		v := new(big.Int).Sub(s.V, big.NewInt(35))
		return byte(v.Bit(0))
	}
	// legacy: v - 27
	v := new(big.Int).Sub(s.V, big.NewInt(27))
	if v.Sign() < 0 {
		return 0
	}
	return byte(v.Uint64() & 1)
}
