// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package cryptoutil

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// ErrInvalidRecoveryID, ErrMalformedSignature and ErrPointAtInfinity are the
// distinct failure modes spec §4.A requires "recover" to report; callers
// surface all of them uniformly as "signature recovery failed".
var (
	ErrInvalidRecoveryID  = errors.New("cryptoutil: recovery id out of range")
	ErrMalformedSignature = errors.New("cryptoutil: malformed r/s")
	ErrPointAtInfinity    = errors.New("cryptoutil: recovered point at infinity")
)

// PublicKey is the uncompressed 64-byte (x, y) secp256k1 public key, without
// the 0x04 prefix byte go-ethereum/libsecp256k1 use on the wire.
type PublicKey [64]byte

// curveOrderN is the order of the secp256k1 curve group, used to reject
// malformed r values during recovery (spec §3: 0 < r < N).
var curveOrderN, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

func pad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// Sign produces a deterministic (RFC 6979) ECDSA signature over hash using
// priv, returning (r, s, recoveryID) with recoveryID in {0,1}. Callers
// convert recoveryID to legacy v themselves (v = recoveryID + 27) since v's
// exact encoding (legacy vs. EIP-155) is a transaction-codec concern, not a
// crypto-primitive one.
func Sign(hash []byte, priv *big.Int) (r, s *big.Int, recoveryID byte, err error) {
	if len(hash) != 32 {
		return nil, nil, 0, errors.New("cryptoutil: hash must be 32 bytes")
	}
	privKey := secp256k1.PrivKeyFromBytes(pad32(priv.Bytes()))
	compact := dcrecdsa.SignCompact(privKey, hash, false)
	if len(compact) != 65 {
		return nil, nil, 0, errors.New("cryptoutil: unexpected signature length")
	}
	// SignCompact's leading byte is (27 + recoveryID[+4 if compressed]); we
	// always sign with isCompressedPubKey=false, so it is 27 or 28.
	recID := compact[0] - 27
	r = new(big.Int).SetBytes(compact[1:33])
	s = new(big.Int).SetBytes(compact[33:65])
	return r, s, recID, nil
}

// Recover recovers the secp256k1 public key that produced (r, s) over hash
// given recoveryID. Returns ErrMalformedSignature, ErrInvalidRecoveryID or
// ErrPointAtInfinity on the failure modes spec §4.A enumerates.
func Recover(hash []byte, r, s *big.Int, recoveryID byte) (*PublicKey, error) {
	if recoveryID > 3 {
		return nil, ErrInvalidRecoveryID
	}
	if r == nil || s == nil || r.Sign() <= 0 || s.Sign() <= 0 {
		return nil, ErrMalformedSignature
	}
	if r.Cmp(curveOrderN) >= 0 {
		return nil, ErrMalformedSignature
	}

	compact := make([]byte, 65)
	compact[0] = 27 + recoveryID
	rb, sb := r.Bytes(), s.Bytes()
	copy(compact[1+32-len(rb):33], rb)
	copy(compact[33+32-len(sb):65], sb)

	pub, _, err := dcrecdsa.RecoverCompact(compact, hash)
	if err != nil || pub == nil {
		return nil, ErrPointAtInfinity
	}
	uncompressed := pub.SerializeUncompressed() // 0x04 || X(32) || Y(32)
	if len(uncompressed) != 65 {
		return nil, ErrPointAtInfinity
	}
	var out PublicKey
	copy(out[:], uncompressed[1:])
	return &out, nil
}

// AddressFromPubkey derives a 20-byte address as the last 20 bytes of
// Keccak256(pub.X || pub.Y), per spec §4.A.
func AddressFromPubkey(pub *PublicKey) [20]byte {
	digest := Keccak256(pub[:])
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

// ToECDSA converts a private-key big.Int into a *ecdsa.PrivateKey for
// callers (tests, CLI key loading) that want the standard-library type.
func ToECDSA(priv *big.Int) *ecdsa.PrivateKey {
	key := secp256k1.PrivKeyFromBytes(pad32(priv.Bytes()))
	return key.ToECDSA()
}
