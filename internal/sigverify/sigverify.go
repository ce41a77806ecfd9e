// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package sigverify implements component-level signature validation and
// sender recovery for signed transactions (spec §4.C).
package sigverify

import (
	"errors"
	"math/big"

	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Component validation errors, returned by ValidateComponents. Distinct
// values so callers (ingress coordinator, RPC dispatcher) can map each to
// the right JSON-RPC error without string matching.
var (
	ErrInvalidR          = errors.New("sigverify: invalid r")
	ErrInvalidS          = errors.New("sigverify: invalid s")
	ErrInvalidV          = errors.New("sigverify: invalid v")
	ErrSignatureTooLarge = errors.New("sigverify: signature component too large")
	ErrRecoveryFailed    = errors.New("sigverify: signature recovery failed")
	ErrChainIDMismatch   = errors.New("sigverify: chain id mismatch or non-EIP-155 signature")
)

var secp256k1N = types.Secp256k1N()

// ValidateComponents checks the (r, s, v) invariants of spec §3: 0 < r < N,
// 0 < s < N, and v in {27, 28} ∪ {x : x >= 35}. It rejects r==0, s==0,
// v < 27 and v in [29, 34] explicitly, per spec §4.C. Low-s canonical form
// is NOT enforced — high-s signatures are accepted for compatibility, also
// per spec.
//
// This function is pure: identical inputs always produce the identical
// outcome (spec §8 invariant 2), which makes it safe to call repeatedly
// (ingress precheck, then execution) without caching.
func ValidateComponents(sig types.Signature) error {
	if sig.R == nil || sig.S == nil || sig.V == nil {
		return ErrInvalidV
	}
	if sig.R.Sign() <= 0 {
		return ErrInvalidR
	}
	if sig.R.Cmp(secp256k1N) >= 0 {
		return ErrSignatureTooLarge
	}
	if sig.S.Sign() <= 0 {
		return ErrInvalidS
	}
	if sig.S.Cmp(secp256k1N) >= 0 {
		return ErrSignatureTooLarge
	}
	v := sig.V
	if v.Cmp(big.NewInt(27)) < 0 {
		return ErrInvalidV
	}
	if v.Cmp(big.NewInt(29)) >= 0 && v.Cmp(big.NewInt(35)) < 0 {
		return ErrInvalidV
	}
	return nil
}

// RecoverSender recovers the sender address of tx, reproducing the exact
// pre-image the signer used: the legacy 6-field pre-image when v in
// {27, 28}, or the EIP-155 9-field pre-image (deriving chain_id from v)
// otherwise.
func RecoverSender(tx types.SignedTx) (types.Address, error) {
	if cached, ok := tx.CachedSender(); ok {
		return cached, nil
	}
	sig := tx.RawSignature()
	if err := ValidateComponents(sig); err != nil {
		return types.Address{}, err
	}

	var chainID *big.Int
	if sig.IsEIP155() {
		chainID = sig.ChainID()
	}
	preimage := tx.SigningHash(chainID)

	pub, err := cryptoutil.Recover(preimage[:], sig.R, sig.S, sig.RecoveryID())
	if err != nil {
		return types.Address{}, ErrRecoveryFailed
	}
	addr := cryptoutil.AddressFromPubkey(pub)
	sender := types.Address(addr)
	tx.SetCachedSender(sender)
	return sender, nil
}

// Verify recovers tx's sender and compares it to expected, the
// self-consistent round-trip check of spec §4.C.
func Verify(tx types.SignedTx, expected types.Address) bool {
	got, err := RecoverSender(tx)
	if err != nil {
		return false
	}
	return got == expected
}

// VerifyWithChainID enforces the EIP-155 form: it rejects a legacy
// (v in {27,28}) signature when expectedChainID is set, and rejects a
// mismatched chain id when the signature is EIP-155-encoded.
func VerifyWithChainID(tx types.SignedTx, expectedChainID *big.Int) (types.Address, error) {
	sig := tx.RawSignature()
	if err := ValidateComponents(sig); err != nil {
		return types.Address{}, err
	}
	if expectedChainID != nil {
		if !sig.IsEIP155() {
			return types.Address{}, ErrChainIDMismatch
		}
		if sig.ChainID().Cmp(expectedChainID) != 0 {
			return types.Address{}, ErrChainIDMismatch
		}
	}
	return RecoverSender(tx)
}
