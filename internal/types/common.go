// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package types defines the wire and in-memory data model shared by every
// sequencer component: addresses, hashes, transactions, blocks, receipts,
// batches and witnesses.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// AddressLength and HashLength fix the byte widths of the two identifier
// types used throughout the sequencer.
const (
	AddressLength = 20
	HashLength    = 32
)

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToAddress right-aligns b into an Address, truncating from the left
// if b is longer than AddressLength (mirrors go-ethereum's common.Address).
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

func (a Address) IsZero() bool { return a == Address{} }

// Hash is a 32-byte Keccak-256 digest.
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) IsZero() bool { return h == Hash{} }

// U256 is an unsigned 256-bit integer, big-endian on the wire. It is a thin
// alias over holiman/uint256.Int so arithmetic reuses that package's
// constant-time, overflow-checked operations instead of reimplementing them.
type U256 = uint256.Int

// NewU256 builds a U256 from a uint64, the common case for gas math.
func NewU256(v uint64) *U256 {
	return new(U256).SetUint64(v)
}

// U256FromString parses a decimal string into a U256; hex input is
// rejected.
func U256FromString(s string) (*U256, error) {
	z := new(U256)
	if err := z.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("invalid u256 %q: %w", s, err)
	}
	return z, nil
}
