// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package types

import (
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
)

// ExecuteTxType is the EIP-2718 type tag for the opaque, forwarded-only
// execute-transaction envelope (spec §3, "ExecuteTx (type 0x7E,
// placeholder)"). DecodeTransaction treats any leading byte below 0xc0 as
// an EIP-2718 type tag; 0x7E is the one type it recognizes.
const ExecuteTxType = 0x7E

// SignedTx is the minimal surface the signature verifier, mempool and
// execution engine need from a transaction, independent of its concrete
// envelope (legacy or the opaque ExecuteTx placeholder).
type SignedTx interface {
	// Hash returns the Keccak-256 digest of the transaction's canonical
	// encoding, including its signature. Cached after first call.
	Hash() Hash
	// SigningHash returns the pre-image that was signed: the 6-field list
	// pre-EIP-155, or the 9-field list (appending chain_id, 0, 0) when
	// chainID is non-nil.
	SigningHash(chainID *big.Int) Hash
	// RawSignature exposes the (r, s, v) triple for component validation.
	RawSignature() Signature
	// GasPriceValue returns the transaction's effective gas price, used as
	// the mempool priority key.
	GasPriceValue() *U256
	// CachedSender returns a previously-recovered sender address, if any.
	CachedSender() (Address, bool)
	// SetCachedSender records a sender recovery result for reuse by later
	// validation passes.
	SetCachedSender(Address)
}

// Transaction is the legacy transaction envelope of spec §3:
// {nonce, gas_price, gas_limit, to, value, data, v, r, s}.
type Transaction struct {
	Nonce    uint64
	GasPrice *U256
	GasLimit uint64
	To       *Address // nil => contract creation
	Value    *U256
	Data     []byte
	V, R, S  *big.Int

	hash atomic.Pointer[Hash]
	from atomic.Pointer[Address]
}

// legacyRLP is the wire/signing tuple shape, reused for both the signed
// (9-field) and pre-image (6 or 9-field) encodings below.
type legacyRLP struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *rlpAddress `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

// rlpAddress lets go-ethereum's rlp package encode a nil pointer as the
// empty string, matching "to: null" for contract creation.
type rlpAddress Address

func (a *rlpAddress) EncodeRLP(w io.Writer) error {
	if a == nil {
		return rlp.Encode(w, []byte{})
	}
	return rlp.Encode(w, (*a)[:])
}

func toPtr(a *Address) *rlpAddress {
	if a == nil {
		return nil
	}
	r := rlpAddress(*a)
	return &r
}

func u256ToBig(u *U256) *big.Int {
	if u == nil {
		return new(big.Int)
	}
	return u.ToBig()
}

// EncodeRLP implements rlp.Encoder with the canonical 9-field list
// (§4.B / §6 "canonical RLP").
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, legacyRLP{
		Nonce:    t.Nonce,
		GasPrice: u256ToBig(t.GasPrice),
		GasLimit: t.GasLimit,
		To:       toPtr(t.To),
		Value:    u256ToBig(t.Value),
		Data:     t.Data,
		V:        t.V,
		R:        t.R,
		S:        t.S,
	})
}

// DecodeRLP implements rlp.Decoder.
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var dec struct {
		Nonce    uint64
		GasPrice *big.Int
		GasLimit uint64
		To       []byte
		Value    *big.Int
		Data     []byte
		V        *big.Int
		R        *big.Int
		S        *big.Int
	}
	if err := s.Decode(&dec); err != nil {
		return err
	}
	t.Nonce = dec.Nonce
	t.GasPrice = new(U256).SetUint64(0)
	if dec.GasPrice != nil {
		t.GasPrice.SetFromBig(dec.GasPrice)
	}
	t.GasLimit = dec.GasLimit
	if len(dec.To) == AddressLength {
		to := BytesToAddress(dec.To)
		t.To = &to
	} else {
		t.To = nil
	}
	t.Value = new(U256)
	if dec.Value != nil {
		t.Value.SetFromBig(dec.Value)
	}
	t.Data = dec.Data
	t.V, t.R, t.S = dec.V, dec.R, dec.S
	return nil
}

// Hash returns the Keccak-256 digest of the signed transaction's canonical
// encoding. Computed lazily and cached; a transaction is immutable once
// constructed so the cache never goes stale.
func (t *Transaction) Hash() Hash {
	if h := t.hash.Load(); h != nil {
		return *h
	}
	h := rlpHash(t)
	t.hash.Store(&h)
	return h
}

// SigningHash returns the pre-image that sender recovery must reproduce
// exactly: the 6-field list when chainID is nil (pre-EIP-155), or the
// 9-field list appending [chain_id, 0, 0] otherwise (spec §4.B).
func (t *Transaction) SigningHash(chainID *big.Int) Hash {
	if chainID == nil {
		return rlpHash([]interface{}{
			t.Nonce, u256ToBig(t.GasPrice), t.GasLimit, toBytesOrNil(t.To), u256ToBig(t.Value), t.Data,
		})
	}
	return rlpHash([]interface{}{
		t.Nonce, u256ToBig(t.GasPrice), t.GasLimit, toBytesOrNil(t.To), u256ToBig(t.Value), t.Data,
		chainID, uint(0), uint(0),
	})
}

func toBytesOrNil(a *Address) []byte {
	if a == nil {
		return []byte{}
	}
	return a.Bytes()
}

func (t *Transaction) RawSignature() Signature {
	return Signature{R: t.R, S: t.S, V: t.V}
}

func (t *Transaction) GasPriceValue() *U256 {
	return t.GasPrice
}

// CachedSender returns a previously-recorded sender address, if the
// signature verifier has already populated it for this instance.
func (t *Transaction) CachedSender() (Address, bool) {
	if a := t.from.Load(); a != nil {
		return *a, true
	}
	return Address{}, false
}

// SetCachedSender records the result of a successful sender recovery so
// repeated validation passes (ingress precheck, then execution) don't
// re-run secp256k1 recovery.
func (t *Transaction) SetCachedSender(a Address) {
	t.from.Store(&a)
}

// ExecuteTx is the opaque, typed placeholder envelope of spec §3: only its
// signature components and hash are inspected locally, the payload is
// forwarded to L1 untouched.
type ExecuteTx struct {
	Payload []byte // raw RLP body, type byte not included
	V, R, S *big.Int

	hash atomic.Pointer[Hash]
	from atomic.Pointer[Address]
}

// Bytes returns the full EIP-2718 envelope: the 0x7E type byte followed by
// the opaque RLP payload.
func (t *ExecuteTx) Bytes() []byte {
	out := make([]byte, 0, len(t.Payload)+1)
	out = append(out, ExecuteTxType)
	return append(out, t.Payload...)
}

func (t *ExecuteTx) Hash() Hash {
	if h := t.hash.Load(); h != nil {
		return *h
	}
	h := rlpHash(t.Bytes())
	t.hash.Store(&h)
	return h
}

func (t *ExecuteTx) SigningHash(chainID *big.Int) Hash {
	if chainID == nil {
		return rlpHash([]interface{}{t.Payload})
	}
	return rlpHash([]interface{}{t.Payload, chainID, uint(0), uint(0)})
}

func (t *ExecuteTx) RawSignature() Signature { return Signature{R: t.R, S: t.S, V: t.V} }

// GasPriceValue is zero for the opaque envelope: it carries no local gas
// market, it is forwarded to L1 as-is.
func (t *ExecuteTx) GasPriceValue() *U256 { return new(U256) }

func (t *ExecuteTx) CachedSender() (Address, bool) {
	if a := t.from.Load(); a != nil {
		return *a, true
	}
	return Address{}, false
}

func (t *ExecuteTx) SetCachedSender(a Address) { t.from.Store(&a) }
