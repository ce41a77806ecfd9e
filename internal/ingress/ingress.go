// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package ingress implements the accept(tx) admission algorithm (spec
// §4.L): signature validation, sender recovery, nonce/balance prechecks,
// duplicate detection, and mempool insertion, plus an advisory per-second
// rate limit ahead of all of it. Grounded on bobanetwork-erigon's txpool
// AddLocal/AddRemote admission path (core/txpool/txpool.go), which runs
// the same shape of checks before a transaction is admitted to the pool.
package ingress

import (
	"context"
	"math/big"

	"golang.org/x/time/rate"

	"github.com/bobanetwork/op-sequencer/internal/apperr"
	"github.com/bobanetwork/op-sequencer/internal/mempool"
	"github.com/bobanetwork/op-sequencer/internal/sigverify"
	"github.com/bobanetwork/op-sequencer/internal/state"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Outcome is the closed result set of accept(tx) (spec §4.L).
type Outcome int

const (
	Valid Outcome = iota
	InvalidSignature
	BadNonce
	InsufficientFunds
	Duplicate
	Capacity
	RateLimited
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "Valid"
	case InvalidSignature:
		return "InvalidSignature"
	case BadNonce:
		return "BadNonce"
	case InsufficientFunds:
		return "InsufficientFunds"
	case Duplicate:
		return "Duplicate"
	case Capacity:
		return "Capacity"
	case RateLimited:
		return "RateLimited"
	default:
		return "Unknown"
	}
}

// Coordinator runs the admission pipeline ahead of the mempool. It holds
// no lock of its own: the mempool and state store each guard their own
// data, and accept(tx) never needs the two to move atomically together
// (spec §4.L step 3/4 tolerate a stale read, re-validated at execution
// time per spec §5).
type Coordinator struct {
	pool    *mempool.Mempool
	store   *state.Store
	limiter *rate.Limiter

	// chainID is the L2 chain id transactions must be signed against (spec
	// §6 l2_chain_id "Effect"). Nil disables EIP-155 enforcement, accepting
	// legacy (v in {27,28}) signatures as well — used by tests that don't
	// care about chain binding.
	chainID *big.Int
}

// New returns a Coordinator with an advisory rate limit of ratePerSecond
// (spec §6 rate_limit_per_second), burst equal to the same value, enforcing
// EIP-155 signatures bound to chainID. Pass a nil chainID to accept any
// signature form, matching pre-EIP-155 behavior.
func New(pool *mempool.Mempool, store *state.Store, ratePerSecond int, chainID *big.Int) *Coordinator {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	}
	return &Coordinator{pool: pool, store: store, limiter: limiter, chainID: chainID}
}

// Accept runs the full spec §4.L pipeline against tx, returning the
// outcome and the recovered sender on Valid (useful to callers reporting
// eth_sendRawTransaction results without a second recovery pass).
func (c *Coordinator) Accept(ctx context.Context, tx types.SignedTx) (Outcome, types.Address, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return RateLimited, types.Address{}, nil
	}

	// Steps 1-2: component validation + sender recovery, enforcing that
	// the signature is EIP-155-bound to c.chainID (spec §6 l2_chain_id).
	sender, err := sigverify.VerifyWithChainID(tx, c.chainID)
	if err != nil {
		return InvalidSignature, types.Address{}, nil
	}

	// Step 3: future nonces are accepted for queueing — only a nonce
	// strictly behind the account's current nonce is rejected.
	if !hasValidNonce(tx, c.store, sender) {
		return BadNonce, sender, nil
	}

	// Step 4: balance >= value + gas_price * gas_limit (using gas_limit,
	// the worst case reservation, not gas_used — the tx has not executed
	// yet).
	if !hasSufficientFunds(tx, c.store, sender) {
		return InsufficientFunds, sender, nil
	}

	// Step 5: duplicate check.
	hash := tx.Hash()
	if c.pool.Contains(hash) {
		return Duplicate, sender, nil
	}

	// Step 6: insert; capacity failure surfaces as Capacity.
	inserted, err := c.pool.Insert(tx)
	if err != nil {
		if kind, ok := apperr.Of(err); ok && kind == apperr.KindCapacity {
			return Capacity, sender, nil
		}
		return Capacity, sender, err
	}
	if !inserted {
		// Insert returned (false, nil): a race lost to a concurrent insert
		// of the same hash between the Contains check and Insert.
		return Duplicate, sender, nil
	}
	return Valid, sender, nil
}

// hasValidNonce implements step 3 for both tx kinds: ExecuteTx carries no
// nonce of its own (it is an opaque forwarded envelope), so it is exempt
// from the check entirely, mirroring hasSufficientFunds's bypass below.
func hasValidNonce(tx types.SignedTx, store *state.Store, sender types.Address) bool {
	legacy, ok := tx.(*types.Transaction)
	if !ok {
		return true
	}
	return legacy.Nonce >= store.GetNonce(sender)
}

// hasSufficientFunds implements step 4 for both tx kinds: ExecuteTx has no
// value/gas-price/gas-limit fields to reserve against, so it always
// passes (its cost accounting, if any, happens on L1).
func hasSufficientFunds(tx types.SignedTx, store *state.Store, sender types.Address) bool {
	legacy, ok := tx.(*types.Transaction)
	if !ok {
		return true
	}
	gasCost := new(types.U256).Mul(legacy.GasPrice, types.NewU256(legacy.GasLimit))
	reserved, overflow := new(types.U256).AddOverflow(legacy.Value, gasCost)
	if overflow {
		return false
	}
	return store.GetBalance(sender).Cmp(reserved) >= 0
}
