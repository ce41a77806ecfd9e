// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package execution applies transactions to account state (spec §4.F):
// gas accounting, balance/nonce updates, and optional witness tracking.
// Contract bytecode execution is explicitly a stub — gas is accounted for
// contract creation but no code is deployed, no logs are produced.
package execution

import (
	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
	"github.com/bobanetwork/op-sequencer/internal/sigverify"
	"github.com/bobanetwork/op-sequencer/internal/state"
	"github.com/bobanetwork/op-sequencer/internal/types"
	"github.com/bobanetwork/op-sequencer/internal/witness"
)

// Result is the outcome of applying one transaction (spec §4.F).
type Result struct {
	Success bool
	GasUsed uint64
	Sender  types.Address
}

// Engine applies transactions against a Store. It holds no per-call state
// of its own; each Store call it makes takes the store's lock for that
// call only.
type Engine struct {
	store *state.Store
}

// New returns an Engine bound to store.
func New(store *state.Store) *Engine {
	return &Engine{store: store}
}

// Apply runs the spec §4.F algorithm for one transaction. wb may be nil;
// when non-nil, sender/recipient accesses and non-empty call data are
// recorded into it (spec §4.F "Witness tracking").
//
// Apply is a pure function of (tx, the store's current snapshot): calling
// it twice against two stores seeded identically produces identical
// results (spec §8 invariant 5), because every read happens before any
// write and nothing but the store is consulted.
func (e *Engine) Apply(tx types.SignedTx, wb *witness.Builder) (Result, error) {
	legacy, ok := tx.(*types.Transaction)
	if !ok {
		// ExecuteTx (spec §3): opaque, forwarded to L1, never locally
		// executed. Its "execution" from the sequencer's point of view is
		// a no-op success with no local gas accounting.
		sender, err := sigverify.RecoverSender(tx)
		if err != nil {
			return Result{}, err
		}
		return Result{Success: true, GasUsed: 0, Sender: sender}, nil
	}
	return e.applyLegacy(legacy, wb)
}

func (e *Engine) applyLegacy(tx *types.Transaction, wb *witness.Builder) (Result, error) {
	sender, err := sigverify.RecoverSender(tx)
	if err != nil {
		return Result{}, err
	}

	if wb != nil {
		wb.TrackStateNode(types.BytesToHash(cryptoutil.Keccak256(sender.Bytes())))
		if tx.To != nil {
			wb.TrackStateNode(types.BytesToHash(cryptoutil.Keccak256(tx.To.Bytes())))
		}
		if len(tx.Data) > 0 {
			codeHash := types.BytesToHash(cryptoutil.Keccak256(tx.Data))
			wb.TrackCode(codeHash, tx.Data)
		}
	}

	// Step 2: nonce check. A mismatch is not executed at all: no gas is
	// charged, no nonce change, no balance change (spec §4.F step 2).
	if tx.Nonce != e.store.GetNonce(sender) {
		return Result{Success: false, GasUsed: 0, Sender: sender}, nil
	}

	// Step 3: intrinsic gas.
	gasUsed := types.IntrinsicGas(tx.Data, tx.To == nil)

	// Step 4: total cost = value + gas_price * gas_used.
	gasCost := new(types.U256).Mul(tx.GasPrice, types.NewU256(gasUsed))
	totalCost, overflow := new(types.U256).AddOverflow(tx.Value, gasCost)
	if overflow {
		// Checked arithmetic treats overflow as insufficient funds (spec
		// §9: "the authoritative executor ... treats overflow as
		// InsufficientFunds"): no real balance can ever cover it.
		return Result{Success: false, GasUsed: 0, Sender: sender}, nil
	}

	// Step 5: balance check.
	balance := e.store.GetBalance(sender)
	if balance.Cmp(totalCost) < 0 {
		return Result{Success: false, GasUsed: 0, Sender: sender}, nil
	}

	// Step 6: gas limit check — all gas is consumed on failure.
	if gasUsed > tx.GasLimit {
		return Result{Success: false, GasUsed: tx.GasLimit, Sender: sender}, nil
	}

	// Step 7: apply. Subtract total_cost from sender; credit recipient by
	// value (contract-creation placeholders receive no credit — there is
	// no recipient); increment sender nonce.
	newSenderBalance := new(types.U256).Sub(balance, totalCost)
	if err := e.store.SetBalance(sender, newSenderBalance); err != nil {
		return Result{}, err
	}
	if tx.To != nil && tx.Value.Sign() > 0 {
		recipientBalance := e.store.GetBalance(*tx.To)
		newRecipientBalance := new(types.U256).Add(recipientBalance, tx.Value)
		if err := e.store.SetBalance(*tx.To, newRecipientBalance); err != nil {
			return Result{}, err
		}
	}
	if err := e.store.IncrementNonce(sender); err != nil {
		return Result{}, err
	}

	return Result{Success: true, GasUsed: gasUsed, Sender: sender}, nil
}
