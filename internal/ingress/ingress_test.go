// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package ingress

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
	"github.com/bobanetwork/op-sequencer/internal/mempool"
	"github.com/bobanetwork/op-sequencer/internal/state"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

var testPrivKey, _ = new(big.Int).SetString("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 16)

func senderAddr(t *testing.T) types.Address {
	t.Helper()
	pub := cryptoutil.ToECDSA(testPrivKey).PublicKey
	var rawPub cryptoutil.PublicKey
	copy(rawPub[:32], pub.X.Bytes())
	copy(rawPub[32:], pub.Y.Bytes())
	return types.Address(cryptoutil.AddressFromPubkey(&rawPub))
}

func signedTx(t *testing.T, nonce uint64, gasPrice, gasLimit uint64) *types.Transaction {
	t.Helper()
	recipient := types.BytesToAddress([]byte{0x42})
	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: types.NewU256(gasPrice),
		GasLimit: gasLimit,
		To:       &recipient,
		Value:    types.NewU256(1),
	}
	preimage := tx.SigningHash(nil)
	r, s, recID, err := cryptoutil.Sign(preimage[:], testPrivKey)
	require.NoError(t, err)
	tx.R, tx.S = r, s
	tx.V = big.NewInt(int64(recID) + 27)
	return tx
}

func signedTxForChain(t *testing.T, nonce uint64, chainID *big.Int) *types.Transaction {
	t.Helper()
	recipient := types.BytesToAddress([]byte{0x42})
	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: types.NewU256(1),
		GasLimit: 21000,
		To:       &recipient,
		Value:    types.NewU256(1),
	}
	preimage := tx.SigningHash(chainID)
	r, s, recID, err := cryptoutil.Sign(preimage[:], testPrivKey)
	require.NoError(t, err)
	tx.R, tx.S = r, s
	// EIP-155: v = recID + chainID*2 + 35.
	v := new(big.Int).Mul(chainID, big.NewInt(2))
	v.Add(v, big.NewInt(35+int64(recID)))
	tx.V = v
	return tx
}

func signedExecuteTx(t *testing.T, payload []byte) *types.ExecuteTx {
	t.Helper()
	tx := &types.ExecuteTx{Payload: payload}
	preimage := tx.SigningHash(nil)
	r, s, recID, err := cryptoutil.Sign(preimage[:], testPrivKey)
	require.NoError(t, err)
	tx.R, tx.S = r, s
	tx.V = big.NewInt(int64(recID) + 27)
	return tx
}

func newTestMempool(t *testing.T, maxSize int) *mempool.Mempool {
	t.Helper()
	walPath := filepath.Join(t.TempDir(), "mempool.wal")
	mp, err := mempool.New(walPath, maxSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Close() })
	return mp
}

func TestAcceptValidTransaction(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, nil)
	tx := signedTx(t, 0, 1, 21000)

	outcome, got, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome)
	require.Equal(t, sender, got)
	require.True(t, pool.Contains(tx.Hash()))
}

func TestAcceptRejectsBadSignature(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	c := New(pool, store, 0, nil)

	recipient := types.BytesToAddress([]byte{0x42})
	tx := &types.Transaction{
		Nonce:    0,
		GasPrice: types.NewU256(1),
		GasLimit: 21000,
		To:       &recipient,
		Value:    types.NewU256(1),
		R:        big.NewInt(0),
		S:        big.NewInt(0),
		V:        big.NewInt(27),
	}

	outcome, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, InvalidSignature, outcome)
}

func TestAcceptRejectsStaleNonce(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))
	store.SetNonce(sender, 5)

	c := New(pool, store, 0, nil)
	tx := signedTx(t, 2, 1, 21000)

	outcome, got, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, BadNonce, outcome)
	require.Equal(t, sender, got)
}

func TestAcceptAllowsFutureNonce(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, nil)
	tx := signedTx(t, 10, 1, 21000)

	outcome, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome)
}

func TestAcceptRejectsInsufficientFunds(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(10))

	c := New(pool, store, 0, nil)
	tx := signedTx(t, 0, 1, 21000)

	outcome, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, InsufficientFunds, outcome)
}

func TestAcceptRejectsDuplicate(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, nil)
	tx := signedTx(t, 0, 1, 21000)

	outcome1, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome1)

	outcome2, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, Duplicate, outcome2)
}

func TestAcceptRejectsOverCapacity(t *testing.T) {
	pool := newTestMempool(t, 1)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, nil)
	tx1 := signedTx(t, 0, 1, 21000)
	tx2 := signedTx(t, 1, 1, 21000)

	outcome1, _, err := c.Accept(context.Background(), tx1)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome1)

	outcome2, _, err := c.Accept(context.Background(), tx2)
	require.NoError(t, err)
	require.Equal(t, Capacity, outcome2)
}

func TestAcceptRateLimited(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 1, nil)
	tx1 := signedTx(t, 0, 1, 21000)
	tx2 := signedTx(t, 1, 1, 21000)

	outcome1, _, err := c.Accept(context.Background(), tx1)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome1)

	outcome2, _, err := c.Accept(context.Background(), tx2)
	require.NoError(t, err)
	require.Equal(t, RateLimited, outcome2)
}

func TestAcceptExecuteTxBypassesNonceAndBalanceChecks(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	// Nonzero nonce and zero balance would reject a legacy tx on both
	// checks; ExecuteTx carries neither field locally and must pass anyway.
	store.SetNonce(sender, 7)
	store.SetBalance(sender, types.NewU256(0))

	c := New(pool, store, 0, nil)
	tx := signedExecuteTx(t, []byte{0x01, 0x02, 0x03})

	outcome, got, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome)
	require.Equal(t, sender, got)
	require.True(t, pool.Contains(tx.Hash()))
}

func TestAcceptRejectsWrongChainID(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, big.NewInt(10))
	tx := signedTxForChain(t, 0, big.NewInt(999))

	outcome, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, InvalidSignature, outcome)
}

func TestAcceptRejectsLegacySignatureWhenChainIDRequired(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, big.NewInt(10))
	tx := signedTx(t, 0, 1, 21000) // legacy v in {27,28}, no chain binding

	outcome, _, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, InvalidSignature, outcome)
}

func TestAcceptAllowsMatchingChainID(t *testing.T) {
	pool := newTestMempool(t, 100)
	store := state.New(nil)
	sender := senderAddr(t)
	store.SetBalance(sender, types.NewU256(1_000_000))

	c := New(pool, store, 0, big.NewInt(10))
	tx := signedTxForChain(t, 0, big.NewInt(10))

	outcome, got, err := c.Accept(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, Valid, outcome)
	require.Equal(t, sender, got)
}
