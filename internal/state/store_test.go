// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

func TestGetNonceDefaultsToZero(t *testing.T) {
	s := New(nil)
	addr := types.BytesToAddress([]byte{1})
	require.Equal(t, uint64(0), s.GetNonce(addr))
}

func TestSetAndGetNonce(t *testing.T) {
	s := New(nil)
	addr := types.BytesToAddress([]byte{1})
	require.NoError(t, s.SetNonce(addr, 7))
	require.Equal(t, uint64(7), s.GetNonce(addr))
}

func TestIncrementNonce(t *testing.T) {
	s := New(nil)
	addr := types.BytesToAddress([]byte{1})
	require.NoError(t, s.IncrementNonce(addr))
	require.NoError(t, s.IncrementNonce(addr))
	require.Equal(t, uint64(2), s.GetNonce(addr))
}

func TestGetBalanceDefaultsToZero(t *testing.T) {
	s := New(nil)
	addr := types.BytesToAddress([]byte{1})
	require.Equal(t, uint64(0), s.GetBalance(addr).Uint64())
}

func TestSetAndGetBalance(t *testing.T) {
	s := New(nil)
	addr := types.BytesToAddress([]byte{1})
	require.NoError(t, s.SetBalance(addr, types.NewU256(500)))
	require.Equal(t, uint64(500), s.GetBalance(addr).Uint64())
}

func TestPutAndGetReceipt(t *testing.T) {
	s := New(nil)
	var h types.Hash
	h[0] = 0xAB
	r := &types.Receipt{TxHash: h, GasUsed: 21000, Status: true}
	require.NoError(t, s.PutReceipt(r))

	got := s.GetReceipt(h)
	require.NotNil(t, got)
	require.Equal(t, uint64(21000), got.GasUsed)
}

func TestGetReceiptMissingReturnsNil(t *testing.T) {
	s := New(nil)
	var h types.Hash
	require.Nil(t, s.GetReceipt(h))
}

func TestFinalizeBlockUpdatesBlockNumber(t *testing.T) {
	s := New(nil)
	require.Equal(t, uint64(0), s.GetBlockNumber())
	require.NoError(t, s.FinalizeBlock(&types.Block{Number: 3}))
	require.Equal(t, uint64(3), s.GetBlockNumber())
}

func TestAccountsReturnsAddressAscendingUnion(t *testing.T) {
	s := New(nil)
	a1 := types.BytesToAddress([]byte{2})
	a2 := types.BytesToAddress([]byte{1})
	require.NoError(t, s.SetNonce(a1, 1))
	require.NoError(t, s.SetBalance(a2, types.NewU256(1)))

	accounts := s.Accounts()
	require.Equal(t, []types.Address{a2, a1}, accounts)
}

func TestStoreWriteThroughPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	kv, err := OpenBoltKV(path)
	require.NoError(t, err)

	s := New(kv)
	addr := types.BytesToAddress([]byte{9})
	require.NoError(t, s.SetBalance(addr, types.NewU256(42)))
	require.NoError(t, s.SetNonce(addr, 3))
	require.NoError(t, s.Close())

	kv2, err := OpenBoltKV(path)
	require.NoError(t, err)
	s2 := New(kv2)
	require.Equal(t, uint64(42), s2.GetBalance(addr).Uint64())
	require.Equal(t, uint64(3), s2.GetNonce(addr))
	require.NoError(t, s2.Close())
}

func TestBoltKVGetMissingKeyReturnsNotOk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	kv, err := OpenBoltKV(path)
	require.NoError(t, err)
	defer kv.Close()

	_, ok, err := kv.Get([]byte("nope"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltKVPutThenGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	kv, err := OpenBoltKV(path)
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.Put([]byte("k"), []byte("v")))
	got, ok, err := kv.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)
}
