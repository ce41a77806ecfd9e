// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package state

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/bobanetwork/op-sequencer/internal/apperr"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Store holds nonce/balance maps and the receipt index (spec §4.E). Reads
// consult the in-memory map first, then the optional KV backend; all
// mutations are write-through. Each method takes the store's lock itself
// (the writer lock for mutations, the read lock for reads), so a block
// build is not one atomic snapshot; the ingress precheck tolerates
// staleness because the assembler re-validates at execution time.
type Store struct {
	mu sync.RWMutex

	nonces   map[types.Address]uint64
	balances map[types.Address]*types.U256
	receipts map[types.Hash]*types.Receipt

	blockNumber uint64
	kv          KV // nil => pure in-memory
}

// New returns an in-memory Store, optionally write-through to kv (pass nil
// to run without persistence).
func New(kv KV) *Store {
	return &Store{
		nonces:   make(map[types.Address]uint64),
		balances: make(map[types.Address]*types.U256),
		receipts: make(map[types.Hash]*types.Receipt),
		kv:       kv,
	}
}

func nonceKey(a types.Address) []byte   { return append([]byte("nonce:"), a[:]...) }
func balanceKey(a types.Address) []byte { return append([]byte("balance:"), a[:]...) }
func receiptKey(h types.Hash) []byte    { return append([]byte("receipt:"), h[:]...) }

const blockNumberKey = "block_number"

// GetNonce returns addr's nonce, defaulting to 0 (spec §4.E).
func (s *Store) GetNonce(addr types.Address) uint64 {
	s.mu.RLock()
	if n, ok := s.nonces[addr]; ok {
		s.mu.RUnlock()
		return n
	}
	s.mu.RUnlock()

	if s.kv == nil {
		return 0
	}
	raw, ok, err := s.kv.Get(nonceKey(addr))
	if err != nil || !ok || len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

// GetBalance returns addr's balance, defaulting to 0.
func (s *Store) GetBalance(addr types.Address) *types.U256 {
	s.mu.RLock()
	if b, ok := s.balances[addr]; ok {
		s.mu.RUnlock()
		return new(types.U256).Set(b)
	}
	s.mu.RUnlock()

	if s.kv == nil {
		return new(types.U256)
	}
	raw, ok, err := s.kv.Get(balanceKey(addr))
	if err != nil || !ok || len(raw) != 32 {
		return new(types.U256)
	}
	var b types.U256
	b.SetBytes(raw)
	return &b
}

// SetBalance write-through sets addr's balance.
func (s *Store) SetBalance(addr types.Address, bal *types.U256) error {
	s.mu.Lock()
	s.balances[addr] = new(types.U256).Set(bal)
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	buf := bal.Bytes32()
	if err := s.kv.Put(balanceKey(addr), buf[:]); err != nil {
		return apperr.New(apperr.KindStorage, err)
	}
	return nil
}

// SetNonce write-through sets addr's nonce.
func (s *Store) SetNonce(addr types.Address, nonce uint64) error {
	s.mu.Lock()
	s.nonces[addr] = nonce
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	if err := s.kv.Put(nonceKey(addr), buf[:]); err != nil {
		return apperr.New(apperr.KindStorage, err)
	}
	return nil
}

// IncrementNonce sets addr's nonce to its current value + 1.
func (s *Store) IncrementNonce(addr types.Address) error {
	return s.SetNonce(addr, s.GetNonce(addr)+1)
}

// PutReceipt write-through stores a receipt keyed by transaction hash.
func (s *Store) PutReceipt(r *types.Receipt) error {
	s.mu.Lock()
	s.receipts[r.TxHash] = r
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	buf, err := types.EncodeToBytes(r)
	if err != nil {
		return apperr.New(apperr.KindInternal, err)
	}
	if err := s.kv.Put(receiptKey(r.TxHash), buf); err != nil {
		return apperr.New(apperr.KindStorage, err)
	}
	return nil
}

// GetReceipt returns the receipt for txHash, or nil if absent.
func (s *Store) GetReceipt(txHash types.Hash) *types.Receipt {
	s.mu.RLock()
	if r, ok := s.receipts[txHash]; ok {
		s.mu.RUnlock()
		return r
	}
	s.mu.RUnlock()

	if s.kv == nil {
		return nil
	}
	raw, ok, err := s.kv.Get(receiptKey(txHash))
	if err != nil || !ok {
		return nil
	}
	var r types.Receipt
	if err := types.DecodeBytes(raw, &r); err != nil {
		return nil
	}
	return &r
}

// GetBlockNumber returns the current chain height.
func (s *Store) GetBlockNumber() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blockNumber
}

// FinalizeBlock records block as the new chain head height and persists
// the literal "block_number" key.
func (s *Store) FinalizeBlock(block *types.Block) error {
	s.mu.Lock()
	s.blockNumber = block.Number
	s.mu.Unlock()

	if s.kv == nil {
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], block.Number)
	if err := s.kv.Put([]byte(blockNumberKey), buf[:]); err != nil {
		return apperr.New(apperr.KindStorage, err)
	}
	return nil
}

// Close releases the underlying KV handle, if any.
func (s *Store) Close() error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

// Lock/Unlock/RLock/RUnlock expose the store's reader-writer lock directly.
// The lock is not reentrant and every other Store method takes it itself,
// so a holder must not call those methods while holding it.
func (s *Store) Lock()    { s.mu.Lock() }
func (s *Store) Unlock()  { s.mu.Unlock() }
func (s *Store) RLock()   { s.mu.RLock() }
func (s *Store) RUnlock() { s.mu.RUnlock() }

// Accounts returns a deterministic, address-ascending snapshot of every
// in-memory account entry, for compute_state_root (spec §4.G). Only
// in-memory entries are iterated: the trie is rebuilt from whichever
// accounts have been touched this process lifetime, matching the stub
// engine's lack of an account-enumeration index in the KV layer.
func (s *Store) Accounts() []types.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[types.Address]struct{}, len(s.nonces)+len(s.balances))
	for a := range s.nonces {
		seen[a] = struct{}{}
	}
	for a := range s.balances {
		seen[a] = struct{}{}
	}
	out := make([]types.Address, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// Clone returns an independent in-memory copy of the store's account state
// (nonces and balances only; receipts and block number are not needed to
// re-execute transactions). The clone never write-throughs to a KV backend
// even if the original does, so callers can apply transactions against it
// and discard the result without touching live state — the "forked state"
// spec §4.H's generate_block_witness re-executes against.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := New(nil)
	for addr, n := range s.nonces {
		clone.nonces[addr] = n
	}
	for addr, b := range s.balances {
		clone.balances[addr] = new(types.U256).Set(b)
	}
	return clone
}

// Account projects addr's current (nonce, balance) into a types.Account
// leaf value, for trie construction.
func (s *Store) Account(addr types.Address) types.Account {
	return types.Account{
		Nonce:       s.GetNonce(addr),
		Balance:     s.GetBalance(addr),
		StorageRoot: types.EmptyStorageRoot,
		CodeHash:    types.EmptyCodeHash,
	}
}
