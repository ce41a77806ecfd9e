// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package mempool

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/bobanetwork/op-sequencer/internal/apperr"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Mempool is a priority-ordered, durably-logged, bounded-capacity
// transaction pool (spec §4.D). A single mutex protects the heap, the
// hash index and the WAL file handle together — insert, remove and
// drain_for_block each hold the lock for their whole operation, and an
// fsync performed while holding it is acceptable because it guarantees
// WAL ordering (spec §5).
type Mempool struct {
	mu      sync.Mutex
	heap    entryHeap
	byHash  map[types.Hash]*Entry
	wal     *WAL
	maxSize int
	seq     atomic.Uint64 // monotonic ReceivedAt source, independent of wall clock
}

// New opens (or creates) the WAL at walPath, replays it, and returns a
// Mempool ready to accept inserts. Duplicate hashes encountered during
// replay are skipped (spec §4.D: "replays the WAL, skipping duplicates").
func New(walPath string, maxSize int) (*Mempool, error) {
	w, err := OpenWAL(walPath)
	if err != nil {
		return nil, apperr.New(apperr.KindStorage, err)
	}
	mp := &Mempool{
		byHash:  make(map[types.Hash]*Entry),
		wal:     w,
		maxSize: maxSize,
	}
	heap.Init(&mp.heap)

	records, err := ReplayWAL(walPath)
	if err != nil {
		return nil, apperr.New(apperr.KindStorage, err)
	}
	for _, tx := range records {
		h := tx.Hash()
		if _, dup := mp.byHash[h]; dup {
			continue
		}
		e := &Entry{Tx: tx, Hash: h, Priority: tx.GasPriceValue(), ReceivedAt: mp.seq.Add(1)}
		heap.Push(&mp.heap, e)
		mp.byHash[h] = e
	}
	return mp, nil
}

// Insert adds tx to the pool, synchronously appending a WAL record before
// returning true. Returns (false, nil) if the hash is already present and
// (false, apperr.Capacity) if the pool is at capacity.
func (mp *Mempool) Insert(tx types.SignedTx) (bool, error) {
	h := tx.Hash()

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, dup := mp.byHash[h]; dup {
		return false, nil
	}
	if len(mp.byHash) >= mp.maxSize {
		return false, apperr.Capacity
	}
	if err := mp.wal.Append(tx); err != nil {
		return false, apperr.New(apperr.KindStorage, err)
	}
	e := &Entry{Tx: tx, Hash: h, Priority: tx.GasPriceValue(), ReceivedAt: mp.seq.Add(1)}
	heap.Push(&mp.heap, e)
	mp.byHash[h] = e
	return true, nil
}

// Contains reports whether hash is currently resident.
func (mp *Mempool) Contains(hash types.Hash) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	_, ok := mp.byHash[hash]
	return ok
}

// Remove evicts hash from the pool if present. It does not rewrite the
// WAL; removed entries are pruned out on the next compaction.
func (mp *Mempool) Remove(hash types.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.removeLocked(hash)
}

func (mp *Mempool) removeLocked(hash types.Hash) {
	e, ok := mp.byHash[hash]
	if !ok {
		return
	}
	heap.Remove(&mp.heap, e.index)
	delete(mp.byHash, hash)
}

// PopHighestPriority removes and returns the strictly-maximal-priority
// entry (ties broken by earliest receipt), or (nil, false) if empty.
func (mp *Mempool) PopHighestPriority() (types.SignedTx, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.heap.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&mp.heap).(*Entry)
	delete(mp.byHash, e.Hash)
	return e.Tx, true
}

// Len returns the number of resident transactions.
func (mp *Mempool) Len() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.byHash)
}

// DrainForBlock returns transactions in strict priority order, respecting
// both maxCount and the cumulative intrinsic-gas budget gasLimit, removing
// exactly the returned entries and leaving the rest of the pool untouched
// (spec §4.D). Draining stops at the first transaction that would not fit
// the remaining gas budget, rather than skipping over it, so transaction
// order within the returned slice is always a prefix of the priority
// order actually present at drain time (spec §5: "transaction order =
// priority order at drain time").
func (mp *Mempool) DrainForBlock(gasLimit uint64, maxCount int) []types.SignedTx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var out []types.SignedTx
	var used uint64
	for len(out) < maxCount && mp.heap.Len() > 0 {
		top := mp.heap[0]
		cost := types.TxIntrinsicGas(top.Tx)
		if used+cost > gasLimit {
			break
		}
		e := heap.Pop(&mp.heap).(*Entry)
		delete(mp.byHash, e.Hash)
		out = append(out, e.Tx)
		used += cost
	}
	return out
}

// Resident returns a snapshot of every transaction currently in the pool,
// in no particular order.
func (mp *Mempool) Resident() []types.SignedTx {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]types.SignedTx, 0, len(mp.byHash))
	for _, e := range mp.byHash {
		out = append(out, e.Tx)
	}
	return out
}

// Compact rewrites the WAL to contain exactly the pool's current resident
// set (spec §4.D: triggered "after each successful batch submission").
func (mp *Mempool) Compact(path string) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	resident := make([]types.SignedTx, 0, len(mp.byHash))
	for _, e := range mp.byHash {
		resident = append(resident, e.Tx)
	}
	if err := CompactWAL(path, resident); err != nil {
		return apperr.New(apperr.KindStorage, err)
	}
	// The rename replaced the file under the open handle; reopen so later
	// appends land in the compacted file.
	_ = mp.wal.Close()
	w, err := OpenWAL(mp.wal.path)
	if err != nil {
		return apperr.New(apperr.KindStorage, err)
	}
	mp.wal = w
	return nil
}

// Close releases the WAL file handle.
func (mp *Mempool) Close() error { return mp.wal.Close() }
