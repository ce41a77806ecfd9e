// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package chainhead tracks the four chain-head pointers — head, safe,
// unsafe, finalized (spec §3/§4.J). A single mutex guards all four;
// setters replace a pointer wholesale (no in-place mutation of a
// previously-published *types.Block, so a caller holding an old snapshot
// never sees it change under it).
package chainhead

import (
	"sync"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Tracker holds the four head pointers. Getters return the same *Block the
// setter was given — Block is never mutated after sealing (spec §3: "A
// block is immutable once sealed"), so sharing the pointer is safe.
type Tracker struct {
	mu        sync.Mutex
	head      *types.Block
	safe      *types.Block
	unsafe    *types.Block
	finalized *types.Block
	byNumber  map[uint64]*types.Block
}

// New returns a Tracker with all four pointers nil (genesis / pre-sync).
func New() *Tracker { return &Tracker{byNumber: make(map[uint64]*types.Block)} }

// RecordSealed indexes a freshly-sealed block by number, so the reorg
// handler can later fetch "the block at common_ancestor" (spec §4.K
// on_l2_reorg) without the state store itself needing to carry a block
// index.
func (t *Tracker) RecordSealed(b *types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byNumber[b.Number] = b
}

// ByNumber returns the sealed block at number, if this process has seen it.
func (t *Tracker) ByNumber(number uint64) (*types.Block, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.byNumber[number]
	return b, ok
}

func (t *Tracker) SetHead(b *types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.head = b
}

func (t *Tracker) SetSafe(b *types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.safe = b
}

func (t *Tracker) SetUnsafe(b *types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unsafe = b
}

func (t *Tracker) SetFinalized(b *types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalized = b
}

func (t *Tracker) Head() *types.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.head
}

func (t *Tracker) Safe() *types.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.safe
}

func (t *Tracker) Unsafe() *types.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsafe
}

func (t *Tracker) Finalized() *types.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalized
}

// HeadHash returns head's hash, or the zero hash if no head is set yet —
// the genesis parent_hash the assembler uses (spec §4.I).
func (t *Tracker) HeadHash() types.Hash {
	h := t.Head()
	if h == nil {
		return types.Hash{}
	}
	return h.Hash()
}

// Snapshot is a point-in-time copy of all four pointers, for RPC/status
// reporting without holding the tracker's lock across a caller's work.
type Snapshot struct {
	Head, Safe, Unsafe, Finalized *types.Block
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{Head: t.head, Safe: t.safe, Unsafe: t.unsafe, Finalized: t.finalized}
}

// Reset replaces the head pointer with at (the reorg common ancestor, which
// the reorg handler looks up with ByNumber) and truncates safe/unsafe/
// finalized if they lie strictly ahead of it (spec §4.K "on_l2_reorg").
func (t *Tracker) Reset(at *types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.head = at
	var atNum uint64
	if at != nil {
		atNum = at.Number
	}
	if t.safe != nil && t.safe.Number > atNum {
		t.safe = at
	}
	if t.unsafe != nil && t.unsafe.Number > atNum {
		t.unsafe = at
	}
	if t.finalized != nil && t.finalized.Number > atNum {
		t.finalized = at
	}
}
