// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package mempool implements the priority-ordered, durably-logged
// transaction pool of spec §4.D: a max-heap keyed by (priority desc,
// received_at asc) plus a hash index for O(log n) contains/remove.
package mempool

import (
	"container/heap"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Entry is one resident mempool transaction (spec §3 MempoolEntry).
type Entry struct {
	Tx         types.SignedTx
	Hash       types.Hash
	Priority   *types.U256 // gas_price
	ReceivedAt uint64      // monotonic receipt counter, not wall clock
	index      int         // heap housekeeping, maintained by container/heap
}

// entryHeap is a container/heap.Interface over *Entry, ordered strictly by
// priority descending, ties broken by earlier ReceivedAt first (spec §3).
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	cmp := h[i].Priority.Cmp(h[j].Priority)
	if cmp != 0 {
		return cmp > 0 // higher priority first
	}
	return h[i].ReceivedAt < h[j].ReceivedAt // earlier first
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

var _ heap.Interface = (*entryHeap)(nil)
