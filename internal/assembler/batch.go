// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package assembler

import (
	"sync"
	"time"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// BatchBuilder accumulates sealed blocks until one of the two seal
// conditions in spec §4.I fires: `blocks.len >= batch_size_limit` or
// `now - batch_started_at >= batch_interval_ms`. A single mutex guards
// the accumulator since both the assembler loop (Append, Seal) and the
// sequencer_status RPC handler (Len) touch it (spec §5).
type BatchBuilder struct {
	mu sync.Mutex

	sizeLimit int
	interval  time.Duration
	clock     Clock

	blocks       []*types.Block
	startedAt    uint64
}

// NewBatchBuilder returns an empty BatchBuilder.
func NewBatchBuilder(sizeLimit int, interval time.Duration, clock Clock) *BatchBuilder {
	if clock == nil {
		clock = RealClock
	}
	return &BatchBuilder{sizeLimit: sizeLimit, interval: interval, clock: clock}
}

// Append adds a freshly-sealed block to the in-flight batch, recording the
// current time as batch_started_at if this is the first block.
func (b *BatchBuilder) Append(block *types.Block) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.blocks) == 0 {
		b.startedAt = b.clock()
	}
	b.blocks = append(b.blocks, block)
}

// ReadyToSeal reports whether either seal condition currently holds.
func (b *BatchBuilder) ReadyToSeal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readyToSealLocked()
}

func (b *BatchBuilder) readyToSealLocked() bool {
	if len(b.blocks) == 0 {
		return false
	}
	if len(b.blocks) >= b.sizeLimit {
		return true
	}
	elapsed := time.Duration(b.clock()-b.startedAt) * time.Second
	return elapsed >= b.interval
}

// Seal returns the accumulated batch (with CreatedAt set to the current
// time) and resets the builder to empty, or (nil, false) if nothing is
// ready to seal yet.
func (b *BatchBuilder) Seal() (*types.Batch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.readyToSealLocked() {
		return nil, false
	}
	batch := &types.Batch{
		Blocks:    b.blocks,
		CreatedAt: b.clock(),
	}
	b.blocks = nil
	b.startedAt = 0
	return batch, true
}

// Len reports the number of blocks currently accumulated.
func (b *BatchBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blocks)
}
