// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package reorg detects L1 chain reorganizations from a bounded window of
// recently observed block hashes (spec §4.K) and carries out the L2-side
// response.
package reorg

import (
	"sync"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// MaxWindow bounds the number -> hash map at 100 entries (spec §4.K).
const MaxWindow = 100

// Detector stores recent L1 block hashes and reports divergence.
type Detector struct {
	mu     sync.Mutex
	hashes map[uint64]types.Hash
}

// NewDetector returns an empty Detector.
func NewDetector() *Detector {
	return &Detector{hashes: make(map[uint64]types.Hash)}
}

// OnL1Block records (number, hash). If number was already recorded with a
// different hash, a reorg has occurred: the detector walks back from
// number-1 looking for the first still-stored predecessor, treats its
// number as the common ancestor, and returns it. If no stored predecessor
// remains (window exhausted), it returns 0 (genesis), per spec §4.K.
//
// When no reorg is detected, the new (number, hash) pair is recorded and
// only the most recent MaxWindow numbers (number-99 through number) are
// kept; older entries are evicted.
func (d *Detector) OnL1Block(number uint64, hash types.Hash) (ancestor uint64, reorged bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.hashes[number]; ok && existing != hash {
		if number == 0 {
			return 0, true
		}
		for n := number - 1; ; n-- {
			if h, ok := d.hashes[n]; ok {
				_ = h
				return n, true
			}
			if n == 0 {
				return 0, true
			}
		}
	}

	d.hashes[number] = hash
	d.evictOlderThan(number)
	return 0, false
}

func (d *Detector) evictOlderThan(number uint64) {
	if number < MaxWindow {
		return
	}
	floor := number - MaxWindow + 1
	for n := range d.hashes {
		if n < floor {
			delete(d.hashes, n)
		}
	}
}

// Has reports whether number is currently tracked (test/inspection hook).
func (d *Detector) Has(number uint64) (types.Hash, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.hashes[number]
	return h, ok
}

// Len reports the number of tracked entries.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.hashes)
}
