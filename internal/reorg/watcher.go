// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package reorg

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// L1BlockSource is the sliver of l1client.Client the watcher needs,
// expressed as a local interface so this package never imports l1client
// (keeping the dependency direction "RPC clients depend on core types",
// not the other way around).
type L1BlockSource interface {
	FetchBlockHash(ctx context.Context, number uint64) (types.Hash, error)
}

// Watcher polls L1 for new block hashes on an interval and feeds them to
// a Detector, invoking a Handler whenever a reorg is detected (spec §2:
// "Control flow on new L1 block: L1 watcher -> (K) -> on reorg -> (J)
// resets pointers"). Loop shape — ticker plus context cancellation —
// follows corpus-core-colibri-stateless's opg_bridge block-watching loop.
type Watcher struct {
	source   L1BlockSource
	detector *Detector
	handler  *Handler
	interval time.Duration
	log      *zap.SugaredLogger

	nextNumber uint64
}

// NewWatcher returns a Watcher that begins polling from L1 block number 0.
func NewWatcher(source L1BlockSource, detector *Detector, handler *Handler, interval time.Duration, log *zap.SugaredLogger) *Watcher {
	return &Watcher{source: source, detector: detector, handler: handler, interval: interval, log: log}
}

// Run blocks, polling until ctx is cancelled. Each tick fetches the hash
// for the next expected L1 block number; a transport error is logged and
// retried on the next tick rather than treated as fatal (spec §7: "L1
// submission errors trigger ... retry ... out of scope" — the analogous
// policy applies to watcher reads).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	hash, err := w.source.FetchBlockHash(ctx, w.nextNumber)
	if err != nil {
		w.log.Warnw("l1 watcher: fetch block hash failed", "number", w.nextNumber, "err", err)
		return
	}
	ancestor, reorged := w.detector.OnL1Block(w.nextNumber, hash)
	if reorged {
		w.log.Warnw("l1 reorg detected", "atNumber", w.nextNumber, "commonAncestor", ancestor)
		if err := w.handler.OnL2Reorg(ancestor); err != nil {
			w.log.Errorw("l2 reorg handling failed", "err", err)
		}
		// Re-derive from the common ancestor forward rather than advancing
		// past the diverged block.
		w.nextNumber = ancestor + 1
		return
	}
	w.nextNumber++
}
