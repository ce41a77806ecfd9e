// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package reorg

import (
	"github.com/bobanetwork/op-sequencer/internal/apperr"
	"github.com/bobanetwork/op-sequencer/internal/chainhead"
)

// BatchDiscarder is implemented by the assembler: OnL2Reorg must discard
// all in-flight batch builders (spec §4.K), and the reorg package has no
// business importing the assembler package to get there.
type BatchDiscarder interface {
	DiscardInFlight()
}

// Handler carries out the L2 side of a detected reorg: reset the head
// pointer to the common ancestor, truncate safe/unsafe/finalized if they
// lie ahead of it, and discard in-flight batch work (spec §4.K
// "on_l2_reorg").
type Handler struct {
	chain    *chainhead.Tracker
	batches  BatchDiscarder
}

// NewHandler binds a Handler to the chain-head tracker and the component
// responsible for discarding in-flight batches.
func NewHandler(chain *chainhead.Tracker, batches BatchDiscarder) *Handler {
	return &Handler{chain: chain, batches: batches}
}

// OnL2Reorg resets the head to the block at commonAncestor, truncating
// safe/unsafe/finalized as needed, and discards any batch builder in
// flight. Returns apperr.Internal if the chain-head tracker has no sealed
// block recorded at commonAncestor; an ancestor of 0 with no recorded block
// resets the head to nil (genesis).
func (h *Handler) OnL2Reorg(commonAncestor uint64) error {
	block, ok := h.chain.ByNumber(commonAncestor)
	if !ok && commonAncestor != 0 {
		return apperr.Internal
	}
	h.chain.Reset(block)
	h.batches.DiscardInFlight()
	return nil
}
