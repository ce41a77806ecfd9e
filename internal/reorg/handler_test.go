// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package reorg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobanetwork/op-sequencer/internal/chainhead"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

type fakeDiscarder struct{ discarded int }

func (f *fakeDiscarder) DiscardInFlight() { f.discarded++ }

func TestOnL2ReorgResetsHeadAndDiscardsBatches(t *testing.T) {
	chain := chainhead.New()
	ancestor := &types.Block{Number: 2}
	head := &types.Block{Number: 5}
	chain.RecordSealed(ancestor)
	chain.SetHead(head)
	chain.SetSafe(head)

	discarder := &fakeDiscarder{}
	h := NewHandler(chain, discarder)

	err := h.OnL2Reorg(2)
	require.NoError(t, err)
	require.Equal(t, ancestor, chain.Head())
	require.Equal(t, ancestor, chain.Safe())
	require.Equal(t, 1, discarder.discarded)
}

func TestOnL2ReorgToGenesisWithNoSealedBlock(t *testing.T) {
	chain := chainhead.New()
	chain.SetHead(&types.Block{Number: 5})

	discarder := &fakeDiscarder{}
	h := NewHandler(chain, discarder)

	err := h.OnL2Reorg(0)
	require.NoError(t, err)
	require.Nil(t, chain.Head())
}

func TestOnL2ReorgUnknownAncestorErrors(t *testing.T) {
	chain := chainhead.New()
	discarder := &fakeDiscarder{}
	h := NewHandler(chain, discarder)

	err := h.OnL2Reorg(42)
	require.Error(t, err)
}
