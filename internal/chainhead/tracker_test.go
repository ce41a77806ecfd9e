// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package chainhead

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

func block(n uint64) *types.Block {
	return &types.Block{Number: n, Timestamp: n}
}

func TestNewTrackerHasNilPointers(t *testing.T) {
	tr := New()
	require.Nil(t, tr.Head())
	require.True(t, tr.HeadHash().IsZero())
}

func TestSettersAndGetters(t *testing.T) {
	tr := New()
	b := block(1)
	tr.SetHead(b)
	tr.SetSafe(b)
	tr.SetUnsafe(b)
	tr.SetFinalized(b)

	require.Equal(t, b, tr.Head())
	require.Equal(t, b, tr.Safe())
	require.Equal(t, b, tr.Unsafe())
	require.Equal(t, b, tr.Finalized())
	require.Equal(t, b.Hash(), tr.HeadHash())
}

func TestRecordSealedAndByNumber(t *testing.T) {
	tr := New()
	b := block(7)
	tr.RecordSealed(b)

	got, ok := tr.ByNumber(7)
	require.True(t, ok)
	require.Equal(t, b, got)

	_, ok = tr.ByNumber(8)
	require.False(t, ok)
}

func TestSnapshotIsPointInTime(t *testing.T) {
	tr := New()
	b1 := block(1)
	tr.SetHead(b1)
	snap := tr.Snapshot()

	b2 := block(2)
	tr.SetHead(b2)

	require.Equal(t, b1, snap.Head)
	require.Equal(t, b2, tr.Head())
}

func TestResetTruncatesAheadPointers(t *testing.T) {
	tr := New()
	b1, b2, b3 := block(1), block(2), block(3)
	tr.SetHead(b3)
	tr.SetSafe(b3)
	tr.SetUnsafe(b2)
	tr.SetFinalized(b1)

	tr.Reset(b1)

	require.Equal(t, b1, tr.Head())
	require.Equal(t, b1, tr.Safe())
	require.Equal(t, b1, tr.Unsafe())
	require.Equal(t, b1, tr.Finalized()) // finalized was not ahead, stays
}

func TestResetToGenesis(t *testing.T) {
	tr := New()
	tr.SetHead(block(5))
	tr.SetSafe(block(5))

	tr.Reset(nil)

	require.Nil(t, tr.Head())
	require.Nil(t, tr.Safe())
}
