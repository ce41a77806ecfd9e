// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package reorg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bobanetwork/op-sequencer/internal/chainhead"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

type fakeSource struct {
	hashes map[uint64]types.Hash
	errOn  map[uint64]error
	calls  []uint64
}

func (f *fakeSource) FetchBlockHash(ctx context.Context, number uint64) (types.Hash, error) {
	f.calls = append(f.calls, number)
	if err, ok := f.errOn[number]; ok {
		return types.Hash{}, err
	}
	return f.hashes[number], nil
}

func newTestWatcher(source L1BlockSource, detector *Detector, handler *Handler) *Watcher {
	return NewWatcher(source, detector, handler, time.Millisecond, zap.NewNop().Sugar())
}

func TestTickAdvancesOnNoReorg(t *testing.T) {
	source := &fakeSource{hashes: map[uint64]types.Hash{0: hashOf(1)}}
	detector := NewDetector()
	chain := chainhead.New()
	handler := NewHandler(chain, &fakeDiscarder{})
	w := newTestWatcher(source, detector, handler)

	w.tick(context.Background())
	require.Equal(t, uint64(1), w.nextNumber)
	require.Equal(t, []uint64{0}, source.calls)
}

func TestTickSurvivesTransportError(t *testing.T) {
	source := &fakeSource{errOn: map[uint64]error{0: errors.New("boom")}}
	detector := NewDetector()
	chain := chainhead.New()
	handler := NewHandler(chain, &fakeDiscarder{})
	w := newTestWatcher(source, detector, handler)

	w.tick(context.Background())
	require.Equal(t, uint64(0), w.nextNumber, "nextNumber must not advance past a failed fetch")
}

func TestTickInvokesHandlerOnReorgAndRewinds(t *testing.T) {
	source := &fakeSource{hashes: map[uint64]types.Hash{
		0: hashOf(1),
		1: hashOf(2),
		2: hashOf(3),
	}}
	detector := NewDetector()
	chain := chainhead.New()
	ancestorBlock := &types.Block{Number: 1}
	chain.RecordSealed(ancestorBlock)
	chain.SetHead(&types.Block{Number: 2})
	discarder := &fakeDiscarder{}
	handler := NewHandler(chain, discarder)
	w := newTestWatcher(source, detector, handler)

	w.tick(context.Background()) // records 0
	w.nextNumber = 1
	w.tick(context.Background()) // records 1
	w.nextNumber = 2
	w.tick(context.Background()) // records 2

	// Now feed a divergent hash at 2: common ancestor should resolve to 1.
	source.hashes[2] = hashOf(99)
	w.nextNumber = 2
	w.tick(context.Background())

	require.Equal(t, uint64(2), w.nextNumber) // ancestor(1) + 1
	require.Equal(t, 1, discarder.discarded)
	require.Equal(t, ancestorBlock, chain.Head())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	source := &fakeSource{hashes: map[uint64]types.Hash{0: hashOf(1)}}
	detector := NewDetector()
	chain := chainhead.New()
	handler := NewHandler(chain, &fakeDiscarder{})
	w := NewWatcher(source, detector, handler, time.Millisecond, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	<-done
}
