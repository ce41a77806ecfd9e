// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package sequencer wires every leaf component into the running node and
// owns its three background loops (assembler, L1 watcher, WAL compactor)
// plus the RPC HTTP server, following spec §5's scheduling model:
// "(a) an ingress thread pool serving RPC requests, (b) one assembler
// loop, (c) one L1-watcher loop, (d) one WAL-compaction loop". Grounded
// on bobanetwork-erigon's cmd/txpool/main.go doTxpool wiring shape
// (construct components, start loops, block on context, graceful
// shutdown) adapted from gRPC services to in-process goroutines.
package sequencer

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bobanetwork/op-sequencer/internal/assembler"
	"github.com/bobanetwork/op-sequencer/internal/chainhead"
	"github.com/bobanetwork/op-sequencer/internal/config"
	"github.com/bobanetwork/op-sequencer/internal/ingress"
	"github.com/bobanetwork/op-sequencer/internal/l1client"
	"github.com/bobanetwork/op-sequencer/internal/mempool"
	"github.com/bobanetwork/op-sequencer/internal/reorg"
	"github.com/bobanetwork/op-sequencer/internal/rpc"
	"github.com/bobanetwork/op-sequencer/internal/state"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Node owns every long-lived sequencer component and goroutine.
type Node struct {
	cfg *config.Config
	log *zap.SugaredLogger

	store     *state.Store
	pool      *mempool.Mempool
	chain     *chainhead.Tracker
	assembler *assembler.Assembler
	detector  *reorg.Detector
	reorgH    *reorg.Handler
	watcher   *reorg.Watcher
	ingressC  *ingress.Coordinator
	l1        *l1client.Client
	server    *http.Server

	halted bool
	mu     sync.Mutex

	wg sync.WaitGroup
}

// New constructs a Node from cfg, opening the mempool WAL and the state
// KV store. Callers must call Close on the returned Node when done. On an
// error New returns a nil Node and closes anything it had already opened.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Node, error) {
	kv, err := state.OpenBoltKV(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("sequencer: open state db: %w", err)
	}
	store := state.New(kv)

	pool, err := mempool.New(cfg.MempoolWALPath, cfg.MempoolMaxSize)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("sequencer: open mempool wal: %w", err)
	}

	chain := chainhead.New()
	asm := assembler.New(pool, store, chain, cfg.BlockGasLimit, cfg.BatchSizeLimit, cfg.BatchInterval(), nil)
	detector := reorg.NewDetector()
	reorgHandler := reorg.NewHandler(chain, asm)
	l1 := l1client.New(cfg.L1RPCURL)
	watcher := reorg.NewWatcher(l1, detector, reorgHandler, 12*time.Second, log)
	var l2ChainID *big.Int
	if cfg.L2ChainID != 0 {
		l2ChainID = new(big.Int).SetUint64(cfg.L2ChainID)
	}
	ingressC := ingress.New(pool, store, cfg.RateLimitPerSecond, l2ChainID)

	dispatcher := rpc.New(rpc.Dependencies{
		Ingress:   ingressC,
		Store:     store,
		Chain:     chain,
		Assembler: asm,
		Log:       log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           dispatcher.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Node{
		cfg:       cfg,
		log:       log,
		store:     store,
		pool:      pool,
		chain:     chain,
		assembler: asm,
		detector:  detector,
		reorgH:    reorgHandler,
		watcher:   watcher,
		ingressC:  ingressC,
		l1:        l1,
		server:    server,
	}, nil
}

// Run starts the RPC server and all three background loops, blocking
// until ctx is cancelled, then shuts everything down gracefully.
func (n *Node) Run(ctx context.Context) error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.log.Infow("rpc server listening", "addr", n.server.Addr)
		if err := n.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.log.Errorw("rpc server stopped", "err", err)
		}
	}()

	n.wg.Add(1)
	go n.assemblerLoop(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.watcher.Run(ctx)
	}()

	n.wg.Add(1)
	go n.compactionLoop(ctx)

	<-ctx.Done()
	n.log.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.server.Shutdown(shutdownCtx); err != nil {
		n.log.Errorw("rpc server shutdown", "err", err)
	}

	n.wg.Wait()
	return n.Close()
}

// assemblerLoop implements the assembler's loop: a fixed 200ms ticker;
// ticks with an empty mempool are skipped, otherwise one block is built and
// the current batch is sealed and submitted if a seal condition holds
// (size limit or batch_interval_ms elapsed). emergency_halt
// (spec §4.I control flag) freezes block sealing without tearing the
// mempool down: the loop keeps running, it just skips BuildBlock.
func (n *Node) assemblerLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n.isHalted() {
				continue
			}
			if n.pool.Len() == 0 {
				continue
			}
			if _, _, built := n.assembler.BuildBlock(); built {
				n.log.Debugw("block sealed", "blockNumber", n.chain.Head().Number)
			}
			if batch, ready := n.assembler.CurrentBatch().Seal(); ready {
				n.submitBatch(ctx, batch)
			}
		}
	}
}

// submitBatch forwards a sealed batch to L1, recording the acknowledged
// L1 transaction hash onto the batch (spec §4.I: "l1_tx_hash is set after
// L1 submission acknowledges"). A submission failure is logged and the
// batch's blocks remain sealed locally — L1 submission retry policy is
// out of scope (spec §1).
func (n *Node) submitBatch(ctx context.Context, batch *types.Batch) {
	rlpBytes, err := encodeBatch(batch)
	if err != nil {
		n.log.Errorw("batch rlp encode failed", "err", err)
		return
	}
	txHash, err := n.l1.SubmitBatch(ctx, rlpBytes)
	if err != nil {
		n.log.Errorw("batch submission failed", "err", err, "blocks", len(batch.Blocks))
		return
	}
	batch.L1TxHash = &txHash
	n.log.Infow("batch submitted", "blocks", len(batch.Blocks), "l1TxHash", txHash.Hex())
	if err := n.pool.Compact(n.cfg.MempoolWALPath); err != nil {
		n.log.Warnw("wal compaction failed", "err", err)
	}
}

// encodeBatch RLP-encodes a batch as the list of its blocks' header
// fields — the receipts/transactions bodies are reconstructable from the
// mempool WAL and state store, so only the header commitments travel to
// L1 in this sequencer's minimal submitBatch contract (spec §1: "only its
// submitBatch/fetchBlockHash contracts are referenced").
func encodeBatch(batch *types.Batch) ([]byte, error) {
	type headerRLP struct {
		Number       uint64
		ParentHash   []byte
		Timestamp    uint64
		StateRoot    []byte
		ReceiptsRoot []byte
		GasUsed      uint64
		GasLimit     uint64
	}
	headers := make([]headerRLP, len(batch.Blocks))
	for i, b := range batch.Blocks {
		headers[i] = headerRLP{
			Number:       b.Number,
			ParentHash:   b.ParentHash[:],
			Timestamp:    b.Timestamp,
			StateRoot:    b.StateRoot[:],
			ReceiptsRoot: b.ReceiptsRoot[:],
			GasUsed:      b.GasUsed,
			GasLimit:     b.GasLimit,
		}
	}
	return types.EncodeToBytes(headers)
}

// compactionLoop also rewrites the mempool WAL every 30 seconds to drop
// entries no longer resident, in addition to the compaction submitBatch
// runs after each acknowledged batch submission.
func (n *Node) compactionLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.pool.Compact(n.cfg.MempoolWALPath); err != nil {
				n.log.Warnw("wal compaction failed", "err", err)
			}
		}
	}
}

func (n *Node) isHalted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.halted
}

// SetEmergencyHalt toggles the emergency_halt flag at runtime.
func (n *Node) SetEmergencyHalt(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.halted = v
}

// Close releases the mempool WAL and state KV handles.
func (n *Node) Close() error {
	if err := n.pool.Close(); err != nil {
		return err
	}
	return n.store.Close()
}
