// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package witness accumulates the state items one block build touches —
// accessed account nodes, (stubbed) bytecode, and referenced block headers
// — so a stateless verifier could in principle re-execute the block
// (spec §3/§4.H). A Builder is never shared across goroutines: one
// instance per block build (spec §5).
package witness

import (
	"sort"

	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Builder accumulates witness data during one execution pass.
type Builder struct {
	stateNodes map[types.Hash]struct{}
	code       map[types.Hash][]byte
	headers    []types.BlockHeader
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		stateNodes: make(map[types.Hash]struct{}),
		code:       make(map[types.Hash][]byte),
	}
}

// TrackStateNode records hash as an accessed state node.
func (b *Builder) TrackStateNode(hash types.Hash) {
	b.stateNodes[hash] = struct{}{}
}

// TrackAddress records keccak256(addr) as an accessed state node; the RPC
// witness helpers call it for each sender or recipient (the execution
// engine calls TrackStateNode directly).
func (b *Builder) TrackAddress(addr types.Address, keccak256 func([]byte) []byte) {
	b.TrackStateNode(types.BytesToHash(keccak256(addr.Bytes())))
}

// TrackCode records data's bytes keyed by their Keccak-256 hash — a
// placeholder for a real contract-bytecode fetch (spec §4.F).
func (b *Builder) TrackCode(hash types.Hash, data []byte) {
	if _, ok := b.code[hash]; ok {
		return
	}
	cp := append([]byte(nil), data...)
	b.code[hash] = cp
}

// TrackHeader records a block header touched during execution (e.g. the
// parent header supplied to Build).
func (b *Builder) TrackHeader(h types.BlockHeader) {
	b.headers = append(b.headers, h)
}

// Build finalizes the accumulated witness, attaching parent if non-nil.
// Output ordering (state nodes and code entries) is sorted by hash so two
// builders that observed the same access set in different orders produce
// byte-identical witnesses.
func (b *Builder) Build(parent *types.BlockHeader) types.Witness {
	nodes := make([]types.Hash, 0, len(b.stateNodes))
	for h := range b.stateNodes {
		nodes = append(nodes, h)
	}
	sort.Slice(nodes, func(i, j int) bool { return lessHash(nodes[i], nodes[j]) })

	codeHashes := make([]types.Hash, 0, len(b.code))
	for h := range b.code {
		codeHashes = append(codeHashes, h)
	}
	sort.Slice(codeHashes, func(i, j int) bool { return lessHash(codeHashes[i], codeHashes[j]) })
	codeEntries := make([]types.CodeEntry, 0, len(codeHashes))
	for _, h := range codeHashes {
		codeEntries = append(codeEntries, types.CodeEntry{CodeHash: h, Code: b.code[h]})
	}

	headers := append([]types.BlockHeader(nil), b.headers...)
	if parent != nil {
		headers = append(headers, *parent)
	}

	return types.Witness{
		AccessedStateNodes: nodes,
		AccessedCode:       codeEntries,
		BlockHeaders:       headers,
	}
}

func lessHash(a, b types.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// EncodeRLP implements the witness wire encoding of spec §4.H:
// [state_nodes_list, code_list, headers_list].
func EncodeRLP(w types.Witness) ([]byte, error) {
	type codeEntryRLP struct {
		CodeHash []byte
		Code     []byte
	}
	type headerRLP struct {
		Number     uint64
		ParentHash []byte
		Timestamp  uint64
		StateRoot  []byte
	}
	nodes := make([][]byte, len(w.AccessedStateNodes))
	for i, h := range w.AccessedStateNodes {
		nodes[i] = h[:]
	}
	codes := make([]codeEntryRLP, len(w.AccessedCode))
	for i, c := range w.AccessedCode {
		codes[i] = codeEntryRLP{CodeHash: c.CodeHash[:], Code: c.Code}
	}
	headers := make([]headerRLP, len(w.BlockHeaders))
	for i, h := range w.BlockHeaders {
		headers[i] = headerRLP{Number: h.Number, ParentHash: h.ParentHash[:], Timestamp: h.Timestamp, StateRoot: h.StateRoot[:]}
	}
	return types.EncodeToBytes([]interface{}{nodes, codes, headers})
}
