// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package types

// BlockHeader is the subset of Block fields a witness needs to reference a
// previously-sealed block without carrying its full transaction list.
type BlockHeader struct {
	Number     uint64
	ParentHash Hash
	Timestamp  uint64
	StateRoot  Hash
}

// Block is an immutable, sealed sequencer block (spec §3). Once returned
// from the assembler, none of its fields are mutated in place.
type Block struct {
	Number        uint64
	ParentHash    Hash
	Timestamp     uint64
	Transactions  []SignedTx
	GasUsed       uint64
	GasLimit      uint64
	StateRoot     Hash
	ReceiptsRoot  Hash
	LogsBloom     [256]byte
}

// Hash returns the block's identity hash, computed over its header fields
// (number, parent, timestamp, roots) — transactions are referenced only via
// the receipts root, matching how the chain-head tracker and reorg detector
// consume block identity (spec §4.J/§4.K operate on number->hash, not full
// bodies).
func (b *Block) Hash() Hash {
	return rlpHash([]interface{}{
		b.Number, b.ParentHash, b.Timestamp, b.StateRoot, b.ReceiptsRoot, b.GasUsed, b.GasLimit,
	})
}

// Header returns the BlockHeader projection of this block.
func (b *Block) Header() BlockHeader {
	return BlockHeader{Number: b.Number, ParentHash: b.ParentHash, Timestamp: b.Timestamp, StateRoot: b.StateRoot}
}

// Log is an execution log entry (stubbed empty by the execution engine per
// spec §4.F, but modeled fully so the receipt/witness wire shape is
// complete).
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}

// Receipt records the outcome of including one transaction in a block
// (spec §3).
type Receipt struct {
	TxHash      Hash
	BlockNumber uint64
	BlockHash   Hash
	TxIndex     uint32
	GasUsed     uint64
	Status      bool
	Logs        []Log
}

// Batch is a sequence of blocks submitted together to L1 (spec §3).
type Batch struct {
	Blocks         []*Block
	L1TxHash       *Hash
	L1BlockNumber  *uint64
	CreatedAt      uint64
}

// CodeEntry pairs a code hash with the (stubbed) bytecode the witness
// builder observed during execution.
type CodeEntry struct {
	CodeHash Hash
	Code     []byte
}

// Witness is the set of state items one block build touched, sufficient in
// principle to re-execute it statelessly (spec §3/§4.H).
type Witness struct {
	AccessedStateNodes []Hash
	AccessedCode       []CodeEntry
	BlockHeaders       []BlockHeader
}

// Witness has no custom wire quirks (no nil pointers, no optional fields);
// witness.EncodeRLP encodes it with the generic EncodeToBytes helper.
