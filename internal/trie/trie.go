// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package trie implements the Merkle-Patricia trie used to compute the
// account state root (spec §4.G): a radix tree over keccak256(address)
// nibble paths, with RLP-encoded account leaves.
//
// Unlike go-ethereum's trie, every node reference is always a 32-byte
// Keccak-256 hash — there is no "embed small nodes inline" optimization.
// That keeps the implementation an order of magnitude smaller while
// preserving the only properties spec §4.G/§8 actually require:
// determinism, insertion-order invariance, and byte-equality verification
// against a previously computed root. It does not aim to reproduce
// mainnet Ethereum's exact trie bytes — this is the rollup's own account
// trie, not a proof artifact checked against L1 state.
package trie

import (
	"bytes"

	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// node is the sum type of trie nodes: nil, *shortNode (leaf or extension),
// *fullNode (16-way branch plus an in-place value slot), or valueNode
// (raw leaf bytes).
type node interface{}

type valueNode []byte

type shortNode struct {
	Key []byte // nibbles, no terminator sentinel; leaf-ness is Val's type
	Val node
}

type fullNode struct {
	Children [16]node
	Value    valueNode // non-nil if a key terminates exactly at this branch
}

// Trie is a mutable Merkle-Patricia trie. The zero value is an empty trie.
type Trie struct {
	root node
}

// New returns an empty trie.
func New() *Trie { return &Trie{} }

// Update inserts or overwrites the value at key (raw bytes, not yet split
// into nibbles).
func (t *Trie) Update(key, value []byte) {
	t.root = insert(t.root, keyToNibbles(key), valueNode(value))
}

func keyToNibbles(key []byte) []byte {
	out := make([]byte, len(key)*2)
	for i, b := range key {
		out[i*2] = b >> 4
		out[i*2+1] = b & 0x0f
	}
	return out
}

func prefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// insert follows go-ethereum's trie.insert shape (shortNode splitting on
// the longest common nibble prefix, fullNode holding a value at its own
// terminus), simplified to always keep the full tree resident in memory
// (no hash-node placeholders, since this trie is rebuilt fresh per root
// computation rather than loaded lazily from disk).
func insert(n node, key []byte, value node) node {
	switch n := n.(type) {
	case nil:
		if len(key) == 0 {
			return value
		}
		return &shortNode{Key: append([]byte(nil), key...), Val: value}

	case valueNode:
		if len(key) == 0 {
			return value // equal-key overwrite
		}
		branch := &fullNode{Value: n}
		branch.Children[key[0]] = insert(nil, key[1:], value)
		return branch

	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			return &shortNode{Key: n.Key, Val: insert(n.Val, key[matchlen:], value)}
		}
		branch := &fullNode{}
		branch.Children[n.Key[matchlen]] = insert(nil, n.Key[matchlen+1:], n.Val)
		if matchlen == len(key) {
			branch.Value, _ = value.(valueNode)
		} else {
			branch.Children[key[matchlen]] = insert(nil, key[matchlen+1:], value)
		}
		if matchlen == 0 {
			return branch
		}
		return &shortNode{Key: key[:matchlen], Val: branch}

	case *fullNode:
		cp := *n
		if len(key) == 0 {
			if v, ok := value.(valueNode); ok {
				cp.Value = v
			}
			return &cp
		}
		cp.Children[key[0]] = insert(n.Children[key[0]], key[1:], value)
		return &cp

	default:
		return n
	}
}

// hashNode returns the Keccak-256 hash of n's RLP encoding, or the
// canonical empty-trie hash if n is nil.
func hashNode(n node) types.Hash {
	switch n := n.(type) {
	case nil:
		return EmptyRootHash()
	case valueNode:
		return types.BytesToHash(cryptoutil.Keccak256(mustEncode([]byte(n))))
	case *shortNode:
		isLeaf := false
		var childRef interface{}
		if v, ok := n.Val.(valueNode); ok {
			isLeaf = true
			childRef = []byte(v)
		} else {
			h := hashNode(n.Val)
			childRef = h[:]
		}
		enc := mustEncode([]interface{}{encodePath(n.Key, isLeaf), childRef})
		return types.BytesToHash(cryptoutil.Keccak256(enc))
	case *fullNode:
		refs := make([]interface{}, 17)
		for i := 0; i < 16; i++ {
			if n.Children[i] == nil {
				refs[i] = []byte{}
				continue
			}
			h := hashNode(n.Children[i])
			refs[i] = h[:]
		}
		if n.Value != nil {
			refs[16] = []byte(n.Value)
		} else {
			refs[16] = []byte{}
		}
		enc := mustEncode(refs)
		return types.BytesToHash(cryptoutil.Keccak256(enc))
	default:
		return types.Hash{}
	}
}

func mustEncode(v interface{}) []byte {
	b, err := types.EncodeToBytes(v)
	if err != nil {
		panic("trie: rlp encode failed: " + err.Error())
	}
	return b
}

// encodePath hex-prefix-encodes a nibble path, flagging whether it
// terminates in a leaf (odd/leaf flags packed into the high nibble of the
// first byte), so extension and leaf nodes with an otherwise-identical
// path hash differently.
func encodePath(nibbles []byte, isLeaf bool) []byte {
	flag := byte(0)
	if isLeaf {
		flag |= 0x2
	}
	odd := len(nibbles)%2 == 1
	var out []byte
	if odd {
		flag |= 0x1
		out = append(out, flag<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		out = append(out, flag<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

// emptyTrieRLP is the RLP encoding of the empty string, whose Keccak-256
// is the canonical empty-trie root used by every MPT-based chain.
var emptyTrieRLP = func() []byte {
	b, _ := types.EncodeToBytes([]byte{})
	return b
}()

// EmptyRootHash returns the canonical empty-trie root hash.
func EmptyRootHash() types.Hash {
	return types.BytesToHash(cryptoutil.Keccak256(emptyTrieRLP))
}

// Hash returns the trie's root hash, deterministic over the set of
// (key, value) pairs inserted and invariant to insertion order (spec §8
// invariant 8) because the tree shape is a pure function of the key set,
// not of insertion sequence.
func (t *Trie) Hash() types.Hash {
	return hashNode(t.root)
}

// Verify reports whether computed equals expected by byte equality
// (spec §4.G).
func Verify(computed, expected types.Hash) bool {
	return bytes.Equal(computed[:], expected[:])
}
