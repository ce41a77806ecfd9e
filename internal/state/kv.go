// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package state implements the account nonce/balance maps and receipt
// index of spec §4.E, optionally write-through to an embedded ordered
// byte-KV store.
package state

// KV is the opaque ordered byte-KV interface spec.md treats as an external
// collaborator (§1): "only consumed" by the state store, never owning its
// own transaction/compaction policy here. BoltKV (boltkv.go) is the
// concrete embedded-store implementation; tests and the in-memory-only
// mode use nil.
type KV interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Close() error
}
