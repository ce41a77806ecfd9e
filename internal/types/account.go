// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package types

// Account is the trie leaf value for one address: [nonce, balance,
// storage_root, code_hash] (spec §4.G). storage_root and code_hash are
// zero-hashes under the stub execution engine, which never deploys code or
// writes contract storage.
type Account struct {
	Nonce       uint64
	Balance     *U256
	StorageRoot Hash
	CodeHash    Hash
}

// EncodeRLP encodes the account in the canonical 4-field list order.
func (a Account) EncodeRLP() ([]byte, error) {
	bal := a.Balance
	if bal == nil {
		bal = new(U256)
	}
	return EncodeToBytes([]interface{}{
		a.Nonce, bal.ToBig(), a.StorageRoot[:], a.CodeHash[:],
	})
}

// EmptyStorageRoot and EmptyCodeHash are the zero-hashes the stub execution
// engine always uses (spec §4.G: "storage_root and code_hash are
// zero-hashes for the stub engine").
var (
	EmptyStorageRoot = Hash{}
	EmptyCodeHash    = Hash{}
)
