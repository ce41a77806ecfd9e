// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package types

import (
	"bytes"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
)

// rlpHash RLP-encodes val using go-ethereum's reflection-based encoder and
// returns the Keccak-256 digest of the result — the canonical "hash of
// canonical serialization" operation spec §3/§4.B describe for both
// transaction hashing and signing pre-images.
func rlpHash(val interface{}) Hash {
	var buf bytes.Buffer
	if err := rlp.Encode(&buf, val); err != nil {
		panic("types: rlp encode of well-formed value failed: " + err.Error())
	}
	return BytesToHash(cryptoutil.Keccak256(buf.Bytes()))
}

// EncodeToBytes RLP-encodes any value using the same encoder rlpHash uses;
// exported for callers that need the raw bytes (WAL records, RPC decode).
func EncodeToBytes(val interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(val)
}

// DecodeBytes decodes src into out using the same decoder transaction
// DecodeRLP methods rely on.
func DecodeBytes(src []byte, out interface{}) error {
	return rlp.DecodeBytes(src, out)
}
