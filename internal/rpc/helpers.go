// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package rpc

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
	"github.com/bobanetwork/op-sequencer/internal/sigverify"
	"github.com/bobanetwork/op-sequencer/internal/types"
	"github.com/bobanetwork/op-sequencer/internal/witness"
)

var errMalformedHex = errors.New("rpc: malformed 0x-prefixed hex string")

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, errMalformedHex
	}
	return hex.DecodeString(s[2:])
}

func decodeHashHex(s string) (types.Hash, error) {
	raw, err := decodeHex(s)
	if err != nil || len(raw) != types.HashLength {
		return types.Hash{}, errMalformedHex
	}
	return types.BytesToHash(raw), nil
}

func encodeHex(b []byte) string { return "0x" + hex.EncodeToString(b) }

func encodeHash(h types.Hash) string { return encodeHex(h[:]) }

func parseBlockNumber(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// ingressRecover recovers tx's sender for witness-generation RPCs, which
// need the sender without running the full admission pipeline. Chain-id
// enforcement (spec §6 l2_chain_id) is an admission-time concern, not a
// witness-inspection one: these debug endpoints describe whatever tx the
// caller hands them, wrong chain or not, so this stays a plain recovery.
func ingressRecover(tx types.SignedTx) (types.Address, error) {
	return sigverify.RecoverSender(tx)
}

func keccak256Adapter(data []byte) []byte { return cryptoutil.Keccak256(data) }

// trackTxWitness records sender, recipient, and non-empty call-data code
// into wb, mirroring execution.Engine.applyLegacy's witness tracking
// (spec §4.F / §4.H: "sender, recipient, and code on every execution with a
// builder attached") for RPC callers that build a witness without running
// the tx through Apply.
func trackTxWitness(wb *witness.Builder, tx types.SignedTx, sender types.Address) {
	wb.TrackAddress(sender, keccak256Adapter)
	legacy, ok := tx.(*types.Transaction)
	if !ok {
		return
	}
	if legacy.To != nil {
		wb.TrackAddress(*legacy.To, keccak256Adapter)
	}
	if len(legacy.Data) > 0 {
		codeHash := types.BytesToHash(keccak256Adapter(legacy.Data))
		wb.TrackCode(codeHash, legacy.Data)
	}
}

func receiptJSON(r *types.Receipt) map[string]interface{} {
	logs := make([]map[string]interface{}, len(r.Logs))
	for i, l := range r.Logs {
		topics := make([]string, len(l.Topics))
		for j, t := range l.Topics {
			topics[j] = encodeHash(t)
		}
		logs[i] = map[string]interface{}{
			"address": "0x" + hex.EncodeToString(l.Address[:]),
			"topics":  topics,
			"data":    encodeHex(l.Data),
		}
	}
	status := "0x0"
	if r.Status {
		status = "0x1"
	}
	return map[string]interface{}{
		"transactionHash": encodeHash(r.TxHash),
		"blockNumber":     "0x" + strconv.FormatUint(r.BlockNumber, 16),
		"blockHash":       encodeHash(r.BlockHash),
		"transactionIndex": "0x" + strconv.FormatUint(uint64(r.TxIndex), 16),
		"gasUsed":         "0x" + strconv.FormatUint(r.GasUsed, 16),
		"status":          status,
		"logs":            logs,
	}
}
