// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bobanetwork/op-sequencer/internal/assembler"
	"github.com/bobanetwork/op-sequencer/internal/chainhead"
	"github.com/bobanetwork/op-sequencer/internal/cryptoutil"
	"github.com/bobanetwork/op-sequencer/internal/ingress"
	"github.com/bobanetwork/op-sequencer/internal/mempool"
	"github.com/bobanetwork/op-sequencer/internal/state"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// decodedWitness mirrors the RLP shape EncodeRLP produces
// ([state_nodes_list, code_list, headers_list]), for assertions that need
// to see inside the encoded bytes rather than just checking non-emptiness.
type decodedWitness struct {
	Nodes [][]byte
	Codes []struct {
		CodeHash []byte
		Code     []byte
	}
	Headers []struct {
		Number     uint64
		ParentHash []byte
		Timestamp  uint64
		StateRoot  []byte
	}
}

var testPrivKey, _ = new(big.Int).SetString("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 16)

func senderAddr(t *testing.T) types.Address {
	t.Helper()
	pub := cryptoutil.ToECDSA(testPrivKey).PublicKey
	var rawPub cryptoutil.PublicKey
	copy(rawPub[:32], pub.X.Bytes())
	copy(rawPub[32:], pub.Y.Bytes())
	return types.Address(cryptoutil.AddressFromPubkey(&rawPub))
}

func signedTxBytes(t *testing.T, nonce uint64) []byte {
	t.Helper()
	recipient := types.BytesToAddress([]byte{0x42})
	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: types.NewU256(1),
		GasLimit: 21000,
		To:       &recipient,
		Value:    types.NewU256(1),
	}
	preimage := tx.SigningHash(nil)
	r, s, recID, err := cryptoutil.Sign(preimage[:], testPrivKey)
	require.NoError(t, err)
	tx.R, tx.S = r, s
	tx.V = big.NewInt(int64(recID) + 27)
	raw, err := types.EncodeToBytes(tx)
	require.NoError(t, err)
	return raw
}

func signedTxWithDataBytes(t *testing.T, nonce uint64, data []byte) []byte {
	t.Helper()
	recipient := types.BytesToAddress([]byte{0x42})
	tx := &types.Transaction{
		Nonce:    nonce,
		GasPrice: types.NewU256(1),
		GasLimit: 100000,
		To:       &recipient,
		Value:    types.NewU256(1),
		Data:     data,
	}
	preimage := tx.SigningHash(nil)
	r, s, recID, err := cryptoutil.Sign(preimage[:], testPrivKey)
	require.NoError(t, err)
	tx.R, tx.S = r, s
	tx.V = big.NewInt(int64(recID) + 27)
	raw, err := types.EncodeToBytes(tx)
	require.NoError(t, err)
	return raw
}

type harness struct {
	dispatcher *Dispatcher
	store      *state.Store
	chain      *chainhead.Tracker
	pool       *mempool.Mempool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	walPath := filepath.Join(t.TempDir(), "mempool.wal")
	pool, err := mempool.New(walPath, 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	store := state.New(nil)
	chain := chainhead.New()
	asm := assembler.New(pool, store, chain, 1_000_000, 10, time.Minute, nil)
	coord := ingress.New(pool, store, 0, nil)

	d := New(Dependencies{
		Ingress:   coord,
		Store:     store,
		Chain:     chain,
		Assembler: asm,
		Log:       zap.NewNop().Sugar(),
	})
	return &harness{dispatcher: d, store: store, chain: chain, pool: pool}
}

func (h *harness) call(t *testing.T, method string, params interface{}) map[string]interface{} {
	t.Helper()
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  json.RawMessage(paramsJSON),
		"id":      1,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.dispatcher.Router().ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthzReturnsOK(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.dispatcher.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSendRawTransactionAccepted(t *testing.T) {
	h := newHarness(t)
	sender := senderAddr(t)
	h.store.SetBalance(sender, types.NewU256(1_000_000))

	raw := signedTxBytes(t, 0)
	resp := h.call(t, "eth_sendRawTransaction", []string{encodeHex(raw)})

	require.Nil(t, resp["error"])
	require.NotEmpty(t, resp["result"])
	require.Equal(t, 1, h.pool.Len())
}

func TestSendRawTransactionInvalidHexIsInvalidParams(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, "eth_sendRawTransaction", []string{"not-hex"})

	errObj, ok := resp["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(codeInvalidParams), errObj["code"])
}

func TestSendRawTransactionInsufficientFundsMapsToInvalidParams(t *testing.T) {
	h := newHarness(t)
	raw := signedTxBytes(t, 0) // sender has zero balance
	resp := h.call(t, "eth_sendRawTransaction", []string{encodeHex(raw)})

	errObj, ok := resp["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(codeInvalidParams), errObj["code"])
}

func TestGetTransactionReceiptMissingReturnsNilResult(t *testing.T) {
	h := newHarness(t)
	var hash types.Hash
	resp := h.call(t, "eth_getTransactionReceipt", []string{encodeHash(hash)})
	require.Nil(t, resp["error"])
	require.Nil(t, resp["result"])
}

func TestGetTransactionReceiptFound(t *testing.T) {
	h := newHarness(t)
	var hash types.Hash
	hash[0] = 0x01
	require.NoError(t, h.store.PutReceipt(&types.Receipt{TxHash: hash, GasUsed: 21000, Status: true}))

	resp := h.call(t, "eth_getTransactionReceipt", []string{encodeHash(hash)})
	require.Nil(t, resp["error"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "0x1", result["status"])
}

func TestBlockNumberReturnsHexEncoding(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.FinalizeBlock(&types.Block{Number: 5}))

	resp := h.call(t, "eth_blockNumber", []string{})
	require.Equal(t, "0x5", resp["result"])
}

func TestMethodNotFoundReturnsError(t *testing.T) {
	h := newHarness(t)
	resp := h.call(t, "nonexistent_method", []string{})
	errObj, ok := resp["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(codeMethodNotFound), errObj["code"])
}

func TestGenerateWitnessReturnsEncodedWitness(t *testing.T) {
	h := newHarness(t)
	raw := signedTxBytes(t, 0)
	resp := h.call(t, "debug_generateWitness", []string{encodeHex(raw)})
	require.Nil(t, resp["error"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	require.NotEmpty(t, result["witness"])

	encoded := decodeHexOrFail(t, result["witness"].(string))
	var w decodedWitness
	require.NoError(t, types.DecodeBytes(encoded, &w))
	require.Len(t, w.Nodes, 2, "sender and recipient must both be tracked")
	require.Empty(t, w.Codes, "no call data was set, so no code should be tracked")
}

func TestGenerateWitnessTracksRecipientAndCode(t *testing.T) {
	h := newHarness(t)
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	raw := signedTxWithDataBytes(t, 0, data)
	resp := h.call(t, "debug_generateWitness", []string{encodeHex(raw)})
	require.Nil(t, resp["error"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)

	encoded := decodeHexOrFail(t, result["witness"].(string))
	var w decodedWitness
	require.NoError(t, types.DecodeBytes(encoded, &w))
	require.Len(t, w.Nodes, 2, "sender and recipient must both be tracked")
	require.Len(t, w.Codes, 1, "non-empty call data must be tracked as code")
	require.Equal(t, data, w.Codes[0].Code)
}

func TestGenerateBlockWitnessReExecutesTransactions(t *testing.T) {
	h := newHarness(t)
	sender := senderAddr(t)
	h.store.SetBalance(sender, types.NewU256(1_000_000))

	recipient := types.BytesToAddress([]byte{0x42})
	tx := &types.Transaction{
		Nonce:    0,
		GasPrice: types.NewU256(1),
		GasLimit: 21000,
		To:       &recipient,
		Value:    types.NewU256(1),
	}
	preimage := tx.SigningHash(nil)
	r, s, recID, err := cryptoutil.Sign(preimage[:], testPrivKey)
	require.NoError(t, err)
	tx.R, tx.S = r, s
	tx.V = big.NewInt(int64(recID) + 27)
	_, err = h.pool.Insert(tx)
	require.NoError(t, err)

	asm := h.dispatcher.deps.Assembler
	block, _, ok := asm.BuildBlock()
	require.True(t, ok)

	balanceBeforeWitnessCall := h.store.GetBalance(sender)

	resp := h.call(t, "debug_generateBlockWitness", []string{"latest"})
	require.Nil(t, resp["error"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(block.Number), result["blockNumber"])
	require.Equal(t, float64(1), result["transactionCount"])

	encoded := decodeHexOrFail(t, result["witness"].(string))
	var w decodedWitness
	require.NoError(t, types.DecodeBytes(encoded, &w))
	require.Len(t, w.Nodes, 2, "re-execution must track both sender and recipient")

	// Re-execution runs against a forked copy of state: the live store's
	// balance must be untouched by generating the witness.
	require.Equal(t, 0, balanceBeforeWitnessCall.Cmp(h.store.GetBalance(sender)))
}

func decodeHexOrFail(t *testing.T, s string) []byte {
	t.Helper()
	b, err := decodeHex(s)
	require.NoError(t, err)
	return b
}

func TestSequencerStatusReportsBlockNumber(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.FinalizeBlock(&types.Block{Number: 9}))

	resp := h.call(t, "sequencer_status", []string{})
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(9), result["blockNumber"])
}
