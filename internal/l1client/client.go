// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package l1client is the sequencer's only window onto L1: two contracts,
// submitBatch and fetchBlockHash (spec §1 "Out of scope ... the L1 RPC
// client (only its submitBatch/fetchBlockHash contracts are referenced)").
// Each call is a single HTTP attempt with a 10-second client timeout; there
// is no retry and no backoff. The client is deliberately minimal, grounded on
// kshinn-umbra-gateway's reverse-proxy client and
// corpus-core-colibri-stateless's plain net/http JSON-RPC calls rather
// than pulling in a full RPC client library this spec doesn't need.
package l1client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/bobanetwork/op-sequencer/internal/apperr"
	"github.com/bobanetwork/op-sequencer/internal/types"
)

// Client is a minimal JSON-RPC client scoped to the two L1 operations the
// sequencer core needs.
type Client struct {
	url        string
	httpClient *http.Client
}

// New returns a Client targeting rpcURL.
func New(rpcURL string) *Client {
	return &Client{url: rpcURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	reqBody, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return apperr.New(apperr.KindInternal, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return apperr.New(apperr.KindInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.New(apperr.KindL1Unreachable, errors.Wrap(err, "l1 rpc call"))
	}
	defer resp.Body.Close()

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return apperr.New(apperr.KindL1Unreachable, errors.Wrap(err, "l1 rpc decode"))
	}
	if rpcResp.Error != nil {
		return apperr.New(apperr.KindL1Unreachable, fmt.Errorf("l1 rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return apperr.New(apperr.KindL1Unreachable, err)
		}
	}
	return nil
}

// FetchBlockHash returns L1's canonical hash for number. Used by the reorg
// watcher loop to feed the reorg detector.
func (c *Client) FetchBlockHash(ctx context.Context, number uint64) (types.Hash, error) {
	var hex string
	err := c.call(ctx, "eth_getBlockHashByNumber", []interface{}{number}, &hex)
	if err != nil {
		return types.Hash{}, err
	}
	return decodeHexHash(hex)
}

// SubmitBatch forwards a sealed batch to L1, returning the L1 transaction
// hash the batch's L1TxHash field is set to on acknowledgement (spec
// §4.I: "l1_tx_hash is set after L1 submission acknowledges").
func (c *Client) SubmitBatch(ctx context.Context, batchRLP []byte) (types.Hash, error) {
	var hex string
	err := c.call(ctx, "sequencer_submitBatch", []interface{}{fmt.Sprintf("0x%x", batchRLP)}, &hex)
	if err != nil {
		return types.Hash{}, err
	}
	return decodeHexHash(hex)
}

func decodeHexHash(s string) (types.Hash, error) {
	if len(s) < 2 || s[:2] != "0x" {
		return types.Hash{}, apperr.New(apperr.KindL1Unreachable, fmt.Errorf("malformed hash %q", s))
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return types.Hash{}, apperr.New(apperr.KindL1Unreachable, err)
	}
	return types.BytesToHash(raw), nil
}
