// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package rpc implements the JSON-RPC contract spec §4.M/§6 define: HTTP
// POST "/", content-type application/json, {jsonrpc, method, params, id}
// in, {jsonrpc, result|error, id} out. Grounded on
// bobanetwork-erigon's cmd/rpcdaemon JSON-RPC dispatch (method table +
// chi router) and corpus-core-colibri-stateless's stateless JSON-RPC
// handler shape, using go-chi/chi/v5 for routing and go-chi/cors for the
// permissive CORS policy a public sequencer RPC endpoint needs.
package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bobanetwork/op-sequencer/internal/apperr"
	"github.com/bobanetwork/op-sequencer/internal/assembler"
	"github.com/bobanetwork/op-sequencer/internal/chainhead"
	"github.com/bobanetwork/op-sequencer/internal/execution"
	"github.com/bobanetwork/op-sequencer/internal/ingress"
	"github.com/bobanetwork/op-sequencer/internal/state"
	"github.com/bobanetwork/op-sequencer/internal/types"
	"github.com/bobanetwork/op-sequencer/internal/witness"
)

// request/response are the wire shapes of spec §6.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes, spec §6/§7.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeServer         = -32000
)

// codeForKind maps the spec §7 error taxonomy to a JSON-RPC code:
// validation issues -> -32602, resource issues (Capacity, L1Unreachable)
// -> -32000, everything else -> -32603.
func codeForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindDecode, apperr.KindInvalidSignature, apperr.KindBadNonce,
		apperr.KindInsufficientFunds, apperr.KindDuplicate, apperr.KindGasLimitExceeded:
		return codeInvalidParams
	case apperr.KindCapacity, apperr.KindL1Unreachable:
		return codeServer
	default:
		return codeInternal
	}
}

// Dependencies bundles the components a Dispatcher invokes. No field is
// owned by the Dispatcher; it is a thin, stateless routing/translation
// layer over the sequencer core (spec §1: "the JSON-RPC transport ...
// only the request/response contracts matter").
type Dependencies struct {
	Ingress    *ingress.Coordinator
	Store      *state.Store
	Chain      *chainhead.Tracker
	Assembler  *assembler.Assembler
	Log        *zap.SugaredLogger
}

// Dispatcher routes JSON-RPC requests to the methods spec §4.M names.
type Dispatcher struct {
	deps Dependencies
}

// New returns a Dispatcher bound to deps.
func New(deps Dependencies) *Dispatcher { return &Dispatcher{deps: deps} }

// Router builds the chi router: one POST "/" JSON-RPC endpoint, permissive
// CORS (a public sequencer ingress has no browser-origin restriction to
// enforce), and request-ID, panic-recovery and 30-second timeout
// middleware in the teacher's chi-middleware idiom.
func (d *Dispatcher) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Post("/", d.handleRPC)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (d *Dispatcher) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error")
		return
	}
	if req.Method == "" {
		writeError(w, req.ID, codeInvalidRequest, "invalid request")
		return
	}

	result, rpcErr := d.dispatch(r, req.Method, req.Params)
	if rpcErr != nil {
		writeError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	writeResult(w, req.ID, result)
}

func (d *Dispatcher) dispatch(r *http.Request, method string, params json.RawMessage) (interface{}, *rpcError) {
	switch method {
	case "eth_sendRawTransaction":
		return d.sendRawTransaction(r, params)
	case "eth_getTransactionReceipt":
		return d.getTransactionReceipt(params)
	case "eth_blockNumber":
		return d.blockNumber()
	case "debug_generateWitness":
		return d.generateWitness(params)
	case "debug_generateBlockWitness":
		return d.generateBlockWitness(params)
	case "sequencer_status":
		return d.sequencerStatus()
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
}

func (d *Dispatcher) sendRawTransaction(r *http.Request, params json.RawMessage) (interface{}, *rpcError) {
	var args [1]string
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [hex]"}
	}
	raw, err := decodeHex(args[0])
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid hex"}
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "decode error"}
	}

	outcome, _, err := d.deps.Ingress.Accept(r.Context(), tx)
	if err != nil {
		return nil, &rpcError{Code: codeInternal, Message: err.Error()}
	}
	if outcome != ingress.Valid {
		return nil, &rpcError{Code: outcomeCode(outcome), Message: outcome.String()}
	}
	return encodeHash(tx.Hash()), nil
}

func outcomeCode(o ingress.Outcome) int {
	switch o {
	case ingress.Capacity, ingress.RateLimited:
		return codeServer
	default:
		return codeInvalidParams
	}
}

func (d *Dispatcher) getTransactionReceipt(params json.RawMessage) (interface{}, *rpcError) {
	var args [1]string
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [hash]"}
	}
	hash, err := decodeHashHex(args[0])
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid hash"}
	}
	receipt := d.deps.Store.GetReceipt(hash)
	if receipt == nil {
		return nil, nil
	}
	return receiptJSON(receipt), nil
}

func (d *Dispatcher) blockNumber() (interface{}, *rpcError) {
	return fmt.Sprintf("0x%x", d.deps.Store.GetBlockNumber()), nil
}

func (d *Dispatcher) generateWitness(params json.RawMessage) (interface{}, *rpcError) {
	var args [1]string
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [hex]"}
	}
	raw, err := decodeHex(args[0])
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid hex"}
	}
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "decode error"}
	}

	wb := witness.NewBuilder()
	sender, err := ingressRecover(tx)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "recovery failed"}
	}
	trackTxWitness(wb, tx, sender)
	w := wb.Build(nil)
	encoded, err := witness.EncodeRLP(w)
	if err != nil {
		return nil, &rpcError{Code: codeInternal, Message: err.Error()}
	}
	return map[string]interface{}{
		"witness":     encodeHex(encoded),
		"witnessSize": len(encoded),
	}, nil
}

func (d *Dispatcher) generateBlockWitness(params json.RawMessage) (interface{}, *rpcError) {
	var args [1]string
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "expected [number|latest]"}
	}
	var block *types.Block
	if args[0] == "latest" {
		block = d.deps.Chain.Head()
	} else {
		n, err := parseBlockNumber(args[0])
		if err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: "invalid block number"}
		}
		b, ok := d.deps.Chain.ByNumber(n)
		if !ok {
			return nil, &rpcError{Code: codeInvalidParams, Message: "unknown block"}
		}
		block = b
	}
	if block == nil {
		return nil, nil
	}

	// generate_block_witness re-executes every tx with the builder attached
	// against a forked copy of state (spec §4.H), discarded once the
	// witness is built: the live store must not see a second application
	// of transactions it already sealed into this block.
	fork := d.deps.Store.Clone()
	engine := execution.New(fork)
	wb := witness.NewBuilder()
	for _, tx := range block.Transactions {
		if _, err := engine.Apply(tx, wb); err != nil {
			continue
		}
	}
	parentHeader := block.Header()
	w := wb.Build(&parentHeader)
	encoded, err := witness.EncodeRLP(w)
	if err != nil {
		return nil, &rpcError{Code: codeInternal, Message: err.Error()}
	}
	return map[string]interface{}{
		"witness":          encodeHex(encoded),
		"witnessSize":      len(encoded),
		"blockNumber":      block.Number,
		"transactionCount": len(block.Transactions),
	}, nil
}

// sequencerStatus is a supplemented operational-visibility method (not in
// spec §4.M's original list) reporting the store's block number, the
// in-flight batch size and, when a head is set, the head block hash. It
// does not report safe/unsafe/finalized pointers, mempool depth or the
// emergency-halt flag. Grounded on bobanetwork-erigon's admin_nodeInfo
// pattern of exposing internal daemon state over the same RPC transport.
func (d *Dispatcher) sequencerStatus() (interface{}, *rpcError) {
	snap := d.deps.Chain.Snapshot()
	status := map[string]interface{}{
		"blockNumber":    d.deps.Store.GetBlockNumber(),
		"pendingBatchLen": 0,
	}
	if d.deps.Assembler != nil {
		status["pendingBatchLen"] = d.deps.Assembler.CurrentBatch().Len()
	}
	if snap.Head != nil {
		status["headHash"] = encodeHash(snap.Head.Hash())
	}
	return status, nil
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response{JSONRPC: "2.0", Result: result, ID: id})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: message}, ID: id})
}
