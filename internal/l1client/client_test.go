// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package l1client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobanetwork/op-sequencer/internal/apperr"
)

func rpcServer(t *testing.T, handler func(method string, params []interface{}) (interface{}, *string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": -32000, "message": *rpcErr}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestFetchBlockHashDecodesHexResult(t *testing.T) {
	srv := rpcServer(t, func(method string, params []interface{}) (interface{}, *string) {
		require.Equal(t, "eth_getBlockHashByNumber", method)
		return "0xab00000000000000000000000000000000000000000000000000000000000000", nil
	})
	defer srv.Close()

	c := New(srv.URL)
	h, err := c.FetchBlockHash(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, byte(0xab), h[0])
}

func TestFetchBlockHashPropagatesRPCError(t *testing.T) {
	srv := rpcServer(t, func(method string, params []interface{}) (interface{}, *string) {
		msg := "boom"
		return nil, &msg
	})
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchBlockHash(context.Background(), 5)
	require.Error(t, err)
}

func TestSubmitBatchReturnsTxHash(t *testing.T) {
	srv := rpcServer(t, func(method string, params []interface{}) (interface{}, *string) {
		require.Equal(t, "sequencer_submitBatch", method)
		return "0x" + "1111111111111111111111111111111111111111111111111111111111111111", nil
	})
	defer srv.Close()

	c := New(srv.URL)
	h, err := c.SubmitBatch(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, byte(0x11), h[0])
}

func TestCallReturnsL1UnreachableOnTransportFailure(t *testing.T) {
	c := New("http://127.0.0.1:0") // nothing listens here
	_, err := c.FetchBlockHash(context.Background(), 1)
	require.Error(t, err)
	require.ErrorIs(t, err, apperr.L1Unreachable)
}
