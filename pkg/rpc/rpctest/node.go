// Package rpctest provides an in-process JSON-RPC node for tests.
package rpctest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Error is a JSON-RPC error object returned by a handler.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler answers one JSON-RPC method.
type Handler func(params []json.RawMessage) (interface{}, *Error)

// Node is a fake JSON-RPC endpoint backed by httptest.
type Node struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
}

// NewNode starts a node. Unknown methods answer -32601.
func NewNode() *Node {
	n := &Node{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// Handle registers h for method.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// Result registers a method that always returns result.
func (n *Node) Result(method string, result interface{}) {
	n.Handle(method, func([]json.RawMessage) (interface{}, *Error) {
		return result, nil
	})
}

// Fail registers a method that always returns the given error.
func (n *Node) Fail(method string, code int, message string) {
	n.Handle(method, func([]json.RawMessage) (interface{}, *Error) {
		return nil, &Error{Code: code, Message: message}
	})
}

// Calls returns how many times method was invoked.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if len(raw) > 0 && raw[0] == '[' {
		var reqs []request
		if err := json.Unmarshal(raw, &reqs); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resps := make([]response, 0, len(reqs))
		for _, req := range reqs {
			resps = append(resps, n.dispatch(req))
		}
		_ = json.NewEncoder(w).Encode(resps)
		return
	}

	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(n.dispatch(req))
}

func (n *Node) dispatch(req request) response {
	n.mu.Lock()
	n.calls[req.Method]++
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := response{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &Error{Code: -32601, Message: "the method " + req.Method + " does not exist/is not available"}
		return resp
	}
	resp.Result, resp.Error = h(req.Params)
	return resp
}

// Receipt builds a minimal receipt object for eth_getTransactionReceipt.
// status is 1 for success and 0 for a reverted transaction.
func Receipt(txHash string, status uint64) map[string]interface{} {
	return map[string]interface{}{
		"type":              "0x2",
		"status":            fmt.Sprintf("0x%x", status),
		"cumulativeGasUsed": "0x5208",
		"logsBloom":         "0x" + strings.Repeat("00", 256),
		"logs":              []interface{}{},
		"transactionHash":   txHash,
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x3b9aca00",
		"blockHash":         "0x0000000000000000000000000000000000000000000000000000000000000001",
		"blockNumber":       "0x10",
		"transactionIndex":  "0x0",
	}
}
