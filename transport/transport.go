// Package transport provides JSON-RPC transports for TON HTTP APIs.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Transport sends JSON-RPC requests and returns raw results.
type Transport interface {
	// Call sends a JSON-RPC request. params is marshaled as-is, so it may be
	// a named-parameter object or a positional slice.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Close terminates the transport connection.
	Close() error
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// jsonRPCResponse also covers the TON Center envelope, which adds "ok"
// and reports errors as a plain string with a separate code.
type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	OK      *bool           `json:"ok,omitempty"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error,omitempty"`
	Code    int             `json:"code,omitempty"`
}

// RPCError is an error reported by the remote endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error: code=%d message=%s", e.Code, e.Message)
}

// err extracts the remote error, if any.
func (r *jsonRPCResponse) err() error {
	if len(r.Error) > 0 && string(r.Error) != "null" {
		var obj RPCError
		if err := json.Unmarshal(r.Error, &obj); err == nil && (obj.Code != 0 || obj.Message != "") {
			return &obj
		}
		var msg string
		if err := json.Unmarshal(r.Error, &msg); err == nil {
			return &RPCError{Code: r.Code, Message: msg}
		}
		return &RPCError{Code: r.Code, Message: strings.TrimSpace(string(r.Error))}
	}
	if r.OK != nil && !*r.OK {
		return &RPCError{Code: r.Code, Message: "request not ok"}
	}
	return nil
}
