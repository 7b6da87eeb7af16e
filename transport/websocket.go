package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var errClosed = errors.New("transport/ws: connection closed")

// WebSocket implements Transport over a WebSocket connection.
// The connection is dialed lazily and redialed after it drops.
type WebSocket struct {
	url    string
	nextID atomic.Uint64

	mu      sync.Mutex // guards conn, done and writes
	conn    *websocket.Conn
	done    chan struct{}
	closed  bool
	pending map[uint64]chan []byte
}

// NewWebSocket creates a WebSocket transport.
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		url:     url,
		pending: make(map[uint64]chan []byte),
	}
}

// connect returns the live connection, dialing if needed. Caller holds ws.mu.
func (ws *WebSocket) connect(ctx context.Context) (*websocket.Conn, chan struct{}, error) {
	if ws.closed {
		return nil, nil, errClosed
	}
	if ws.conn != nil {
		return ws.conn, ws.done, nil
	}

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, ws.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("transport/ws: dial: %w", err)
	}
	ws.conn = conn
	ws.done = make(chan struct{})
	go ws.readLoop(conn, ws.done)
	return conn, ws.done, nil
}

// Call sends a JSON-RPC request over WebSocket and waits for the response.
func (ws *WebSocket) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}

	id := ws.nextID.Add(1)
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	ch := make(chan []byte, 1)

	ws.mu.Lock()
	conn, done, err := ws.connect(ctx)
	if err != nil {
		ws.mu.Unlock()
		return nil, err
	}
	ws.pending[id] = ch
	err = conn.WriteJSON(req)
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.pending, id)
		ws.mu.Unlock()
	}()

	if err != nil {
		return nil, fmt.Errorf("transport/ws: write: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data := <-ch:
		var rpcResp jsonRPCResponse
		if err := json.Unmarshal(data, &rpcResp); err != nil {
			return nil, fmt.Errorf("transport/ws: unmarshal: %w", err)
		}
		if err := rpcResp.err(); err != nil {
			return nil, fmt.Errorf("transport/ws: %s: %w", method, err)
		}
		return rpcResp.Result, nil
	case <-done:
		return nil, errClosed
	}
}

// Close terminates the WebSocket connection.
func (ws *WebSocket) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.closed = true
	if ws.conn == nil {
		return nil
	}
	err := ws.conn.Close()
	ws.conn = nil
	return err
}

// readLoop routes responses to waiting callers until conn fails, then
// forgets conn so the next Call redials.
func (ws *WebSocket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			ws.mu.Lock()
			if ws.conn == conn {
				ws.conn = nil
			}
			ws.mu.Unlock()
			return
		}

		var envelope struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil || envelope.ID == 0 {
			continue
		}

		ws.mu.Lock()
		ch, ok := ws.pending[envelope.ID]
		ws.mu.Unlock()
		if ok {
			select {
			case ch <- message:
			default:
			}
		}
	}
}
