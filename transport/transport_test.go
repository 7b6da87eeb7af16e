package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCallNamedParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "shards", req.Method)
		assert.Equal(t, map[string]any{"seqno": float64(12)}, req.Params)

		_, _ = w.Write([]byte(`{"ok":true,"result":{"shards":[]},"jsonrpc":"2.0","id":1}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, WithAPIKey("secret"), WithRateLimit(100))
	res, err := h.Call(context.Background(), "shards", map[string]any{"seqno": 12})
	require.NoError(t, err)
	assert.JSONEq(t, `{"shards":[]}`, string(res))
}

func TestHTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "toncenter not ok",
			status: http.StatusOK,
			body:   `{"ok":false,"error":"LITE_SERVER_UNKNOWN: cannot load block","code":500}`,
			check: func(t *testing.T, err error) {
				var rpcErr *RPCError
				require.ErrorAs(t, err, &rpcErr)
				assert.Equal(t, 500, rpcErr.Code)
				assert.Contains(t, rpcErr.Message, "cannot load block")
			},
		},
		{
			name:   "json-rpc error object",
			status: http.StatusOK,
			body:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`,
			check: func(t *testing.T, err error) {
				var rpcErr *RPCError
				require.ErrorAs(t, err, &rpcErr)
				assert.Equal(t, -32601, rpcErr.Code)
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"ok":false,"error":"Ratelimit exceed","code":429}`,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTP(srv.URL).Call(context.Background(), "getMasterchainInfo", nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestWebSocketCall(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req jsonRPCRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": req.Method}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ws := NewWebSocket("ws" + strings.TrimPrefix(srv.URL, "http"))
	defer ws.Close()

	for _, method := range []string{"getMasterchainInfo", "shards"} {
		res, err := ws.Call(context.Background(), method, nil)
		require.NoError(t, err)
		assert.Equal(t, `"`+method+`"`, string(res))
	}

	require.NoError(t, ws.Close())
	_, err := ws.Call(context.Background(), "shards", nil)
	assert.Error(t, err)
}
