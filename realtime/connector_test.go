package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/jrsteele09/pool-admin/realtime"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func bearer(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// newPushServer accepts one websocket on /bookings, pushes frames and then
// waits for a client frame before closing normally.
func newPushServer(t *testing.T, frames []string, received chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookings" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer a1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

		ctx := r.Context()
		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		_, data, err := conn.Read(ctx)
		if err == nil {
			received <- string(data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConnectDispatchesEvents(t *testing.T) {
	received := make(chan string, 1)
	srv := newPushServer(t, []string{
		`{"event":"booking:new","data":{"id":"b1"}}`,
		`not json`,
		`{"event":"booking:new","data":{"id":"b2"}}`,
	}, received)

	c := realtime.NewConnector(srv.URL, bearer("a1"), realtime.WithHeartbeat(0))

	connected := make(chan bool, 1)
	c.On(realtime.EventConnect, func(ctx context.Context, _ json.RawMessage) {
		connected <- c.Connected()
	})
	ids := make(chan string, 2)
	c.On("booking:new", func(ctx context.Context, data json.RawMessage) {
		var payload struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(data, &payload))
		ids <- payload.ID
		if payload.ID == "b2" {
			require.NoError(t, c.Emit(ctx, "booking:ack", map[string]string{"id": "b2"}))
		}
	})
	disconnected := make(chan struct{}, 1)
	c.On(realtime.EventDisconnect, func(context.Context, json.RawMessage) {
		disconnected <- struct{}{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, "/bookings/"))

	require.True(t, <-connected)
	require.Equal(t, "b1", <-ids)
	require.Equal(t, "b2", <-ids)
	require.JSONEq(t, `{"event":"booking:ack","data":{"id":"b2"}}`, <-received)
	<-disconnected
	require.False(t, c.Connected())
}

func TestConnectRejectedHandshake(t *testing.T) {
	srv := newPushServer(t, nil, make(chan string, 1))
	c := realtime.NewConnector(srv.URL, bearer("expired"))

	err := c.Connect(context.Background(), "bookings")
	require.ErrorIs(t, err, apierrors.ErrAuthentication)
	require.False(t, c.Connected())
}

func TestConnectWithoutCredential(t *testing.T) {
	c := realtime.NewConnector("http://127.0.0.1:1", oauth2.StaticTokenSource(nil))
	require.Error(t, c.Connect(context.Background(), "bookings"))
}

func TestEmitWhenDisconnected(t *testing.T) {
	c := realtime.NewConnector("http://127.0.0.1:1", bearer("a1"))
	require.ErrorIs(t, c.Emit(context.Background(), "ping", nil), realtime.ErrNotConnected)
}

func TestNamespaceURL(t *testing.T) {
	tests := []struct {
		api, namespace, want string
		wantErr              bool
	}{
		{"http://localhost:3001", "bookings", "ws://localhost:3001/bookings", false},
		{"https://api.claritypool.com/v1/", "/reports", "wss://api.claritypool.com/v1/reports", false},
		{"ftp://example.com", "bookings", "", true},
		{"http://localhost:3001", "", "", true},
	}
	for _, tt := range tests {
		got, err := realtime.NamespaceURL(tt.api, tt.namespace)
		if tt.wantErr {
			require.Error(t, err, tt.api)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}
