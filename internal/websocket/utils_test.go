package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers every request with a pong carrying its action, then
// closes after a submit.
func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := Wrap(raw)
		defer conn.Close()
		for {
			var req Request
			if err := conn.Read(&req); err != nil {
				return
			}
			if req.Action == ActionSubmit {
				return
			}
			if req.Action != ActionPing {
				_ = conn.SendError("INVALID_PAYLOAD", "unknown action")
				continue
			}
			_ = conn.Send(EventPong, nil)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_RoundTrip(t *testing.T) {
	client, _, err := websocket.DefaultDialer.Dial(echoServer(t), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteJSON(Request{Action: ActionPing}))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"pong"}`, string(msg))

	require.NoError(t, client.WriteJSON(Request{Action: "dance"}))
	_, msg, err = client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"error","data":{"code":"INVALID_PAYLOAD","message":"unknown action"}}`, string(msg))

	require.NoError(t, client.WriteJSON(Request{Action: ActionSubmit}))
	_, _, err = client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.False(t, IsUnexpectedClose(err))
}
