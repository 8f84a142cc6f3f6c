package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pdfchat/backend/internal/models"
	"github.com/pdfchat/backend/internal/notify"
	"github.com/pdfchat/backend/internal/session"
	"github.com/pdfchat/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocketServer(t *testing.T, client *testutil.FakeClient) (*httptest.Server, *session.Session) {
	t.Helper()
	m := session.NewManager(client, session.ManagerOptions{})
	s, err := m.Create(context.Background())
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(&Dependencies{Sessions: m, Version: "test"}))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, s
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readUntil reads messages until match accepts one or the deadline passes.
func readUntil(t *testing.T, ws *websocket.Conn, match func(WSMessage) bool) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg WSMessage
		require.NoError(t, ws.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(WSMessage) bool {
	return func(m WSMessage) bool { return m.Type == typ }
}

func TestWebSocket_InitialState(t *testing.T) {
	srv, s := newSocketServer(t, testutil.NewFakeClient("", "a.pdf"))
	ws := dial(t, srv, s.ID())

	connected := readUntil(t, ws, ofType(MsgTypeConnected))
	assert.Equal(t, s.ID(), connected.ID)

	msg := readUntil(t, ws, ofType(MsgTypeSnapshot))
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, []string{"a.pdf"}, snap.Documents)
	assert.True(t, snap.ShowWelcome)
}

func TestWebSocket_AskPushesSnapshotsAndPing(t *testing.T) {
	srv, s := newSocketServer(t, testutil.NewFakeClient("an answer"))
	ws := dial(t, srv, s.ID())
	readUntil(t, ws, ofType(MsgTypeConnected))

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	pong := readUntil(t, ws, ofType(MsgTypePong))
	assert.Equal(t, "p1", pong.ID)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeAsk, Payload: mustJSON(AskPayload{Question: "why?"})}))

	msg := readUntil(t, ws, func(m WSMessage) bool {
		if m.Type != MsgTypeSnapshot {
			return false
		}
		var snap models.Snapshot
		return json.Unmarshal(m.Payload, &snap) == nil && len(snap.Messages) == 2
	})
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, "why?", snap.Messages[0].Text)
	assert.Equal(t, "an answer", snap.Messages[1].Text)
}

func TestWebSocket_ToastsAreDeliveredOnce(t *testing.T) {
	srv, s := newSocketServer(t, testutil.NewFakeClient(""))
	s.Toasts.Drain()
	ws := dial(t, srv, s.ID())
	readUntil(t, ws, ofType(MsgTypeSnapshot))

	s.Toasts.Error("boom")

	msg := readUntil(t, ws, ofType(MsgTypeToast))
	var toast notify.Toast
	require.NoError(t, json.Unmarshal(msg.Payload, &toast))
	assert.Equal(t, notify.LevelError, toast.Level)
	assert.Equal(t, "boom", toast.Message)

	// wait for the writer to drain before checking the queue
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	readUntil(t, ws, ofType(MsgTypePong))
	assert.Zero(t, s.Toasts.Pending())
}

func TestWebSocket_Errors(t *testing.T) {
	srv, s := newSocketServer(t, testutil.NewFakeClient(""))
	ws := dial(t, srv, s.ID())
	readUntil(t, ws, ofType(MsgTypeConnected))

	tests := []struct {
		name string
		msg  WSMessage
		code string
	}{
		{"unknown type", WSMessage{Type: "bogus"}, "INVALID_TYPE"},
		{"bad payload", WSMessage{Type: MsgTypeAsk, Payload: json.RawMessage(`"text"`)}, "INVALID_PAYLOAD"},
		{"blank question", WSMessage{Type: MsgTypeAsk, Payload: mustJSON(AskPayload{Question: " "})}, "VALIDATION_ERROR"},
		{"unknown document", WSMessage{Type: MsgTypeSelect, Payload: mustJSON(SelectPayload{Name: "x.pdf"})}, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ws.WriteJSON(tt.msg))
			msg := readUntil(t, ws, ofType(MsgTypeError))
			var resp WSErrorResponse
			require.NoError(t, json.Unmarshal(msg.Payload, &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestWebSocket_UnknownSession(t *testing.T) {
	srv, _ := newSocketServer(t, testutil.NewFakeClient(""))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/missing/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
