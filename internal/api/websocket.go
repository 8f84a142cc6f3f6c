package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pdfchat/backend/internal/models"
	"github.com/pdfchat/backend/internal/notify"
	"github.com/pdfchat/backend/internal/session"
	"github.com/rs/zerolog/log"
)

// WebSocket message types for the live session protocol
const (
	// Client -> Server messages
	MsgTypeAsk      = "chat:ask"
	MsgTypeNewChat  = "chat:new"
	MsgTypeSelect   = "doc:select"
	MsgTypeDeselect = "doc:deselect"
	MsgTypePing     = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeSnapshot  = "snapshot"
	MsgTypeToast     = "toast"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	wsSnapshotBuffer = 16
	wsToastBuffer    = 16
	wsOutboundBuffer = 32
	wsWriteTimeout   = 10 * time.Second
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// AskPayload carries a question sent over the socket
type AskPayload struct {
	Question string `json:"question"`
}

// SelectPayload names the document to select
type SelectPayload struct {
	Name string `json:"name"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams session snapshots and toasts to the browser and
// accepts chat actions over the same connection.
type WebSocketHandler struct {
	sessions       SessionManager
	upgrader       websocket.Upgrader
	maxMessageSize int64
}

// NewWebSocketHandler creates a new WebSocket handler. maxMessageSize limits
// inbound frames; zero means no limit.
func NewWebSocketHandler(sessions SessionManager, maxMessageSize int64) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		maxMessageSize: maxMessageSize,
	}
}

// wsConn serializes writes to one connection. Senders never block once the
// writer has stopped.
type wsConn struct {
	ws       *websocket.Conn
	out      chan WSMessage
	stopped  chan struct{}
	stopOnce sync.Once
}

func (wc *wsConn) send(msg WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	select {
	case wc.out <- msg:
	case <-wc.stopped:
	}
}

func (wc *wsConn) sendError(message, code string) {
	wc.send(WSMessage{
		Type: MsgTypeError,
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

func (wc *wsConn) stop() {
	wc.stopOnce.Do(func() { close(wc.stopped) })
}

// HandleWebSocket upgrades the connection and runs the session protocol
// until the client disconnects.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	s, err := lookupSession(wsh.sessions, c)
	if err != nil {
		return err
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if wsh.maxMessageSize > 0 {
		ws.SetReadLimit(wsh.maxMessageSize)
	}

	logger := log.With().Str("session", shortID(s.ID())).Logger()
	logger.Debug().Msg("websocket connected")

	snapshots, stopSnapshots := s.Watch(wsSnapshotBuffer)
	defer stopSnapshots()
	toasts, stopToasts := s.Toasts.Subscribe(wsToastBuffer)
	defer stopToasts()

	wc := &wsConn{
		ws:      ws,
		out:     make(chan WSMessage, wsOutboundBuffer),
		stopped: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		wsh.writeLoop(wc, s, snapshots, toasts)
	}()

	wc.send(WSMessage{Type: MsgTypeConnected, ID: s.ID()})
	wc.send(snapshotMessage(s))
	wsh.flushToasts(wc, s)

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("websocket connection error")
			}
			break
		}
		wsh.dispatch(wc, s, msg)
	}

	wc.stop()
	wg.Wait()
	logger.Debug().Msg("websocket disconnected")
	return nil
}

// dispatch handles one client message. Questions run in the background so
// the read loop keeps serving pings while the answer is pending.
func (wsh *WebSocketHandler) dispatch(wc *wsConn, s *session.Session, msg WSMessage) {
	s.Touch()

	switch msg.Type {
	case MsgTypePing:
		wc.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
	case MsgTypeAsk:
		var payload AskPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError("Invalid ask payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
		go func() {
			if err := s.SubmitQuestion(context.Background(), payload.Question); err != nil {
				apiErr := sessionError(err)
				wc.sendError(apiErr.Message, apiErr.Code)
			}
		}()
	case MsgTypeSelect:
		var payload SelectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wc.sendError("Invalid select payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
		if err := s.SelectDocument(payload.Name); err != nil {
			apiErr := NewNotFoundError("document", payload.Name)
			wc.sendError(apiErr.Message, apiErr.Code)
		}
	case MsgTypeDeselect:
		s.DeselectDocument()
	case MsgTypeNewChat:
		s.StartNewChat()
	default:
		wc.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
	}
}

// writeLoop owns all writes to the connection.
func (wsh *WebSocketHandler) writeLoop(wc *wsConn, s *session.Session, snapshots <-chan models.Snapshot, toasts <-chan notify.Toast) {
	defer wc.stop()

	for {
		var msg WSMessage
		select {
		case <-wc.stopped:
			return
		case m := <-wc.out:
			msg = m
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			msg = WSMessage{Type: MsgTypeSnapshot, ID: snap.ID, Payload: mustJSON(snap), Timestamp: time.Now().UnixMilli()}
		case _, ok := <-toasts:
			if !ok {
				return
			}
			if err := wsh.writeToasts(wc, s); err != nil {
				wc.ws.Close()
				return
			}
			continue
		}

		if err := wsh.write(wc, msg); err != nil {
			log.Debug().Err(err).Str("session", shortID(s.ID())).Msg("websocket write failed")
			wc.ws.Close()
			return
		}
	}
}

// flushToasts asks the writer to deliver toasts queued before the socket opened.
func (wsh *WebSocketHandler) flushToasts(wc *wsConn, s *session.Session) {
	for _, t := range s.Toasts.Drain() {
		wc.send(WSMessage{Type: MsgTypeToast, Payload: mustJSON(t)})
	}
}

// writeToasts drains the queue so toasts delivered live are not handed out
// again by the polling endpoint.
func (wsh *WebSocketHandler) writeToasts(wc *wsConn, s *session.Session) error {
	for _, t := range s.Toasts.Drain() {
		msg := WSMessage{Type: MsgTypeToast, Payload: mustJSON(t), Timestamp: time.Now().UnixMilli()}
		if err := wsh.write(wc, msg); err != nil {
			return err
		}
	}
	return nil
}

func (wsh *WebSocketHandler) write(wc *wsConn, msg WSMessage) error {
	if err := wc.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return wc.ws.WriteJSON(msg)
}

func snapshotMessage(s *session.Session) WSMessage {
	return WSMessage{Type: MsgTypeSnapshot, ID: s.ID(), Payload: mustJSON(s.Snapshot())}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
