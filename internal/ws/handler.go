package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
)

// Handler upgrades HTTP requests to websocket connections and runs the
// per-connection event loop. Authentication happens before the upgrade;
// an unauthenticated request never becomes a connection.
type Handler struct {
	hub          *Hub
	chatSvc      chat.Service
	verifier     auth.TokenVerifier
	writeTimeout time.Duration
	sendBuffer   int
	logger       *slog.Logger
}

// HandlerConfig holds the dependencies and settings for the websocket
// handler.
type HandlerConfig struct {
	Hub      *Hub
	Chat     chat.Service
	Verifier auth.TokenVerifier

	// WriteTimeout bounds one websocket write. Zero means 5 seconds.
	WriteTimeout time.Duration

	// SendBuffer is the per-connection outbound queue depth. Zero means
	// the package default.
	SendBuffer int

	Logger *slog.Logger
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Hub == nil {
		panic("hub cannot be nil")
	}
	if cfg.Chat == nil {
		panic("chat service cannot be nil")
	}
	if cfg.Verifier == nil {
		panic("token verifier cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &Handler{
		hub:          cfg.Hub,
		chatSvc:      cfg.Chat,
		verifier:     cfg.Verifier,
		writeTimeout: writeTimeout,
		sendBuffer:   cfg.SendBuffer,
		logger:       log.With(slog.String("component", "ws_handler")),
	}
}

// ServeHTTP implements the GET /ws endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticate(r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		h.logger.Debug("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	conn := newConn(sock, *identity, h.sendBuffer, h.writeTimeout, h.logger)
	h.hub.Register(conn)
	conn.send(OutboundEvent{Type: EventConnected, Payload: PresencePayload{
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
	}})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go conn.writeLoop(ctx)
	h.readLoop(ctx, conn)

	h.hub.Disconnect(conn)
	conn.close(websocket.StatusNormalClosure, "closed")
}

// authenticate extracts and verifies the bearer credential. Browsers
// cannot set headers on websocket requests, so the access_token query
// parameter is accepted as a fallback.
func (h *Handler) authenticate(r *http.Request) (*auth.Identity, error) {
	token := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	} else if qp := r.URL.Query().Get("access_token"); qp != "" {
		token = qp
	}
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	return h.verifier.VerifyToken(r.Context(), token)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	for {
		var evt InboundEvent
		if err := wsjson.Read(ctx, conn.sock, &evt); err != nil {
			return
		}
		h.dispatch(ctx, conn, evt)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *Conn, evt InboundEvent) {
	switch evt.Type {
	case EventJoinTask:
		h.handleJoin(ctx, conn, evt.Payload)
	case EventLeaveTask:
		h.hub.Leave(conn)
	case EventSendMessage:
		h.handleSend(ctx, conn, evt.Payload)
	case EventEditMessage:
		h.handleEdit(ctx, conn, evt.Payload)
	case EventDeleteMessage:
		h.handleDelete(ctx, conn, evt.Payload)
	case EventTypingStart:
		h.handleTyping(conn, evt.Payload, EventUserTyping)
	case EventTypingStop:
		h.handleTyping(conn, evt.Payload, EventUserStoppedTyping)
	default:
		h.sendError(conn, errors.New("unknown event type"))
	}
}

func (h *Handler) handleJoin(ctx context.Context, conn *Conn, raw json.RawMessage) {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.sendError(conn, chat.ErrValidation)
		return
	}
	if err := h.hub.Join(ctx, conn, p.RoomID); err != nil {
		h.sendError(conn, err)
	}
}

func (h *Handler) handleSend(ctx context.Context, conn *Conn, raw json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.sendError(conn, chat.ErrValidation)
		return
	}

	_, err := h.chatSvc.Send(ctx, chat.SendRequest{
		TaskID:      p.RoomID,
		SenderID:    conn.UserID(),
		Body:        p.Body,
		Attachments: p.Attachments,
		ReplyTo:     p.ReplyTo,
	})
	if err != nil {
		h.sendError(conn, err)
	}
}

func (h *Handler) handleEdit(ctx context.Context, conn *Conn, raw json.RawMessage) {
	var p EditMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.sendError(conn, chat.ErrValidation)
		return
	}

	_, err := h.chatSvc.Edit(ctx, chat.EditRequest{
		TaskID:    p.RoomID,
		MessageID: p.MessageID,
		EditorID:  conn.UserID(),
		Body:      p.NewBody,
	})
	if err != nil {
		h.sendError(conn, err)
	}
}

func (h *Handler) handleDelete(ctx context.Context, conn *Conn, raw json.RawMessage) {
	var p DeleteMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.sendError(conn, chat.ErrValidation)
		return
	}

	err := h.chatSvc.Delete(ctx, chat.DeleteRequest{
		TaskID:      p.RoomID,
		MessageID:   p.MessageID,
		RequesterID: conn.UserID(),
	})
	if err != nil {
		h.sendError(conn, err)
	}
}

// handleTyping relays presence to the other room members. The only gate
// is current membership; nothing is persisted or acknowledged.
func (h *Handler) handleTyping(conn *Conn, raw json.RawMessage, outType string) {
	var p RoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.sendError(conn, chat.ErrValidation)
		return
	}
	if !h.hub.InRoom(conn, p.RoomID) {
		h.sendError(conn, ErrNotInRoom)
		return
	}
	h.hub.BroadcastExcept(p.RoomID, conn, outType, PresencePayload{
		UserID:      conn.UserID(),
		DisplayName: conn.DisplayName(),
	})
}

// sendError delivers a scoped error event to the acting connection only.
// Internal details never reach the client.
func (h *Handler) sendError(conn *Conn, err error) {
	conn.send(OutboundEvent{
		Type:    EventError,
		Payload: ErrorPayload{Message: safeErrorMessage(err)},
	})
}

// safeErrorMessage maps known errors to client-facing text and hides
// everything else behind a generic message.
func safeErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return "invalid request"
	case errors.Is(err, chat.ErrNotAuthorized), errors.Is(err, ErrRoomAccessDenied):
		return "not authorized"
	case errors.Is(err, chat.ErrMessageNotOwned):
		return "message not found or not yours"
	case errors.Is(err, chat.ErrReplyNotFound):
		return "replied-to message not found"
	case errors.Is(err, ErrNotInRoom):
		return "join the room first"
	default:
		return "something went wrong"
	}
}
