package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
)

// defaultSendBuffer is the outbound queue depth per connection. A client
// that cannot drain this many events is closed as a slow consumer.
const defaultSendBuffer = 64

// Conn is one authenticated websocket connection. All room bookkeeping
// lives in the Hub; Conn only owns its socket and outbound queue.
type Conn struct {
	id       uuid.UUID
	identity auth.Identity
	sock     *websocket.Conn

	outbound chan OutboundEvent

	closeOnce sync.Once
	closed    chan struct{}

	// currentRoom is guarded by the hub's lock, not by the connection.
	currentRoom uuid.UUID

	writeTimeout time.Duration
	logger       *slog.Logger
}

func newConn(sock *websocket.Conn, identity auth.Identity, buffer int, writeTimeout time.Duration, logger *slog.Logger) *Conn {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	id := uuid.New()
	return &Conn{
		id:           id,
		identity:     identity,
		sock:         sock,
		outbound:     make(chan OutboundEvent, buffer),
		closed:       make(chan struct{}),
		writeTimeout: writeTimeout,
		logger: logger.With(
			slog.String("conn_id", id.String()),
			slog.String("user_id", identity.UserID.String())),
	}
}

// UserID returns the authenticated user behind this connection.
func (c *Conn) UserID() uuid.UUID {
	return c.identity.UserID
}

// DisplayName returns the user's display name from the verified identity.
func (c *Conn) DisplayName() string {
	return c.identity.DisplayName
}

// send queues an event without blocking. A full queue means the client is
// not keeping up, so the connection is closed rather than stalling the
// caller, which may be holding the hub lock.
func (c *Conn) send(evt OutboundEvent) {
	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.outbound <- evt:
	default:
		c.logger.Warn("closing slow consumer", slog.String("event_type", evt.Type))
		c.closeNow()
	}
}

// writeLoop drains the outbound queue onto the socket. Each write is
// bounded by the configured timeout. Runs until the connection closes.
func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.close(websocket.StatusNormalClosure, "closed")
			return
		case <-c.closed:
			return
		case evt := <-c.outbound:
			writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := wsjson.Write(writeCtx, c.sock, evt)
			cancel()
			if err != nil {
				c.close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

// close shuts the socket down exactly once, performing the close
// handshake. Must not be called while holding the hub lock; the handshake
// waits on the peer.
func (c *Conn) close(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.sock != nil {
			_ = c.sock.Close(status, reason)
		}
	})
}

// closeNow tears the connection down without the close handshake. The hub
// calls send under its lock, so the overflow path cannot afford a network
// round trip to a peer that is already not reading.
func (c *Conn) closeNow() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.sock != nil {
			_ = c.sock.CloseNow()
		}
	})
}
