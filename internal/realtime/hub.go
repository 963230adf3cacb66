package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/metrics"
)

const revokeWriteTimeout = time.Second

// Client is one authenticated socket bound to a session.
type Client struct {
	UserID    string
	SessionID string

	conn      *websocket.Conn
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(userID, sessionID string, conn *websocket.Conn, cancel context.CancelFunc) *Client {
	return &Client{UserID: userID, SessionID: sessionID, conn: conn, cancel: cancel}
}

// revoke tells the peer why and closes the connection. Safe to call more than once.
func (c *Client) revoke(code, reason string) {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), revokeWriteTimeout)
		defer cancel()
		_ = wsjson.Write(ctx, c.conn, Event{Type: EventError, Code: code, Message: reason})
		_ = c.conn.Close(websocket.StatusPolicyViolation, reason)
		c.cancel()
	})
}

// Hub indexes open sockets by session so revocation can reach them.
type Hub struct {
	mu        sync.Mutex
	bySession map[string]map[*Client]struct{}
	log       *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		bySession: make(map[string]map[*Client]struct{}),
		log:       log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.bySession[c.SessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.bySession[c.SessionID] = set
	}
	set[c] = struct{}{}
	metrics.SocketOpened()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.bySession[c.SessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.bySession, c.SessionID)
	}
	metrics.SocketClosed()
}

func (h *Hub) DisconnectSession(sessionID string) {
	h.mu.Lock()
	var victims []*Client
	for c := range h.bySession[sessionID] {
		victims = append(victims, c)
	}
	h.mu.Unlock()

	for _, c := range victims {
		h.log.Infow("closing socket for revoked session", "sessionID", sessionID, "userID", c.UserID)
		c.revoke(CodeSessionRevoked, "session revoked")
	}
}

func (h *Hub) DisconnectUser(userID string) {
	h.mu.Lock()
	var victims []*Client
	for _, set := range h.bySession {
		for c := range set {
			if c.UserID == userID {
				victims = append(victims, c)
			}
		}
	}
	h.mu.Unlock()

	for _, c := range victims {
		c.revoke(CodeSessionRevoked, "session revoked")
	}
}

// Count returns the number of open sockets bound to sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.bySession[sessionID])
}
