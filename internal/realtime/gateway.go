package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/metrics"
	"github.com/rryowa/authsession/internal/service"
)

const (
	maxFrameBytes     = 16 << 10
	eventWriteTimeout = 5 * time.Second
)

// Authenticator is the part of the auth service the socket guard needs.
type Authenticator interface {
	VerifyAccessToken(token string) (service.AccessClaims, error)
	SessionActive(ctx context.Context, userID, sessionID string) (bool, error)
}

// Gateway upgrades /ws requests and admits a connection only after the
// presented access token maps to a live session.
type Gateway struct {
	auth             Authenticator
	hub              *Hub
	handshakeTimeout time.Duration
	originPatterns   []string
	log              *zap.SugaredLogger
}

func NewGateway(
	auth Authenticator,
	hub *Hub,
	handshakeTimeout time.Duration,
	originPatterns []string,
	log *zap.SugaredLogger,
) *Gateway {
	return &Gateway{
		auth:             auth,
		hub:              hub,
		handshakeTimeout: handshakeTimeout,
		originPatterns:   originPatterns,
		log:              log,
	}
}

type handshakeResult struct {
	claims service.AccessClaims
	err    error
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Server read/write timeouts would otherwise cut long-lived sockets.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Warnw("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	claims, err := g.handshake(ctx, r, conn)
	if err != nil {
		g.refuse(conn, err)
		return
	}

	client := newClient(claims.UserID, claims.SessionID, conn, cancel)
	g.hub.Register(client)
	defer g.hub.Unregister(client)

	// A logout that ran between the handshake lookup and Register found no
	// socket to close, so the session is checked once more now it is visible.
	if err := g.confirm(ctx, claims); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			metrics.ObserveHandshake(strings.ToLower(CodeSessionRevoked))
			client.revoke(CodeSessionRevoked, "session revoked")
			return
		}
		client.closeOnce.Do(func() { g.refuse(conn, err) })
		return
	}

	metrics.ObserveHandshake("accepted")
	g.log.Infow("socket admitted", "userID", claims.UserID, "sessionID", claims.SessionID)

	if err := g.write(ctx, conn, Event{Type: EventReady, SessionID: claims.SessionID}); err != nil {
		return
	}
	g.serve(ctx, conn)
	client.closeOnce.Do(func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") })
}

// handshake authenticates the connection. The whole exchange, including
// waiting for a first auth frame, is bounded by handshakeTimeout and fails
// closed with ErrHandshakeTimeout.
func (g *Gateway) handshake(ctx context.Context, r *http.Request, conn *websocket.Conn) (service.AccessClaims, error) {
	deadline, cancel := context.WithTimeout(ctx, g.handshakeTimeout)
	defer cancel()

	done := make(chan handshakeResult, 1)
	go func() {
		claims, err := g.authenticate(ctx, deadline, r, conn)
		done <- handshakeResult{claims: claims, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(deadline.Err(), context.DeadlineExceeded) {
			return service.AccessClaims{}, service.ErrHandshakeTimeout
		}
		return res.claims, res.err
	case <-deadline.Done():
		if ctx.Err() != nil {
			return service.AccessClaims{}, ctx.Err()
		}
		return service.AccessClaims{}, service.ErrHandshakeTimeout
	}
}

// authenticate reads the first frame with the connection context, not the
// deadline: an expired read context makes the library close the socket
// before the error event can be written.
func (g *Gateway) authenticate(
	connCtx, deadline context.Context,
	r *http.Request,
	conn *websocket.Conn,
) (service.AccessClaims, error) {
	token := tokenFromRequest(r)
	if token == "" {
		var first Event
		if err := wsjson.Read(connCtx, conn, &first); err != nil {
			return service.AccessClaims{}, service.ErrNoToken
		}
		if first.Type != EventAuth || first.Auth == nil || first.Auth.Token == "" {
			return service.AccessClaims{}, service.ErrNoToken
		}
		token = first.Auth.Token
	}

	claims, err := g.auth.VerifyAccessToken(token)
	if err != nil {
		return service.AccessClaims{}, err
	}

	active, err := g.auth.SessionActive(deadline, claims.UserID, claims.SessionID)
	if err != nil {
		return service.AccessClaims{}, err
	}
	if !active {
		return service.AccessClaims{}, service.ErrSessionNotFound
	}
	return claims, nil
}

func (g *Gateway) confirm(ctx context.Context, claims service.AccessClaims) error {
	ctx, cancel := context.WithTimeout(ctx, g.handshakeTimeout)
	defer cancel()

	active, err := g.auth.SessionActive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return err
	}
	if !active {
		return service.ErrSessionNotFound
	}
	return nil
}

func (g *Gateway) refuse(conn *websocket.Conn, err error) {
	_, code, known := service.Classify(err)
	if !known && !errors.Is(err, context.Canceled) {
		g.log.Errorw("socket handshake failed", "error", err)
	}
	metrics.ObserveHandshake(strings.ToLower(code))

	ctx, cancel := context.WithTimeout(context.Background(), eventWriteTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, Event{Type: EventError, Code: code, Message: service.PublicMessage(err)})
	_ = conn.Close(websocket.StatusPolicyViolation, code)
}

// serve answers pings until the peer leaves or the hub revokes the session.
func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn) {
	for {
		var ev Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return
		}
		switch ev.Type {
		case EventPing:
			if err := g.write(ctx, conn, Event{Type: EventPong}); err != nil {
				return
			}
		default:
			if err := g.write(ctx, conn, Event{Type: EventError, Code: CodeUnsupported, Message: "unsupported event"}); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

// tokenFromRequest accepts "Authorization: Bearer <t>" or a ?token= query parameter.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	return r.URL.Query().Get("token")
}
