// Package gateway exposes the coordinator over WebSocket and a small HTTP API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/matrix-duel/internal/lobby"
	"github.com/park285/matrix-duel/internal/room"
	"github.com/park285/matrix-duel/pkg/duelproto"
)

// Service is the game surface the gateway drives.
type Service interface {
	CreateRoom(ctx context.Context, requester string) (string, error)
	ListRooms() []room.Summary
	Rooms() int
	Join(ctx context.Context, rawID, rawRole string, who room.Identity) error
	Pick(ctx context.Context, rawID string, role room.Role, who room.Identity, index int) error
	Restart(ctx context.Context, rawID string, who room.Identity) error
	Leave(ctx context.Context, rawID string, who room.Identity) error
	Disconnect(ctx context.Context, who room.Identity)
	Reject(who room.Identity, err error)
}

type Messages interface {
	Render(key string, data any) (string, error)
}

// Info is reported by /health.
type Info struct {
	Listen         string
	AllowedOrigins []string
	Fairness       bool
	RubberBand     bool
	Limiter        string
}

const (
	defaultReadLimit    = 4096
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	disconnectTimeout   = 5 * time.Second
)

type Server struct {
	svc  Service
	hub  *Hub
	info Info
	msgs Messages
	log  *zap.Logger

	origins      []string
	readLimit    int64
	writeTimeout time.Duration
	pingInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Server)

func WithMessages(m Messages) Option { return func(s *Server) { s.msgs = m } }
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

func NewServer(svc Service, hub *Hub, info Info, opts ...Option) *Server {
	s := &Server{
		svc:          svc,
		hub:          hub,
		info:         info,
		log:          zap.NewNop(),
		origins:      originPatterns(info.AllowedOrigins),
		readLimit:    defaultReadLimit,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Routes returns the full HTTP handler including CORS.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	api.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.info.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Retry-After"},
	})
	return c.Handler(r)
}

// Close ends every open event channel. HTTP shutdown does not reach hijacked connections.
func (s *Server) Close() { s.cancel() }

// HandleWS upgrades the request and runs one player's event channel until it closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(s.readLimit)

	who := room.Identity(uuid.NewString())
	c := s.hub.register(who)
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.log.Info("ws_connect", zap.String("identity", string(who)), zap.String("remote", r.RemoteAddr))

	go s.writeLoop(ctx, cancel, conn, c)
	s.readLoop(ctx, conn, who)

	cancel()
	s.hub.unregister(c)
	dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
	s.svc.Disconnect(dctx, who)
	dcancel()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.log.Info("ws_disconnect", zap.String("identity", string(who)))
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, who room.Identity) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Debug("ws_read_error", zap.String("identity", string(who)), zap.Error(err))
			}
			return
		}
		var env duelproto.Envelope
		if typ != websocket.MessageText || json.Unmarshal(data, &env) != nil {
			s.svc.Reject(who, room.ErrBadRequest)
			continue
		}
		s.dispatch(ctx, who, env)
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "send buffer full")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, s.writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			wcancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, s.writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				s.log.Debug("ws_ping_error", zap.String("identity", string(c.who)), zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, who room.Identity, env duelproto.Envelope) {
	var err error
	switch env.Event {
	case duelproto.EventJoinRoom:
		var p duelproto.JoinRoom
		if err = env.Decode(&p); err == nil {
			err = s.svc.Join(ctx, p.RoomID, p.Role, who)
		}
	case duelproto.EventPickRow:
		var p duelproto.PickRow
		if err = env.Decode(&p); err == nil {
			err = s.svc.Pick(ctx, p.RoomID, room.RoleA, who, indexOf(p.Row))
		}
	case duelproto.EventPickCol:
		var p duelproto.PickCol
		if err = env.Decode(&p); err == nil {
			err = s.svc.Pick(ctx, p.RoomID, room.RoleB, who, indexOf(p.Col))
		}
	case duelproto.EventRestartGame:
		var p duelproto.RoomRef
		if err = env.Decode(&p); err == nil {
			err = s.svc.Restart(ctx, p.RoomID, who)
		}
	case duelproto.EventLeaveRoom:
		var p duelproto.RoomRef
		if err = env.Decode(&p); err == nil {
			err = s.svc.Leave(ctx, p.RoomID, who)
		}
	default:
		s.svc.Reject(who, room.ErrBadRequest)
		return
	}

	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typeErr) {
		s.svc.Reject(who, room.ErrBadRequest)
		return
	}
	if err != nil {
		s.log.Debug("ws_action_error", zap.String("identity", string(who)), zap.String("event", env.Event), zap.Error(err))
	}
}

// indexOf maps a missing index to one that fails range validation.
func indexOf(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.CreateRoom(r.Context(), requesterKey(r))
	var limited *lobby.RateLimitedError
	switch {
	case errors.As(err, &limited):
		secs := limited.RetrySeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, duelproto.RateLimited{Error: s.rateLimitedText(secs), RetryAfter: secs}, s.log)
	case err != nil:
		s.log.Error("room_create_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, duelproto.ErrorResponse{Error: "internal"}, s.log)
	default:
		writeJSON(w, http.StatusCreated, duelproto.CreateRoomResponse{RoomID: id}, s.log)
	}
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.svc.ListRooms()
	resp := duelproto.ListRoomsResponse{Rooms: make([]duelproto.RoomSummary, 0, len(rooms))}
	for _, sum := range rooms {
		resp.Rooms = append(resp.Rooms, summaryOf(sum))
	}
	writeJSON(w, http.StatusOK, resp, s.log)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, duelproto.Health{
		OK:             true,
		Fairness:       s.info.Fairness,
		RubberBand:     s.info.RubberBand,
		Listen:         s.info.Listen,
		AllowedOrigins: s.info.AllowedOrigins,
		Rooms:          s.svc.Rooms(),
		Limiter:        s.info.Limiter,
	}, s.log)
}

func (s *Server) rateLimitedText(secs int) string {
	if s.msgs != nil {
		text, err := s.msgs.Render("rate_limited", map[string]any{"Seconds": secs})
		if err == nil {
			return text
		}
		s.log.Warn("message_render_error", zap.String("key", "rate_limited"), zap.Error(err))
	}
	return "rate_limited"
}

func writeJSON(w http.ResponseWriter, status int, v any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("response_encode_error", zap.Error(err))
	}
}

// requesterKey identifies a client for the creation cooldown.
func requesterKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// originPatterns turns configured origins into host patterns for the handshake check.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
