package gateway

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/matrix-duel/internal/room"
)

const defaultSendBuffer = 64

// Hub routes room events to live connections. A connection whose send buffer
// is full is dropped rather than allowed to stall the room.
type Hub struct {
	mu      sync.RWMutex
	clients map[room.Identity]*client
	rooms   map[string]map[room.Identity]struct{}

	sendBuffer int
	log        *zap.Logger
}

type client struct {
	who  room.Identity
	send chan []byte
	once sync.Once
}

func (c *client) close() { c.once.Do(func() { close(c.send) }) }

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[room.Identity]*client),
		rooms:      make(map[string]map[room.Identity]struct{}),
		sendBuffer: defaultSendBuffer,
		log:        log,
	}
}

func (h *Hub) register(who room.Identity) *client {
	c := &client{who: who, send: make(chan []byte, h.sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[who]; ok {
		old.close()
	}
	h.clients[who] = c
	return c
}

// unregister forgets c and every room membership of its identity.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.who] != c {
		return
	}
	delete(h.clients, c.who)
	for id, members := range h.rooms {
		delete(members, c.who)
		if len(members) == 0 {
			delete(h.rooms, id)
		}
	}
	c.close()
}

func (h *Hub) Join(roomID string, who room.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[roomID]
	if members == nil {
		members = make(map[room.Identity]struct{})
		h.rooms[roomID] = members
	}
	members[who] = struct{}{}
}

func (h *Hub) Leave(roomID string, who room.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[roomID]
	delete(members, who)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) ToRoom(roomID string, ev room.Event) {
	msg, err := encode(roomID, ev)
	if err != nil {
		h.log.Error("event_encode_error", zap.String("room", roomID), zap.String("event", string(ev.Kind)), zap.Error(err))
		return
	}
	h.mu.RLock()
	var slow []*client
	for who := range h.rooms[roomID] {
		if c, ok := h.clients[who]; ok && !h.push(c, msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	h.dropSlow(slow)
}

func (h *Hub) ToIdentity(who room.Identity, ev room.Event) {
	msg, err := encode("", ev)
	if err != nil {
		h.log.Error("event_encode_error", zap.String("identity", string(who)), zap.String("event", string(ev.Kind)), zap.Error(err))
		return
	}
	h.mu.RLock()
	c, ok := h.clients[who]
	full := ok && !h.push(c, msg)
	h.mu.RUnlock()
	if full {
		h.dropSlow([]*client{c})
	}
}

// push must run under h.mu so a concurrent unregister cannot close c.send.
func (h *Hub) push(c *client, msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) dropSlow(slow []*client) {
	for _, c := range slow {
		h.log.Warn("client_send_buffer_full", zap.String("identity", string(c.who)))
		h.unregister(c)
	}
}

// Members lists identities subscribed to roomID.
func (h *Hub) Members(roomID string) []room.Identity {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]room.Identity, 0, len(h.rooms[roomID]))
	for who := range h.rooms[roomID] {
		out = append(out, who)
	}
	return out
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
