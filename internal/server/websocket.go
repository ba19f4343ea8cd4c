package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 5 * time.Second

type wsMessage struct {
	Type  string          `json:"type"`
	State *game.RoomState `json:"state,omitempty"`
}

// wsClient serializes writes; gorilla connections allow one writer at a time.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type wsHub struct {
	log    *logrus.Logger
	mu     sync.Mutex
	groups map[string]map[*wsClient]struct{}
	// pending holds rooms with a running push loop; true means another
	// change arrived since the loop last pushed.
	pending map[string]bool
}

func newWSHub(logger *logrus.Logger) *wsHub {
	return &wsHub{
		log:     logger,
		groups:  make(map[string]map[*wsClient]struct{}),
		pending: make(map[string]bool),
	}
}

// Schedule queues push for a room with subscribers and returns at once.
// Changes that arrive while a push runs collapse into one more push.
func (h *wsHub) Schedule(roomID string, push func(roomID string)) {
	h.mu.Lock()
	if len(h.groups[roomID]) == 0 {
		h.mu.Unlock()
		return
	}
	_, running := h.pending[roomID]
	h.pending[roomID] = true
	h.mu.Unlock()
	if !running {
		go h.drain(roomID, push)
	}
}

func (h *wsHub) drain(roomID string, push func(roomID string)) {
	for {
		h.mu.Lock()
		if !h.pending[roomID] {
			delete(h.pending, roomID)
			h.mu.Unlock()
			return
		}
		h.pending[roomID] = false
		h.mu.Unlock()
		push(roomID)
	}
}

func (h *wsHub) Add(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*wsClient]struct{})
		h.groups[roomID] = group
	}
	group[client] = struct{}{}
}

func (h *wsHub) Remove(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return
	}
	delete(group, client)
	_ = client.conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *wsHub) Subscribers(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[roomID])
}

func (h *wsHub) Send(client *wsClient, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return client.write(data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	clients := make([]*wsClient, 0, len(group))
	for client := range group {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Error("encode broadcast failed")
		return
	}
	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.Remove(roomID, client)
		}
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(s.cfg.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
		},
	}
}

func (s *Server) handleWebsocket(c *gin.Context) {
	roomID := c.Param("roomID")
	state, err := s.svc.GetRoomState(c.Request.Context(), roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}
	entry := s.log.WithFields(logrus.Fields{"room_id": roomID, "remote": c.Request.RemoteAddr})
	entry.Debug("ws connected")
	s.ws.Add(roomID, client)
	if err := s.ws.Send(client, wsMessage{Type: "snapshot", State: state}); err != nil {
		s.ws.Remove(roomID, client)
		return
	}
	go s.readWS(roomID, client, entry)
}

// readWS drains the connection until the peer goes away. Clients only
// receive over the socket; mutations go through the HTTP API.
func (s *Server) readWS(roomID string, client *wsClient, entry *logrus.Entry) {
	defer s.ws.Remove(roomID, client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			entry.WithError(err).Debug("ws disconnected")
			return
		}
	}
}

// roomChanged is the service change hook. It never waits on subscribers.
func (s *Server) roomChanged(roomID string) {
	s.ws.Schedule(roomID, s.broadcastRoom)
}

// broadcastRoom pushes the latest state of a room to its subscribers.
func (s *Server) broadcastRoom(roomID string) {
	if s.ws.Subscribers(roomID) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	state, err := s.svc.GetRoomState(ctx, roomID)
	if err != nil {
		if game.KindOf(err) == game.KindRoomNotFound {
			s.ws.Broadcast(roomID, wsMessage{Type: "deleted"})
			return
		}
		s.log.WithField("room_id", roomID).WithError(err).Warn("load room for broadcast failed")
		return
	}
	s.ws.Broadcast(roomID, wsMessage{Type: "snapshot", State: state})
}
