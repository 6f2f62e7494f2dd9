package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
	"github.com/nerrad567/gray-logic-dmx/internal/event"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dmx/internal/show"
)

// Message types on the event stream.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSKindAll subscribes a client to every event kind.
	WSKindAll = "*"
)

// wsSendBufferSize is the per-client outbound queue. Frame updates arrive
// at 30 per second, so this holds about 8s of them.
const wsSendBufferSize = 256

// wsTimeLayout keeps millisecond precision; frames are 33ms apart.
const wsTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// WSRequest is a client message.
//
// Universes narrows universe-scoped events (channel writes, clears,
// applied frames, universe errors) to the listed universes. On subscribe
// it replaces the current filter when present; an empty list removes it.
type WSRequest struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Kinds     []string `json:"kinds"`
	Universes []int    `json:"universes"`
}

// WSMessage is a server message.
type WSMessage struct {
	Type string     `json:"type"`
	ID   string     `json:"id,omitempty"`
	Kind event.Kind `json:"kind,omitempty"`
	Time string     `json:"time,omitempty"`
	Data any        `json:"data,omitempty"`
}

// subscriptionView is returned after subscribe and unsubscribe.
type subscriptionView struct {
	Kinds     []string `json:"kinds"`
	Universes []int    `json:"universes"`
}

// Hub fans engine events out to WebSocket clients.
//
// Publish runs on the engine's event loop, so it never blocks: an event is
// marshalled only when some client wants it, and a client whose queue is
// full misses it. Dropped reports how many deliveries were missed.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	dropped atomic.Uint64
}

// wsClient is one connected socket and its subscription filter.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	filter wsFilter
}

// wsFilter decides which events a client receives.
type wsFilter struct {
	all       bool
	kinds     map[event.Kind]struct{}
	universes map[int]struct{} // empty: every universe
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

func (h *Hub) attach(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// detach removes c. Only the caller that actually removes it closes the
// send queue, so concurrent detach and closeAll cannot double-close.
func (h *Hub) detach(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// Publish delivers e to every client whose filter accepts it.
func (h *Hub) Publish(e event.Event) {
	kind := e.Kind()
	universes := eventUniverses(e)

	h.mu.RLock()
	var targets []*wsClient
	for c := range h.clients {
		if c.wants(kind, universes) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(WSMessage{
		Type: WSTypeEvent,
		Kind: kind,
		Time: time.Now().UTC().Format(wsTimeLayout),
		Data: e,
	})
	if err != nil {
		h.logger.Error("marshalling websocket event", "kind", string(kind), "error", err)
		return
	}

	for _, c := range targets {
		if !c.offer(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many event deliveries were skipped because a
// client's queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// hasSubscribers reports whether any client receives kind from at least
// one universe.
func (h *Hub) hasSubscribers(kind event.Kind) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.RLock()
		ok := c.filter.hasKind(kind)
		c.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// eventUniverses lists the universes e concerns. Nil means e is not
// universe-scoped and passes every universe filter.
func eventUniverses(e event.Event) []int {
	switch v := e.(type) {
	case dmx.ChannelUpdate:
		return []int{v.Universe}
	case dmx.BulkUpdate:
		return []int{v.Universe}
	case dmx.UniverseCleared:
		return []int{v.Universe}
	case show.FrameApplied:
		ids := make([]int, 0, len(v.Frame.UniverseValues))
		for id := range v.Frame.UniverseValues {
			ids = append(ids, id)
		}
		return ids
	case diagnostics.ErrorRecorded:
		if v.Universe != nil {
			return []int{*v.Universe}
		}
	}
	return nil
}

func (f *wsFilter) hasKind(kind event.Kind) bool {
	if f.all {
		return true
	}
	_, ok := f.kinds[kind]
	return ok
}

func (f *wsFilter) accepts(kind event.Kind, universes []int) bool {
	if !f.hasKind(kind) {
		return false
	}
	if universes == nil || len(f.universes) == 0 {
		return true
	}
	for _, u := range universes {
		if _, ok := f.universes[u]; ok {
			return true
		}
	}
	return false
}

func (f *wsFilter) view() subscriptionView {
	v := subscriptionView{Kinds: []string{}, Universes: []int{}}
	if f.all {
		v.Kinds = append(v.Kinds, WSKindAll)
	}
	for k := range f.kinds {
		v.Kinds = append(v.Kinds, string(k))
	}
	for u := range f.universes {
		v.Universes = append(v.Universes, u)
	}
	slices.Sort(v.Kinds)
	slices.Sort(v.Universes)
	return v
}

func (c *wsClient) wants(kind event.Kind, universes []int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.accepts(kind, universes)
}

// offer queues data without blocking. It reports false when the queue is
// full or the client has already gone.
func (c *wsClient) offer(data []byte) (sent bool) {
	defer func() {
		if recover() != nil { // send on a queue closed by detach
			sent = false
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// handleWebSocket upgrades to the event stream. The socket is authorised
// by a single-use ticket from POST /ws/ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	if !s.tickets.consume(ticket, time.Now()) {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		filter: wsFilter{kinds: map[event.Kind]struct{}{}, universes: map[int]struct{}{}},
	}
	s.hub.attach(c)

	go c.writeLoop(s.wsCfg)
	go c.readLoop(s.wsCfg)
}

func (c *wsClient) readLoop(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(time.Now().Add(idle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any message counts.
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(time.Now().Add(idle))
		c.dispatch(data)
	}
}

func (c *wsClient) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	for {
		select {
		case data, ok := <-c.send:
			//nolint:errcheck // a failed deadline surfaces as a write error
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint:errcheck // connection is closing anyway
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			//nolint:errcheck // a failed deadline surfaces as a write error
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) dispatch(data []byte) {
	var req WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorBody("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe:
		c.subscribe(req)
	case WSTypeUnsubscribe:
		c.unsubscribe(req)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorBody("unknown message type: "+req.Type))
	}
}

func (c *wsClient) subscribe(req WSRequest) {
	if len(req.Kinds) == 0 && req.Universes == nil {
		c.reply(req.ID, WSTypeError, errorBody("kinds or universes required"))
		return
	}
	for _, k := range req.Kinds {
		if k != WSKindAll && !event.Kind(k).Valid() {
			c.reply(req.ID, WSTypeError, errorBody("unknown event kind: "+k))
			return
		}
	}
	for _, u := range req.Universes {
		if !dmx.ValidUniverse(u) {
			c.reply(req.ID, WSTypeError, errorBody("universe out of range"))
			return
		}
	}

	c.mu.Lock()
	for _, k := range req.Kinds {
		if k == WSKindAll {
			c.filter.all = true
			continue
		}
		c.filter.kinds[event.Kind(k)] = struct{}{}
	}
	if req.Universes != nil {
		c.filter.universes = make(map[int]struct{}, len(req.Universes))
		for _, u := range req.Universes {
			c.filter.universes[u] = struct{}{}
		}
	}
	view := c.filter.view()
	c.mu.Unlock()

	c.reply(req.ID, WSTypeResponse, view)
}

func (c *wsClient) unsubscribe(req WSRequest) {
	c.mu.Lock()
	for _, k := range req.Kinds {
		if k == WSKindAll {
			c.filter.all = false
			continue
		}
		delete(c.filter.kinds, event.Kind(k))
	}
	view := c.filter.view()
	c.mu.Unlock()

	c.reply(req.ID, WSTypeResponse, view)
}

func (c *wsClient) reply(id, msgType string, data any) {
	msg, err := json.Marshal(WSMessage{
		Type: msgType,
		ID:   id,
		Time: time.Now().UTC().Format(wsTimeLayout),
		Data: data,
	})
	if err != nil {
		return
	}
	c.offer(msg)
}

func errorBody(message string) map[string]string {
	return map[string]string{"message": message}
}
