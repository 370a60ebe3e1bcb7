package buildwatch

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/vango-dev/staticrouter/pkg/metrics"
)

// MessageTypeBuild announces the current build.
const MessageTypeBuild = "build"

const writeTimeout = 5 * time.Second

// Message is sent to clients as JSON text frames.
type Message struct {
	Type    string `json:"type"`
	BuildID string `json:"build_id"`
}

// HubConfig configures a Hub.
type HubConfig struct {
	// BuildID is announced to clients until Publish is called.
	BuildID string

	// CheckOrigin validates the Origin header. Default: same host only,
	// as enforced by websocket.Upgrader.
	CheckOrigin func(r *http.Request) bool

	// Logger receives connection records. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// peer is one connection. Writes are serialized per peer.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket clients waiting for build changes.
type Hub struct {
	mu       sync.RWMutex
	peers    map[*peer]bool
	upgrader websocket.Upgrader
	current  atomic.String
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewHub creates a hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Hub{
		peers: make(map[*peer]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger:  cfg.Logger.With("component", "buildwatch"),
		metrics: cfg.Metrics,
	}
	h.current.Store(cfg.BuildID)
	return h
}

// BuildID returns the last announced build id.
func (h *Hub) BuildID() string { return h.current.Load() }

// ServeHTTP upgrades the request and keeps the connection until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}
	p := &peer{conn: conn}

	h.mu.Lock()
	h.peers[p] = true
	h.mu.Unlock()
	h.metrics.BuildwatchConnected(1)

	if data, err := encode(h.BuildID()); err == nil {
		if err := p.write(data); err != nil {
			h.drop(p)
			return
		}
	}

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(p)
}

// Publish records id as the current build and sends it to every client.
func (h *Hub) Publish(id string) {
	h.current.Store(id)
	data, err := encode(id)
	if err != nil {
		h.logger.Error("encode build message", "error", err)
		return
	}

	h.mu.RLock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	for _, p := range peers {
		if err := p.write(data); err != nil {
			h.drop(p)
		}
	}
	h.metrics.BuildwatchBroadcast()
	h.logger.Info("build published", "build_id", id, "clients", len(peers))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*peer]bool)
	h.mu.Unlock()

	for p := range peers {
		p.conn.Close()
		h.metrics.BuildwatchConnected(-1)
	}
}

// drop removes p once; later calls are no-ops.
func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	h.mu.Unlock()
	if ok {
		p.conn.Close()
		h.metrics.BuildwatchConnected(-1)
	}
}

func encode(id string) ([]byte, error) {
	return json.Marshal(Message{Type: MessageTypeBuild, BuildID: id})
}
