package websocket

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aescanero/pocketbus/pkg/bus"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultBufferSize is the number of events queued per client before events are dropped
const DefaultBufferSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The admin API is not exposed publicly
	},
}

// Envelope is the message written to tap clients for every event
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// TapMetrics receives the number of connected clients
type TapMetrics interface {
	SetTapClients(count int)
}

// Handler streams every event posted on the bus to WebSocket clients
type Handler struct {
	bus        *bus.Bus
	metrics    TapMetrics
	logger     *zap.Logger
	bufferSize int

	mu      sync.Mutex
	clients map[string]*tapClient
}

// tapClient is the subscription target for one connection
type tapClient struct {
	id      string
	types   map[string]bool
	send    chan Envelope
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewHandler creates a new WebSocket handler. A nil metrics disables the client gauge.
func NewHandler(b *bus.Bus, metrics TapMetrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		bus:        b,
		metrics:    metrics,
		logger:     logger,
		bufferSize: DefaultBufferSize,
		clients:    make(map[string]*tapClient),
	}
}

// HandleEventStream streams events to the client until it disconnects.
// The optional types query parameter restricts the stream to a comma
// separated list of event type names.
func (h *Handler) HandleEventStream(c *gin.Context) {
	// Upgrade connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	client := &tapClient{
		id:    uuid.New().String(),
		types: parseTypes(c.Query("types")),
		send:  make(chan Envelope, h.bufferSize),
	}

	sub := bus.NewSubscription(client, bus.Background, (*tapClient).forward)
	if err := h.bus.Register(sub); err != nil {
		h.logger.Error("failed to register tap client",
			zap.String("client_id", client.id),
			zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		return
	}
	h.track(client)

	defer func() {
		client.closed.Store(true)
		if err := h.bus.Unregister(sub); err != nil {
			h.logger.Error("failed to unregister tap client", zap.Error(err))
		}
		h.untrack(client)

		h.logger.Info("WebSocket connection closed",
			zap.String("client_id", client.id),
			zap.Uint64("dropped", client.dropped.Load()))
	}()

	h.logger.Info("WebSocket connection established",
		zap.String("client_id", client.id),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Clients only send control frames; a read error means they are gone
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send events to client
	for {
		select {
		case <-ctx.Done():
			return
		case envelope := <-client.send:
			if err := conn.WriteJSON(envelope); err != nil {
				h.logger.Error("failed to write message",
					zap.String("client_id", client.id),
					zap.Error(err))
				return
			}
		}
	}
}

// Clients returns the number of connected clients
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (h *Handler) track(client *tapClient) {
	h.mu.Lock()
	h.clients[client.id] = client
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetTapClients(count)
	}
}

func (h *Handler) untrack(client *tapClient) {
	h.mu.Lock()
	delete(h.clients, client.id)
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetTapClients(count)
	}
}

// forward queues event for the client without blocking the bus. Events are
// dropped while the client buffer is full.
func (t *tapClient) forward(event any) bool {
	if t.closed.Load() {
		return false
	}

	name := fmt.Sprintf("%T", event)
	if len(t.types) > 0 && !t.types[name] {
		return true
	}

	select {
	case t.send <- Envelope{Type: name, Data: event, Timestamp: time.Now()}:
	default:
		t.dropped.Add(1)
	}
	return true
}

func parseTypes(query string) map[string]bool {
	if query == "" {
		return nil
	}

	types := make(map[string]bool)
	for _, name := range strings.Split(query, ",") {
		if name = strings.TrimSpace(name); name != "" {
			types[name] = true
		}
	}
	return types
}
