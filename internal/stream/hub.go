// Package stream pushes scored reports to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"container-health/internal/metrics"
	"container-health/internal/monitor"
	"container-health/internal/util"
)

const (
	writeTimeout = 10 * time.Second

	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent on every tick.
type Message struct {
	Event string         `json:"event"`
	Data  monitor.Report `json:"data"`
}

// Hub samples the monitor every interval while at least one client is
// connected and broadcasts the report to all of them.
type Hub struct {
	monitor  *monitor.Monitor
	logger   *util.ServiceLogger
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func New(mon *monitor.Monitor, interval time.Duration, logger *util.ServiceLogger) *Hub {
	if logger == nil {
		logger = &util.ServiceLogger{}
	}
	return &Hub{
		monitor:  mon,
		logger:   logger,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			if h.Count() == 0 {
				continue
			}
			h.broadcast(ctx)
		}
	}
}

// ServeHTTP upgrades the connection and blocks until the client goes away.
// The latest report, if any, is sent right after the upgrade.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_WARN, "websocket upgrade failed:", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if latest, ok := h.monitor.Latest(); ok {
		if data, err := encode(latest); err == nil {
			h.mu.RLock()
			if _, live := h.clients[c]; live {
				trySend(c, data)
			}
			h.mu.RUnlock()
		}
	}

	go c.writePump()
	c.readPump()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	metrics.StreamClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.StreamClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *Hub) broadcast(ctx context.Context) {
	report, err := h.monitor.Sample(ctx)
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_WARN, "stream sample failed:", err)
		return
	}
	data, err := encode(report)
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_ERROR, "stream encode failed:", err)
		return
	}

	// send is only closed under the write lock, so every channel in the map
	// stays open while the read lock is held.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		if !trySend(c, data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

// trySend queues data without blocking. Callers must hold h.mu and know c is
// still registered.
func trySend(c *client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func encode(report monitor.Report) ([]byte, error) {
	return json.Marshal(Message{Event: "report", Data: report})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.StreamClients.Set(0)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames and detects disconnects.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
