package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var feedJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the read-only per-tick payload broadcast to connected
// viewers. It never carries anything an allocator or agent would consume —
// it exists purely for external observers.
type Snapshot struct {
	SimTime float64          `json:"sim_time"`
	Tick    int              `json:"tick"`
	Agents  []AgentSnapshot  `json:"agents"`
	Tasks   []TaskSnapshot   `json:"tasks"`
}

type AgentSnapshot struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

type TaskSnapshot struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Amount    float64 `json:"amount"`
	Completed bool    `json:"completed"`
}

// Feed is a single-writer websocket broadcaster: one goroutine per
// connected client drains its own outbound channel, and Publish fans the
// latest snapshot out to all of them without blocking the simulation loop.
type Feed struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	last    Snapshot
}

type client struct {
	conn *websocket.Conn
	out  chan Snapshot
}

// NewFeed creates an empty feed. Call its ServeHTTP on an *http.ServeMux to
// accept viewer connections.
func NewFeed() *Feed {
	return &Feed{clients: make(map[*client]struct{})}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] telemetry: websocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c := &client{conn: conn, out: make(chan Snapshot, 8)}
	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()

	go f.readPump(c)
	go f.writePump(c)
}

// readPump discards any client messages (the feed is one-directional) but
// must keep draining the connection so close frames and pongs are seen.
func (f *Feed) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		f.mu.Lock()
		delete(f.clients, c)
		f.mu.Unlock()
	}()

	for {
		select {
		case snap, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := feedJSON.Marshal(snap)
			if err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish fans out snap to every connected client. A client whose buffer
// is full misses this snapshot rather than blocking the caller; it stays
// connected.
func (f *Feed) Publish(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = snap
	for c := range f.clients {
		select {
		case c.out <- snap:
		default:
			log.Printf("[WARN] telemetry: dropping snapshot for slow feed client")
		}
	}
}
