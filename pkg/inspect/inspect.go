// Package inspect streams live Planner/Segment/Block dumps to connected
// websocket clients, so a test harness or visualizer can watch the
// look-back loop converge in real time instead of only inspecting a
// static dump (spec §6 "JSON dump (for tests)"). Repurposes the
// teacher's moonraker WSClient/broadcast pattern for a single
// notify-style stream instead of a JSON-RPC object-status API.
package inspect

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trajplan/pkg/dump"
	"trajplan/pkg/planner"
	"trajplan/pkg/segment"
)

// Snapshotter supplies the planner state to dump on each broadcast
// tick. Passing the live segments separately from the Planner lets a
// caller choose which window (e.g. just the look-back region) to
// stream without the inspector reaching into planner internals.
type Snapshotter func() (*planner.Planner, []*segment.Segment, string)

// Server streams Planner dumps over websocket at a fixed interval.
type Server struct {
	snapshot Snapshotter
	interval time.Duration

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[int64]*client
	nextID  int64

	running    atomic.Bool
	httpServer *http.Server
}

// New creates a Server that calls snapshot every interval and
// broadcasts the resulting dump to every connected client.
func New(snapshot Snapshotter, interval time.Duration) *Server {
	return &Server{
		snapshot: snapshot,
		interval: interval,
		clients:  make(map[int64]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start serves the /inspect websocket endpoint on addr. It blocks until
// the server stops; run it in a goroutine.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/inspect", s.handleWebSocket)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	s.running.Store(true)

	go s.broadcastLoop()

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop closes every connected client and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.running.Store(false)

	s.mu.Lock()
	for _, c := range s.clients {
		c.close()
	}
	s.clients = make(map[int64]*client)
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("inspect: upgrade error: %v", err)
		return
	}

	id := atomic.AddInt64(&s.nextID, 1)
	c := &client{id: id, conn: conn, sendCh: make(chan []byte, 16), done: make(chan struct{})}

	s.mu.Lock()
	s.clients[id] = c
	s.mu.Unlock()

	go c.writePump()
	c.readPump(func() { s.removeClient(id) })
}

func (s *Server) removeClient(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

// broadcastLoop periodically snapshots and pushes the dump to every
// connected client, at the rate given to New.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for s.running.Load() {
		<-ticker.C
		s.Broadcast()
	}
}

// Broadcast snapshots the planner now and pushes the resulting dump to
// every connected client. Exposed separately from the ticker-driven
// loop so callers such as tests can push updates on demand.
func (s *Server) Broadcast() {
	s.mu.RLock()
	n := len(s.clients)
	s.mu.RUnlock()
	if n == 0 {
		return
	}

	p, segs, tag := s.snapshot()
	m := dump.Planner(p, segs, tag)
	data, err := dump.Marshal(m)
	if err != nil {
		log.Printf("inspect: marshal error: %v", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.send(data)
	}
}

// ClientCount reports how many websocket clients are currently
// connected.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

type client struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	mu     sync.Mutex
}

func (c *client) send(data []byte) {
	select {
	case c.sendCh <- data:
	case <-c.done:
	default:
		log.Printf("inspect: dropping dump to client %d (channel full)", c.id)
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump drains inbound messages (the protocol is push-only) until
// the connection closes, then calls onClose.
func (c *client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.close()
	}()

	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// MarshalSnapshot is a helper for callers that want the current dump
// bytes without standing up a websocket server.
func MarshalSnapshot(snapshot Snapshotter) ([]byte, error) {
	p, segs, tag := snapshot()
	return dump.Marshal(dump.Planner(p, segs, tag))
}
