// ABOUTME: WebSocket event hub for review watchers
// ABOUTME: Performs the hello handshake and fans workflow events out to clients
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/protocol"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	helloTimeout  = 5 * time.Second
	sendBuffer    = 64
	recentEvents  = 8
)

var errSendBufferFull = errors.New("client send buffer full")

// Watcher is a connected event client
type Watcher struct {
	ID          string
	Name        string
	Conn        *websocket.Conn
	ConnectedAt time.Time

	sendChan chan protocol.Message
	done     chan struct{}
}

// Hub tracks watchers and broadcasts events. It implements review.Notifier.
type Hub struct {
	serverID string
	name     string
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	watchers map[string]*Watcher
	recent   []protocol.Message
	files    *board
	closed   bool
	wg       sync.WaitGroup

	onChange func()
}

// NewHub creates an event hub
func NewHub(serverID, name string, logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		serverID: serverID,
		name:     name,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Review servers run on trusted local networks
				if origin := r.Header.Get("Origin"); origin != "" {
					logger.Debugw("accepting websocket origin", "origin", origin)
				}
				return true
			},
		},
		watchers: make(map[string]*Watcher),
		files:    newBoard(),
	}
}

// Notify broadcasts msg to every watcher. Slow watchers drop the message
// rather than stall the workflow.
func (h *Hub) Notify(msg protocol.Message) {
	h.mu.Lock()
	h.files.apply(msg, time.Now())
	h.recent = append(h.recent, msg)
	if len(h.recent) > recentEvents {
		h.recent = h.recent[len(h.recent)-recentEvents:]
	}
	watchers := make([]*Watcher, 0, len(h.watchers))
	for _, w := range h.watchers {
		watchers = append(watchers, w)
	}
	h.mu.Unlock()

	for _, w := range watchers {
		if err := h.send(w, msg); err != nil {
			h.logger.Warnw("dropping event", "watcher", w.Name, "type", msg.Type, "error", err)
		}
	}
	h.changed()
}

// Watchers returns a snapshot of connected watchers
func (h *Hub) Watchers() []*Watcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Watcher, 0, len(h.watchers))
	for _, w := range h.watchers {
		out = append(out, w)
	}
	return out
}

// Recent returns the last few broadcast events, oldest first
func (h *Hub) Recent() []protocol.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]protocol.Message, len(h.recent))
	copy(out, h.recent)
	return out
}

// Files returns the latest state of every file seen in an event, most
// recently updated first
func (h *Hub) Files() []FileRow {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.files.snapshot()
}

// Close disconnects every watcher and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, w := range h.watchers {
		w.Conn.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) changed() {
	h.mu.RLock()
	onChange := h.onChange
	h.mu.RUnlock()
	if onChange != nil {
		onChange()
	}
}

func (h *Hub) send(w *Watcher, msg protocol.Message) error {
	select {
	case w.sendChan <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// ServeHTTP upgrades the request and serves one watcher
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade error", "error", err)
		return
	}

	h.logger.Debugw("new websocket connection", "remote", r.RemoteAddr)
	h.handleConnection(conn)
}

// handleConnection manages a watcher connection
func (h *Hub) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		h.logger.Debugw("error reading hello", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	if msg.Type != protocol.TypeClientHello {
		h.logger.Debugw("expected client/hello", "got", msg.Type)
		return
	}

	var hello protocol.ClientHello
	if err := msg.DecodePayload(&hello); err != nil {
		h.logger.Debugw("bad client hello", "error", err)
		return
	}
	if hello.ClientID == "" {
		h.logger.Debugw("client hello missing client id")
		return
	}

	watcher := &Watcher{
		ID:          hello.ClientID,
		Name:        hello.Name,
		Conn:        conn,
		ConnectedAt: time.Now(),
		sendChan:    make(chan protocol.Message, sendBuffer),
		done:        make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if existing, ok := h.watchers[watcher.ID]; ok {
		h.mu.Unlock()
		h.logger.Warnw("duplicate client id rejected", "client_id", watcher.ID, "existing", existing.Name)
		data, _ := json.Marshal(protocol.Message{
			Type:    "server/error",
			Payload: map[string]string{"error": "duplicate_client_id"},
		})
		conn.WriteMessage(websocket.TextMessage, data)
		return
	}
	h.watchers[watcher.ID] = watcher
	h.wg.Add(1)
	h.mu.Unlock()

	h.logger.Infow("watcher connected", "name", watcher.Name, "client_id", watcher.ID)
	h.changed()

	defer func() {
		h.mu.Lock()
		delete(h.watchers, watcher.ID)
		h.mu.Unlock()
		h.logger.Infow("watcher disconnected", "name", watcher.Name)
		h.changed()
		h.wg.Done()
	}()

	reply := protocol.Message{
		Type:    protocol.TypeServerHello,
		Payload: protocol.ServerHello{ServerID: h.serverID, Name: h.name, Version: protocol.Version},
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(reply); err != nil {
		h.logger.Debugw("error sending server hello", "error", err)
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.clientWriter(watcher)
	}()

	// Watchers only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debugw("websocket error", "error", err)
			}
			break
		}
	}

	close(watcher.done)
	<-writerDone
}

// clientWriter sends queued messages and keepalive pings
func (h *Hub) clientWriter(w *Watcher) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case msg := <-w.sendChan:
			w.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := w.Conn.WriteJSON(msg); err != nil {
				h.logger.Debugw("error writing message", "watcher", w.Name, "error", err)
				return
			}

		case <-ticker.C:
			if err := w.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
