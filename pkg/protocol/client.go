// ABOUTME: WebSocket client for the mixcheck event stream
// ABOUTME: Handles connection, handshake, and message delivery
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventsPath is the WebSocket endpoint on a review server
const EventsPath = "/api/events"

const handshakeTimeout = 5 * time.Second

var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string // host:port
	ClientID   string // generated when empty
	Name       string
	DeviceInfo *DeviceInfo
	Logger     *zap.SugaredLogger
}

// Client represents a WebSocket watch client
type Client struct {
	config Config
	conn   *websocket.Conn
	logger *zap.SugaredLogger
	mu     sync.RWMutex

	// Events carries every message after the handshake
	Events chan Message

	server    ServerHello
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		logger: logger,
		Events: make(chan Message, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: EventsPath}
	c.logger.Infow("connecting", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    Version,
		DeviceInfo: c.config.DeviceInfo,
	}

	if err := c.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var serverMsg Message
	if err := json.Unmarshal(data, &serverMsg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if serverMsg.Type != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, serverMsg.Type)
	}

	var server ServerHello
	if err := serverMsg.DecodePayload(&server); err != nil {
		return err
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	c.logger.Infow("handshake complete", "server", server.Name, "server_id", server.ServerID)
	return nil
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and delivers incoming messages until the connection
// drops. Events is closed on return.
func (c *Client) readMessages() {
	defer close(c.Events)
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debugw("read error", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Debugw("ignoring non-text frame", "type", messageType)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warnw("failed to parse message", "error", err)
			continue
		}

		select {
		case c.Events <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// Watch connects and calls handler for every event until ctx ends or the
// server closes the stream.
func (c *Client) Watch(ctx context.Context, handler func(Message)) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.Events:
			if !ok {
				return nil
			}
			handler(msg)
		}
	}
}

// Server returns the server/hello received during the handshake
func (c *Client) Server() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.logger.Debugw("connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
