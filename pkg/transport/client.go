// PayChat - client core for the Sello Pay assistant widget
// License: MIT
//
// Copyright (c) 2026 PayChat contributors

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"paychat/pkg/events"
	"paychat/pkg/logger"
	"paychat/pkg/session"
)

// Client owns the single live socket handle and the authenticated HTTP
// helper. Decoded socket events go out through the inbound queue; the client
// never touches conversation state directly.
type Client struct {
	baseURL          string
	socketURL        string
	handshakeTimeout time.Duration
	sess             *session.Context
	httpClient       *http.Client
	queue            *events.Queue

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewClient(baseURL, socketURL string, handshakeTimeout, requestTimeout time.Duration, sess *session.Context, queue *events.Queue) *Client {
	return &Client{
		baseURL:          baseURL,
		socketURL:        socketURL,
		handshakeTimeout: handshakeTimeout,
		sess:             sess,
		queue:            queue,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Connect dials the event socket, replacing any prior handle. A missing
// endpoint or token is not an error: the client just stays disconnected.
func (c *Client) Connect() error {
	if c.socketURL == "" || c.sess == nil || c.sess.Token == "" {
		logger.WarnC("transport", "Socket endpoint or token missing, staying disconnected")
		return nil
	}

	endpoint, err := url.Parse(c.socketURL)
	if err != nil {
		return fmt.Errorf("invalid socket URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("token", c.sess.Token)
	endpoint.RawQuery = query.Encode()

	// Drop any previous handle before dialing so at most one is ever live.
	c.closeConn()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.handshakeTimeout,
	}

	conn, _, err := dialer.Dial(endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to event socket: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	logger.InfoCF("transport", "Event socket connected", map[string]interface{}{
		"url": c.socketURL,
	})
	c.queue.Publish(events.Connected{})

	go c.listen(conn)

	return nil
}

// Disconnect closes the live handle. Safe to call repeatedly; a close the
// user asked for never produces a connectivity-loss event.
func (c *Client) Disconnect() {
	if c.closeConn() {
		logger.InfoC("transport", "Event socket disconnected")
	}
}

func (c *Client) closeConn() bool {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn == nil {
		return false
	}
	if err := conn.Close(); err != nil {
		logger.WarnCF("transport", "Error closing event socket", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	return true
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) listen(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(conn, err)
			return
		}

		evt, err := events.Decode(raw)
		if err != nil {
			// Malformed or unrecognized frames are dropped here; the user
			// never sees them.
			logger.WarnCF("transport", "Dropping undecodable frame", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			continue
		}

		logger.DebugCF("transport", "Event received", map[string]interface{}{
			logger.FieldEventType: evt.EventType(),
		})
		c.queue.Publish(evt)
	}
}

func (c *Client) handleReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()

	// A handle we already replaced or closed locally reports nothing.
	if !current || errors.Is(err, net.ErrClosed) {
		return
	}

	code := websocket.CloseNoStatusReceived
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
	}

	logger.WarnCF("transport", "Event socket closed by peer", map[string]interface{}{
		logger.FieldCloseCode: code,
		logger.FieldError:     err.Error(),
	})
	c.queue.Publish(events.Disconnected{Code: code, Reason: err.Error()})
}

// Request issues an authenticated JSON POST against the API. Non-2xx
// responses come back as *HTTPError with the status and body text.
func (c *Client) Request(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sess != nil && c.sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.sess.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var status struct {
		OK      bool   `json:"ok"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if !status.OK {
		return fmt.Errorf("service %q reported unhealthy", status.Service)
	}
	return nil
}
