package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ethdenver2026/uristore/internal/apierr"
)

// Reconnect tuning: bounded exponential backoff with a
// caller-specified cap.
const (
	initialReconnectDelay    = time.Second
	reconnectDelayMultiplier = 2
)

// pendingRequest tracks one in-flight call awaiting its response frame.
type pendingRequest struct {
	resp chan ResponseFrame
}

// Client is a reconnecting WebSocket client for the record-store WS
// API. Reconnect uses bounded exponential backoff; requests pending
// when the socket drops are answered at once with an unsuccessful
// ResponseFrame carrying the read error, rather than hanging forever.
type Client struct {
	url            *url.URL
	maxReconnects  int
	maxDelay       time.Duration
	requestTimeout time.Duration
	log            *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[string]pendingRequest
	closed   bool
	closeCh  chan struct{}
	closeErr error
}

// NewClient builds a client targeting urlStr. maxReconnects bounds the
// number of consecutive failed reconnect attempts before the client
// gives up (0 means unlimited); maxDelay caps the exponential backoff.
func NewClient(urlStr string, maxReconnects int, maxDelay time.Duration, log *slog.Logger) (*Client, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("ws: parsing url: %w", err)
	}
	return &Client{
		url:            u,
		maxReconnects:  maxReconnects,
		maxDelay:       maxDelay,
		requestTimeout: requestTimeout,
		log:            log,
		pending:        make(map[string]pendingRequest),
		closeCh:        make(chan struct{}),
	}, nil
}

// Connect dials the server and starts the reconnect-on-drop loop.
func (c *Client) Connect() error {
	if err := c.dial(); err != nil {
		return err
	}
	go c.readLoop()
	return nil
}

func (c *Client) dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.url.String(), nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		var resp ResponseFrame
		err := conn.ReadJSON(&resp)
		if err != nil {
			c.failAllPending(err)
			if !c.reconnectWithBackoff() {
				return
			}
			continue
		}
		c.deliver(resp)
	}
}

func (c *Client) reconnectWithBackoff() bool {
	delay := initialReconnectDelay
	attempt := 0
	for {
		select {
		case <-c.closeCh:
			return false
		default:
		}
		if c.maxReconnects > 0 && attempt >= c.maxReconnects {
			return false
		}
		time.Sleep(delay)
		if err := c.dial(); err == nil {
			return true
		}
		attempt++
		delay *= reconnectDelayMultiplier
		if delay > c.maxDelay && c.maxDelay > 0 {
			delay = c.maxDelay
		}
	}
}

func (c *Client) deliver(resp ResponseFrame) {
	c.mu.Lock()
	p, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if ok {
		p.resp <- resp
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]pendingRequest)
	c.mu.Unlock()

	for id, p := range pending {
		p.resp <- ResponseFrame{ID: id, Success: false, Error: err.Error()}
	}
}

// Call sends a request frame of the given type and blocks until the
// matching response arrives or requestTimeout elapses, in which case it
// returns RequestTimeout.
func (c *Client) Call(reqType string, payload interface{}) (ResponseFrame, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(payload)
	if err != nil {
		return ResponseFrame{}, apierr.Wrap(apierr.ValidationFailed, err)
	}

	respCh := make(chan ResponseFrame, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ResponseFrame{}, apierr.New(apierr.BackendUnavailable, "client is closed")
	}
	conn := c.conn
	c.pending[id] = pendingRequest{resp: respCh}
	c.mu.Unlock()

	if conn == nil {
		return ResponseFrame{}, apierr.New(apierr.BackendUnavailable, "not connected")
	}
	if err := conn.WriteJSON(RequestFrame{ID: id, Type: reqType, Payload: raw}); err != nil {
		return ResponseFrame{}, apierr.Wrap(apierr.BackendUnavailable, err)
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-time.After(c.requestTimeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ResponseFrame{}, apierr.New(apierr.RequestTimeout, "ws request timed out")
	}
}

// Close shuts down the client and fails any pending requests.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	close(c.closeCh)

	c.failAllPending(apierr.New(apierr.BackendUnavailable, "client closed"))
	if conn != nil {
		return conn.Close()
	}
	return nil
}
