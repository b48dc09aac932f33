package chatclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/coursechat/pkg/messages"
)

const (
	DefaultBaseDelay        = time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultMaxAttempts      = 5
	DefaultRequestTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultChatPath         = "/chat"
	DefaultAPIPath          = "/api"
	DefaultSeenCapacity     = 10000
)

// Config identifies the server, room and user of a client.
type Config struct {
	BaseURL string
	Room    string
	UserID  string

	// ChatPath and APIPath are where the chat and messages routers are mounted.
	ChatPath string
	APIPath  string

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration

	// SeenCapacity bounds how many message ids are kept for de-duplication.
	SeenCapacity int
}

func (c Config) withDefaults() Config {
	if c.ChatPath == "" {
		c.ChatPath = DefaultChatPath
	}
	if c.APIPath == "" {
		c.APIPath = DefaultAPIPath
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.SeenCapacity <= 0 {
		c.SeenCapacity = DefaultSeenCapacity
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

func (c Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base url %q", ErrInvalidConfig, c.BaseURL)
	}
	if c.Room == "" || c.UserID == "" {
		return errors.Join(ErrInvalidConfig, errors.New("room and user id are required"))
	}
	return nil
}

// Handlers receive client events. Any of them may be nil.
// They are called from the client's goroutines, one event at a time per stream.
type Handlers struct {
	OnConnected    func()
	OnDisconnected func(err error)
	OnMessage      func(msg messages.Message)
	OnDelete       func(id string)
	OnExhausted    func(err error)
}

func (h Handlers) connected() {
	if h.OnConnected != nil {
		h.OnConnected()
	}
}

func (h Handlers) disconnected(err error) {
	if h.OnDisconnected != nil {
		h.OnDisconnected(err)
	}
}

func (h Handlers) message(msg messages.Message) {
	if h.OnMessage != nil {
		h.OnMessage(msg)
	}
}

func (h Handlers) deleted(id string) {
	if h.OnDelete != nil {
		h.OnDelete(id)
	}
}

func (h Handlers) exhausted(err error) {
	if h.OnExhausted != nil {
		h.OnExhausted(err)
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient replaces the HTTP client. The client must not set a Timeout,
// since the stream request stays open for the whole session.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBackoff replaces the reconnect delay strategy.
func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}
