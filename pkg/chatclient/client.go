package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/messages"
	"github.com/dmitrymomot/coursechat/pkg/requestid"
	"github.com/dmitrymomot/coursechat/pkg/statemachine"
)

// State is the connection state of a Client.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateExhausted means the reconnect budget is spent. Only an explicit
	// Connect leaves it.
	StateExhausted State = "exhausted"
)

type trigger string

const (
	triggerDial       trigger = "dial"
	triggerOpen       trigger = "open"
	triggerLost       trigger = "lost"
	triggerExhaust    trigger = "exhaust"
	triggerDisconnect trigger = "disconnect"
)

// Client subscribes one user to one room and keeps the subscription alive.
type Client struct {
	cfg      Config
	handlers Handlers
	log      *slog.Logger
	http     *http.Client
	backoff  Backoff
	fsm      *statemachine.Machine[State, trigger]

	mu       sync.Mutex
	parent   context.Context
	cancel   context.CancelFunc
	timer    *time.Timer
	attempts int
	gen      uint64
	stopped  bool

	seen *seenSet

	lastHeartbeat atomic.Int64
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Transport: &requestid.Transport{}}
}

// New creates a disconnected client.
func New(cfg Config, handlers Handlers, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		handlers: handlers,
		log:      logger.Noop(),
		http:     defaultHTTPClient(),
		backoff: ExponentialBackoff{
			InitialInterval: cfg.BaseDelay,
			MaxInterval:     cfg.MaxDelay,
			Multiplier:      2,
		},
		fsm: statemachine.New(StateDisconnected,
			statemachine.WithTransition(StateDisconnected, triggerDial, StateConnecting),
			statemachine.WithTransition(StateExhausted, triggerDial, StateConnecting),
			statemachine.WithTransition(StateConnecting, triggerOpen, StateConnected),
			statemachine.WithTransition(StateConnecting, triggerLost, StateDisconnected),
			statemachine.WithTransition(StateConnected, triggerLost, StateDisconnected),
			statemachine.WithTransition(StateDisconnected, triggerExhaust, StateExhausted),
			statemachine.WithTransition(StateConnecting, triggerDisconnect, StateDisconnected),
			statemachine.WithTransition(StateConnected, triggerDisconnect, StateDisconnected),
			statemachine.WithTransition(StateExhausted, triggerDisconnect, StateDisconnected),
		),
		parent: context.Background(),
		seen:   newSeenSet(cfg.SeenCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("chatclient"), logger.Room(cfg.Room), logger.UserID(cfg.UserID))
	return c, nil
}

// State returns the current connection state.
func (c *Client) State() State { return c.fsm.Current() }

// LastHeartbeat returns the time of the last heartbeat received, or zero.
func (c *Client) LastHeartbeat() time.Time {
	ms := c.lastHeartbeat.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Connect opens the stream and returns once the server confirmed the
// subscription. On failure the error is returned and a reconnect is scheduled
// as for any other transport error. Cancelling ctx tears the client down like
// Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if !c.fsm.CanFire(triggerDial) {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.parent = ctx
	c.stopped = false
	c.attempts = 0
	c.mu.Unlock()

	return c.dial()
}

// Disconnect closes the stream and cancels any pending reconnect.
// It is safe to call multiple times and from handlers.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if !c.fsm.Is(StateDisconnected) {
		_, _ = c.fsm.Fire(triggerDisconnect)
		c.log.Debug("disconnected")
	}
}

func (c *Client) dial() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return context.Canceled
	}
	if _, err := c.fsm.Fire(triggerDial); err != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	c.mu.Unlock()

	body, dec, err := c.open(ctx, cancel)
	if err != nil {
		cancel()
		c.fail(gen, err)
		return err
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		cancel()
		_ = body.Close()
		return context.Canceled
	}
	_, _ = c.fsm.Fire(triggerOpen)
	c.attempts = 0
	c.mu.Unlock()

	c.log.Debug("connected")
	c.handlers.connected()
	go c.read(gen, body, dec)
	return nil
}

// open performs the stream request and waits for the connected event.
func (c *Client) open(ctx context.Context, cancel context.CancelFunc) (io.ReadCloser, *Decoder, error) {
	q := url.Values{"room": {c.cfg.Room}, "userId": {c.cfg.UserID}}
	target := c.cfg.BaseURL + c.cfg.ChatPath + "/stream?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, nil, &StatusError{Kind: ErrStreamRejected, Status: resp.StatusCode}
	}

	watchdog := time.AfterFunc(c.cfg.HandshakeTimeout, cancel)
	dec := NewDecoder(resp.Body)
	frame, err := dec.Next()
	if !watchdog.Stop() {
		err = context.DeadlineExceeded
	}
	if err != nil {
		_ = resp.Body.Close()
		return nil, nil, errors.Join(ErrHandshakeFailed, err)
	}
	if ev, err := broadcast.DecodeEvent([]byte(frame.Data)); err != nil || ev.Type != broadcast.EventConnected {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: first event was %q", ErrHandshakeFailed, frame.Data)
	}
	return resp.Body, dec, nil
}

func (c *Client) read(gen uint64, body io.ReadCloser, dec *Decoder) {
	defer func() { _ = body.Close() }()
	for {
		frame, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrStreamClosed
			}
			c.fail(gen, err)
			return
		}
		c.handle(frame)
	}
}

// fail moves a live or opening stream of generation gen to disconnected and
// schedules the next attempt, or gives up once the budget is spent.
func (c *Client) fail(gen uint64, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	_, _ = c.fsm.Fire(triggerLost)
	if c.parent.Err() != nil {
		c.stopped = true
		c.mu.Unlock()
		c.log.Debug("context cancelled, not reconnecting")
		c.handlers.disconnected(cause)
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		_, _ = c.fsm.Fire(triggerExhaust)
		attempts := c.attempts
		c.mu.Unlock()
		c.log.Warn("giving up reconnecting", logger.RetryCount(attempts), logger.Error(cause))
		c.handlers.disconnected(cause)
		c.handlers.exhausted(cause)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	c.handlers.disconnected(cause)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stopped {
		return
	}
	delay := c.backoff.NextInterval(attempt)
	c.timer = time.AfterFunc(delay, func() { c.retry(gen) })
	c.log.Info("stream lost, reconnecting",
		logger.RetryCount(attempt),
		logger.Duration(delay),
		logger.Error(cause),
	)
}

func (c *Client) retry(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.stopped {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	_ = c.dial()
}

func (c *Client) handle(frame Frame) {
	ev, err := broadcast.DecodeEvent([]byte(frame.Data))
	if err != nil {
		c.log.Debug("ignoring undecodable event", logger.Error(err))
		return
	}

	switch ev.Type {
	case broadcast.EventHeartbeat:
		c.lastHeartbeat.Store(ev.Timestamp)

	case broadcast.EventMessage:
		var msg messages.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil || msg.ID == "" {
			c.log.Debug("ignoring malformed message event", logger.Error(err))
			return
		}
		if !c.seen.add(msg.ID) {
			c.log.Debug("dropping duplicate message", logger.MessageID(msg.ID))
			return
		}
		c.handlers.message(msg)

	case broadcast.EventDelete:
		id, ok := deletedID(ev.Data)
		if !ok {
			c.log.Debug("ignoring malformed delete event")
			return
		}
		c.handlers.deleted(id)

	case broadcast.EventConnected:

	default:
		c.log.Debug("ignoring unknown event", logger.EventType(string(ev.Type)))
	}
}

// deletedID accepts {"id":"..."} and a bare JSON string.
func deletedID(data json.RawMessage) (string, bool) {
	var payload broadcast.DeletePayload
	if err := json.Unmarshal(data, &payload); err == nil && payload.ID != "" {
		return payload.ID, true
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil && id != "" {
		return id, true
	}
	return "", false
}

// Remember records ids the caller already holds, such as history loaded from
// storage or its own optimistic messages, so their echoes are dropped.
func (c *Client) Remember(ids ...string) {
	for _, id := range ids {
		c.seen.add(id)
	}
}

// Seen reports whether a message id was delivered or remembered among the
// last Config.SeenCapacity ids.
func (c *Client) Seen(id string) bool { return c.seen.has(id) }

type broadcastRequest struct {
	Room          string              `json:"room"`
	Type          broadcast.EventType `json:"type"`
	Data          json.RawMessage     `json:"data"`
	ExcludeUserID string              `json:"excludeUserId,omitempty"`
}

// SendBroadcast asks the server to fan an event out to the rest of the room.
// Persist the change first; the broadcast only notifies. The client's own
// user is excluded.
func (c *Client) SendBroadcast(ctx context.Context, t broadcast.EventType, payload any) error {
	if !t.Broadcastable() {
		return fmt.Errorf("%w: %q", broadcast.ErrUnknownEventType, t)
	}
	ev, err := broadcast.NewEvent(t, payload)
	if err != nil {
		return err
	}
	if len(ev.Data) == 0 {
		return broadcast.ErrInvalidPayload
	}

	body := broadcastRequest{
		Room:          c.cfg.Room,
		Type:          t,
		Data:          ev.Data,
		ExcludeUserID: c.cfg.UserID,
	}
	target := c.cfg.BaseURL + c.cfg.ChatPath + "/broadcast"
	if err := doJSON(ctx, c.http, c.cfg.RequestTimeout, http.MethodPost, target, body, nil, ErrBroadcastRejected); err != nil {
		return err
	}
	return nil
}

// Online returns how many users are currently subscribed to the room.
func (c *Client) Online(ctx context.Context) (int, error) {
	var out struct {
		Online int `json:"online"`
	}
	target := c.cfg.BaseURL + c.cfg.ChatPath + "/rooms/" + url.PathEscape(c.cfg.Room) + "/online"
	if err := doJSON(ctx, c.http, c.cfg.RequestTimeout, http.MethodGet, target, nil, &out, ErrRequestFailed); err != nil {
		return 0, err
	}
	return out.Online, nil
}

// Messages returns a messages API client sharing this client's HTTP client.
func (c *Client) Messages() *MessagesAPI {
	return NewMessagesAPI(c.cfg.BaseURL+c.cfg.APIPath, c.http, c.cfg.RequestTimeout)
}
