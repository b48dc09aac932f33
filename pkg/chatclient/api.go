package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrymomot/coursechat/pkg/messages"
)

// StatusError is a non-2xx answer from the server.
// It matches its kind (ErrBroadcastRejected, ErrRequestFailed, ...) and, when
// the error code is known, the corresponding messages error.
type StatusError struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: status %d", e.Kind, e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Error codes returned by the messages API.
const (
	CodeNotFound      = "not_found"
	CodeNotMember     = "not_member"
	CodeForbidden     = "not_author"
	CodeAlreadyExists = "already_exists"
)

func (e *StatusError) Unwrap() []error {
	errs := []error{e.Kind}
	switch e.Code {
	case CodeNotFound:
		errs = append(errs, messages.ErrNotFound)
	case CodeNotMember:
		errs = append(errs, messages.ErrNotMember)
	case CodeForbidden:
		errs = append(errs, messages.ErrForbidden)
	case CodeAlreadyExists:
		errs = append(errs, messages.ErrAlreadyExists)
	}
	return errs
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doJSON sends body as JSON (when non-nil) and decodes the data field of the
// response envelope into out (when non-nil).
func doJSON(ctx context.Context, hc *http.Client, timeout time.Duration, method, target string, body, out any, kind error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %w", kind, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", kind, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", kind, err)
	}

	var env envelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Kind: kind, Status: resp.StatusCode}
		if env.Error != nil {
			statusErr.Code = env.Error.Code
			statusErr.Message = env.Error.Message
		}
		return statusErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode response: %w", kind, err)
		}
	}
	return nil
}

// MessagesAPI talks to the message persistence endpoints.
type MessagesAPI struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewMessagesAPI creates a client for the messages router mounted at baseURL
// (for example http://localhost:8080/api).
func NewMessagesAPI(baseURL string, hc *http.Client, timeout time.Duration) *MessagesAPI {
	if hc == nil {
		hc = defaultHTTPClient()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &MessagesAPI{baseURL: baseURL, http: hc, timeout: timeout}
}

// CreateMessage is the body of a create request.
type CreateMessage struct {
	ID       string        `json:"id,omitempty"`
	AuthorID string        `json:"authorId"`
	Content  string        `json:"content"`
	Type     messages.Type `json:"type,omitempty"`
}

func (a *MessagesAPI) roomURL(room string, parts ...string) string {
	u := a.baseURL + "/rooms/" + url.PathEscape(room) + "/messages"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// Create stores a message and returns the persisted record.
func (a *MessagesAPI) Create(ctx context.Context, room string, in CreateMessage) (messages.Message, error) {
	var msg messages.Message
	err := doJSON(ctx, a.http, a.timeout, http.MethodPost, a.roomURL(room), in, &msg, ErrRequestFailed)
	return msg, err
}

// List returns a page of room history, oldest first.
func (a *MessagesAPI) List(ctx context.Context, room, userID string, opts messages.ListOptions) ([]messages.Message, error) {
	q := url.Values{"userId": {userID}}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if !opts.Before.IsZero() {
		q.Set("before", strconv.FormatInt(opts.Before.UnixMilli(), 10))
	}

	var msgs []messages.Message
	err := doJSON(ctx, a.http, a.timeout, http.MethodGet, a.roomURL(room)+"?"+q.Encode(), nil, &msgs, ErrRequestFailed)
	return msgs, err
}

// Delete removes a message authored by userID.
func (a *MessagesAPI) Delete(ctx context.Context, room, id, userID string) error {
	target := a.roomURL(room, id) + "?" + url.Values{"userId": {userID}}.Encode()
	return doJSON(ctx, a.http, a.timeout, http.MethodDelete, target, nil, nil, ErrRequestFailed)
}
