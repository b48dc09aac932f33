package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursechat/modules/chat"
	msgmod "github.com/dmitrymomot/coursechat/modules/messages"
	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/messages"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type queueSink struct{ events chan broadcast.Event }

func (s queueSink) Push(ev broadcast.Event) error {
	s.events <- ev
	return nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	reg := broadcast.NewRegistry()
	svc := messages.NewService(messages.NewMemoryStore(), nil)
	_, err := svc.Post(context.Background(), messages.PostInput{ID: "old", RoomID: "R1", AuthorID: "A", Content: "from yesterday"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/chat", chat.Router(chat.Options{Registry: reg}))
	r.Mount("/api", msgmod.Router(svc, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	// another member of the room, listening on the registry directly
	peer := queueSink{events: make(chan broadcast.Event, 4)}
	reg.Subscribe("R1", "B", peer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &lockedBuffer{}
	in := strings.NewReader("hello there\n/online\n/delete old\n/delete\n/quit\nnever sent\n")
	cfg := Config{BaseURL: srv.URL, Room: "R1", UserID: "A", BaseDelay: 10 * time.Millisecond, MaxAttempts: 1, History: 10}

	require.NoError(t, run(ctx, cfg, in, out, logger.Noop()))

	text := out.String()
	assert.Contains(t, text, "<A> from yesterday")
	assert.Contains(t, text, "* connected to R1 as A")
	assert.Contains(t, text, "<A> hello there")
	assert.Contains(t, text, "* 2 online in R1")
	assert.Contains(t, text, "* deleted old")
	assert.Contains(t, text, "! usage: /delete <id>")
	assert.NotContains(t, text, "never sent")

	ev := <-peer.events
	assert.Equal(t, broadcast.EventMessage, ev.Type)
	assert.Contains(t, string(ev.Data), "hello there")
	ev = <-peer.events
	assert.Equal(t, broadcast.EventDelete, ev.Type)
	assert.JSONEq(t, `{"id":"old"}`, string(ev.Data))

	history, err := svc.History(context.Background(), "R1", "A", messages.ListOptions{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello there", history[0].Content)
}
