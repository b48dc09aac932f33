package chatclient_test

import (
	"context"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursechat/modules/chat"
	msgmod "github.com/dmitrymomot/coursechat/modules/messages"
	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/chatclient"
	"github.com/dmitrymomot/coursechat/pkg/messages"
	"github.com/dmitrymomot/coursechat/pkg/requestid"
)

// localList is what a UI would render: messages in arrival order, minus deletions.
type localList struct {
	mu  sync.Mutex
	ids []string
}

func (l *localList) handlers() chatclient.Handlers {
	return chatclient.Handlers{
		OnMessage: func(m messages.Message) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.ids = append(l.ids, m.ID)
		},
		OnDelete: func(id string) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.ids = slices.DeleteFunc(l.ids, func(v string) bool { return v == id })
		},
	}
}

func (l *localList) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.ids)
}

func TestEndToEnd(t *testing.T) {
	t.Parallel()

	reg := broadcast.NewRegistry()
	svc := messages.NewService(messages.NewMemoryStore(),
		messages.NewMemoryMembership(map[string][]string{"R1": {"A", "B"}}))

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Mount("/chat", chat.Router(chat.Options{Registry: reg, HeartbeatInterval: 50 * time.Millisecond}))
	r.Mount("/api", msgmod.Router(svc, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	newUser := func(id string, list *localList) *chatclient.Client {
		c, err := chatclient.New(chatclient.Config{
			BaseURL:     srv.URL,
			Room:        "R1",
			UserID:      id,
			BaseDelay:   10 * time.Millisecond,
			MaxAttempts: 2,
		}, list.handlers())
		require.NoError(t, err)
		return c
	}

	ctx := context.Background()
	var listA, listB localList
	a, b := newUser("A", &listA), newUser("B", &listB)
	defer a.Disconnect()
	defer b.Disconnect()

	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))
	assert.Equal(t, 2, reg.RoomSize("R1"))

	online, err := a.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, online)

	// A persists first, then announces to everyone but itself.
	msg, err := a.Messages().Create(ctx, "R1", chatclient.CreateMessage{ID: "m1", AuthorID: "A", Content: "hi"})
	require.NoError(t, err)
	a.Remember(msg.ID)
	require.NoError(t, a.SendBroadcast(ctx, broadcast.EventMessage, msg))

	require.Eventually(t, func() bool { return slices.Equal(listB.snapshot(), []string{"m1"}) },
		2*time.Second, 5*time.Millisecond)
	assert.Empty(t, listA.snapshot(), "sender is excluded")

	_, err = b.Messages().Create(ctx, "R1", chatclient.CreateMessage{ID: "m1", AuthorID: "B", Content: "dup"})
	assert.ErrorIs(t, err, messages.ErrAlreadyExists)
	assert.ErrorIs(t, b.Messages().Delete(ctx, "R1", "m1", "B"), messages.ErrForbidden)

	require.NoError(t, a.Messages().Delete(ctx, "R1", "m1", "A"))
	require.NoError(t, a.SendBroadcast(ctx, broadcast.EventDelete, broadcast.DeletePayload{ID: "m1"}))

	require.Eventually(t, func() bool { return len(listB.snapshot()) == 0 },
		2*time.Second, 5*time.Millisecond)

	history, err := b.Messages().List(ctx, "R1", "B", messages.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, history)

	require.Eventually(t, func() bool { return !b.LastHeartbeat().IsZero() },
		2*time.Second, 10*time.Millisecond)

	b.Disconnect()
	assert.Eventually(t, func() bool { return reg.RoomSize("R1") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, chatclient.StateConnected, a.State())
	assert.Equal(t, chatclient.StateDisconnected, b.State())

	a.Disconnect()
	assert.Eventually(t, func() bool { return reg.Connections() == 0 }, 2*time.Second, 10*time.Millisecond)
}
