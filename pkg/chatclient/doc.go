// Package chatclient is the subscriber side of the course chat.
//
// A Client holds one user's stream for one room. Connect opens the stream and
// waits for the server's connected event; incoming message events are
// de-duplicated by id before reaching Handlers.OnMessage, delete events are
// passed to Handlers.OnDelete. When the stream drops the client reports it,
// waits an exponentially growing delay and reconnects, giving up after
// Config.MaxAttempts consecutive failures (StateExhausted).
//
//	c, err := chatclient.New(chatclient.Config{
//		BaseURL: "http://localhost:8080",
//		Room:    "course-42",
//		UserID:  "alice",
//	}, chatclient.Handlers{
//		OnMessage: func(m messages.Message) { render(m) },
//		OnDelete:  func(id string) { remove(id) },
//	})
//	if err := c.Connect(ctx); err != nil { ... }
//	defer c.Disconnect()
//
//	// persist first, then notify the room
//	msg, err := c.Messages().Create(ctx, "course-42", chatclient.CreateMessage{AuthorID: "alice", Content: "hi"})
//	c.Remember(msg.ID)
//	err = c.SendBroadcast(ctx, broadcast.EventMessage, msg)
package chatclient
