// Package messages persists course chat messages.
//
// The real-time layer in package broadcast never touches storage: a client
// first stores its message through Service.Post, then broadcasts the returned
// record to the room. History and deletes go through the same Service, which
// checks course membership and authorship before reaching the Store.
//
// Three stores are available: MemoryStore for development and tests,
// PostgresStore on the chat_messages table (see db/migrations) and
// RedisStore with one hash per message plus a per-room sorted set.
//
//	svc := messages.NewService(messages.NewPostgresStore(pool), messages.NewPostgresMembership(pool))
//	msg, err := svc.Post(ctx, messages.PostInput{RoomID: "course-1", AuthorID: "alice", Content: "hi"})
package messages
