package messages

import (
	"context"
	"time"
)

// Type classifies a chat message.
type Type string

const (
	TypeText   Type = "text"
	TypeFile   Type = "file"
	TypeSystem Type = "system"
)

// Valid reports whether t is a known message type.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeFile, TypeSystem:
		return true
	}
	return false
}

// MaxContentLength is the content limit in characters.
const MaxContentLength = 4000

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Message is a persisted chat message. Its JSON form is what clients relay
// as the data of a message event.
type Message struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"roomId" db:"room_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Content   string    `json:"content" db:"content"`
	Type      Type      `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ListOptions selects a page of history: the latest Limit messages created
// strictly before Before (zero means now), returned oldest first.
type ListOptions struct {
	Limit  int
	Before time.Time
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	}
	return o.Limit
}

// Store persists messages per room.
type Store interface {
	Create(ctx context.Context, msg Message) error
	List(ctx context.Context, room string, opts ListOptions) ([]Message, error)
	Get(ctx context.Context, room, id string) (Message, error)
	Delete(ctx context.Context, room, id string) error
}

// Membership answers whether a user belongs to a course room.
type Membership interface {
	IsMember(ctx context.Context, room, userID string) (bool, error)
}
