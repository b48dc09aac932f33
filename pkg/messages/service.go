package messages

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coursechat/pkg/logger"
)

// PostInput is a message as submitted by its author.
// ID may be set by the client so it can recognise the echo of its own
// optimistic message; it is generated otherwise.
type PostInput struct {
	ID       string
	RoomID   string
	AuthorID string
	Content  string
	Type     Type
}

// Service applies membership and authorship rules on top of a Store.
type Service struct {
	store   Store
	members Membership
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithNow overrides the clock used for CreatedAt.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. A nil membership admits everyone.
func NewService(store Store, members Membership, opts ...ServiceOption) *Service {
	if members == nil {
		members = OpenMembership{}
	}
	s := &Service{
		store:   store,
		members: members,
		log:     logger.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post validates and stores a new message.
func (s *Service) Post(ctx context.Context, in PostInput) (Message, error) {
	if in.RoomID == "" || in.AuthorID == "" {
		return Message{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Content) == "" {
		return Message{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return Message{}, ErrContentTooLong
	}
	if in.Type == "" {
		in.Type = TypeText
	}
	if !in.Type.Valid() {
		return Message{}, ErrInvalidType
	}
	if err := s.requireMember(ctx, in.RoomID, in.AuthorID); err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:        in.ID,
		RoomID:    in.RoomID,
		AuthorID:  in.AuthorID,
		Content:   in.Content,
		Type:      in.Type,
		CreatedAt: s.now().UTC(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	if err := s.store.Create(ctx, msg); err != nil {
		return Message{}, err
	}
	s.log.DebugContext(ctx, "message stored",
		logger.Room(msg.RoomID),
		logger.UserID(msg.AuthorID),
		logger.MessageID(msg.ID),
	)
	return msg, nil
}

// History returns a page of a room's messages to one of its members.
func (s *Service) History(ctx context.Context, room, userID string, opts ListOptions) ([]Message, error) {
	if room == "" || userID == "" {
		return nil, ErrInvalidInput
	}
	if err := s.requireMember(ctx, room, userID); err != nil {
		return nil, err
	}
	return s.store.List(ctx, room, opts)
}

// Remove deletes a message on behalf of its author.
func (s *Service) Remove(ctx context.Context, room, id, userID string) error {
	if room == "" || id == "" || userID == "" {
		return ErrInvalidInput
	}
	if err := s.requireMember(ctx, room, userID); err != nil {
		return err
	}

	msg, err := s.store.Get(ctx, room, id)
	if err != nil {
		return err
	}
	if msg.AuthorID != userID {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, room, id); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "message deleted",
		logger.Room(room),
		logger.UserID(userID),
		logger.MessageID(id),
	)
	return nil
}

func (s *Service) requireMember(ctx context.Context, room, userID string) error {
	ok, err := s.members.IsMember(ctx, room, userID)
	if err != nil {
		return errors.Join(ErrStore, err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
