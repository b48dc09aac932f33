package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/coursechat/pkg/pg"
)

// DB is the subset of *pgxpool.Pool the Postgres stores use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps messages in the chat_messages table.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store on top of a pgx pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	insertMessageSQL = `INSERT INTO chat_messages (id, room_id, author_id, content, type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	listMessagesSQL = `SELECT id, room_id, author_id, content, type, created_at FROM (
	SELECT id, room_id, author_id, content, type, created_at
	FROM chat_messages
	WHERE room_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
	ORDER BY created_at DESC, id DESC
	LIMIT $3
) page ORDER BY created_at, id`

	getMessageSQL = `SELECT id, room_id, author_id, content, type, created_at
FROM chat_messages WHERE room_id = $1 AND id = $2`

	deleteMessageSQL = `DELETE FROM chat_messages WHERE room_id = $1 AND id = $2`
)

func (s *PostgresStore) Create(ctx context.Context, msg Message) error {
	_, err := s.db.Exec(ctx, insertMessageSQL,
		msg.ID, msg.RoomID, msg.AuthorID, msg.Content, string(msg.Type), msg.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("insert message: %w", err))
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, room string, opts ListOptions) ([]Message, error) {
	var before any
	if !opts.Before.IsZero() {
		before = opts.Before
	}

	rows, err := s.db.Query(ctx, listMessagesSQL, room, before, opts.limit())
	if err != nil {
		return nil, errors.Join(ErrStore, fmt.Errorf("list messages: %w", err))
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByName[Message])
	if err != nil {
		return nil, errors.Join(ErrStore, fmt.Errorf("scan messages: %w", err))
	}
	return msgs, nil
}

func (s *PostgresStore) Get(ctx context.Context, room, id string) (Message, error) {
	rows, err := s.db.Query(ctx, getMessageSQL, room, id)
	if err != nil {
		return Message{}, errors.Join(ErrStore, fmt.Errorf("get message: %w", err))
	}
	msg, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Message])
	if pg.IsNotFoundError(err) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, errors.Join(ErrStore, fmt.Errorf("scan message: %w", err))
	}
	return msg, nil
}

func (s *PostgresStore) Delete(ctx context.Context, room, id string) error {
	tag, err := s.db.Exec(ctx, deleteMessageSQL, room, id)
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("delete message: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresMembership reads the course_members table.
type PostgresMembership struct {
	db DB
}

// NewPostgresMembership creates a membership check on top of a pgx pool.
func NewPostgresMembership(db DB) *PostgresMembership {
	return &PostgresMembership{db: db}
}

func (m *PostgresMembership) IsMember(ctx context.Context, room, userID string) (bool, error) {
	var ok bool
	err := m.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_members WHERE room_id = $1 AND user_id = $2)`,
		room, userID,
	).Scan(&ok)
	if err != nil {
		return false, errors.Join(ErrStore, fmt.Errorf("check membership: %w", err))
	}
	return ok, nil
}

// Add enrolls a user in a room. Adding an existing member is a no-op.
func (m *PostgresMembership) Add(ctx context.Context, room, userID string) error {
	_, err := m.db.Exec(ctx,
		`INSERT INTO course_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		room, userID,
	)
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("add member: %w", err))
	}
	return nil
}
