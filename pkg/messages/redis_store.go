package messages

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// RedisStore keeps each message in a hash and indexes a room's messages in a
// sorted set scored by creation time in unix milliseconds.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store whose keys start with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "coursechat"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) roomKey(room string) string {
	return fmt.Sprintf("%s:room:%s:messages", s.prefix, room)
}

func (s *RedisStore) messageKey(id string) string {
	return fmt.Sprintf("%s:message:%s", s.prefix, id)
}

func (s *RedisStore) Create(ctx context.Context, msg Message) error {
	key := s.messageKey(msg.ID)
	created, err := s.client.HSetNX(ctx, key, "id", msg.ID).Result()
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("reserve message id: %w", err))
	}
	if !created {
		return ErrAlreadyExists
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"roomId", msg.RoomID,
			"authorId", msg.AuthorID,
			"content", msg.Content,
			"type", string(msg.Type),
			"createdAt", msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		p.ZAdd(ctx, s.roomKey(msg.RoomID), redis.Z{
			Score:  float64(msg.CreatedAt.UnixMilli()),
			Member: msg.ID,
		})
		return nil
	})
	if err != nil {
		s.client.Del(context.WithoutCancel(ctx), key)
		return errors.Join(ErrStore, fmt.Errorf("store message: %w", err))
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, room string, opts ListOptions) ([]Message, error) {
	maxScore := "+inf"
	if !opts.Before.IsZero() {
		maxScore = "(" + strconv.FormatInt(opts.Before.UnixMilli(), 10)
	}

	ids, err := s.client.ZRevRangeByScore(ctx, s.roomKey(room), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(opts.limit()),
	}).Result()
	if err != nil {
		return nil, errors.Join(ErrStore, fmt.Errorf("list message ids: %w", err))
	}
	if len(ids) == 0 {
		return []Message{}, nil
	}

	cmds, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.HGetAll(ctx, s.messageKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrStore, fmt.Errorf("load messages: %w", err))
	}

	msgs := lo.FilterMap(cmds, func(cmd redis.Cmder, _ int) (Message, bool) {
		fields, err := cmd.(*redis.MapStringStringCmd).Result()
		if err != nil || len(fields) == 0 {
			return Message{}, false
		}
		msg, err := messageFromHash(fields)
		return msg, err == nil
	})
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *RedisStore) Get(ctx context.Context, room, id string) (Message, error) {
	fields, err := s.client.HGetAll(ctx, s.messageKey(id)).Result()
	if err != nil {
		return Message{}, errors.Join(ErrStore, fmt.Errorf("get message: %w", err))
	}
	if len(fields) == 0 || fields["roomId"] != room {
		return Message{}, ErrNotFound
	}
	msg, err := messageFromHash(fields)
	if err != nil {
		return Message{}, errors.Join(ErrStore, err)
	}
	return msg, nil
}

func (s *RedisStore) Delete(ctx context.Context, room, id string) error {
	removed, err := s.client.ZRem(ctx, s.roomKey(room), id).Result()
	if err != nil {
		return errors.Join(ErrStore, fmt.Errorf("delete message: %w", err))
	}
	if removed == 0 {
		return ErrNotFound
	}
	if err := s.client.Del(ctx, s.messageKey(id)).Err(); err != nil {
		return errors.Join(ErrStore, fmt.Errorf("delete message body: %w", err))
	}
	return nil
}

func messageFromHash(fields map[string]string) (Message, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"])
	if err != nil {
		return Message{}, fmt.Errorf("message %s: bad createdAt: %w", fields["id"], err)
	}
	return Message{
		ID:        fields["id"],
		RoomID:    fields["roomId"],
		AuthorID:  fields["authorId"],
		Content:   fields["content"],
		Type:      Type(fields["type"]),
		CreatedAt: createdAt,
	}, nil
}
