package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	socketKeyPrefix = "linkchat:socket:"
	userSocketsKey  = "linkchat:user:%s:sockets"
	resetScanCount  = 100
)

// RedisSocketStore keeps socket records as Redis hashes, with a set of socket ids per user.
type RedisSocketStore struct {
	client *redis.Client
}

var _ SocketStore = (*RedisSocketStore)(nil)

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisSocketStore wraps a connected client.
func NewRedisSocketStore(client *redis.Client) *RedisSocketStore {
	return &RedisSocketStore{client: client}
}

func socketKey(id string) string {
	return socketKeyPrefix + id
}

func userKey(userID string) string {
	return fmt.Sprintf(userSocketsKey, userID)
}

func (s *RedisSocketStore) CreateSocket(ctx context.Context, rec *SocketRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	created, err := s.client.HSetNX(ctx, socketKey(rec.ID), "id", rec.ID).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicate
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, socketKey(rec.ID), map[string]any{
			"user":        rec.UserID,
			"ip":          rec.IP,
			"os":          rec.OS,
			"browser":     rec.Browser,
			"environment": rec.Environment,
			"createdAt":   rec.CreatedAt.UnixMilli(),
		})
		if rec.UserID != "" {
			pipe.SAdd(ctx, userKey(rec.UserID), rec.ID)
		}
		return nil
	})
	return err
}

func (s *RedisSocketStore) UpdateSocket(ctx context.Context, id, userID string, info ClientInfo) error {
	previous, err := s.client.HGet(ctx, socketKey(id), "user").Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, socketKey(id), map[string]any{
			"user":        userID,
			"os":          info.OS,
			"browser":     info.Browser,
			"environment": info.Environment,
		})
		if previous != "" && previous != userID {
			pipe.SRem(ctx, userKey(previous), id)
		}
		if userID != "" {
			pipe.SAdd(ctx, userKey(userID), id)
		}
		return nil
	})
	return err
}

func (s *RedisSocketStore) DeleteSocket(ctx context.Context, id string) error {
	userID, err := s.client.HGet(ctx, socketKey(id), "user").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, socketKey(id))
		if userID != "" {
			pipe.SRem(ctx, userKey(userID), id)
		}
		return nil
	})
	return err
}

func (s *RedisSocketStore) ListSocketsByUsers(ctx context.Context, userIDs []string) ([]*SocketRecord, error) {
	var ids []string
	for _, userID := range userIDs {
		members, err := s.client.SMembers(ctx, userKey(userID)).Result()
		if err != nil {
			return nil, err
		}
		ids = append(ids, members...)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, socketKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	result := make([]*SocketRecord, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// set entry outlived its hash
			continue
		}
		result = append(result, decodeSocket(ids[i], fields))
	}
	sortSockets(result)
	return result, nil
}

func decodeSocket(id string, fields map[string]string) *SocketRecord {
	rec := &SocketRecord{
		ID:     id,
		UserID: fields["user"],
		IP:     fields["ip"],
		ClientInfo: ClientInfo{
			OS:          fields["os"],
			Browser:     fields["browser"],
			Environment: fields["environment"],
		},
	}
	if ms, err := strconv.ParseInt(fields["createdAt"], 10, 64); err == nil {
		rec.CreatedAt = time.UnixMilli(ms)
	}
	return rec
}

func (s *RedisSocketStore) Reset(ctx context.Context) error {
	for _, pattern := range []string{socketKeyPrefix + "*", fmt.Sprintf(userSocketsKey, "*")} {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, pattern, resetScanCount).Result()
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				if err := s.client.Del(ctx, keys...).Err(); err != nil {
					return err
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
	}
	return nil
}
