package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "vempat"

// RedisStore keeps each document in a hash whose fields hold JSON values,
// and the ids of a collection in a set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ DocStore = (*RedisStore)(nil)

// Dial connects to Redis at addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("remote/redis: ping: %w", err)
	}
	return client, nil
}

// DialLazy returns a client for addr without contacting the server. Use it
// where an unreachable Redis is an expected state, such as a daemon that
// starts offline.
func DialLazy(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewRedisStore wraps client. An empty prefix uses "vempat".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) docKey(collection, id string) string {
	return s.prefix + ":" + collection + ":doc:" + id
}

func (s *RedisStore) idsKey(collection string) string {
	return s.prefix + ":" + collection + ":ids"
}

// Ping reports whether Redis answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Merge(ctx context.Context, collection, id string, fields Fields) error {
	if collection == "" || id == "" {
		return fmt.Errorf("merge: collection and id are required")
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("merge %s/%s field %s: %w", collection, id, k, err)
		}
		values[k] = string(data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, s.docKey(collection, id), values)
		} else {
			// An empty document still exists remotely.
			pipe.HSetNX(ctx, s.docKey(collection, id), "id", fmt.Sprintf("%q", id))
		}
		pipe.SAdd(ctx, s.idsKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (Fields, error) {
	raw, err := s.client.HGetAll(ctx, s.docKey(collection, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return decodeHash(raw)
}

func (s *RedisStore) List(ctx context.Context, collection string) ([]Document, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []Document{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	out := make([]Document, 0, len(ids))
	for i, cmd := range cmds {
		raw := cmd.Val()
		if len(raw) == 0 {
			continue
		}
		f, err := decodeHash(raw)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", collection, ids[i], err)
		}
		out = append(out, Document{ID: ids[i], Fields: f})
	}
	sortDocs(out)
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.docKey(collection, id))
		pipe.SRem(ctx, s.idsKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

func decodeHash(raw map[string]string) (Fields, error) {
	f := make(Fields, len(raw))
	for k, s := range raw {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("decode field %s: %w", k, err)
		}
		f[k] = v
	}
	return f, nil
}
