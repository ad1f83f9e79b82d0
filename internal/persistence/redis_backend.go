package persistence

import (
	"context"
	"sort"
	"starfront-server/internal/shared/errors"
	sharedredis "starfront-server/internal/shared/redis"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each document under prefix:collection:id and tracks the
// ids of a collection in the set prefix:collection:index. The prefix comes
// from the client.
type RedisBackend struct {
	client *sharedredis.Client
}

func NewRedisBackend(client *sharedredis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) key(collection, id string) string {
	return b.client.Key(collection, id)
}

func (b *RedisBackend) indexKey(collection string) string {
	return b.client.Key(collection, "index")
}

func (b *RedisBackend) Get(ctx context.Context, collection, id string) ([]byte, bool, error) {
	body, err := b.client.Get(ctx, b.key(collection, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.WrapExternal("failed to load document from redis", err)
	}
	return body, true, nil
}

func (b *RedisBackend) Put(ctx context.Context, collection, id string, body []byte) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key(collection, id), body, 0)
		pipe.SAdd(ctx, b.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return errors.WrapExternal("failed to save document to redis", err)
	}
	return nil
}

func (b *RedisBackend) List(ctx context.Context, collection string) ([]Document, error) {
	ids, err := b.client.SMembers(ctx, b.indexKey(collection)).Result()
	if err != nil {
		return nil, errors.WrapExternal("failed to list documents from redis", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.key(collection, id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.WrapExternal("failed to load documents from redis", err)
	}

	docs := make([]Document, 0, len(ids))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		docs = append(docs, Document{ID: ids[i], Body: []byte(s)})
	}
	return docs, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
