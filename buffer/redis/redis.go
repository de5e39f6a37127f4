package redis

import (
	"context"

	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/bragi/sbragi"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

// Buffer stores each key as a redis list. Drain runs LRANGE and DEL inside one
// MULTI/EXEC block, so pushes land either before the drain or after it.
type Buffer struct {
	client goredis.UniversalClient
}

var _ buffer.Buffer = &Buffer{}

func New(client goredis.UniversalClient) *Buffer {
	return &Buffer{client: client}
}

func Dial(ctx context.Context, addr, password string, db int) (*Buffer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", addr)
	}
	log.Info("connected to redis", "addr", addr, "db", db)
	return New(client), nil
}

func (b *Buffer) Push(ctx context.Context, key string, payload string) error {
	err := b.client.RPush(ctx, key, payload).Err()
	if err != nil {
		return buffer.Unavailable(errors.Wrapf(err, "rpush %s", key))
	}
	return nil
}

func (b *Buffer) DrainAll(ctx context.Context, key string) ([]string, error) {
	var lr *goredis.StringSliceCmd
	_, err := b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		lr = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, buffer.Unavailable(errors.Wrapf(err, "draining %s", key))
	}
	out := lr.Val()
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (b *Buffer) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Buffer) Close() error {
	return b.client.Close()
}
