package nuts

import (
	"context"
	"os"

	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/bragi/sbragi"
	"github.com/nutsdb/nutsdb"
	"github.com/pkg/errors"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

const bucket = "event_buffer"

// Buffer keeps every buffer key as a nutsdb list in a single list bucket.
// nutsdb serialises read-write transactions, which is what makes a drain atomic.
type Buffer struct {
	db *nutsdb.DB
}

var _ buffer.Buffer = &Buffer{}

func Open(dir string) (*Buffer, error) {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return nil, errors.Wrap(err, "creating buffer dir")
	}
	db, err := nutsdb.Open(
		nutsdb.DefaultOptions,
		nutsdb.WithDir(dir),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "opening buffer store in %s", dir)
	}
	err = db.Update(func(tx *nutsdb.Tx) error {
		return tx.NewListBucket(bucket)
	})
	if err != nil && !errors.Is(err, nutsdb.ErrBucketAlreadyExist) {
		db.Close()
		return nil, errors.Wrap(err, "creating list bucket")
	}
	log.Debug("opened buffer store", "dir", dir)
	return &Buffer{db: db}, nil
}

func (b *Buffer) Push(_ context.Context, key string, payload string) error {
	err := b.db.Update(func(tx *nutsdb.Tx) error {
		return tx.RPush(bucket, []byte(key), []byte(payload))
	})
	if err != nil {
		return buffer.Unavailable(errors.Wrapf(err, "pushing to %s", key))
	}
	return nil
}

func (b *Buffer) DrainAll(_ context.Context, key string) ([]string, error) {
	out := []string{}
	err := b.db.Update(func(tx *nutsdb.Tx) error {
		n, err := tx.LSize(bucket, []byte(key))
		if err != nil {
			if isEmpty(err) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
		items, err := tx.LRange(bucket, []byte(key), 0, -1)
		if err != nil {
			return err
		}
		for range items {
			if _, err = tx.LPop(bucket, []byte(key)); err != nil {
				return err
			}
		}
		out = make([]string, len(items))
		for i, item := range items {
			out[i] = string(item)
		}
		return nil
	})
	if err != nil {
		return nil, buffer.Unavailable(errors.Wrapf(err, "draining %s", key))
	}
	return out, nil
}

func (b *Buffer) Close() error {
	return b.db.Close()
}

func isEmpty(err error) bool {
	return errors.Is(err, nutsdb.ErrListNotFound) ||
		errors.Is(err, nutsdb.ErrKeyNotFound)
}
