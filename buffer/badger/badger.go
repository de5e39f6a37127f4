package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/bragi/sbragi"
	"github.com/pkg/errors"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

const sequenceBandwidth = 1000

// Buffer stores every payload as its own badger key, ordered by a per buffer
// key sequence. A drain reads and deletes one key prefix in a single
// transaction, so a concurrent push either commits before it or is left for
// the next drain.
//
// Taking a sequence number and committing the payload are separate steps.
// Two concurrent pushes can commit out of sequence order, so one drain may
// return the later payload while the earlier one is left for the next drain.
// Pushes from a single goroutine stay in order and no payload is lost.
type Buffer struct {
	db *badger.DB

	lock sync.Mutex
	seqs map[string]*badger.Sequence
}

var _ buffer.Buffer = &Buffer{}

func Open(dir string) (*Buffer, error) {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return nil, errors.Wrap(err, "creating buffer dir")
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(badgerLogger{}))
	if err != nil {
		return nil, errors.Wrapf(err, "opening buffer store in %s", dir)
	}
	log.Debug("opened badger buffer store", "dir", dir)
	return &Buffer{
		db:   db,
		seqs: make(map[string]*badger.Sequence),
	}, nil
}

// prefix is length prefixed so no key is a prefix of another key's entries.
func prefix(key string) []byte {
	p := make([]byte, 5, 5+len(key))
	p[0] = 'l'
	binary.BigEndian.PutUint32(p[1:], uint32(len(key)))
	return append(p, key...)
}

func (b *Buffer) sequence(key string) (*badger.Sequence, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	seq, ok := b.seqs[key]
	if ok {
		return seq, nil
	}
	seq, err := b.db.GetSequence(append([]byte{'s'}, key...), sequenceBandwidth)
	if err != nil {
		return nil, err
	}
	b.seqs[key] = seq
	return seq, nil
}

func (b *Buffer) Push(_ context.Context, key string, payload string) error {
	seq, err := b.sequence(key)
	if err != nil {
		return buffer.Unavailable(errors.Wrapf(err, "sequence for %s", key))
	}
	n, err := seq.Next()
	if err != nil {
		return buffer.Unavailable(errors.Wrapf(err, "next sequence for %s", key))
	}
	k := binary.BigEndian.AppendUint64(prefix(key), n)
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(payload))
	})
	if err != nil {
		return buffer.Unavailable(errors.Wrapf(err, "pushing to %s", key))
	}
	return nil
}

// DrainAll fails with badger.ErrTxnTooBig when a key holds more entries than
// one transaction can delete. Nothing is removed in that case.
func (b *Buffer) DrainAll(_ context.Context, key string) ([]string, error) {
	out := []string{}
	p := prefix(key)
	err := b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		var keys [][]byte
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			keys = append(keys, item.KeyCopy(nil))
			out = append(out, string(v))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, buffer.Unavailable(errors.Wrapf(err, "draining %s", key))
	}
	return out, nil
}

func (b *Buffer) Close() error {
	b.lock.Lock()
	for key, seq := range b.seqs {
		log.WithError(seq.Release()).Warning("releasing sequence", "key", key)
	}
	b.seqs = nil
	b.lock.Unlock()
	return b.db.Close()
}

type badgerLogger struct{}

func (badgerLogger) Errorf(msg string, args ...any) {
	log.Error(fmt.Sprintf(msg, args...))
}

func (badgerLogger) Warningf(msg string, args ...any) {
	log.Warning(fmt.Sprintf(msg, args...))
}

func (badgerLogger) Infof(msg string, args ...any) {
	log.Debug(fmt.Sprintf(msg, args...))
}

func (badgerLogger) Debugf(msg string, args ...any) {
	log.Trace(fmt.Sprintf(msg, args...))
}
