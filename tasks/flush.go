package tasks

import (
	"context"
	"fmt"

	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/auditflow/document"
	"github.com/iidesho/auditflow/logevent"
	"github.com/iidesho/auditflow/metrics"
)

type flush struct {
	category logevent.Category
	buf      buffer.Buffer
	docs     document.Store
}

func (f *flush) run(ctx context.Context, d Detacher, name string) error {
	payloads, err := f.buf.DrainAll(ctx, f.category.Key())
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return nil
	}
	records, err := decodeAll(f.category, payloads)
	if err != nil {
		// Drained entries are gone; none of them are persisted.
		metrics.FlushDropped.WithLabelValues(string(f.category)).Add(float64(len(payloads)))
		return err
	}
	ok := d.Go(name, func(ctx context.Context) {
		f.persist(ctx, records)
	})
	if !ok {
		metrics.FlushDropped.WithLabelValues(string(f.category)).Add(float64(len(records)))
		return fmt.Errorf("%w: %d drained %s records not persisted", ErrDetached, len(records), f.category)
	}
	return nil
}

func (f *flush) persist(ctx context.Context, records []any) {
	err := f.docs.InsertMany(ctx, f.category.Collection(), records)
	if log.WithError(err).Error("persisting audit events",
		"collection", f.category.Collection(), "records", len(records)) {
		metrics.FlushDropped.WithLabelValues(string(f.category)).Add(float64(len(records)))
		return
	}
	metrics.FlushRecords.WithLabelValues(string(f.category)).Add(float64(len(records)))
	log.Debug("persisted audit events", "collection", f.category.Collection(), "records", len(records))
}

func decodeAll(c logevent.Category, payloads []string) ([]any, error) {
	records := make([]any, 0, len(payloads))
	for i, p := range payloads {
		var (
			v   any
			err error
		)
		switch c {
		case logevent.CategoryLogin:
			v, err = logevent.Decode[logevent.LoginEvent](p)
		case logevent.CategoryOperation:
			v, err = logevent.Decode[logevent.OperationEvent](p)
		default:
			return nil, fmt.Errorf("%w: no decoder for category %s", ErrDecode, c)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d of %d in %s: %w", ErrDecode, i, len(payloads), c.Key(), err)
		}
		records = append(records, v)
	}
	return records, nil
}
