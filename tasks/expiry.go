package tasks

import (
	"context"
	"time"

	"github.com/iidesho/auditflow/metrics"
	"github.com/iidesho/auditflow/tenant"
)

type expiry struct {
	store tenant.Store
	now   func() time.Time
}

func (e *expiry) run(d Detacher, name string) error {
	ok := d.Go(name, func(ctx context.Context) {
		ids, err := tenant.ExpireOverdue(ctx, e.store, e.now())
		metrics.TenantsExpired.Add(float64(len(ids)))
		if log.WithError(err).Error("expiring tenants", "disabled", ids) {
			return
		}
		if len(ids) > 0 {
			log.Info("disabled expired tenants", "ids", ids)
		}
	})
	if !ok {
		return ErrDetached
	}
	return nil
}
