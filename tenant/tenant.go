// Package tenant holds the tenant rows the expiry sweep maintains.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/iidesho/auditflow/active"
)

type Status int32

const (
	StatusEnabled  Status = 0
	StatusDisabled Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "enabled"
	case StatusDisabled:
		return "disabled"
	}
	return "unknown"
}

type Tenant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contact_name"`
	Status      Status    `json:"status"`
	ExpireTime  time.Time `json:"expire_time"`
	Deleted     bool      `json:"deleted"`
}

var Columns = []string{"id", "name", "contact_name", "status", "expire_time", "deleted"}

var Entity = active.NewEntity("system_tenant", []string{"id"}, Columns, active.NotDeleted)

func (t Tenant) Row() active.Row {
	return active.Row{
		"id":           t.ID,
		"name":         t.Name,
		"contact_name": t.ContactName,
		"status":       int32(t.Status),
		"expire_time":  t.ExpireTime,
		"deleted":      t.Deleted,
	}
}

type Store interface {
	// Create inserts t and returns the assigned ID. t.ID is ignored.
	Create(ctx context.Context, t Tenant) (int64, error)
	// Find returns the tenants matching q.
	Find(ctx context.Context, q active.Query) ([]Tenant, error)
	// SetStatus changes the status of a live tenant.
	SetStatus(ctx context.Context, id int64, s Status) error
}

// Overdue selects live, enabled tenants whose expiry time is before now.
func Overdue(now time.Time) active.Query {
	return active.FindActiveWithCondition(Entity, active.And(
		active.Lt("expire_time", now),
		active.Eq("status", int32(StatusEnabled)),
	))
}

// ExpireOverdue disables every overdue tenant and returns the affected IDs.
// A failing update stops the sweep; tenants disabled before it stay disabled.
func ExpireOverdue(ctx context.Context, s Store, now time.Time) ([]int64, error) {
	overdue, err := s.Find(ctx, Overdue(now))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(overdue))
	for _, t := range overdue {
		if err = s.SetStatus(ctx, t.ID, StatusDisabled); err != nil {
			return ids, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

var ErrNotFound = errors.New("tenant not found")

// ListActive returns every live tenant.
func ListActive(ctx context.Context, s Store) ([]Tenant, error) {
	return s.Find(ctx, active.FindActive(Entity))
}
