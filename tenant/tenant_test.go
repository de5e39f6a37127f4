package tenant_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/iidesho/auditflow/idgen"
	"github.com/iidesho/auditflow/tenant"
	"github.com/iidesho/auditflow/tenant/inmemory"
)

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := inmemory.New(idgen.NewGenerator(0))

	expired, err := s.Create(ctx, tenant.Tenant{Name: "expired", ExpireTime: now.Add(-time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	current, err := s.Create(ctx, tenant.Tenant{Name: "current", ExpireTime: now.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	ids, err := tenant.ExpireOverdue(ctx, s, now)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []int64{expired}) {
		t.Fatal("unexpected affected tenants", "got", ids, "want", expired)
	}
	if e, _ := s.Get(expired); e.Status != tenant.StatusDisabled {
		t.Fatal("expired tenant not disabled", "status", e.Status)
	}
	if c, _ := s.Get(current); c.Status != tenant.StatusEnabled {
		t.Fatal("current tenant changed", "status", c.Status)
	}

	ids, err = tenant.ExpireOverdue(ctx, s, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatal("second sweep touched tenants again", "got", ids)
	}
}

func TestExpireOverdueSkipsDeletedAndDisabled(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := inmemory.New(idgen.NewGenerator(0))
	past := now.Add(-24 * time.Hour)

	deleted, _ := s.Create(ctx, tenant.Tenant{Name: "deleted", ExpireTime: past, Deleted: true})
	disabled, _ := s.Create(ctx, tenant.Tenant{Name: "disabled", ExpireTime: past, Status: tenant.StatusDisabled})
	live, _ := s.Create(ctx, tenant.Tenant{Name: "live", ExpireTime: past})

	ids, err := tenant.ExpireOverdue(ctx, s, now)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []int64{live}) {
		t.Fatal("unexpected affected tenants", "got", ids)
	}
	if d, _ := s.Get(deleted); d.Status != tenant.StatusEnabled {
		t.Fatal("soft deleted tenant was updated")
	}
	if d, _ := s.Get(disabled); d.Status != tenant.StatusDisabled {
		t.Fatal("disabled tenant changed")
	}
}

func TestSetStatusDeleted(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New(idgen.NewGenerator(0))
	id, _ := s.Create(ctx, tenant.Tenant{Name: "gone", Deleted: true})
	err := s.SetStatus(ctx, id, tenant.StatusDisabled)
	if !errors.Is(err, tenant.ErrNotFound) {
		t.Fatal("expected not found for soft deleted tenant", "got", err)
	}
	err = s.SetStatus(ctx, id+100, tenant.StatusDisabled)
	if !errors.Is(err, tenant.ErrNotFound) {
		t.Fatal("expected not found for missing tenant", "got", err)
	}
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New(idgen.NewGenerator(500))
	a, _ := s.Create(ctx, tenant.Tenant{Name: "a"})
	b, _ := s.Create(ctx, tenant.Tenant{Name: "b"})
	if a != 501 || b != 502 {
		t.Fatal("ids not taken from the generator", "a", a, "b", b)
	}
}

func TestListActive(t *testing.T) {
	ctx := context.Background()
	s := inmemory.New(idgen.NewGenerator(0))
	a, _ := s.Create(ctx, tenant.Tenant{Name: "a"})
	s.Create(ctx, tenant.Tenant{Name: "b", Deleted: true})
	out, err := tenant.ListActive(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != a {
		t.Fatal("expected only the live tenant", "got", out)
	}
}
