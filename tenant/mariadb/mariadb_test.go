package mariadb

import (
	"context"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/iidesho/auditflow/idgen"
	"github.com/iidesho/auditflow/tenant"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("mysql.dsn")
	if dsn == "" {
		t.Skip("mysql.dsn not set")
	}
	ctx := context.Background()
	gen := idgen.NewGenerator(0)
	s, err := Open(ctx, dsn, gen)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	seed := gen.Last()

	now := time.Now().UTC().Truncate(time.Millisecond)
	expired, err := s.Create(ctx, tenant.Tenant{Name: "expired", ExpireTime: now.Add(-time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	current, err := s.Create(ctx, tenant.Tenant{Name: "current", ExpireTime: now.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if expired != seed+1 || current != seed+2 {
		t.Fatal("ids not assigned by the interceptor", "expired", expired, "current", current)
	}

	ids, err := tenant.ExpireOverdue(ctx, s, now)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(ids, expired) || slices.Contains(ids, current) {
		t.Fatal("unexpected affected tenants", "got", ids)
	}

	live, err := tenant.ListActive(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range live {
		if l.Deleted {
			t.Fatal("soft deleted tenant listed", "id", l.ID)
		}
	}
}
