package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/iidesho/auditflow/active"
	"github.com/iidesho/auditflow/idgen"
	"github.com/iidesho/auditflow/tenant"
	"github.com/iidesho/bragi/sbragi"
	"github.com/pkg/errors"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

type Store struct {
	db *idgen.DB
}

var _ tenant.Store = &Store{}

// Open connects to dsn and makes sure the tenant table exists. IDs for new
// tenants come from gen, which is moved past the largest id already stored. The dsn needs parseTime=true, and clientFoundRows=true
// if SetStatus should accept setting a tenant to the status it already has.
func Open(ctx context.Context, dsn string, gen *idgen.Generator) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTable(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	seed, err := SeedFromTable(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read highest tenant id: %w", err)
	}
	if seed > gen.Last() {
		gen.Reset(seed)
	}
	return New(idgen.Wrap(db, gen)), nil
}

func New(db *idgen.DB) *Store {
	return &Store{db: db}
}

// SeedFromTable returns the largest tenant id in use, so a generator started
// with it does not collide with rows written by an earlier process.
func SeedFromTable(ctx context.Context, db *sql.DB) (int64, error) {
	var max int64
	err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(`id`), 0) FROM `%s`", tenant.Entity.Table)).Scan(&max)
	return max, err
}

func createTable(ctx context.Context, db *sql.DB) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			contact_name VARCHAR(255) NOT NULL DEFAULT '',
			status TINYINT NOT NULL DEFAULT 0,
			expire_time DATETIME(3) NOT NULL,
			deleted TINYINT(1) NOT NULL DEFAULT 0,
			create_time TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			update_time TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
			INDEX idx_expire_time (expire_time)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`, "`"+tenant.Entity.Table+"`")

	_, err := db.ExecContext(ctx, query)
	return err
}

func (s *Store) Create(ctx context.Context, t tenant.Tenant) (int64, error) {
	query := fmt.Sprintf(
		"INSERT INTO `%s` (id, name, contact_name, status, expire_time, deleted) VALUES (?, ?, ?, ?, ?, ?)",
		tenant.Entity.Table)
	_, id, err := s.db.ExecContext(ctx, query,
		t.Name,
		t.ContactName,
		int32(t.Status),
		t.ExpireTime.UTC(),
		t.Deleted,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "inserting tenant %s", t.Name)
	}
	log.Debug("created tenant", "id", id, "name", t.Name)
	return id, nil
}

func (s *Store) Find(ctx context.Context, q active.Query) ([]tenant.Tenant, error) {
	query, args := q.SQL()
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY `id`", args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying tenants")
	}
	defer rows.Close()

	var out []tenant.Tenant
	for rows.Next() {
		var (
			t      tenant.Tenant
			status int32
		)
		// Column order follows tenant.Columns.
		err = rows.Scan(&t.ID, &t.Name, &t.ContactName, &status, &t.ExpireTime, &t.Deleted)
		if err != nil {
			return nil, errors.Wrap(err, "scanning tenant")
		}
		t.Status = tenant.Status(status)
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "reading tenants")
}

func (s *Store) SetStatus(ctx context.Context, id int64, status tenant.Status) error {
	where, args := active.FindActiveByID(tenant.Entity, id).WhereSQL()
	query := fmt.Sprintf("UPDATE `%s` SET `status` = ? WHERE %s", tenant.Entity.Table, where)
	res, _, err := s.db.ExecContext(ctx, query, append([]any{int32(status)}, args...)...)
	if err != nil {
		return errors.Wrapf(err, "updating tenant %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "updating tenant %d", id)
	}
	if n == 0 {
		return fmt.Errorf("live tenant %d: %w", id, tenant.ErrNotFound)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if raw := s.db.Raw(); raw != nil {
		return raw.PingContext(ctx)
	}
	return nil
}

func (s *Store) Close() error {
	if raw := s.db.Raw(); raw != nil {
		return raw.Close()
	}
	return nil
}
