package main

import (
	"context"
	"time"

	"github.com/iidesho/auditflow/buffer"
	"github.com/iidesho/auditflow/buffer/badger"
	bufmem "github.com/iidesho/auditflow/buffer/inmemory"
	"github.com/iidesho/auditflow/buffer/nuts"
	"github.com/iidesho/auditflow/buffer/redis"
	"github.com/iidesho/auditflow/config"
	"github.com/iidesho/auditflow/idgen"
	"github.com/iidesho/auditflow/tenant"
	tenantmem "github.com/iidesho/auditflow/tenant/inmemory"
	"github.com/iidesho/auditflow/tenant/mariadb"
	"github.com/iidesho/auditflow/webserver"
	"github.com/iidesho/bragi/sbragi"
)

const pingTimeout = 2 * time.Second

// closer releases a store on shutdown.
type closer func() error

func openBuffer(ctx context.Context, c config.Config, ws *webserver.Server) (buffer.Buffer, closer, error) {
	switch c.BufferBackend {
	case config.BackendRedis:
		b, err := redis.Dial(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		if ws != nil {
			ws.AddCheck("buffer", webserver.PingCheck(pingTimeout, b.Ping))
		}
		return b, b.Close, nil
	case config.BackendNuts:
		b, err := nuts.Open(c.NutsDir)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.BackendBadger:
		b, err := badger.Open(c.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
	sbragi.Warning("buffering audit events in process memory, they are lost on exit")
	return bufmem.New(), func() error { return nil }, nil
}

func openTenants(ctx context.Context, c config.Config, ws *webserver.Server) (tenant.Store, closer, error) {
	gen := idgen.NewGenerator(0)
	if c.MySQLDSN == "" {
		sbragi.Warning("mysql.dsn not set, tenant expiry runs against an empty in-memory store")
		return tenantmem.New(gen), func() error { return nil }, nil
	}
	s, err := mariadb.Open(ctx, c.MySQLDSN, gen)
	if err != nil {
		return nil, nil, err
	}
	ws.AddCheck("tenants", webserver.PingCheck(pingTimeout, s.Ping))
	return s, s.Close, nil
}
