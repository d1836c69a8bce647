// Package pg owns the pgx pool behind the agent's control and lock repositories
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config for one pool. AppName shows up in pg_stat_activity so an operator can tell
// which agent holds a device row lock
type Config struct {
	URL      string
	AppName  string
	MaxConns int32
	SlowMs   int
}

// PG is the pool plus the tracer the store adapters report to
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

var newPool = pgxpool.NewWithConfig

// idle connections are recycled well before a NAT or proxy drops them
const maxConnIdle = 5 * time.Minute

// Open parses cfg.URL and builds the pool; it does not ping
func Open(ctx context.Context, cfg Config, tracer QueryTracer) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		// one extra for the LISTEN session, which is hijacked out of the pool
		pcfg.MaxConns = cfg.MaxConns + 1
	}
	pcfg.MaxConnIdleTime = maxConnIdle
	if cfg.AppName != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
