package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PoolLimits bounds the shared *sql.DB pool. Zero values fall back to
// defaults sized for a single web process.
type PoolLimits struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

func (p PoolLimits) withDefaults() PoolLimits {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 20
	}
	if p.MaxIdle <= 0 || p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = 30 * time.Minute
	}
	return p
}

// Connect opens a pgx-backed pool, applies the limits and verifies the
// connection with a bounded ping.
func Connect(ctx context.Context, dsn string, limits PoolLimits) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	limits = limits.withDefaults()
	pool.SetMaxOpenConns(limits.MaxOpen)
	pool.SetMaxIdleConns(limits.MaxIdle)
	pool.SetConnMaxLifetime(limits.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
