package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/globaltrotters/apiserver/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	driverName   = "postgres"
	pingTimeout  = 5 * time.Second
	retryBackoff = time.Second
)

// Open connects to Postgres and pings it, retrying while the database is
// still starting up. The pool keeps a fifth of its connections idle.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Open(driverName, cfg.PostgresURL())
	if err != nil {
		return nil, err
	}

	maxOpen := max(cfg.MaxOpenConns, 1)
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(max(maxOpen/5, 1))
	conn.SetConnMaxIdleTime(2 * time.Minute)
	conn.SetConnMaxLifetime(30 * time.Minute)

	tries := max(cfg.ConnectTries, 1)
	for attempt := 1; ; attempt++ {
		err = ping(ctx, conn)
		if err == nil {
			return conn, nil
		}
		if attempt == tries {
			break
		}
		log.Printf("db: %s:%d not ready (attempt %d/%d): %v", cfg.Host, cfg.Port, attempt, tries, err)

		select {
		case <-ctx.Done():
			_ = conn.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	_ = conn.Close()
	return nil, fmt.Errorf("connect to %s:%d: %w", cfg.Host, cfg.Port, err)
}

func ping(ctx context.Context, conn *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return conn.PingContext(ctx)
}
