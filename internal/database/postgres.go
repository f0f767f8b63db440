// Copyright 2026 The Adscope Authors
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	"github.com/vinovest/sqlx"
)

// OpenPostgres connects to the hosted primary database and runs migrations.
// The caller decides whether a failure here is fatal; the service can run on
// the fallback store alone.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := MigratePostgres(conn.DB); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
