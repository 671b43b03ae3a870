// AngelaMos | 2026
// testdb.go

//go:build integration

// Package testdb starts a throwaway PostgreSQL container with the
// embedded migrations applied, for repository integration tests.
package testdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/carterperez-dev/templates/nz-market/internal/core"
)

// Start returns a migrated database and a func that tears the
// container down.
func Start() (*sqlx.DB, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, fmt.Errorf("construct pool: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, nil, fmt.Errorf("connect to docker: %w", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=market",
			"POSTGRES_PASSWORD=market",
			"POSTGRES_DB=market",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres: %w", err)
	}
	_ = resource.Expire(300) //nolint:errcheck // hard stop for leaked containers

	dsn := fmt.Sprintf(
		"postgres://market:market@%s/market?sslmode=disable",
		resource.GetHostPort("5432/tcp"),
	)

	pool.MaxWait = 90 * time.Second

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var openErr error
		db, openErr = sqlx.Open("pgx", dsn)
		if openErr != nil {
			return openErr
		}
		return db.Ping()
	})
	if err != nil {
		_ = pool.Purge(resource) //nolint:errcheck // best-effort cleanup
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := core.RunMigrations(context.Background(), db); err != nil {
		_ = db.Close()           //nolint:errcheck // best-effort cleanup
		_ = pool.Purge(resource) //nolint:errcheck // best-effort cleanup
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	cleanup := func() {
		_ = db.Close()           //nolint:errcheck // best-effort cleanup
		_ = pool.Purge(resource) //nolint:errcheck // best-effort cleanup
	}

	return db, cleanup, nil
}

// InsertUser writes a user row directly and returns its id.
func InsertUser(ctx context.Context, db *sqlx.DB, email, role string) (string, error) {
	id := uuid.New().String()

	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, role)
		VALUES ($1, $2, 'x', $3, $4)`,
		id, email, email, role,
	)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

// InsertItem writes an item with the given price and status.
func InsertItem(
	ctx context.Context,
	db *sqlx.DB,
	sellerID, title, price, status string,
) (string, error) {
	id := uuid.New().String()

	_, err := db.ExecContext(ctx, `
		INSERT INTO items (id, seller_id, title, price, condition, status, trade_method)
		VALUES ($1, $2, $3, $4::numeric, 'GOOD', $5, 'PICKUP')`,
		id, sellerID, title, price, status,
	)
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}

	return id, nil
}
