// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nutritrack/internal/common/config"

	_ "github.com/lib/pq"
)

// ErrAcquireConn marks failures to check a connection out of the pool, as
// opposed to failures of the statement run on it.
var ErrAcquireConn = errors.New("failed to acquire connection")

// PostgresClient owns the connection pool for the nutrition database.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool. It does not dial; call Ping to check reachability.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the pool.
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// WithConn checks a single connection out of the pool for the duration of fn
// and returns it on every exit path.
func (c *PostgresClient) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	return WithConn(ctx, c.DB, fn)
}

// WithConn is the pool-agnostic form of PostgresClient.WithConn.
func WithConn(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAcquireConn, err)
	}
	defer conn.Close()

	return fn(conn)
}
