// Package database opens the Postgres pool behind the wizard session store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"clinicdesk/internal/config"
)

var (
	sqlOpen = sql.Open
	// retryDelay is the wait before the first retried ping; it doubles per attempt.
	retryDelay = time.Second
)

const pingTimeout = 5 * time.Second

// ErrIncompleteConfig is returned when a required connection setting is empty.
var ErrIncompleteConfig = errors.New("invalid database config: host, port, user, and name are required")

// BuildPostgresDSN renders c as a postgres:// URL.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return "", ErrIncompleteConfig
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
		User:   url.User(c.User),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// NewPostgres opens the session store through the pgx stdlib driver wrapped
// by otelsql and waits until it answers a ping. Up to c.ConnectAttempts pings
// are made with doubling delays; ctx bounds the whole wait.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	configurePool(db, c)

	if err := waitForPing(ctx, db, c); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().
		Str("component", "database").
		Str("db_host", c.Host).
		Str("db_name", c.Name).
		Int("max_open_conns", c.MaxOpenConns).
		Msg("database connected")
	return db, nil
}

func configurePool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}

func waitForPing(ctx context.Context, db *sql.DB, c config.DatabaseConfig) error {
	attempts := max(c.ConnectAttempts, 1)
	delay := retryDelay

	var err error
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn().Err(err).
			Str("component", "database").
			Str("db_host", c.Host).
			Int("attempt", i).
			Dur("retry_in", delay).
			Msg("database not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("db ping: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("db ping after %d attempts: %w", attempts, err)
}
