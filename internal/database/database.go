// Package database opens the PostgreSQL pool backing the capture log.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"webcamupload/internal/config"
)

const (
	applicationName = "webcamupload"
	pingTimeout     = 5 * time.Second
)

var (
	// ErrDisabled is returned by Open when no database host is configured.
	ErrDisabled = errors.New("capture log database is not configured")
	// ErrInvalidConfig wraps settings pgx cannot connect with.
	ErrInvalidConfig = errors.New("invalid database config")
)

var sqlOpen = sql.Open

var valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// ConnString renders c as a keyword/value connection string, e.g.
// host='db' port='5432' user='cam' dbname='captures' sslmode='disable'.
// Values are quoted, so passwords may contain spaces and quotes.
func ConnString(c config.DatabaseConfig) (string, error) {
	var missing []string
	for _, f := range []struct{ key, val string }{
		{"host", c.Host}, {"port", c.Port}, {"user", c.User}, {"dbname", c.Name},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s required", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return "", fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port)
	}

	settings := []struct{ key, val string }{
		{"host", c.Host},
		{"port", c.Port},
		{"user", c.User},
		{"password", c.Password},
		{"dbname", c.Name},
		{"sslmode", c.SSLMode},
		{"application_name", applicationName},
	}
	parts := make([]string, 0, len(settings))
	for _, s := range settings {
		if s.val == "" {
			continue
		}
		parts = append(parts, s.key+"='"+valueEscaper.Replace(s.val)+"'")
	}
	dsn := strings.Join(parts, " ")

	// pgx rejects unknown sslmode values and similar mistakes without connecting.
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return dsn, nil
}

// Open returns a traced pgx-backed pool for the capture log, or ErrDisabled.
// The initial ping is bounded by ctx and pingTimeout, whichever ends first.
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	dsn, err := ConnString(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBName(c.Name)),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("register traced driver: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open capture log pool: %w", err)
	}
	configurePool(db, c)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping capture log database %s: %w", c.Host, err)
	}

	return db, nil
}

// configurePool leaves database/sql defaults in place for unset limits.
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
