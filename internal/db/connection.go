package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/gss-opera-matcher/internal/config"
)

// Connection holds the database connection
type Connection struct {
	DB  *sqlx.DB
	url string
}

// ConnectionURL builds a postgres URL from the standard PG* environment
// variables.
func ConnectionURL() string {
	host := config.GetEnv("PGHOST", "localhost")
	port := config.GetEnv("PGPORT", "15432")
	user := config.GetEnv("PGUSER", "user")
	password := config.GetEnv("PGPASSWORD", "password")
	dbname := config.GetEnv("PGDATABASE", "gss_opera")
	sslmode := config.GetEnv("PGSSLMODE", "disable")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

// NewConnection opens and pings a database connection. An empty dsn uses
// ConnectionURL.
func NewConnection(ctx context.Context, dsn string) (*Connection, error) {
	if dsn == "" {
		dsn = ConnectionURL()
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(config.GetEnvInt("DB_MAX_CONNECTIONS", 20))
	db.SetMaxIdleConns(config.GetEnvInt("DB_MAX_CONNECTIONS", 20) / 2)
	db.SetConnMaxLifetime(time.Hour)

	return &Connection{DB: db, url: dsn}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
