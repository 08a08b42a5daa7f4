// Package mariadb reads the student roster kept by the attendance front-end in
// its MySQL/MariaDB schema. It never writes.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool is a small connection pool to the roster database.
type Pool struct {
	db *sql.DB
}

// NewPool connects to the roster database. Times are parsed into time.Time and
// the dial timeout is capped regardless of the DSN.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("roster DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid roster DSN: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 || cfg.Timeout > 10*time.Second {
		cfg.Timeout = 10 * time.Second
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create roster connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping roster database %s: %w", cfg.Addr, err)
	}

	return &Pool{db: db}, nil
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	return p.db.Close()
}
