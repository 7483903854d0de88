// Package store reads process session and work queue snapshots from the
// Blue Prism style operational database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Window is how far back snapshots reach from the time of the call.
const Window = 7 * 24 * time.Hour

// Error wraps any failure coming from the underlying database.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type dialect string

const (
	SQLServer dialect = "sqlserver"
	SQLite    dialect = "sqlite"
)

func parseDialect(driver string) (dialect, error) {
	switch d := dialect(strings.ToLower(driver)); d {
	case SQLServer, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// rebind turns ? placeholders into the ordinal form sqlserver expects.
func (d dialect) rebind(q string) string {
	if d != SQLServer {
		return q
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "@p%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg binds t so it compares against datetime columns without an
// implicit datetimeoffset conversion on SQL Server. SQLite compares the
// stored text, so timestamps there are always written and bound in UTC.
func (d dialect) timeArg(t time.Time) any {
	if d == SQLServer {
		return mssql.DateTime1(t)
	}
	return t.UTC()
}

type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database and verifies it is reachable.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := parseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	// The assistant loop is single threaded; one connection is all it uses.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &Error{Op: "ping", Err: err}
	}

	log.Debug("Store connected", "driver", d)
	return &Store{db: db, dialect: d}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	log.Debug("Closing store")
	return s.db.Close()
}
