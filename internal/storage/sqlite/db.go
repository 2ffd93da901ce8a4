// Package sqlite is the SQLite-backed implementation of storage.Storage,
// built on the pure-Go, cgo-free github.com/ncruces/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofrs/flock"

	"github.com/devhaven/memoryd/internal/storage"
)

const (
	retryBaseDelay  = 200 * time.Millisecond
	retryCapDelay   = 5 * time.Second
	retryMaxAttempt = 10
)

// SQLiteStorage implements storage.Storage on top of a single SQLite file.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) the database at path, applies the WAL
// and busy-timeout pragmas, and runs any pending migrations under a
// cross-process advisory lock.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	dsn, err := connString(path)
	if err != nil {
		return nil, fmt.Errorf("build dsn for %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" && !strings.HasPrefix(path, "file::memory:") {
		lockPath := path + ".lock"
		fl := flock.New(lockPath)
		locked, lerr := fl.TryLockContext(ctx, 50*time.Millisecond)
		if lerr != nil {
			db.Close()
			return nil, fmt.Errorf("acquire migration lock %s: %w", lockPath, lerr)
		}
		if !locked {
			// Another process is migrating; block until it releases, then
			// proceed — our own runMigrations is a no-op if already current.
			if err := fl.Lock(); err != nil {
				db.Close()
				return nil, fmt.Errorf("wait for migration lock %s: %w", lockPath, err)
			}
		}
		defer fl.Unlock()
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: path}, nil
}

func connString(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		// Already a full DSN or the special in-memory path: passed through
		// unchanged, so none of the pragmas below are added to it.
		return path, nil
	}
	v := url.Values{}
	v.Set("_pragma", "busy_timeout(5000)")
	v.Add("_pragma", "journal_mode(WAL)")
	v.Add("_pragma", "synchronous(NORMAL)")
	v.Add("_pragma", "foreign_keys(ON)")
	// Every transaction acquires the write lock at BEGIN time rather than
	// on first write, avoiding the lock-upgrade deadlock a DEFERRED
	// transaction risks under concurrent writers (see storage.Transaction
	// doc comment).
	v.Set("_txlock", "immediate")
	return "file:" + path + "?" + v.Encode(), nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) UnderlyingDB() *sql.DB {
	return s.db
}

func (s *SQLiteStorage) UnderlyingConn(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}

func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	return readSchemaVersion(ctx, s.db)
}

// isBusy reports whether err is a transient SQLITE_BUSY/SQLITE_LOCKED
// condition worth retrying, recognized the same way across both the
// ncruces driver's error strings and the generic database/sql wrapping.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

// withRetry runs fn, retrying with jittered exponential backoff while fn
// returns a busy/locked error, up to retryMaxAttempt attempts. The retry
// loop wraps the *call to* RunInTransaction, never code running inside an
// open transaction, so a retried attempt always starts from a clean BEGIN.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 0; attempt < retryMaxAttempt; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		jitter := time.Duration(rand.Int63n(int64(delay) / 2 + 1))
		sleep := delay + jitter
		if sleep > retryCapDelay {
			sleep = retryCapDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
		if delay > retryCapDelay {
			delay = retryCapDelay
		}
	}
	return fmt.Errorf("exceeded %d retries: %w", retryMaxAttempt, err)
}

// RunInTransaction runs fn inside a BEGIN IMMEDIATE transaction, retrying
// the whole attempt (not the body of an in-flight transaction) on
// SQLITE_BUSY/SQLITE_LOCKED.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return withRetry(ctx, func() error {
		sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		txw := &sqlTransaction{tx: sqlTx}

		if perr := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					sqlTx.Rollback()
					panic(r)
				}
			}()
			return fn(txw)
		}(); perr != nil {
			sqlTx.Rollback()
			return perr
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
