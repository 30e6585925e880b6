package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/llmserver/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL advisory locks.
//
// Advisory locks are session-scoped, so each held lock pins one pooled
// connection until Release. The TTL is ignored: a lock lives until it is
// released or its session ends.
type AdvisoryLock struct {
	db   *DB
	open func(ctx context.Context) (*sql.Conn, error)

	mu sync.Mutex
	// conns maps held names to their session. A nil value reserves the name
	// while Acquire checks out a connection.
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	l := newAdvisoryLock(db.Conn)
	l.db = db
	return l
}

func newAdvisoryLock(open func(ctx context.Context) (*sql.Conn, error)) *AdvisoryLock {
	return &AdvisoryLock{open: open, conns: make(map[string]*sql.Conn)}
}

// hashLockName converts a string lock name to a 64-bit key using FNV-1a.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("llmserver:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to take the lock without blocking. The mutex only guards
// the reservation; connection checkout and the lock query run without it.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, _ time.Duration) (bool, error) {
	if !l.reserve(name) {
		return false, nil
	}

	conn, acquired, err := l.tryLock(ctx, name)
	if err != nil || !acquired {
		l.mu.Lock()
		delete(l.conns, name)
		l.mu.Unlock()
		return false, err
	}

	l.mu.Lock()
	l.conns[name] = conn
	l.mu.Unlock()
	return true, nil
}

func (l *AdvisoryLock) reserve(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.conns[name]; taken {
		return false
	}
	l.conns[name] = nil
	return true
}

func (l *AdvisoryLock) tryLock(ctx context.Context, name string) (*sql.Conn, bool, error) {
	conn, err := l.open(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, err
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}
	return conn, true, nil
}

// Release unlocks on the session that acquired the lock and returns the
// connection to the pool. A name that is not held, or is still being
// acquired, is a no-op.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn := l.conns[name]
	if conn != nil {
		delete(l.conns, name)
	}
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released); err != nil {
		// Drop the session so the server frees the lock
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		return err
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
