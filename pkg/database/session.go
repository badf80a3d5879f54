package database

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

// errSessionClosed marks any use of a session after Close. It carries the
// transaction-state code (lifecycle misuse is programmer error) but stays
// distinguishable from ordinary state-machine violations.
var errSessionClosed = appErrors.New(appErrors.CodeTransactionState, "session is closed")

// IsSessionClosed reports whether err came from using a closed session.
func IsSessionClosed(err error) bool {
	return errors.Is(err, errSessionClosed)
}

// Session is a unit-of-work handle bound to one connection for its entire
// lifetime. It serves a single goroutine and carries at most one transaction
// at a time.
type Session struct {
	conn   *sqlx.Conn
	active *Tx
	closed bool
}

// Get runs a single-row read outside any transaction. A missing row surfaces
// as sql.ErrNoRows; callers decide whether that is an empty result or a
// stale handle.
func (s *Session) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if s.closed {
		return errSessionClosed
	}
	return s.conn.GetContext(ctx, dest, query, args...)
}

// NamedSelect materialises all rows matched by a query with named parameters.
// Slice-valued parameters expand into IN lists. Row order is whatever the
// database returned; no ordering is implied unless the query asks for one.
func (s *Session) NamedSelect(ctx context.Context, dest interface{}, query string, params map[string]interface{}) error {
	if s.closed {
		return errSessionClosed
	}

	q, args, err := sqlx.Named(query, params)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodePersistence, "bind named parameters")
	}
	q, args, err = sqlx.In(q, args...)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodePersistence, "expand IN parameters")
	}
	q = s.conn.Rebind(q)

	return s.conn.SelectContext(ctx, dest, q, args...)
}

// Transaction returns a fresh transaction handle in its initial state.
// Nothing touches the database until Begin.
func (s *Session) Transaction() *Tx {
	return &Tx{sess: s}
}

// Close rolls back any in-flight transaction and releases the connection.
// Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.active != nil {
		s.active.abandon()
		s.active = nil
	}
	return s.conn.Close()
}
