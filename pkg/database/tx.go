package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

type txState int

const (
	txNotStarted txState = iota
	txActive
	txCommitted
	txRolledBack
)

func (s txState) String() string {
	switch s {
	case txNotStarted:
		return "not-started"
	case txActive:
		return "active"
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled-back"
	}
	return "unknown"
}

// Tx is an atomic group of staged writes on one Session. The lifecycle is
// strictly NotStarted -> Active -> Committed or RolledBack; terminal states
// are final.
type Tx struct {
	sess  *Session
	tx    *sqlx.Tx
	state txState
}

// Begin moves the transaction into the Active state. The session admits one
// active transaction at a time.
func (t *Tx) Begin(ctx context.Context) error {
	if t.state != txNotStarted {
		return appErrors.New(appErrors.CodeTransactionState, fmt.Sprintf("begin from %s state", t.state))
	}
	if t.sess.closed {
		return errSessionClosed
	}
	if t.sess.active != nil {
		return appErrors.New(appErrors.CodeTransactionState, "session already has an active transaction")
	}

	tx, err := t.sess.conn.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.CodePersistence, "begin transaction")
	}

	t.tx = tx
	t.state = txActive
	t.sess.active = t
	return nil
}

// Exec stages a write. Active state only. A staging failure ends the
// transaction: state moves to RolledBack and storage is unchanged.
func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if t.state != txActive {
		return nil, appErrors.New(appErrors.CodeTransactionState, fmt.Sprintf("exec from %s state", t.state))
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		t.fail()
		return nil, wrapWriteError("stage write", err)
	}
	return res, nil
}

// Get stages a single-row statement that returns data, such as an insert
// with a RETURNING clause. Active state only. A staging failure ends the
// transaction in RolledBack, like Exec.
func (t *Tx) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if t.state != txActive {
		return appErrors.New(appErrors.CodeTransactionState, fmt.Sprintf("get from %s state", t.state))
	}
	if err := t.tx.GetContext(ctx, dest, query, args...); err != nil {
		t.fail()
		return wrapWriteError("stage write", err)
	}
	return nil
}

// Commit makes every staged write durable, atomically. On failure the
// transaction ends RolledBack and storage is unchanged.
func (t *Tx) Commit() error {
	if t.state != txActive {
		return appErrors.New(appErrors.CodeTransactionState, fmt.Sprintf("commit from %s state", t.state))
	}

	t.detach()
	if err := t.tx.Commit(); err != nil {
		t.state = txRolledBack
		_ = t.tx.Rollback()
		return wrapWriteError("commit transaction", err)
	}
	t.state = txCommitted
	return nil
}

// Rollback discards all staged writes.
func (t *Tx) Rollback() error {
	if t.state != txActive {
		return appErrors.New(appErrors.CodeTransactionState, fmt.Sprintf("rollback from %s state", t.state))
	}

	t.detach()
	t.state = txRolledBack
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return appErrors.Wrap(err, appErrors.CodePersistence, "rollback transaction")
	}
	return nil
}

// fail ends an active transaction after a staging error: detach from the
// session, best-effort driver rollback, terminal RolledBack state.
func (t *Tx) fail() {
	t.detach()
	t.state = txRolledBack
	_ = t.tx.Rollback()
}

// abandon is the Session.Close path: best-effort rollback, no state errors.
func (t *Tx) abandon() {
	if t.state != txActive {
		return
	}
	t.fail()
}

func (t *Tx) detach() {
	if t.sess.active == t {
		t.sess.active = nil
	}
}

// wrapWriteError classifies driver failures as persistence errors, keeping
// the PostgreSQL error code visible when there is one.
func wrapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return appErrors.Wrap(err, appErrors.CodePersistence, fmt.Sprintf("%s (%s)", op, pqErr.Code))
	}
	return appErrors.Wrap(err, appErrors.CodePersistence, op)
}
