// Package txn runs multi-step writes as a unit: database steps share one
// transaction, and side effects outside the database register compensations
// that run if the unit fails.
package txn

import (
	"context"

	"gorm.io/gorm"

	"nust-bites/logger"
)

type step struct {
	name string
	fn   func(ctx context.Context) error
}

// Unit collects rollback and post-commit steps for one operation.
type Unit struct {
	ctx         context.Context
	rollbacks   []step
	afterCommit []step
	done        bool
}

func New(ctx context.Context) *Unit {
	return &Unit{ctx: ctx}
}

// OnRollback registers a compensation. Compensations run in reverse order of
// registration when the unit fails.
func (u *Unit) OnRollback(name string, fn func(ctx context.Context) error) {
	u.rollbacks = append(u.rollbacks, step{name: name, fn: fn})
}

// AfterCommit registers an action to run once the transaction has committed.
func (u *Unit) AfterCommit(name string, fn func(ctx context.Context) error) {
	u.afterCommit = append(u.afterCommit, step{name: name, fn: fn})
}

// Commit runs fn inside a database transaction. If fn or the commit fails the
// compensations run and the original error is returned; otherwise the
// post-commit actions run. Failures of either kind of step are logged only.
func (u *Unit) Commit(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if err := db.WithContext(u.ctx).Transaction(fn); err != nil {
		return u.Fail(err)
	}
	u.finish(u.afterCommit, "post-commit step failed")
	return nil
}

// Fail runs the compensations and returns err unchanged. Use it when the unit
// fails before reaching Commit.
func (u *Unit) Fail(err error) error {
	rev := make([]step, len(u.rollbacks))
	for i, s := range u.rollbacks {
		rev[len(rev)-1-i] = s
	}
	u.finish(rev, "compensation failed")
	return err
}

func (u *Unit) finish(steps []step, msg string) {
	if u.done {
		return
	}
	u.done = true
	log := logger.WithContext(u.ctx)
	for _, s := range steps {
		if err := s.fn(u.ctx); err != nil {
			log.WithError(err).WithField("step", s.name).Warn(msg)
		}
	}
}

// Run is shorthand for a unit with no steps registered before the transaction.
// fn may still register compensations and post-commit actions on u.
func Run(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB, u *Unit) error) error {
	u := New(ctx)
	return u.Commit(db, func(tx *gorm.DB) error { return fn(tx, u) })
}
