package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

type hooksKey struct{}

type afterCommitHooks struct {
	fns []func()
}

// Transactor runs a unit of work in one database transaction carried by the context.
// Repositories resolve their handle through the context, so every call made with the
// callback's ctx joins the transaction.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction joins an enclosing transaction when ctx already carries one.
// After-commit hooks run only when the outermost transaction commits.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	hooks := &afterCommitHooks{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		txCtx = context.WithValue(txCtx, hooksKey{}, hooks)
		return fn(txCtx)
	})
	if err != nil {
		return err
	}

	for _, fn := range hooks.fns {
		fn()
	}
	return nil
}

// AfterCommit defers fn until the transaction in ctx commits; outside a transaction fn runs now.
// Hooks are dropped on rollback.
func AfterCommit(ctx context.Context, fn func()) {
	if hooks, ok := ctx.Value(hooksKey{}).(*afterCommitHooks); ok {
		hooks.fns = append(hooks.fns, fn)
		return
	}
	fn()
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
