package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Of wraps ctx with no transaction.
func Of(ctx context.Context) Context { return Context{Ctx: ctx} }

// DB returns the transaction when one is set, otherwise fallback, bound to
// the context.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	tx := c.Tx
	if tx == nil {
		tx = fallback
	}
	if c.Ctx == nil {
		return tx
	}
	return tx.WithContext(c.Ctx)
}
