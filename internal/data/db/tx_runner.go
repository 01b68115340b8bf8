package db

import (
	"context"
	"errors"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/ctxutil"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"gorm.io/gorm"
)

// TxRunner provides the shared transaction boundary for multi-row writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return errors.New("tx runner: nil db")
	}
	ctx = ctxutil.Default(ctx)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
