package database

import (
	"context"
	"fmt"

	"github.com/upahan/upahan-api/pkg/logger"
	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs units of work inside a single database transaction
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager over the given connection
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx runs fn inside a transaction carried by the returned context.
// A context that already holds a transaction is reused without committing.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("starting transaction: %w", tx.Error)
	}

	defer func() {
		if v := recover(); v != nil {
			logger.FromContext(ctx).Error("rolling back transaction due to panic", "panic", v)
			tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rerr := tx.Rollback().Error; rerr != nil {
			err = fmt.Errorf("rolling back transaction: %v (original error: %w)", rerr, err)
		}
		logger.FromContext(ctx).Debug("rolled back transaction", "error", err)
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// TxFromContext returns the transaction stored by WithTx, if any
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Conn returns the transaction carried by ctx or the base connection bound to ctx
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
