// Package txmanager runs a unit of work inside one database transaction.
//
// The closure passed to WithinTx receives the transaction-scoped *gorm.DB;
// repositories bind to it through their WithTx method. The transaction is
// committed when the closure returns nil and rolled back when it returns an
// error or panics, so callers never issue begin/commit/rollback themselves.
package txmanager

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Manager interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Option func(*manager)

// WithLockTimeout bounds how long any statement in the transaction waits
// for a row lock. Zero leaves the server default in place.
func WithLockTimeout(d time.Duration) Option {
	return func(m *manager) { m.lockTimeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger.Named("txmanager")
		}
	}
}

type manager struct {
	db          *gorm.DB
	lockTimeout time.Duration
	logger      *zap.Logger
}

func New(db *gorm.DB, opts ...Option) Manager {
	m := &manager{db: db, logger: zap.L().Named("txmanager")}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
	if err != nil {
		m.logger.Debug("transaction rolled back", zap.Error(err))
	}
	return err
}
