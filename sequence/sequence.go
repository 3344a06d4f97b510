// Package sequence hands out strictly increasing integers per named counter.
package sequence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// OrderID is the counter behind human-readable order codes.
const OrderID = "orderId"

// Allocator atomically increments a named counter and returns the new value.
// A missing counter starts at zero, so its first value is 1.
type Allocator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// OrderCode formats an order code such as "KFC-1042".
func OrderCode(restaurantCode string, value int64) string {
	return fmt.Sprintf("%s-%d", restaurantCode, value)
}

// SQLAllocator keeps counters in the sequences table. The increment and the
// read happen in one transaction, so the database's write lock serializes
// concurrent callers.
type SQLAllocator struct {
	db *gorm.DB
}

func NewSQLAllocator(db *gorm.DB) *SQLAllocator {
	return &SQLAllocator{db: db}
}

// Next implements Allocator.
func (a *SQLAllocator) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO sequences (name, value) VALUES (?, 0) ON CONFLICT(name) DO NOTHING", name).Error; err != nil {
			return err
		}
		if err := tx.Exec("UPDATE sequences SET value = value + 1 WHERE name = ?", name).Error; err != nil {
			return err
		}
		return tx.Raw("SELECT value FROM sequences WHERE name = ?", name).Scan(&value).Error
	})
	if err != nil {
		return 0, fmt.Errorf("allocate %s: %w", name, err)
	}
	return value, nil
}
