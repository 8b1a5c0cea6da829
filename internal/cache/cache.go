// Package cache records delivery receipts in Redis. The cache is
// optional; a nil *RedisCache is safe to use and does nothing.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReceiptCache stores a record of each confirmed delivery.
type ReceiptCache interface {
	StoreReceipt(ctx context.Context, messageID uuid.UUID, audioURL *string, deliveredAt time.Time) error
}
