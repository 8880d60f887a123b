package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

const pendingMarker = "pending"

// Idempotency remembers which order an Idempotency-Key produced. A key is
// claimed with a short-lived pending marker while the order is placed.
type Idempotency struct {
	RDB redis.Cmdable
	// PendingTTL bounds the pending marker; zero means TTLIdemPending.
	PendingTTL time.Duration
}

func (i *Idempotency) pendingTTL() time.Duration {
	if i.PendingTTL > 0 {
		return i.PendingTTL
	}
	return TTLIdemPending
}

// Begin claims key for buyerID. started is true when the caller owns the
// key and must call Complete or Abort. Otherwise orderID is the order
// already created for the key.
func (i *Idempotency) Begin(ctx context.Context, buyerID int64, key string) (orderID int64, started bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderPlace, buyerID, key)
	ok, err := i.RDB.SetNX(ctx, k, pendingMarker, i.pendingTTL()).Result()
	if err != nil {
		return 0, false, fmt.Errorf("idempotency claim: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	val, err := i.RDB.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || val == pendingMarker {
		return 0, false, apperr.New(apperr.KindConflict, "a request with this Idempotency-Key is in progress")
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency value %q: %w", val, err)
	}
	return id, false, nil
}

func (i *Idempotency) Complete(ctx context.Context, buyerID int64, key string, orderID int64) error {
	k := fmt.Sprintf(KeyIdemOrderPlace, buyerID, key)
	return i.RDB.Set(ctx, k, strconv.FormatInt(orderID, 10), TTLIdempotency).Err()
}

// Abort releases the key so the request can be retried.
func (i *Idempotency) Abort(ctx context.Context, buyerID int64, key string) error {
	return i.RDB.Del(ctx, fmt.Sprintf(KeyIdemOrderPlace, buyerID, key)).Err()
}
