package redisx

import "time"

const (
	// Idempotent placement: idem:order:place:{buyer_id}:{idempotency_key} -> order_id | "pending"
	KeyIdemOrderPlace = "idem:order:place:%d:%s"

	// Cache status order: order_status:{order_id} -> OrderStatus JSON
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// TTLIdemPending is the floor for a pending placement claim, see PendingTTLFor.
	TTLIdemPending = time.Minute
	TTLStatusCache = 10 * time.Minute
	TTLDedup       = 48 * time.Hour
)

// PendingTTLFor keeps a pending claim alive for at least twice the request
// timeout, so a slow placement still holds its key.
func PendingTTLFor(requestTimeout time.Duration) time.Duration {
	if d := 2 * requestTimeout; d > TTLIdemPending {
		return d
	}
	return TTLIdemPending
}
