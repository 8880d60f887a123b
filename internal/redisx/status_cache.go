package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderStatus is the cached status of one order. Buyer and seller are kept
// so readers can authorize without a database hit. Version is the order's
// database version; a lower version never replaces a higher one.
type OrderStatus struct {
	OrderID   int64     `json:"order_id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// putIfNewer only replaces an entry whose version is not higher than ours.
// Events of one order may be handled out of order by concurrent workers.
var putIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, c = pcall(cjson.decode, cur)
  if ok and c.version and tonumber(c.version) > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

type StatusCache struct{ RDB redis.Cmdable }

func (c *StatusCache) Put(ctx context.Context, s OrderStatus) (bool, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return false, err
	}
	n, err := putIfNewer.Run(ctx, c.RDB,
		[]string{fmt.Sprintf(KeyOrderStatus, s.OrderID)},
		string(b), s.Version, TTLStatusCache.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("status cache put: %w", err)
	}
	return n == 1, nil
}

func (c *StatusCache) Get(ctx context.Context, orderID int64) (OrderStatus, bool, error) {
	raw, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderStatus{}, false, nil
	}
	if err != nil {
		return OrderStatus{}, false, fmt.Errorf("status cache get: %w", err)
	}
	var s OrderStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return OrderStatus{}, false, fmt.Errorf("status cache decode: %w", err)
	}
	return s, true, nil
}
