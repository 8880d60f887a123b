package orders

import "strconv"

const (
	TopicOrderPlaced        = "marketplace.order.placed"
	TopicOrderStatusChanged = "marketplace.order.status_changed"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
