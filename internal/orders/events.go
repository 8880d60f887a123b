package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/money"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "marketplace-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ListingID       int64       `json:"seller_product_id"`
	Quantity        int         `json:"quantity"`
	PriceAtPurchase money.Money `json:"price_at_purchase"`
}

type OrderPlacedPayload struct {
	OrderID    int64       `json:"order_id"`
	BuyerID    int64       `json:"buyer_id"`
	SellerID   int64       `json:"seller_id"`
	Status     Status      `json:"status"`
	Items      []ItemPrice `json:"items"`
	TotalPrice money.Money `json:"total_price"`
	Version    int64       `json:"version"`
	CreatedAt  time.Time   `json:"created_at"`
}

type OrderStatusChangedPayload struct {
	OrderID   int64     `json:"order_id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Restocked bool      `json:"restocked"`
	ChangedAt time.Time `json:"changed_at"`
	Version   int64     `json:"version"`
}

// Publisher hands an encoded event to the message bus. Delivery is
// asynchronous and best effort.
type Publisher interface {
	Publish(topic string, key, value []byte, headers map[string]string)
}

func newEnvelope(ctx context.Context, eventType, producer string, orderID int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       raw,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	return env, nil
}

func placedPayload(v OrderView) OrderPlacedPayload {
	items := make([]ItemPrice, len(v.Items))
	for i, it := range v.Items {
		items[i] = ItemPrice{ListingID: it.ListingID, Quantity: it.Quantity, PriceAtPurchase: it.PriceAtPurchase}
	}
	return OrderPlacedPayload{
		OrderID:    v.ID,
		BuyerID:    v.BuyerID,
		SellerID:   v.SellerID,
		Status:     v.Status,
		Items:      items,
		TotalPrice: v.TotalPrice,
		Version:    v.Version,
		CreatedAt:  v.CreatedAt,
	}
}

// emitter wraps a Publisher with envelope construction. A nil Publisher
// turns emit into a no-op.
type emitter struct {
	pub      Publisher
	producer string
	log      *zap.Logger
}

func (e emitter) emit(ctx context.Context, topic, eventType string, orderID int64, payload any) {
	if e.pub == nil {
		return
	}
	env, err := newEnvelope(ctx, eventType, e.producer, orderID, payload)
	if err != nil {
		e.log.Error("encode event", zap.String("event_type", eventType), zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		e.log.Error("encode envelope", zap.String("event_type", eventType), zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	headers := map[string]string{"event_type": eventType}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
	e.pub.Publish(topic, PartitionKey(orderID), value, headers)
}
