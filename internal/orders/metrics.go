package orders

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

const instrumentationName = "github.com/ariefcatur/go-marketplace/internal/orders"

type metrics struct {
	placed          metric.Int64Counter
	stockRejections metric.Int64Counter
	statusChanges   metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	return &metrics{
		placed:          counter(meter, "orders_placed_total", "Orders committed."),
		stockRejections: counter(meter, "order_stock_rejections_total", "Placements rejected for insufficient stock."),
		statusChanges:   counter(meter, "order_status_changes_total", "Seller status changes committed."),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.Meter{}.Int64Counter(name)
	}
	return c
}

func (m *metrics) statusChanged(ctx context.Context, from, to Status) {
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

// recordError marks the span failed. Business rejections keep their kind
// as an attribute so they can be told apart from infrastructure errors.
func recordError(span trace.Span, err error) {
	kind := apperr.KindOf(err)
	span.SetAttributes(attribute.String("error.kind", string(kind)))
	span.RecordError(err)
	if kind == apperr.KindInternal {
		span.SetStatus(codes.Error, err.Error())
	}
}
