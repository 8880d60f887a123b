// Package projector consumes order events and keeps the order status
// cache in step with the database.
package projector

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

// Topics are the topics the projector subscribes to.
var Topics = []string{orders.TopicOrderPlaced, orders.TopicOrderStatusChanged}

type StatusCache interface {
	Put(ctx context.Context, s redisx.OrderStatus) (bool, error)
}

// Dedup marks an event id as handled. MarkOnce reports false for an id
// that was already marked.
type Dedup interface {
	MarkOnce(ctx context.Context, eventID string) (bool, error)
	Unmark(ctx context.Context, eventID string) error
}

// RedisDedup is a Dedup backed by redisx.MarkOnce.
type RedisDedup struct {
	RDB     redis.Cmdable
	Service string
}

func (d RedisDedup) MarkOnce(ctx context.Context, eventID string) (bool, error) {
	return redisx.MarkOnce(ctx, d.RDB, d.Service, eventID)
}

func (d RedisDedup) Unmark(ctx context.Context, eventID string) error {
	return redisx.Unmark(ctx, d.RDB, d.Service, eventID)
}

type Service struct {
	Cache  StatusCache
	Dedup  Dedup
	Log    *zap.Logger
	tracer trace.Tracer
}

func NewService(cache StatusCache, dedup Dedup, log *zap.Logger) *Service {
	return &Service{
		Cache:  cache,
		Dedup:  dedup,
		Log:    log,
		tracer: otel.Tracer("github.com/ariefcatur/go-marketplace/internal/projector"),
	}
}

// Handle is a kafka.Handler. A nil return commits the offset.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) (err error) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(kafkax.HeaderMap(m.Headers)))
	ctx, span := s.tracer.Start(ctx, "projector.Handle", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination.name", m.Topic)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// 1) decode envelope
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; log lalu commit
		s.Log.Error("drop malformed event", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	span.SetAttributes(attribute.String("event.type", env.EventType), attribute.String("event.id", env.EventID))

	st, ok, err := s.project(env)
	if err != nil {
		s.Log.Error("drop malformed payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	if s.Dedup != nil && env.EventID != "" {
		first, err := s.Dedup.MarkOnce(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			s.Log.Debug("duplicate event", zap.String("event_id", env.EventID))
			return nil
		}
	}

	// 3) update cache; versi lebih rendah diabaikan oleh Lua script
	applied, err := s.Cache.Put(ctx, st)
	if err != nil {
		if s.Dedup != nil && env.EventID != "" {
			if uerr := s.Dedup.Unmark(context.WithoutCancel(ctx), env.EventID); uerr != nil {
				s.Log.Warn("dedup unmark", zap.String("event_id", env.EventID), zap.Error(uerr))
			}
		}
		return err
	}
	s.Log.Debug("status projected",
		zap.Int64("order_id", st.OrderID),
		zap.String("status", st.Status),
		zap.Bool("applied", applied),
	)
	return nil
}

// project maps an envelope to the cache entry it implies. ok is false for
// event types the projector ignores.
func (s *Service) project(env orders.Envelope) (st redisx.OrderStatus, ok bool, err error) {
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return st, false, err
		}
		return redisx.OrderStatus{
			OrderID:   p.OrderID,
			BuyerID:   p.BuyerID,
			SellerID:  p.SellerID,
			Status:    string(p.Status),
			UpdatedAt: p.CreatedAt,
			Version:   p.Version,
		}, true, nil
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return st, false, err
		}
		return redisx.OrderStatus{
			OrderID:   p.OrderID,
			BuyerID:   p.BuyerID,
			SellerID:  p.SellerID,
			Status:    string(p.To),
			UpdatedAt: p.ChangedAt,
			Version:   p.Version,
		}, true, nil
	default:
		return st, false, nil
	}
}
