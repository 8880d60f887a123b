package orders

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/inventory"
)

// Policy tunes seller status updates.
type Policy struct {
	// StrictTransitions limits moves to those in strictNext. When false any
	// settable status is accepted from any state.
	StrictTransitions bool
	// RestockOnCancel returns item quantities to their listings when an
	// order is canceled and takes them again if it leaves CANCELED.
	RestockOnCancel bool
}

type Lifecycle struct {
	uow    UnitOfWork
	reader Reader
	ledger *inventory.Ledger
	policy Policy
	events emitter
	log    *zap.Logger
	tracer trace.Tracer
	m      *metrics
}

// UpdateStatus lets the order's seller move it to CONFIRMED or CANCELED.
// Setting the current status again is accepted and changes nothing.
func (l *Lifecycle) UpdateStatus(ctx context.Context, orderID, sellerID int64, to Status) (OrderView, error) {
	ctx, span := l.tracer.Start(ctx, "orders.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("seller.id", sellerID),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	if to != StatusConfirmed && to != StatusCanceled {
		err := apperr.New(apperr.KindInvalidStatus, "status %q cannot be set, use CONFIRMED or CANCELED", to)
		recordError(span, err)
		return OrderView{}, err
	}

	var (
		from      Status
		changed   bool
		restocked bool
		order     Order
	)
	err := l.uow.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.SellerID != sellerID {
			return apperr.New(apperr.KindForbidden, "order %d belongs to another seller", orderID)
		}
		from = o.Status
		if from == to {
			return nil
		}
		if l.policy.StrictTransitions && !CanTransition(from, to) {
			return apperr.New(apperr.KindInvalidTransition, "order %d cannot move from %s to %s", orderID, from, to)
		}

		if l.policy.RestockOnCancel && (to == StatusCanceled || from == StatusCanceled) {
			if err := l.restock(ctx, tx, o, to == StatusCanceled); err != nil {
				return err
			}
			restocked = true
		}

		updated, err := tx.SetOrderStatus(ctx, orderID, to)
		if err != nil {
			return err
		}
		order, changed = updated, true
		return nil
	})
	if err != nil {
		recordError(span, err)
		if apperr.KindOf(err) == apperr.KindInternal {
			l.log.Error("update order status", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return OrderView{}, err
	}

	view, err := l.reader.OrderView(ctx, orderID)
	if err != nil {
		return OrderView{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if !changed {
		return view, nil
	}

	l.m.statusChanged(ctx, from, to)
	l.log.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.Int64("seller_id", sellerID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("restocked", restocked),
	)
	l.events.emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID:   orderID,
		BuyerID:   order.BuyerID,
		SellerID:  order.SellerID,
		From:      from,
		To:        to,
		Restocked: restocked,
		ChangedAt: order.UpdatedAt,
		Version:   order.Version,
	})
	return view, nil
}

// restock releases (cancel) or re-reserves (un-cancel) every item of o.
// Listings are visited in ascending id order.
func (l *Lifecycle) restock(ctx context.Context, tx Tx, o Order, release bool) error {
	items, err := tx.OrderItems(ctx, o.ID)
	if err != nil {
		return err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ListingID < items[j].ListingID })
	for _, it := range items {
		if release {
			_, err = l.ledger.Release(ctx, tx, it.ListingID, it.Quantity)
		} else {
			_, err = l.ledger.CheckAndReserve(ctx, tx, it.ListingID, o.SellerID, it.Quantity)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
