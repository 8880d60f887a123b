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
	"github.com/ariefcatur/go-marketplace/internal/money"
)

// Engine places orders. Stock reservation and the order rows are written in
// one transaction, so a failed placement leaves no trace.
type Engine struct {
	uow    UnitOfWork
	reader Reader
	ledger *inventory.Ledger
	events emitter
	log    *zap.Logger
	tracer trace.Tracer
	m      *metrics
}

// PlaceOrder reserves stock for every line and writes the order in one
// transaction. If the order commits but cannot be read back, the returned
// view holds the committed order and its items together with the error.
func (e *Engine) PlaceOrder(ctx context.Context, buyerID, sellerID int64, lines []LineItem) (OrderView, error) {
	ctx, span := e.tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.Int64("seller.id", sellerID),
		attribute.Int("order.lines", len(lines)),
	))
	defer span.End()

	view, err := e.placeOrder(ctx, buyerID, sellerID, lines)
	if err != nil && view.ID == 0 {
		recordError(span, err)
		if s, ok := apperr.Shortage(err); ok {
			e.m.stockRejections.Add(ctx, 1)
			e.log.Info("order rejected: insufficient stock",
				zap.Int64("buyer_id", buyerID),
				zap.Int64("listing_id", s.ListingID),
				zap.Int("available", s.Available),
				zap.Int("requested", s.Requested),
			)
		} else if apperr.KindOf(err) == apperr.KindInternal {
			e.log.Error("place order", zap.Int64("buyer_id", buyerID), zap.Int64("seller_id", sellerID), zap.Error(err))
		}
		return OrderView{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", view.ID))
	e.m.placed.Add(ctx, 1)
	e.log.Info("order placed",
		zap.Int64("order_id", view.ID),
		zap.Int64("buyer_id", buyerID),
		zap.Int64("seller_id", sellerID),
		zap.Stringer("total", view.TotalPrice),
	)
	e.events.emit(ctx, TopicOrderPlaced, EventOrderPlaced, view.ID, placedPayload(view))
	if err != nil {
		recordError(span, err)
		e.log.Error("placed order not reloaded", zap.Int64("order_id", view.ID), zap.Error(err))
		return view, err
	}
	return view, nil
}

func (e *Engine) placeOrder(ctx context.Context, buyerID, sellerID int64, lines []LineItem) (OrderView, error) {
	if len(lines) == 0 {
		return OrderView{}, apperr.New(apperr.KindEmptyOrder, "order has no items")
	}
	if sellerID <= 0 {
		return OrderView{}, apperr.New(apperr.KindInvalidInput, "seller_id must be positive")
	}
	if buyerID == sellerID {
		return OrderView{}, apperr.New(apperr.KindInvalidInput, "cannot order from your own listings")
	}
	for i, ln := range lines {
		if ln.ListingID <= 0 {
			return OrderView{}, apperr.New(apperr.KindInvalidInput, "item %d: seller_product_id must be positive", i)
		}
		if ln.Quantity <= 0 {
			return OrderView{}, apperr.New(apperr.KindInvalidInput, "item %d: quantity must be positive", i)
		}
	}

	var (
		order Order
		items []OrderItem
	)
	err := e.uow.WithinTx(ctx, func(tx Tx) error {
		if err := lockListings(ctx, tx, lines); err != nil {
			return err
		}

		// lines are reserved in request order; a repeated listing sees the
		// quantity left by the earlier line
		items = make([]OrderItem, len(lines))
		var total money.Money
		for i, ln := range lines {
			snap, err := e.ledger.CheckAndReserve(ctx, tx, ln.ListingID, sellerID, ln.Quantity)
			if err != nil {
				return err
			}
			items[i] = OrderItem{ListingID: ln.ListingID, Quantity: ln.Quantity, PriceAtPurchase: snap.Price}
			sub, err := snap.Price.Mul(ln.Quantity)
			if err == nil {
				total, err = total.Add(sub)
			}
			if err != nil {
				return apperr.New(apperr.KindInvalidInput, "order total exceeds the supported amount")
			}
		}

		order = Order{BuyerID: buyerID, SellerID: sellerID, TotalPrice: total, Status: StatusPending}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.InsertOrderItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	view, err := e.reader.OrderView(ctx, order.ID)
	if err != nil {
		// the order is committed; hand back what the tx wrote
		partial := OrderView{Order: order, Items: make([]OrderItemView, len(items))}
		for i, it := range items {
			partial.Items[i] = OrderItemView{OrderItem: it}
		}
		return partial, fmt.Errorf("load placed order %d: %w", order.ID, err)
	}
	return view, nil
}

// lockListings takes the row locks of all distinct listings in ascending id
// order so two multi-line placements cannot deadlock. Missing listings are
// left for CheckAndReserve to report in request order.
func lockListings(ctx context.Context, tx Tx, lines []LineItem) error {
	if len(lines) < 2 {
		return nil
	}
	seen := make(map[int64]bool, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, ln := range lines {
		if !seen[ln.ListingID] {
			seen[ln.ListingID] = true
			ids = append(ids, ln.ListingID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := tx.LockListing(ctx, id); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	}
	return nil
}
