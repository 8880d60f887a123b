package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, buyerID, sellerID int64, lines []orders.LineItem) (orders.OrderView, error)
	UpdateStatus(ctx context.Context, orderID, sellerID int64, to orders.Status) (orders.OrderView, error)
	BuyerHistory(ctx context.Context, buyerID int64) ([]orders.OrderView, error)
	SellerOrders(ctx context.Context, sellerID int64) ([]orders.OrderView, error)
	Get(ctx context.Context, orderID int64, viewer auth.Identity) (orders.OrderView, error)
}

type Idempotency interface {
	Begin(ctx context.Context, buyerID int64, key string) (orderID int64, started bool, err error)
	Complete(ctx context.Context, buyerID int64, key string, orderID int64) error
	Abort(ctx context.Context, buyerID int64, key string) error
}

type StatusCache interface {
	Put(ctx context.Context, s redisx.OrderStatus) (bool, error)
	Get(ctx context.Context, orderID int64) (redisx.OrderStatus, bool, error)
}

type OrdersHandler struct {
	Orders OrderService
	// Idem and Status are optional; without them placement is not
	// idempotent and status reads go to the database.
	Idem    Idempotency
	Status  StatusCache
	Log     *zap.Logger
	Timeout time.Duration
}

type placeOrderReq struct {
	SellerID int64          `json:"seller_id" validate:"gt=0"`
	Items    []orderLineReq `json:"items" validate:"dive"`
}

type orderLineReq struct {
	ListingID int64 `json:"seller_product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

const maxIdempotencyKey = 128

func (h *OrdersHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.With(RequireRoles(auth.RoleBuyer)).Post("/orders", h.placeOrder)
		r.With(RequireRoles(auth.RoleBuyer)).Get("/orders/my-history", h.myHistory)
		r.Get("/orders/{order_id}", h.getOrder)
		r.Get("/orders/{order_id}/status", h.getOrderStatus)

		r.With(RequireRoles(auth.RoleSeller)).Get("/seller/orders", h.sellerOrders)
		r.With(RequireRoles(auth.RoleSeller)).Put("/seller/orders/{order_id}", h.updateStatus)
	})
}

func (h *OrdersHandler) timeout(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	buyer := identity(r)

	ctx, cancel := h.timeout(r)
	defer cancel()

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > maxIdempotencyKey {
		writeError(w, r, h.Log, apperr.New(apperr.KindInvalidInput, "Idempotency-Key longer than %d characters", maxIdempotencyKey))
		return
	}
	claimed := false
	if key != "" && h.Idem != nil {
		existing, started, err := h.Idem.Begin(ctx, buyer.UserID, key)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		if !started {
			// replay: kembalikan order yang sudah dibuat
			v, err := h.Orders.Get(ctx, existing, buyer)
			if err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, http.StatusOK, v)
			return
		}
		claimed = true
	}

	lines := make([]orders.LineItem, len(req.Items))
	for i, it := range req.Items {
		lines[i] = orders.LineItem{ListingID: it.ListingID, Quantity: it.Quantity}
	}

	v, err := h.Orders.PlaceOrder(ctx, buyer.UserID, req.SellerID, lines)
	if claimed {
		// an order id means the order committed, even alongside an error
		if v.ID != 0 {
			if cerr := h.Idem.Complete(context.WithoutCancel(ctx), buyer.UserID, key, v.ID); cerr != nil {
				h.Log.Warn("idempotency complete", zap.String("key", key), zap.Int64("order_id", v.ID), zap.Error(cerr))
			}
		} else if aerr := h.Idem.Abort(context.WithoutCancel(ctx), buyer.UserID, key); aerr != nil {
			h.Log.Warn("idempotency abort", zap.String("key", key), zap.Error(aerr))
		}
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cacheStatus(ctx, v.Order)

	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) myHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()

	list, err := h.Orders.BuyerHistory(ctx, identity(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) sellerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()

	list, err := h.Orders.SellerOrders(ctx, identity(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "order_id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := h.timeout(r)
	defer cancel()

	v, err := h.Orders.Get(ctx, orderID, identity(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "order_id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req updateStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	to, err := orders.ParseTarget(req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	v, err := h.Orders.UpdateStatus(ctx, orderID, identity(r).UserID, to)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cacheStatus(ctx, v.Order)
	writeJSON(w, http.StatusOK, v)
}

type orderStatusResp struct {
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Cached    bool      `json:"cached"`
}

// getOrderStatus serves from the status cache and falls back to the
// database, filling the cache on a miss.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "order_id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	viewer := identity(r)

	ctx, cancel := h.timeout(r)
	defer cancel()

	// 1) coba cache
	if h.Status != nil {
		s, ok, err := h.Status.Get(ctx, orderID)
		if err != nil {
			h.Log.Warn("status cache get", zap.Int64("order_id", orderID), zap.Error(err))
		}
		if ok && err == nil {
			if !viewer.IsAdmin() && viewer.UserID != s.BuyerID && viewer.UserID != s.SellerID {
				writeError(w, r, h.Log, apperr.New(apperr.KindForbidden, "order %d is not yours", orderID))
				return
			}
			writeJSON(w, http.StatusOK, orderStatusResp{OrderID: orderID, Status: s.Status, UpdatedAt: s.UpdatedAt, Cached: true})
			return
		}
	}

	// 2) fallback DB
	v, err := h.Orders.Get(ctx, orderID, viewer)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cacheStatus(ctx, v.Order)
	writeJSON(w, http.StatusOK, orderStatusResp{OrderID: v.ID, Status: string(v.Status), UpdatedAt: v.UpdatedAt})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	if h.Status == nil {
		return
	}
	_, err := h.Status.Put(ctx, redisx.OrderStatus{
		OrderID:   o.ID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Status:    string(o.Status),
		UpdatedAt: o.UpdatedAt,
		Version:   o.Version,
	})
	if err != nil {
		h.Log.Warn("status cache put", zap.Int64("order_id", o.ID), zap.Error(err))
	}
}
