package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/money"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct{ tx pgx.Tx }

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(buyer_id, seller_id, total_price_cents, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at, updated_at`,
		o.BuyerID, o.SellerID, o.TotalPrice.Cents(), string(o.Status),
	).Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.New(apperr.KindUnauthorized, "buyer %d is not a registered user", o.BuyerID)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgTx) InsertOrderItem(ctx context.Context, it *OrderItem) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, seller_product_id, quantity, price_at_purchase_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		it.OrderID, it.ListingID, it.Quantity, it.PriceAtPurchase.Cents(),
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, orderID int64) (Order, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("lock order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.KindNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return Order{}, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

func (t *pgTx) SetOrderStatus(ctx context.Context, orderID int64, status Status) (Order, error) {
	rows, err := t.tx.Query(ctx, `
		UPDATE orders SET status=$2, updated_at=NOW(), version=version+1
		WHERE id=$1
		RETURNING `+orderColumns, orderID, string(status))
	if err != nil {
		return Order{}, fmt.Errorf("set order status: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.KindNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return Order{}, fmt.Errorf("set order status: %w", err)
	}
	return o, nil
}

func (t *pgTx) OrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, seller_product_id, quantity, price_at_purchase_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderItem, error) {
		var (
			it    OrderItem
			cents int64
		)
		err := row.Scan(&it.ID, &it.OrderID, &it.ListingID, &it.Quantity, &cents)
		it.PriceAtPurchase = money.FromCents(cents)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	return items, nil
}

// ---- read side ----

const orderColumns = `id, buyer_id, seller_id, total_price_cents, status, version, created_at, updated_at`

func scanOrder(row pgx.CollectableRow) (Order, error) {
	var (
		o      Order
		cents  int64
		status string
	)
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &cents, &status, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	o.TotalPrice = money.FromCents(cents)
	o.Status = Status(status)
	return o, err
}

func (r *Repo) OrderView(ctx context.Context, orderID int64) (OrderView, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return OrderView{}, fmt.Errorf("get order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderView{}, apperr.New(apperr.KindNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return OrderView{}, fmt.Errorf("get order: %w", err)
	}
	views, err := r.withItems(ctx, []Order{o})
	if err != nil {
		return OrderView{}, err
	}
	return views[0], nil
}

func (r *Repo) OrdersForBuyer(ctx context.Context, buyerID int64) ([]OrderView, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE buyer_id=$1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (r *Repo) OrdersForSeller(ctx context.Context, sellerID int64) ([]OrderView, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE seller_id=$1 ORDER BY created_at DESC, id DESC`, sellerID)
}

func (r *Repo) listOrders(ctx context.Context, sql string, userID int64) ([]OrderView, error) {
	rows, err := r.DB.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return r.withItems(ctx, list)
}

// withItems resolves items, their listing and the listed product for all
// orders in one query.
func (r *Repo) withItems(ctx context.Context, list []Order) ([]OrderView, error) {
	out := make([]OrderView, len(list))
	if len(list) == 0 {
		return out, nil
	}
	ids := make([]int64, len(list))
	idx := make(map[int64]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		idx[o.ID] = i
		out[i] = OrderView{Order: o, Items: []OrderItemView{}}
	}

	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.seller_product_id, oi.quantity, oi.price_at_purchase_cents,
		       sp.seller_id, sp.product_id, sp.price_cents, sp.quantity,
		       p.name, p.description
		FROM order_items oi
		JOIN seller_products sp ON sp.id = oi.seller_product_id
		JOIN products p ON p.id = sp.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderItemView, error) {
		var (
			v         OrderItemView
			paidCents int64
			nowCents  int64
		)
		err := row.Scan(&v.ID, &v.OrderID, &v.ListingID, &v.Quantity, &paidCents,
			&v.Listing.SellerID, &v.Listing.ProductID, &nowCents, &v.Listing.Quantity,
			&v.Listing.Product.Name, &v.Listing.Product.Description)
		v.PriceAtPurchase = money.FromCents(paidCents)
		v.Listing.ID = v.ListingID
		v.Listing.Price = money.FromCents(nowCents)
		v.Listing.Product.ID = v.Listing.ProductID
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	for _, it := range items {
		i := idx[it.OrderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, nil
}
