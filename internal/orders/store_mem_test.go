package orders

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/money"
)

// memStore is an in-memory Store. WithinTx holds one mutex for the whole
// transaction, which is the serialization row locks give overlapping
// placements, and restores a snapshot when fn fails.
type memStore struct {
	mu       sync.Mutex
	products map[int64]catalog.Product
	listings map[int64]catalog.Listing
	orders   map[int64]Order
	items    []OrderItem
	nextID   int64
	clock    time.Time

	// failInsertItem makes InsertOrderItem fail, to exercise rollback.
	failInsertItem error
	// failOrderView makes OrderView fail after commit.
	failOrderView error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]catalog.Product{},
		listings: map[int64]catalog.Listing{},
		orders:   map[int64]Order{},
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addListing(sellerID int64, name string, price string, qty int) catalog.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := catalog.Product{ID: s.nextID, Name: name, Description: name + " description"}
	s.products[p.ID] = p
	s.nextID++
	l := catalog.Listing{ID: s.nextID, SellerID: sellerID, ProductID: p.ID, Price: mustMoney(price), Quantity: qty}
	s.listings[l.ID] = l
	return l
}

func (s *memStore) quantity(listingID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listings[listingID].Quantity
}

func (s *memStore) setPrice(listingID int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.listings[listingID]
	l.Price = mustMoney(price)
	s.listings[listingID] = l
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) status(orderID int64) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Status
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memSnapshot struct {
	listings map[int64]catalog.Listing
	orders   map[int64]Order
	items    []OrderItem
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		listings: make(map[int64]catalog.Listing, len(s.listings)),
		orders:   make(map[int64]Order, len(s.orders)),
		items:    append([]OrderItem(nil), s.items...),
	}
	for k, v := range s.listings {
		snap.listings[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}

	if err := fn(&memTx{s: s}); err != nil {
		s.listings, s.orders, s.items = snap.listings, snap.orders, snap.items
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t *memTx) LockListing(_ context.Context, id int64) (catalog.Listing, error) {
	l, ok := t.s.listings[id]
	if !ok {
		return catalog.Listing{}, apperr.New(apperr.KindNotFound, "listing %d not found", id)
	}
	return l, nil
}

func (t *memTx) AdjustListingQuantity(_ context.Context, id int64, delta int) (int, error) {
	l, ok := t.s.listings[id]
	if !ok {
		return 0, apperr.New(apperr.KindNotFound, "listing %d not found", id)
	}
	if l.Quantity+delta < 0 {
		return 0, apperr.New(apperr.KindInsufficientStock, "check constraint")
	}
	l.Quantity += delta
	t.s.listings[id] = l
	return l.Quantity, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	t.s.nextID++
	o.ID = t.s.nextID
	o.CreatedAt = t.s.tick()
	o.UpdatedAt = o.CreatedAt
	o.Version = 1
	t.s.orders[o.ID] = *o
	return nil
}

func (t *memTx) InsertOrderItem(_ context.Context, it *OrderItem) error {
	if t.s.failInsertItem != nil {
		return t.s.failInsertItem
	}
	t.s.nextID++
	it.ID = t.s.nextID
	t.s.items = append(t.s.items, *it)
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id int64) (Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return Order{}, apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	return o, nil
}

func (t *memTx) SetOrderStatus(_ context.Context, id int64, st Status) (Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return Order{}, apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	o.Status = st
	o.UpdatedAt = t.s.tick()
	o.Version++
	t.s.orders[id] = o
	return o, nil
}

func (t *memTx) OrderItems(_ context.Context, orderID int64) ([]OrderItem, error) {
	var out []OrderItem
	for _, it := range t.s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *memStore) OrderView(_ context.Context, id int64) (OrderView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrderView != nil {
		return OrderView{}, s.failOrderView
	}
	o, ok := s.orders[id]
	if !ok {
		return OrderView{}, apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	return s.view(o), nil
}

func (s *memStore) OrdersForBuyer(_ context.Context, buyerID int64) ([]OrderView, error) {
	return s.list(func(o Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *memStore) OrdersForSeller(_ context.Context, sellerID int64) ([]OrderView, error) {
	return s.list(func(o Order) bool { return o.SellerID == sellerID }), nil
}

func (s *memStore) list(match func(Order) bool) []OrderView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []OrderView{}
	for _, o := range s.orders {
		if match(o) {
			out = append(out, s.view(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memStore) view(o Order) OrderView {
	v := OrderView{Order: o, Items: []OrderItemView{}}
	for _, it := range s.items {
		if it.OrderID != o.ID {
			continue
		}
		l := s.listings[it.ListingID]
		p := s.products[l.ProductID]
		v.Items = append(v.Items, OrderItemView{
			OrderItem: it,
			Listing: catalog.ListingView{
				Listing: l,
				Product: catalog.ProductSummary{ID: p.ID, Name: p.Name, Description: p.Description},
			},
		})
	}
	return v
}

type published struct {
	topic   string
	key     string
	env     Envelope
	headers map[string]string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(topic string, key, value []byte, headers map[string]string) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, key: string(key), env: env, headers: headers})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func mustMoney(s string) money.Money {
	m, err := money.Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}
