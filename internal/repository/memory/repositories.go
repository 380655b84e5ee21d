package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type accountRepository struct{ st *state }

func (r accountRepository) FindByID(_ context.Context, id string) (*entity.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	id, ok := r.st.emails[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r accountRepository) CreateIfAbsent(_ context.Context, a *entity.Account) (bool, error) {
	if _, taken := r.st.emails[a.Email]; taken {
		return false, nil
	}
	r.st.accounts[a.ID] = *a
	r.st.emails[a.Email] = a.ID
	return true, nil
}

type productRepository struct{ st *state }

func (r productRepository) FindByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r productRepository) ListByTenant(_ context.Context, tenantID string) ([]entity.Product, error) {
	var products []entity.Product
	for _, p := range r.st.products {
		if p.TenantID == tenantID {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

type storeRepository struct{ st *state }

func (r storeRepository) Create(_ context.Context, s *entity.Store) error {
	if _, exists := r.st.stores[s.ID]; exists {
		return fmt.Errorf("store %s already exists", s.ID)
	}
	r.st.stores[s.ID] = *s
	return nil
}

func (r storeRepository) FindByID(_ context.Context, id string) (*entity.Store, error) {
	s, ok := r.st.stores[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r storeRepository) ListByTenant(_ context.Context, tenantID string) ([]entity.Store, error) {
	var stores []entity.Store
	for _, s := range r.st.stores {
		if s.TenantID == tenantID {
			stores = append(stores, s)
		}
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores, nil
}

type orderRepository struct{ st *state }

func (r orderRepository) Create(_ context.Context, o *entity.Order) error {
	if _, exists := r.st.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	stored := *o
	stored.Lines = append([]entity.OrderLine(nil), o.Lines...)
	r.st.orders[o.ID] = stored
	return nil
}

func (r orderRepository) FindByID(_ context.Context, id string) (*entity.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

// FindByIDForUpdate needs no row lock: units of work already run one at a time.
func (r orderRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.FindByID(ctx, id)
}

func (r orderRepository) UpdateStatus(_ context.Context, id string, status entity.OrderStatus) error {
	o, ok := r.st.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	r.st.orders[id] = o
	return nil
}

func (r orderRepository) Delete(_ context.Context, id string) error {
	if _, ok := r.st.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.orders, id)
	return nil
}

func (r orderRepository) ListByAccount(_ context.Context, accountID string) ([]entity.Order, error) {
	return r.filter(func(o entity.Order) bool { return o.AccountID == accountID }), nil
}

func (r orderRepository) ListByTenant(_ context.Context, tenantID string) ([]entity.Order, error) {
	return r.filter(func(o entity.Order) bool { return o.TenantID == tenantID }), nil
}

func (r orderRepository) filter(keep func(entity.Order) bool) []entity.Order {
	var orders []entity.Order
	for _, o := range r.st.orders {
		if keep(o) {
			orders = append(orders, *copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders
}

func copyOrder(o entity.Order) *entity.Order {
	o.Lines = append([]entity.OrderLine{}, o.Lines...)
	return &o
}

type stockLedger struct{ st *state }

func (l stockLedger) Reserve(ctx context.Context, key entity.StockKey, amount int) (int, error) {
	if err := repository.CheckAmount(amount); err != nil {
		return 0, err
	}
	available, err := l.Available(ctx, key)
	if err != nil {
		return 0, err
	}
	if available < amount {
		return 0, entity.NewInsufficientStock(entity.StockShortage{
			ProductID: key.ProductID,
			StoreID:   key.StoreID,
			Available: available,
			Requested: amount,
		})
	}
	l.put(key, available-amount)
	return available - amount, nil
}

func (l stockLedger) Release(ctx context.Context, key entity.StockKey, amount int) (int, error) {
	if err := repository.CheckAmount(amount); err != nil {
		return 0, err
	}
	available, err := l.Available(ctx, key)
	if err != nil {
		return 0, err
	}
	if available > entity.MaxQuantity-amount {
		return 0, entity.NewValidation("releasing %d of product %s would exceed %d", amount, key.ProductID, entity.MaxQuantity)
	}
	l.put(key, available+amount)
	return available + amount, nil
}

func (l stockLedger) Available(_ context.Context, key entity.StockKey) (int, error) {
	if key.StoreID != "" {
		return l.st.levels[key], nil
	}
	p, ok := l.st.products[key.ProductID]
	if !ok || p.TenantID != key.TenantID {
		return 0, entity.NewProductNotFound(key.ProductID)
	}
	return p.QuantityOnHand, nil
}

func (l stockLedger) SetLevel(_ context.Context, key entity.StockKey, quantity int) error {
	if key.StoreID == "" {
		p, ok := l.st.products[key.ProductID]
		if !ok || p.TenantID != key.TenantID {
			return repository.ErrNotFound
		}
	}
	l.put(key, quantity)
	return nil
}

func (l stockLedger) ListLevels(_ context.Context, tenantID, productID string) ([]entity.StockLevel, error) {
	var levels []entity.StockLevel
	for key, q := range l.st.levels {
		if key.TenantID == tenantID && key.ProductID == productID {
			levels = append(levels, entity.StockLevel{StockKey: key, Quantity: q})
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].StoreID < levels[j].StoreID })
	return levels, nil
}

func (l stockLedger) put(key entity.StockKey, quantity int) {
	if key.StoreID != "" {
		l.st.levels[key] = quantity
		return
	}
	p := l.st.products[key.ProductID]
	p.QuantityOnHand = quantity
	l.st.products[key.ProductID] = p
}

type orderHistory struct {
	st  *state
	now func() time.Time
}

func (h orderHistory) Append(_ context.Context, orderID, tenantID string, events ...entity.Event) error {
	stream := h.st.history[orderID]
	version := len(stream)
	now := h.now()
	for _, event := range events {
		version++
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		stream = append(stream, entity.OrderEvent{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			TenantID:  tenantID,
			Version:   version,
			EventType: event.EventType(),
			Payload:   payload,
			CreatedAt: now,
		})
	}
	h.st.history[orderID] = stream
	return nil
}

func (h orderHistory) Load(_ context.Context, orderID string) ([]entity.OrderEvent, error) {
	return append([]entity.OrderEvent(nil), h.st.history[orderID]...), nil
}
