package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"

	ownerA    = "owner-a"
	staffA    = "staff-a"
	customerA = "customer-a"
	ownerB    = "owner-b"

	ampID   = "prod-amp"
	cabID   = "prod-cab"
	pedalID = "prod-pedal"

	storeA = "store-a"
	storeB = "store-b"
)

var (
	asOwnerA    = entity.Identity{AccountID: ownerA, TenantID: tenantA, Role: entity.RoleOwner}
	asStaffA    = entity.Identity{AccountID: staffA, TenantID: tenantA, Role: entity.RoleStaff}
	asCustomerA = entity.Identity{AccountID: customerA, TenantID: tenantA, Role: entity.RoleCustomer}
	asOwnerB    = entity.Identity{AccountID: ownerB, TenantID: tenantB, Role: entity.RoleOwner}

	fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

type recordedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.(entity.Event).EventType()
	}
	return out
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	orders    *OrderService
	inventory *InventoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore(memory.WithClock(func() time.Time { return fixedNow }))
	store.Seed(repository.SeedData{
		Tenants: []entity.Tenant{
			{ID: tenantA, Name: "Tone Shop", Subdomain: "tone", Active: true},
			{ID: tenantB, Name: "Other Shop", Subdomain: "other", Active: true},
		},
		Accounts: []entity.Account{
			{ID: ownerA, Email: "owner@tone.test", Role: entity.RoleOwner, TenantID: tenantA},
			{ID: staffA, Email: "staff@tone.test", Role: entity.RoleStaff, TenantID: tenantA},
			{ID: customerA, Email: "customer@tone.test", Role: entity.RoleCustomer, TenantID: tenantA},
			{ID: ownerB, Email: "owner@other.test", Role: entity.RoleOwner, TenantID: tenantB},
		},
		Products: []entity.Product{
			{ID: ampID, TenantID: tenantA, Name: "Amp", SKU: "AMP-1", Price: decimal.NewFromInt(100), QuantityOnHand: 5},
			{ID: cabID, TenantID: tenantA, Name: "Cab", SKU: "CAB-1", Price: decimal.RequireFromString("49.99"), QuantityOnHand: 3},
			{ID: pedalID, TenantID: tenantB, Name: "Pedal", SKU: "PED-1", Price: decimal.NewFromInt(20), QuantityOnHand: 10},
		},
		Stores: []entity.Store{
			{ID: storeA, TenantID: tenantA, Name: "Downtown", City: "Springfield"},
			{ID: storeB, TenantID: tenantB, Name: "Uptown", City: "Shelbyville"},
		},
		Levels: []entity.StockLevel{
			{StockKey: entity.StockKey{TenantID: tenantA, StoreID: storeA, ProductID: ampID}, Quantity: 2},
		},
	})

	publisher := &recordingPublisher{}
	logger := zaptest.NewLogger(t)
	clock := WithClock(func() time.Time { return fixedNow })

	return &fixture{
		store:     store,
		publisher: publisher,
		orders:    NewOrderService(store, publisher, logger, clock),
		inventory: NewInventoryService(store, publisher, logger, clock),
	}
}

func (f *fixture) available(t *testing.T, key entity.StockKey) int {
	t.Helper()
	var qty int
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		qty, err = tx.Ledger().Available(ctx, key)
		return err
	})
	require.NoError(t, err)
	return qty
}

func (f *fixture) onHand(t *testing.T, productID string) int {
	t.Helper()
	return f.available(t, entity.StockKey{TenantID: tenantA, ProductID: productID})
}

func (f *fixture) checkout(t *testing.T, items ...entity.LineRequest) *entity.Order {
	t.Helper()
	order, err := f.orders.Checkout(context.Background(), asCustomerA, entity.CheckoutRequest{Items: items})
	require.NoError(t, err)
	return order
}

func line(productID string, qty int) entity.LineRequest {
	return entity.LineRequest{ProductID: productID, Quantity: qty}
}
