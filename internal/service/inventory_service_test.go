package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

func TestInventory_CreateStoreAndSetStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	store, err := f.inventory.CreateStore(ctx, asStaffA, " Harbour ", "Portsmouth", "2 Quay")
	require.NoError(t, err)
	assert.Equal(t, "Harbour", store.Name)
	assert.Equal(t, tenantA, store.TenantID)

	level, err := f.inventory.SetStock(ctx, asStaffA, entity.SetStockRequest{StoreID: store.ID, ProductID: cabID, Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, level.Quantity)
	assert.Equal(t, 7, f.available(t, level.StockKey))
	assert.Equal(t, 3, f.onHand(t, cabID))

	_, err = f.inventory.SetStock(ctx, asStaffA, entity.SetStockRequest{ProductID: cabID, Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, f.onHand(t, cabID))

	types := f.publisher.types()
	assert.Equal(t, []string{"StockAdjusted", "StockAdjusted"}, types)
	assert.Equal(t, messaging.TopicInventory, f.publisher.events[0].topic)
}

func TestInventory_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.inventory.CreateStore(ctx, asCustomerA, "Kiosk", "", "")
	assert.ErrorIs(t, err, entity.ErrForbidden)

	_, err = f.inventory.CreateStore(ctx, asOwnerA, "  ", "", "")
	assert.ErrorIs(t, err, entity.ErrValidation)

	tests := []struct {
		name   string
		caller entity.Identity
		req    entity.SetStockRequest
		target error
	}{
		{"customer", asCustomerA, entity.SetStockRequest{ProductID: ampID, Quantity: 1}, entity.ErrForbidden},
		{"negative", asOwnerA, entity.SetStockRequest{ProductID: ampID, Quantity: -1}, entity.ErrValidation},
		{"no product", asOwnerA, entity.SetStockRequest{Quantity: 1}, entity.ErrValidation},
		{"unknown product", asOwnerA, entity.SetStockRequest{ProductID: "nope", Quantity: 1}, entity.ErrProductNotFound},
		{"foreign product", asOwnerA, entity.SetStockRequest{ProductID: pedalID, Quantity: 1}, entity.ErrTenantMismatch},
		{"foreign store", asOwnerA, entity.SetStockRequest{StoreID: storeB, ProductID: ampID, Quantity: 1}, entity.ErrTenantMismatch},
		{"unknown store", asOwnerA, entity.SetStockRequest{StoreID: "nope", ProductID: ampID, Quantity: 1}, entity.ErrStoreNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.inventory.SetStock(ctx, tt.caller, tt.req)
			assert.ErrorIs(t, err, tt.target)
		})
	}
	assert.Equal(t, 5, f.onHand(t, ampID))
}

func TestInventory_Availability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.inventory.CreateStore(ctx, asOwnerA, "Warehouse", "Capital City", "")
	require.NoError(t, err)
	_, err = f.inventory.SetStock(ctx, asOwnerA, entity.SetStockRequest{StoreID: empty.ID, ProductID: ampID, Quantity: 0})
	require.NoError(t, err)

	rows, err := f.inventory.Availability(ctx, asCustomerA, ampID)
	require.NoError(t, err)
	assert.Equal(t, []entity.Availability{
		{StoreName: DefaultStoreName, Quantity: 5},
		{StoreID: storeA, StoreName: "Downtown", City: "Springfield", Quantity: 2},
	}, rows)

	_, err = f.inventory.Availability(ctx, asCustomerA, pedalID)
	assert.ErrorIs(t, err, entity.ErrTenantMismatch)

	_, err = f.inventory.Availability(ctx, asCustomerA, "nope")
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
}

func TestInventory_ListProducts(t *testing.T) {
	f := newFixture(t)

	products, err := f.inventory.ListProducts(context.Background(), asCustomerA)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Amp", products[0].Name)
	assert.Equal(t, "Cab", products[1].Name)

	_, err = f.inventory.ListProducts(context.Background(), entity.Identity{})
	assert.ErrorIs(t, err, entity.ErrUnauthenticated)
}
