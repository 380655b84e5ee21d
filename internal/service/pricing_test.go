package service

import (
	"context"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

func TestPriceLines(t *testing.T) {
	f := newFixture(t)

	var lines []entity.OrderLine
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		lines, err = PriceLines(ctx, tx.Products(), tenantA, []entity.LineRequest{line(cabID, 3), line(ampID, 1)})
		return err
	})
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.Equal(t, cabID, lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("49.99")))
	assert.True(t, lines[0].Subtotal().Equal(decimal.RequireFromString("149.97")))
	assert.NotEmpty(t, lines[0].ID)
	assert.NotEqual(t, lines[0].ID, lines[1].ID)
}

func TestPriceLines_QuantityLimits(t *testing.T) {
	f := newFixture(t)
	half := math.MaxInt64/2 + 1

	tests := []struct {
		name  string
		items []entity.LineRequest
	}{
		{"single line above limit", []entity.LineRequest{line(ampID, entity.MaxQuantity+1)}},
		{"lines summing past int range", []entity.LineRequest{line(ampID, half), line(ampID, half)}},
		{"lines summing past limit", []entity.LineRequest{line(ampID, entity.MaxQuantity), line(cabID, 1), line(ampID, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
				_, err := PriceLines(ctx, tx.Products(), tenantA, tt.items)
				return err
			})
			assert.ErrorIs(t, err, entity.ErrValidation)
		})
	}

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := PriceLines(ctx, tx.Products(), tenantA, []entity.LineRequest{line(ampID, entity.MaxQuantity), line(cabID, entity.MaxQuantity)})
		return err
	})
	assert.NoError(t, err)
}

func TestGuards(t *testing.T) {
	assert.NoError(t, CheckTenant(tenantA, tenantA, "order", "o-1"))
	assert.ErrorIs(t, CheckTenant(tenantA, tenantB, "order", "o-1"), entity.ErrTenantMismatch)
	assert.ErrorIs(t, CheckTenant("", "", "order", "o-1"), entity.ErrTenantMismatch)

	assert.NoError(t, RequireManager(asOwnerA))
	assert.NoError(t, RequireManager(asStaffA))
	assert.ErrorIs(t, RequireManager(asCustomerA), entity.ErrForbidden)
	assert.ErrorIs(t, RequireManager(entity.Identity{Role: entity.RoleOwner}), entity.ErrUnauthenticated)
	assert.ErrorIs(t, RequireIdentity(entity.Identity{AccountID: "x"}), entity.ErrUnauthenticated)
}
