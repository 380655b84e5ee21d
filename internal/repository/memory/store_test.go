package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

func seeded() *Store {
	s := NewStore()
	s.Seed(repository.SeedData{
		Tenants:  []entity.Tenant{{ID: "t-1", Name: "One"}},
		Accounts: []entity.Account{{ID: "a-1", Email: "a@one.test", Role: entity.RoleCustomer, TenantID: "t-1"}},
		Products: []entity.Product{{ID: "p-1", TenantID: "t-1", Name: "Amp", Price: decimal.NewFromInt(100), QuantityOnHand: 5}},
		Stores:   []entity.Store{{ID: "s-1", TenantID: "t-1", Name: "Downtown"}},
	})
	return s
}

var defaultKey = entity.StockKey{TenantID: "t-1", ProductID: "p-1"}

func (s *Store) mustAvailable(t *testing.T, key entity.StockKey) int {
	t.Helper()
	var qty int
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		qty, err = tx.Ledger().Available(ctx, key)
		return err
	}))
	return qty
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := seeded()
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Ledger().Reserve(ctx, defaultKey, 4)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, s.mustAvailable(t, defaultKey))
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	s := seeded()

	assert.Panics(t, func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			_, _ = tx.Ledger().Reserve(ctx, defaultKey, 4)
			panic("boom")
		})
	})
	assert.Equal(t, 5, s.mustAvailable(t, defaultKey))
}

func TestWithinTx_CancelledContext(t *testing.T) {
	s := seeded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(context.Context, repository.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLedger(t *testing.T) {
	s := seeded()
	storeKey := entity.StockKey{TenantID: "t-1", StoreID: "s-1", ProductID: "p-1"}

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Ledger().Reserve(ctx, defaultKey, 6)
		assert.ErrorIs(t, err, entity.ErrInsufficientStock)

		remaining, err := tx.Ledger().Reserve(ctx, defaultKey, 5)
		require.NoError(t, err)
		assert.Zero(t, remaining)

		_, err = tx.Ledger().Available(ctx, entity.StockKey{TenantID: "t-2", ProductID: "p-1"})
		assert.ErrorIs(t, err, entity.ErrProductNotFound)

		qty, err := tx.Ledger().Available(ctx, storeKey)
		require.NoError(t, err)
		assert.Zero(t, qty)

		remaining, err = tx.Ledger().Release(ctx, storeKey, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, remaining)

		levels, err := tx.Ledger().ListLevels(ctx, "t-1", "p-1")
		require.NoError(t, err)
		require.Len(t, levels, 1)
		assert.Equal(t, 3, levels[0].Quantity)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, s.mustAvailable(t, defaultKey))
}

func TestAccounts_CreateIfAbsent(t *testing.T) {
	s := seeded()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		created, err := tx.Accounts().CreateIfAbsent(ctx, &entity.Account{ID: "a-2", Email: "a@one.test", TenantID: "t-1"})
		require.NoError(t, err)
		assert.False(t, created)

		created, err = tx.Accounts().CreateIfAbsent(ctx, &entity.Account{ID: "a-3", Email: "new@one.test", TenantID: "t-1"})
		require.NoError(t, err)
		assert.True(t, created)

		found, err := tx.Accounts().FindByEmail(ctx, "new@one.test")
		require.NoError(t, err)
		assert.Equal(t, "a-3", found.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestOrders_ListNewestFirstAndDelete(t *testing.T) {
	s := seeded()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	line := []entity.OrderLine{{ID: "l-1", ProductID: "p-1", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}}

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		for i, id := range []string{"o-1", "o-2"} {
			o := entity.NewOrder(id, "t-1", "a-1", "", entity.Contact{}, line, base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, tx.Orders().Create(ctx, o))
		}

		orders, err := tx.Orders().ListByTenant(ctx, "t-1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "o-2", orders[0].ID)

		require.NoError(t, tx.Orders().Delete(ctx, "o-1"))
		_, err = tx.Orders().FindByID(ctx, "o-1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, tx.Orders().Delete(ctx, "o-1"), repository.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestHistory_AssignsVersions(t *testing.T) {
	s := seeded()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.History().Append(ctx, "o-1", "t-1",
			entity.OrderDeleted{OrderID: "o-1", TenantID: "t-1"},
		))
		require.NoError(t, tx.History().Append(ctx, "o-1", "t-1",
			entity.StockReleased{OrderID: "o-1", Key: defaultKey, Quantity: 1},
		))

		events, err := tx.History().Load(ctx, "o-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, 1, events[0].Version)
		assert.Equal(t, 2, events[1].Version)
		assert.Equal(t, "StockReleased", events[1].EventType)
		return nil
	})
	require.NoError(t, err)
}

func TestLedger_RejectsOutOfRangeAmounts(t *testing.T) {
	s := seeded()
	storeKey := entity.StockKey{TenantID: "t-1", StoreID: "s-1", ProductID: "p-1"}

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Ledger().Reserve(ctx, defaultKey, -1)
		assert.ErrorIs(t, err, entity.ErrValidation)
		_, err = tx.Ledger().Release(ctx, defaultKey, -1)
		assert.ErrorIs(t, err, entity.ErrValidation)
		_, err = tx.Ledger().Reserve(ctx, defaultKey, entity.MaxQuantity+1)
		assert.ErrorIs(t, err, entity.ErrValidation)

		require.NoError(t, tx.Ledger().SetLevel(ctx, storeKey, entity.MaxQuantity))
		_, err = tx.Ledger().Release(ctx, storeKey, 1)
		assert.ErrorIs(t, err, entity.ErrValidation)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, s.mustAvailable(t, defaultKey))
	assert.Equal(t, entity.MaxQuantity, s.mustAvailable(t, storeKey))
}

func TestHistory_UsesStoreClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return at }))

	var events []entity.OrderEvent
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.History().Append(ctx, "o-1", "t-1", entity.OrderDeleted{OrderID: "o-1"}))
		var err error
		events, err = tx.History().Load(ctx, "o-1")
		return err
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].CreatedAt)
}
