package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

func (f *fixture) accountByEmail(t *testing.T, email string) (*entity.Account, error) {
	t.Helper()
	var account *entity.Account
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		account, err = tx.Accounts().FindByEmail(ctx, email)
		return err
	})
	return account, err
}

func TestGuestCheckout_ProvisionsCustomerOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := entity.GuestCheckoutRequest{
		TenantID: tenantA,
		Email:    "  Guest@Example.COM ",
		Items:    []entity.LineRequest{line(ampID, 1)},
		Contact:  entity.Contact{FirstName: "Grace", Address: "1 Main St"},
	}

	first, err := f.orders.GuestCheckout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, first.Status)
	assert.Equal(t, "1 Main St", first.Contact.Address)

	account, err := f.accountByEmail(t, "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, account.ID)
	assert.Equal(t, entity.RoleCustomer, account.Role)
	assert.Equal(t, tenantA, account.TenantID)
	assert.NotEmpty(t, account.PasswordHash)
	_, err = bcrypt.Cost([]byte(account.PasswordHash))
	assert.NoError(t, err)

	req.Email = "guest@example.com"
	second, err := f.orders.GuestCheckout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.AccountID, second.AccountID)
	assert.NotEqual(t, first.ID, second.ID)

	mine, err := f.orders.ListMine(ctx, entity.Identity{AccountID: account.ID, TenantID: tenantA, Role: entity.RoleCustomer})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	placed := f.publisher.events[0].event.(entity.OrderPlaced)
	assert.True(t, placed.Guest)
}

func TestGuestCheckout_ReusesRegisteredAccount(t *testing.T) {
	f := newFixture(t)

	order, err := f.orders.GuestCheckout(context.Background(), entity.GuestCheckoutRequest{
		TenantID: tenantA,
		Email:    "customer@tone.test",
		Items:    []entity.LineRequest{line(cabID, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, customerA, order.AccountID)
}

func TestGuestCheckout_FailedOrderLeavesNoAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.GuestCheckout(context.Background(), entity.GuestCheckoutRequest{
		TenantID: tenantA,
		Email:    "new@example.com",
		Items:    []entity.LineRequest{line("missing", 1)},
	})
	require.ErrorIs(t, err, entity.ErrProductNotFound)

	_, err = f.accountByEmail(t, "new@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.publisher.types())
}

func TestGuestCheckout_EmailOwnedByAnotherTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.GuestCheckout(context.Background(), entity.GuestCheckoutRequest{
		TenantID: tenantA,
		Email:    "owner@other.test",
		Items:    []entity.LineRequest{line(ampID, 1)},
	})
	assert.ErrorIs(t, err, entity.ErrTenantMismatch)
}

func TestGuestCheckout_CrossTenantProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.GuestCheckout(context.Background(), entity.GuestCheckoutRequest{
		TenantID: tenantB,
		Email:    "shopper@example.com",
		Items:    []entity.LineRequest{line(ampID, 1)},
	})
	assert.ErrorIs(t, err, entity.ErrTenantMismatch)

	_, err = f.accountByEmail(t, "shopper@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGuestCheckout_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.GuestCheckout(ctx, entity.GuestCheckoutRequest{Email: "a@b.test", Items: []entity.LineRequest{line(ampID, 1)}})
	assert.ErrorIs(t, err, entity.ErrValidation)

	for _, email := range []string{"", "   ", "not-an-email", "Bob <bob@example.com>"} {
		_, err := f.orders.GuestCheckout(ctx, entity.GuestCheckoutRequest{TenantID: tenantA, Email: email, Items: []entity.LineRequest{line(ampID, 1)}})
		assert.ErrorIs(t, err, entity.ErrValidation, "email %q", email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail(" Mixed.Case@Example.Org ")
	require.NoError(t, err)
	assert.Equal(t, "mixed.case@example.org", got)
}
