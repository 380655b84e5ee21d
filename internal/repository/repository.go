package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// UnitOfWork runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back on any error or panic.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to a single transaction.
type Tx interface {
	Accounts() AccountRepository
	Products() ProductRepository
	Stores() StoreRepository
	Orders() OrderRepository
	Ledger() StockLedger
	History() OrderHistory
}

// AccountRepository handles persistence for Accounts.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	// CreateIfAbsent inserts the account unless its email is taken and
	// reports whether a row was written.
	CreateIfAbsent(ctx context.Context, account *entity.Account) (bool, error)
}

// ProductRepository handles persistence for Products.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	ListByTenant(ctx context.Context, tenantID string) ([]entity.Product, error)
}

// StoreRepository handles persistence for Stores.
type StoreRepository interface {
	Create(ctx context.Context, store *entity.Store) error
	FindByID(ctx context.Context, id string) (*entity.Store, error)
	ListByTenant(ctx context.Context, tenantID string) ([]entity.Store, error)
}

// OrderRepository handles persistence for Orders and their lines. Lines are
// written once by Create and removed only together with their order.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	// FindByIDForUpdate loads the order and holds it until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error)
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error
	Delete(ctx context.Context, id string) error
	ListByAccount(ctx context.Context, accountID string) ([]entity.Order, error)
	// ListByTenant returns the tenant's orders, newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]entity.Order, error)
}

// StockLedger is the quantity-on-hand store.
type StockLedger interface {
	// Reserve decrements the key by amount when at least amount is available and
	// returns the remaining quantity. Otherwise it returns an InsufficientStock
	// error and changes nothing.
	Reserve(ctx context.Context, key entity.StockKey, amount int) (int, error)
	// Release increments the key by amount.
	Release(ctx context.Context, key entity.StockKey, amount int) (int, error)
	Available(ctx context.Context, key entity.StockKey) (int, error)
	SetLevel(ctx context.Context, key entity.StockKey, quantity int) error
	// ListLevels returns the named-store levels of a product.
	ListLevels(ctx context.Context, tenantID, productID string) ([]entity.StockLevel, error)
}

// CheckAmount rejects a Reserve or Release amount outside [0, MaxQuantity].
func CheckAmount(amount int) error {
	if amount < 0 || amount > entity.MaxQuantity {
		return entity.NewValidation("stock movement must be between 0 and %d, got %d", entity.MaxQuantity, amount)
	}
	return nil
}

// OrderHistory appends and loads the event stream of an order.
type OrderHistory interface {
	Append(ctx context.Context, orderID, tenantID string, events ...entity.Event) error
	Load(ctx context.Context, orderID string) ([]entity.OrderEvent, error)
}

// SeedData is an initial data set loaded into an empty store.
type SeedData struct {
	Tenants  []entity.Tenant
	Accounts []entity.Account
	Products []entity.Product
	Stores   []entity.Store
	Levels   []entity.StockLevel
}
