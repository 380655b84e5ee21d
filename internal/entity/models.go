package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the capability an account holds within its tenant.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
)

// CanManage reports whether the role may run management actions for its tenant.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleStaff
}

// Tenant is a store-owning organization. All other data is partitioned by tenant id.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a user of a tenant. Guest checkouts create CUSTOMER accounts.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TenantID     string    `json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Product represents a product in a tenant's catalog.
type Product struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Price          decimal.Decimal `json:"price"`
	QuantityOnHand int             `json:"quantity_on_hand"`
}

// Store is a physical location of a tenant holding its own stock.
type Store struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Address  string `json:"address"`
}

// StockKey identifies a ledger entry. An empty StoreID addresses the product's
// tenant-wide quantity on hand.
type StockKey struct {
	TenantID  string `json:"tenant_id"`
	StoreID   string `json:"store_id,omitempty"`
	ProductID string `json:"product_id"`
}

// StockLevel is the quantity held for a product at a named store.
type StockLevel struct {
	StockKey
	Quantity int `json:"quantity"`
}

// Availability is one row of a product availability listing.
type Availability struct {
	StoreID   string `json:"store_id,omitempty"`
	StoreName string `json:"store_name"`
	City      string `json:"city,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Identity is the caller as resolved by the identity provider.
type Identity struct {
	AccountID string `json:"account_id"`
	TenantID  string `json:"tenant_id"`
	Role      Role   `json:"role"`
}

// --- Commands ---

// Contact holds the optional delivery details of an order.
type Contact struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// MaxQuantity bounds any single stock quantity: a line, the sum of an order's
// lines for one product, or a stock level. It matches the INT columns.
const MaxQuantity = math.MaxInt32

// LineRequest is one requested cart line.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is the command placed by an authenticated customer.
type CheckoutRequest struct {
	Items   []LineRequest `json:"items"`
	StoreID string        `json:"store_id,omitempty"`
	Contact
}

// GuestCheckoutRequest is the command placed without prior login.
type GuestCheckoutRequest struct {
	TenantID string        `json:"tenant_id"`
	Email    string        `json:"email"`
	Items    []LineRequest `json:"items"`
	StoreID  string        `json:"store_id,omitempty"`
	Contact
}

// SetStockRequest overwrites the quantity held for a product.
type SetStockRequest struct {
	StoreID   string `json:"store_id,omitempty"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
