package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event represents a domain event.
type Event interface {
	EventType() string
}

// OrderEvent is one entry of an order's append-only history.
type OrderEvent struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	TenantID  string          `json:"tenant_id"`
	Version   int             `json:"version"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// --- Events ---

// OrderPlaced is emitted when checkout persists a new order.
type OrderPlaced struct {
	OrderID     string          `json:"order_id"`
	TenantID    string          `json:"tenant_id"`
	AccountID   string          `json:"account_id"`
	StoreID     string          `json:"store_id,omitempty"`
	Lines       []OrderLine     `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Guest       bool            `json:"guest"`
	PlacedAt    time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is emitted when a manager moves an order to a new status.
type OrderStatusChanged struct {
	OrderID   string      `json:"order_id"`
	TenantID  string      `json:"tenant_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

// OrderDeleted is emitted when an order and its lines are removed.
type OrderDeleted struct {
	OrderID   string      `json:"order_id"`
	TenantID  string      `json:"tenant_id"`
	Status    OrderStatus `json:"status"`
	DeletedBy string      `json:"deleted_by"`
	DeletedAt time.Time   `json:"deleted_at"`
}

func (e OrderDeleted) EventType() string { return "OrderDeleted" }

// StockReserved is emitted when confirmation takes stock out of the ledger.
type StockReserved struct {
	OrderID   string   `json:"order_id"`
	Key       StockKey `json:"key"`
	Quantity  int      `json:"quantity"`
	Remaining int      `json:"remaining"`
}

func (e StockReserved) EventType() string { return "StockReserved" }

// StockReleased is emitted when a rejected order puts its stock back.
type StockReleased struct {
	OrderID   string   `json:"order_id"`
	Key       StockKey `json:"key"`
	Quantity  int      `json:"quantity"`
	Remaining int      `json:"remaining"`
}

func (e StockReleased) EventType() string { return "StockReleased" }

// StockAdjusted is emitted when a manager overwrites a stock level.
type StockAdjusted struct {
	Key        StockKey  `json:"key"`
	Quantity   int       `json:"quantity"`
	AdjustedBy string    `json:"adjusted_by"`
	AdjustedAt time.Time `json:"adjusted_at"`
}

func (e StockAdjusted) EventType() string { return "StockAdjusted" }
