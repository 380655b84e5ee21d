package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusNew       OrderStatus = "NEW"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusRejected  OrderStatus = "REJECTED"
)

// ParseOrderStatus accepts the status names case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusNew, StatusConfirmed, StatusRejected:
		return st, nil
	default:
		return "", NewInvalidStatusValue(s)
	}
}

// OrderLine is a line item within an order. UnitPrice is captured at checkout
// and never rewritten.
type OrderLine struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity times unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the order aggregate: header plus lines.
type Order struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	AccountID   string          `json:"account_id"`
	StoreID     string          `json:"store_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Contact     Contact         `json:"contact"`
	Lines       []OrderLine     `json:"lines"`
}

// NewOrder assembles a NEW order from priced lines and caches its total.
func NewOrder(id, tenantID, accountID, storeID string, contact Contact, lines []OrderLine, createdAt time.Time) *Order {
	o := &Order{
		ID:        id,
		TenantID:  tenantID,
		AccountID: accountID,
		StoreID:   storeID,
		Status:    StatusNew,
		CreatedAt: createdAt,
		Contact:   contact,
		Lines:     make([]OrderLine, len(lines)),
	}
	for i, l := range lines {
		l.OrderID = id
		o.Lines[i] = l
	}
	o.TotalAmount = o.LinesTotal()
	return o
}

// LinesTotal sums the line subtotals.
func (o *Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// StockKey returns the ledger key a line of this order reserves against.
func (o *Order) StockKey(productID string) StockKey {
	return StockKey{TenantID: o.TenantID, StoreID: o.StoreID, ProductID: productID}
}

// StockAction is the ledger movement a transition requires.
type StockAction int

const (
	StockActionNone StockAction = iota
	StockActionReserve
	StockActionRelease
)

// Transition is a planned status change.
type Transition struct {
	From  OrderStatus
	To    OrderStatus
	Stock StockAction
	Noop  bool
}

// PlanTransition decides whether the order may move to target and which ledger
// movement that requires. It does not change the order.
func (o *Order) PlanTransition(target OrderStatus) (Transition, error) {
	t := Transition{From: o.Status, To: target}

	switch {
	case o.Status == StatusConfirmed && target == StatusConfirmed:
		// Reconfirming would decrement stock twice.
		return t, NewInvalidTransition(o.Status, target)
	case o.Status == target:
		t.Noop = true
		return t, nil
	}

	switch {
	case o.Status == StatusNew && target == StatusConfirmed:
		t.Stock = StockActionReserve
	case o.Status == StatusNew && target == StatusRejected:
		t.Stock = StockActionNone
	case o.Status == StatusConfirmed && target == StatusRejected:
		t.Stock = StockActionRelease
	default:
		return t, NewInvalidTransition(o.Status, target)
	}
	return t, nil
}

// Apply moves the order to the transition's target status.
func (o *Order) Apply(t Transition) {
	if t.Noop {
		return
	}
	o.Status = t.To
}
