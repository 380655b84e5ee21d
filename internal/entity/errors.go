package entity

import (
	"errors"
	"fmt"
)

// ErrorKind is the category of a rejected operation.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindTenantMismatch
	KindProductNotFound
	KindOrderNotFound
	KindStoreNotFound
	KindInsufficientStock
	KindInvalidTransition
	KindInvalidStatusValue
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindTenantMismatch:
		return "TENANT_MISMATCH"
	case KindProductNotFound:
		return "PRODUCT_NOT_FOUND"
	case KindOrderNotFound:
		return "ORDER_NOT_FOUND"
	case KindStoreNotFound:
		return "STORE_NOT_FOUND"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindInvalidTransition:
		return "INVALID_TRANSITION"
	case KindInvalidStatusValue:
		return "INVALID_STATUS_VALUE"
	default:
		return "UNKNOWN"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrTenantMismatch     = &Error{Kind: KindTenantMismatch}
	ErrProductNotFound    = &Error{Kind: KindProductNotFound}
	ErrOrderNotFound      = &Error{Kind: KindOrderNotFound}
	ErrStoreNotFound      = &Error{Kind: KindStoreNotFound}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrInvalidStatusValue = &Error{Kind: KindInvalidStatusValue}
)

// StockShortage describes a failed reservation.
type StockShortage struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	StoreID     string `json:"store_id,omitempty"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
}

// Error is returned when an operation is rejected by business rules.
type Error struct {
	Kind     ErrorKind
	Message  string
	Shortage *StockShortage
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// KindOf returns the kind of a domain error anywhere in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func NewValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewTenantMismatch reports access to an entity owned by another tenant.
func NewTenantMismatch(entityType, id string) *Error {
	return &Error{Kind: KindTenantMismatch, Message: fmt.Sprintf("%s %s belongs to another tenant", entityType, id)}
}

func NewProductNotFound(id string) *Error {
	return &Error{Kind: KindProductNotFound, Message: fmt.Sprintf("product %s not found", id)}
}

func NewOrderNotFound(id string) *Error {
	return &Error{Kind: KindOrderNotFound, Message: fmt.Sprintf("order %s not found", id)}
}

func NewStoreNotFound(id string) *Error {
	return &Error{Kind: KindStoreNotFound, Message: fmt.Sprintf("store %s not found", id)}
}

// NewInsufficientStock builds the error for a reservation the ledger could not honour.
func NewInsufficientStock(s StockShortage) *Error {
	name := s.ProductName
	if name == "" {
		name = s.ProductID
	}
	return &Error{
		Kind:     KindInsufficientStock,
		Message:  fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, s.Available, s.Requested),
		Shortage: &s,
	}
}

func NewInvalidTransition(from, to OrderStatus) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot move order from %s to %s", from, to)}
}

func NewInvalidStatusValue(value string) *Error {
	return &Error{Kind: KindInvalidStatusValue, Message: fmt.Sprintf("unknown order status %q", value)}
}
