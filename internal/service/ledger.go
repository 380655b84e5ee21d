package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Reservation is a quantity to move against one ledger key.
type Reservation struct {
	Key      entity.StockKey
	Quantity int
}

// ReservationsFor turns the lines of an order into ledger movements, merging
// lines that share a product so each key is checked against its full demand.
func ReservationsFor(o *entity.Order) []Reservation {
	var out []Reservation
	index := make(map[entity.StockKey]int, len(o.Lines))
	for _, l := range o.Lines {
		key := o.StockKey(l.ProductID)
		if i, ok := index[key]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, Reservation{Key: key, Quantity: l.Quantity})
	}
	return out
}

// lockOrder returns a copy sorted by tenant, store, then product. Ledger rows
// are always locked in this order.
func lockOrder(reservations []Reservation) []Reservation {
	sorted := slices.Clone(reservations)
	slices.SortStableFunc(sorted, func(a, b Reservation) int {
		return cmp.Or(
			cmp.Compare(a.Key.TenantID, b.Key.TenantID),
			cmp.Compare(a.Key.StoreID, b.Key.StoreID),
			cmp.Compare(a.Key.ProductID, b.Key.ProductID),
		)
	})
	return sorted
}

// ReserveAll reserves every entry in lock order. On the first failure it
// releases what it already took and returns the failure; the caller's unit of
// work rolls back as well. Shortages are reported with the product name.
func ReserveAll(ctx context.Context, tx repository.Tx, orderID string, reservations []Reservation) ([]entity.Event, error) {
	reservations = lockOrder(reservations)
	ledger := tx.Ledger()
	events := make([]entity.Event, 0, len(reservations))

	for i, r := range reservations {
		remaining, err := ledger.Reserve(ctx, r.Key, r.Quantity)
		if err == nil {
			events = append(events, entity.StockReserved{OrderID: orderID, Key: r.Key, Quantity: r.Quantity, Remaining: remaining})
			continue
		}

		err = withProductName(ctx, tx.Products(), err)
		if _, relErr := releaseEntries(ctx, ledger, orderID, reservations[:i]); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return nil, err
	}
	return events, nil
}

// ReleaseAll puts every entry back into the ledger, in lock order.
func ReleaseAll(ctx context.Context, tx repository.Tx, orderID string, reservations []Reservation) ([]entity.Event, error) {
	return releaseEntries(ctx, tx.Ledger(), orderID, lockOrder(reservations))
}

func releaseEntries(ctx context.Context, ledger repository.StockLedger, orderID string, reservations []Reservation) ([]entity.Event, error) {
	events := make([]entity.Event, 0, len(reservations))
	for _, r := range reservations {
		remaining, err := ledger.Release(ctx, r.Key, r.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to release %d of product %s: %w", r.Quantity, r.Key.ProductID, err)
		}
		events = append(events, entity.StockReleased{OrderID: orderID, Key: r.Key, Quantity: r.Quantity, Remaining: remaining})
	}
	return events, nil
}

func withProductName(ctx context.Context, products repository.ProductRepository, err error) error {
	var de *entity.Error
	if !errors.As(err, &de) || de.Shortage == nil || de.Shortage.ProductName != "" {
		return err
	}
	p, lookupErr := products.FindByID(ctx, de.Shortage.ProductID)
	if lookupErr != nil {
		return err
	}
	shortage := *de.Shortage
	shortage.ProductName = p.Name
	return entity.NewInsufficientStock(shortage)
}
