package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// stockLedger keeps the default stock in products.quantity_on_hand and the
// per-store stock in stock_levels. Every decrement is a single conditional
// UPDATE, so concurrent reservations on one key serialise on its row lock and
// re-check the quantity after the other transaction finishes.
type stockLedger struct {
	q querier
}

func (l *stockLedger) Reserve(ctx context.Context, key entity.StockKey, amount int) (int, error) {
	if err := repository.CheckAmount(amount); err != nil {
		return 0, err
	}
	var (
		remaining int
		err       error
	)
	if key.StoreID == "" {
		err = l.q.QueryRowContext(ctx,
			`UPDATE products SET quantity_on_hand = quantity_on_hand - $1
			 WHERE id = $2 AND tenant_id = $3 AND quantity_on_hand >= $1
			 RETURNING quantity_on_hand`,
			amount, key.ProductID, key.TenantID,
		).Scan(&remaining)
	} else {
		err = l.q.QueryRowContext(ctx,
			`UPDATE stock_levels SET quantity = quantity - $1
			 WHERE tenant_id = $2 AND store_id = $3 AND product_id = $4 AND quantity >= $1
			 RETURNING quantity`,
			amount, key.TenantID, key.StoreID, key.ProductID,
		).Scan(&remaining)
	}

	if errors.Is(err, sql.ErrNoRows) {
		available, err := l.Available(ctx, key)
		if err != nil {
			return 0, err
		}
		return 0, entity.NewInsufficientStock(entity.StockShortage{
			ProductID: key.ProductID,
			StoreID:   key.StoreID,
			Available: available,
			Requested: amount,
		})
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reserve stock for product %s: %w", key.ProductID, err)
	}
	return remaining, nil
}

func (l *stockLedger) Release(ctx context.Context, key entity.StockKey, amount int) (int, error) {
	if err := repository.CheckAmount(amount); err != nil {
		return 0, err
	}
	var (
		remaining int
		err       error
	)
	if key.StoreID == "" {
		err = l.q.QueryRowContext(ctx,
			`UPDATE products SET quantity_on_hand = quantity_on_hand + $1
			 WHERE id = $2 AND tenant_id = $3
			 RETURNING quantity_on_hand`,
			amount, key.ProductID, key.TenantID,
		).Scan(&remaining)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, entity.NewProductNotFound(key.ProductID)
		}
	} else {
		err = l.q.QueryRowContext(ctx,
			`INSERT INTO stock_levels (tenant_id, store_id, product_id, quantity)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (tenant_id, store_id, product_id)
			 DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity
			 RETURNING quantity`,
			key.TenantID, key.StoreID, key.ProductID, amount,
		).Scan(&remaining)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to release stock for product %s: %w", key.ProductID, err)
	}
	return remaining, nil
}

func (l *stockLedger) Available(ctx context.Context, key entity.StockKey) (int, error) {
	var (
		quantity int
		err      error
	)
	if key.StoreID == "" {
		err = l.q.QueryRowContext(ctx,
			"SELECT quantity_on_hand FROM products WHERE id = $1 AND tenant_id = $2",
			key.ProductID, key.TenantID,
		).Scan(&quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, entity.NewProductNotFound(key.ProductID)
		}
	} else {
		err = l.q.QueryRowContext(ctx,
			"SELECT quantity FROM stock_levels WHERE tenant_id = $1 AND store_id = $2 AND product_id = $3",
			key.TenantID, key.StoreID, key.ProductID,
		).Scan(&quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock for product %s: %w", key.ProductID, err)
	}
	return quantity, nil
}

func (l *stockLedger) SetLevel(ctx context.Context, key entity.StockKey, quantity int) error {
	if key.StoreID == "" {
		res, err := l.q.ExecContext(ctx,
			"UPDATE products SET quantity_on_hand = $1 WHERE id = $2 AND tenant_id = $3",
			quantity, key.ProductID, key.TenantID,
		)
		if err != nil {
			return fmt.Errorf("failed to set stock for product %s: %w", key.ProductID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return repository.ErrNotFound
		}
		return nil
	}

	_, err := l.q.ExecContext(ctx,
		`INSERT INTO stock_levels (tenant_id, store_id, product_id, quantity)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, store_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		key.TenantID, key.StoreID, key.ProductID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to set stock for product %s at store %s: %w", key.ProductID, key.StoreID, err)
	}
	return nil
}

func (l *stockLedger) ListLevels(ctx context.Context, tenantID, productID string) ([]entity.StockLevel, error) {
	rows, err := l.q.QueryContext(ctx,
		"SELECT tenant_id, store_id, product_id, quantity FROM stock_levels WHERE tenant_id = $1 AND product_id = $2 ORDER BY store_id",
		tenantID, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []entity.StockLevel
	for rows.Next() {
		var lv entity.StockLevel
		if err := rows.Scan(&lv.TenantID, &lv.StoreID, &lv.ProductID, &lv.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, lv)
	}
	return levels, rows.Err()
}
