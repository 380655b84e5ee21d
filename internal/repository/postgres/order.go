package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type orderRepository struct {
	q querier
}

const orderColumns = `id, tenant_id, account_id, COALESCE(store_id, ''), total_amount, status,
	first_name, last_name, address, phone, created_at`

func scanOrder(row interface{ Scan(...any) error }) (entity.Order, error) {
	var (
		o      entity.Order
		status string
	)
	err := row.Scan(&o.ID, &o.TenantID, &o.AccountID, &o.StoreID, &o.TotalAmount, &status,
		&o.Contact.FirstName, &o.Contact.LastName, &o.Contact.Address, &o.Contact.Phone, &o.CreatedAt)
	o.Status = entity.OrderStatus(status)
	return o, err
}

func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (id, tenant_id, account_id, store_id, total_amount, status,
			first_name, last_name, address, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.TenantID, o.AccountID, nullString(o.StoreID), o.TotalAmount, string(o.Status),
		o.Contact.FirstName, o.Contact.LastName, o.Contact.Address, o.Contact.Phone, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, l := range o.Lines {
		_, err = r.q.ExecContext(ctx,
			"INSERT INTO order_lines (id, order_id, position, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5, $6)",
			l.ID, o.ID, i, l.ProductID, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.findOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.findOne(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (r *orderRepository) findOne(ctx context.Context, query, id string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", id, err)
	}

	orders := []entity.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	res, err := r.q.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *orderRepository) ListByAccount(ctx context.Context, accountID string) ([]entity.Order, error) {
	return r.list(ctx, "SELECT "+orderColumns+" FROM orders WHERE account_id = $1 ORDER BY created_at DESC, id", accountID)
}

func (r *orderRepository) ListByTenant(ctx context.Context, tenantID string) ([]entity.Order, error) {
	return r.list(ctx, "SELECT "+orderColumns+" FROM orders WHERE tenant_id = $1 ORDER BY created_at DESC, id", tenantID)
}

func (r *orderRepository) list(ctx context.Context, query string, arg string) ([]entity.Order, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines fetches the lines of all given orders in one query.
func (r *orderRepository) attachLines(ctx context.Context, orders []entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Lines = []entity.OrderLine{}
	}

	rows, err := r.q.QueryContext(ctx,
		"SELECT id, order_id, product_id, quantity, unit_price FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return rows.Err()
}
