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

type productRepository struct {
	q querier
}

const productColumns = "id, tenant_id, name, sku, price, quantity_on_hand"

func scanProduct(row interface{ Scan(...any) error }) (entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.SKU, &p.Price, &p.QuantityOnHand)
	return p, err
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product %s: %w", id, err)
	}
	return &p, nil
}

func (r *productRepository) ListByTenant(ctx context.Context, tenantID string) ([]entity.Product, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+productColumns+" FROM products WHERE tenant_id = $1 ORDER BY name", tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

// Seed inserts data in one transaction unless one of its tenants already
// exists.
func Seed(ctx context.Context, db *sql.DB, data repository.SeedData) error {
	ids := make([]string, len(data.Tenants))
	for i, t := range data.Tenants {
		ids[i] = t.ID
	}
	var seeded bool
	if err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM tenants WHERE id = ANY($1))", pq.Array(ids),
	).Scan(&seeded); err != nil {
		return fmt.Errorf("failed to check seeded tenants: %w", err)
	}
	if seeded {
		return nil
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, t := range data.Tenants {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO tenants (id, name, subdomain, active) VALUES ($1, $2, $3, $4)",
			t.ID, t.Name, t.Subdomain, t.Active,
		); err != nil {
			return fmt.Errorf("failed to seed tenant %s: %w", t.ID, err)
		}
	}
	for _, a := range data.Accounts {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO accounts (id, email, password_hash, role, tenant_id) VALUES ($1, $2, $3, $4, $5)",
			a.ID, a.Email, a.PasswordHash, string(a.Role), a.TenantID,
		); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", a.ID, err)
		}
	}
	for _, p := range data.Products {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO products (id, tenant_id, name, sku, price, quantity_on_hand) VALUES ($1, $2, $3, $4, $5, $6)",
			p.ID, p.TenantID, p.Name, p.SKU, p.Price, p.QuantityOnHand,
		); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	for _, s := range data.Stores {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO stores (id, tenant_id, name, city, address) VALUES ($1, $2, $3, $4, $5)",
			s.ID, s.TenantID, s.Name, s.City, s.Address,
		); err != nil {
			return fmt.Errorf("failed to seed store %s: %w", s.ID, err)
		}
	}
	for _, l := range data.Levels {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO stock_levels (tenant_id, store_id, product_id, quantity) VALUES ($1, $2, $3, $4)",
			l.TenantID, l.StoreID, l.ProductID, l.Quantity,
		); err != nil {
			return fmt.Errorf("failed to seed stock level %s/%s: %w", l.StoreID, l.ProductID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
