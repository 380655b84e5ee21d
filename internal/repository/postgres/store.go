package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type storeRepository struct {
	q querier
}

func (r *storeRepository) Create(ctx context.Context, s *entity.Store) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO stores (id, tenant_id, name, city, address) VALUES ($1, $2, $3, $4, $5)",
		s.ID, s.TenantID, s.Name, s.City, s.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to insert store: %w", err)
	}
	return nil
}

func (r *storeRepository) FindByID(ctx context.Context, id string) (*entity.Store, error) {
	var s entity.Store
	err := r.q.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, city, address FROM stores WHERE id = $1", id,
	).Scan(&s.ID, &s.TenantID, &s.Name, &s.City, &s.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query store %s: %w", id, err)
	}
	return &s, nil
}

func (r *storeRepository) ListByTenant(ctx context.Context, tenantID string) ([]entity.Store, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, tenant_id, name, city, address FROM stores WHERE tenant_id = $1 ORDER BY name", tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	var stores []entity.Store
	for rows.Next() {
		var s entity.Store
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.City, &s.Address); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}
