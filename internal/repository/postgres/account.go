package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type accountRepository struct {
	q querier
}

const accountColumns = "id, email, password_hash, role, tenant_id, created_at"

func (r *accountRepository) findOne(ctx context.Context, where string, arg string) (*entity.Account, error) {
	var (
		a    entity.Account
		role string
	)
	err := r.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE "+where, arg).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.TenantID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	a.Role = entity.Role(role)
	return &a, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *accountRepository) CreateIfAbsent(ctx context.Context, a *entity.Account) (bool, error) {
	// ON CONFLICT keeps concurrent guest checkouts with the same email from
	// failing; the loser re-reads the winner's row.
	var id string
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, role, tenant_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING RETURNING id`,
		a.ID, a.Email, a.PasswordHash, string(a.Role), a.TenantID, a.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert account: %w", err)
	}
	return true, nil
}
