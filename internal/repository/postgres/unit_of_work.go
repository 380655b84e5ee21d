package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type unitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a UnitOfWork backed by Postgres transactions.
func NewUnitOfWork(db *sql.DB) repository.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sqlTx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, newTx(sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type tx struct {
	accounts *accountRepository
	products *productRepository
	stores   *storeRepository
	orders   *orderRepository
	ledger   *stockLedger
	history  *orderHistory
}

func newTx(q querier) *tx {
	return &tx{
		accounts: &accountRepository{q: q},
		products: &productRepository{q: q},
		stores:   &storeRepository{q: q},
		orders:   &orderRepository{q: q},
		ledger:   &stockLedger{q: q},
		history:  &orderHistory{q: q},
	}
}

func (t *tx) Accounts() repository.AccountRepository { return t.accounts }
func (t *tx) Products() repository.ProductRepository { return t.products }
func (t *tx) Stores() repository.StoreRepository     { return t.stores }
func (t *tx) Orders() repository.OrderRepository     { return t.orders }
func (t *tx) Ledger() repository.StockLedger         { return t.ledger }
func (t *tx) History() repository.OrderHistory       { return t.history }
