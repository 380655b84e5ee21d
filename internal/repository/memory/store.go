// Package memory is an in-process implementation of the repository contracts.
// Units of work run one at a time against a private copy of the data that
// replaces the shared copy only when the unit of work succeeds.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type state struct {
	tenants  map[string]entity.Tenant
	accounts map[string]entity.Account
	emails   map[string]string
	products map[string]entity.Product
	stores   map[string]entity.Store
	levels   map[entity.StockKey]int
	orders   map[string]entity.Order
	history  map[string][]entity.OrderEvent
}

func newState() *state {
	return &state{
		tenants:  map[string]entity.Tenant{},
		accounts: map[string]entity.Account{},
		emails:   map[string]string{},
		products: map[string]entity.Product{},
		stores:   map[string]entity.Store{},
		levels:   map[entity.StockKey]int{},
		orders:   map[string]entity.Order{},
		history:  map[string][]entity.OrderEvent{},
	}
}

// clone copies every map. Order lines are never mutated in place, so the
// orders map can share line slices with the original.
func (s *state) clone() *state {
	history := make(map[string][]entity.OrderEvent, len(s.history))
	for id, events := range s.history {
		history[id] = slices.Clone(events)
	}
	return &state{
		tenants:  maps.Clone(s.tenants),
		accounts: maps.Clone(s.accounts),
		emails:   maps.Clone(s.emails),
		products: maps.Clone(s.products),
		stores:   maps.Clone(s.stores),
		levels:   maps.Clone(s.levels),
		orders:   maps.Clone(s.orders),
		history:  history,
	}
}

// Store holds all data in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock that stamps history events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.UnitOfWork = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Seed loads data outside any unit of work, replacing records with the same id.
func (s *Store) Seed(data repository.SeedData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range data.Tenants {
		s.state.tenants[t.ID] = t
	}
	for _, a := range data.Accounts {
		s.state.accounts[a.ID] = a
		s.state.emails[a.Email] = a.ID
	}
	for _, p := range data.Products {
		s.state.products[p.ID] = p
	}
	for _, st := range data.Stores {
		s.state.stores[st.ID] = st
	}
	for _, lv := range data.Levels {
		s.state.levels[lv.StockKey] = lv.Quantity
	}
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Accounts() repository.AccountRepository { return accountRepository{t.st} }
func (t *tx) Products() repository.ProductRepository { return productRepository{t.st} }
func (t *tx) Stores() repository.StoreRepository     { return storeRepository{t.st} }
func (t *tx) Orders() repository.OrderRepository     { return orderRepository{t.st} }
func (t *tx) Ledger() repository.StockLedger         { return stockLedger{t.st} }
func (t *tx) History() repository.OrderHistory       { return orderHistory{t.st, t.now} }
