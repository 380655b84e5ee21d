package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const tracerName = "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"

// Option configures a service.
type Option func(*options)

type options struct {
	now    func() time.Time
	tracer trace.Tracer
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func buildOptions(opts []Option) options {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// outgoing is an event queued inside a unit of work and published after commit.
type outgoing struct {
	topic string
	key   string
	event entity.Event
}

type outbox []outgoing

func (b *outbox) add(topic, key string, events ...entity.Event) {
	for _, e := range events {
		*b = append(*b, outgoing{topic: topic, key: key, event: e})
	}
}

// OrderService orchestrates order-related business logic.
type OrderService struct {
	uow       repository.UnitOfWork
	publisher messaging.Publisher
	logger    *zap.Logger
	options
}

func NewOrderService(uow repository.UnitOfWork, publisher messaging.Publisher, logger *zap.Logger, opts ...Option) *OrderService {
	return &OrderService{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
		options:   buildOptions(opts),
	}
}

// Checkout places an order for the calling account in state NEW.
func (s *OrderService) Checkout(ctx context.Context, caller entity.Identity, req entity.CheckoutRequest) (order *entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Checkout",
		trace.WithAttributes(attribute.String("tenant.id", caller.TenantID), attribute.Int("order.items", len(req.Items))))
	defer func() { endSpan(span, err) }()

	if err := RequireIdentity(caller); err != nil {
		return nil, err
	}

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.Accounts().FindByID(ctx, caller.AccountID)
		if errors.Is(err, repository.ErrNotFound) {
			return entity.NewUnauthenticated(fmt.Sprintf("account %s does not exist", caller.AccountID))
		}
		if err != nil {
			return fmt.Errorf("failed to load account %s: %w", caller.AccountID, err)
		}
		if err := CheckTenant(caller.TenantID, account.TenantID, "account", account.ID); err != nil {
			return err
		}

		order, err = s.place(ctx, tx, account, req.Items, req.StoreID, req.Contact, false, &out)
		return err
	})
	if err != nil {
		s.logger.Info("Checkout rejected", zap.String("tenant_id", caller.TenantID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("tenant_id", order.TenantID),
		zap.String("total", order.TotalAmount.String()))
	s.publish(ctx, out)
	return order, nil
}

// GuestCheckout places an order for an email address without prior login,
// reusing or provisioning the CUSTOMER account in the same unit of work.
func (s *OrderService) GuestCheckout(ctx context.Context, req entity.GuestCheckoutRequest) (order *entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GuestCheckout",
		trace.WithAttributes(attribute.String("tenant.id", req.TenantID), attribute.Int("order.items", len(req.Items))))
	defer func() { endSpan(span, err) }()

	if req.TenantID == "" {
		return nil, entity.NewValidation("tenant_id is required")
	}

	var (
		out     outbox
		created bool
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var account *entity.Account
		account, created, err = ResolveGuest(ctx, tx.Accounts(), req.TenantID, req.Email, s.now())
		if err != nil {
			return err
		}

		order, err = s.place(ctx, tx, account, req.Items, req.StoreID, req.Contact, true, &out)
		return err
	})
	if err != nil {
		s.logger.Info("Guest checkout rejected", zap.String("tenant_id", req.TenantID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Guest order placed",
		zap.String("order_id", order.ID),
		zap.String("tenant_id", order.TenantID),
		zap.String("account_id", order.AccountID),
		zap.Bool("account_created", created))
	s.publish(ctx, out)
	return order, nil
}

func (s *OrderService) place(ctx context.Context, tx repository.Tx, account *entity.Account, items []entity.LineRequest, storeID string, contact entity.Contact, guest bool, out *outbox) (*entity.Order, error) {
	if storeID != "" {
		if err := loadStore(ctx, tx, account.TenantID, storeID); err != nil {
			return nil, err
		}
	}

	lines, err := PriceLines(ctx, tx.Products(), account.TenantID, items)
	if err != nil {
		return nil, err
	}

	order := entity.NewOrder(uuid.NewString(), account.TenantID, account.ID, storeID, contact, lines, s.now())
	if err := tx.Orders().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	placed := entity.OrderPlaced{
		OrderID:     order.ID,
		TenantID:    order.TenantID,
		AccountID:   order.AccountID,
		StoreID:     order.StoreID,
		Lines:       order.Lines,
		TotalAmount: order.TotalAmount,
		Guest:       guest,
		PlacedAt:    order.CreatedAt,
	}
	if err := tx.History().Append(ctx, order.ID, order.TenantID, placed); err != nil {
		return nil, fmt.Errorf("failed to record OrderPlaced: %w", err)
	}
	out.add(messaging.TopicOrders, order.ID, placed)
	return order, nil
}

// ListMine returns the caller's own orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, caller entity.Identity) (orders []entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListMine")
	defer func() { endSpan(span, err) }()

	if err := RequireIdentity(caller); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		orders, err = tx.Orders().ListByAccount(ctx, caller.AccountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return nonNil(orders), nil
}

// ListTenant returns every order of the caller's tenant, newest first.
func (s *OrderService) ListTenant(ctx context.Context, caller entity.Identity) (orders []entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListTenant", trace.WithAttributes(attribute.String("tenant.id", caller.TenantID)))
	defer func() { endSpan(span, err) }()

	if err := RequireManager(caller); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		orders, err = tx.Orders().ListByTenant(ctx, caller.TenantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return nonNil(orders), nil
}

// Get returns one order. Managers see any order of their tenant, customers
// only their own.
func (s *OrderService) Get(ctx context.Context, caller entity.Identity, orderID string) (order *entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	if err := RequireIdentity(caller); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		order, err = loadOrder(ctx, tx, caller, orderID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// History returns the recorded events of an order, oldest first.
func (s *OrderService) History(ctx context.Context, caller entity.Identity, orderID string) (events []entity.OrderEvent, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.History", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	if err := RequireIdentity(caller); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := loadOrder(ctx, tx, caller, orderID, false); err != nil {
			return err
		}
		events, err = tx.History().Load(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nonNil(events), nil
}

// SetStatus moves an order to the requested status, reserving stock on
// confirmation and releasing it when a confirmed order is rejected. The whole
// transition is one unit of work.
func (s *OrderService) SetStatus(ctx context.Context, caller entity.Identity, orderID, status string) (order *entity.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.SetStatus",
		trace.WithAttributes(attribute.String("order.id", orderID), attribute.String("order.target_status", status)))
	defer func() { endSpan(span, err) }()

	if err := RequireManager(caller); err != nil {
		return nil, err
	}
	target, err := entity.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		out  outbox
		noop bool
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		order, err = loadOrder(ctx, tx, caller, orderID, true)
		if err != nil {
			return err
		}

		t, err := order.PlanTransition(target)
		if err != nil {
			return err
		}
		if t.Noop {
			noop = true
			return nil
		}

		var stockEvents []entity.Event
		switch t.Stock {
		case entity.StockActionReserve:
			stockEvents, err = ReserveAll(ctx, tx, order.ID, ReservationsFor(order))
		case entity.StockActionRelease:
			stockEvents, err = ReleaseAll(ctx, tx, order.ID, ReservationsFor(order))
		}
		if err != nil {
			return err
		}

		if err := tx.Orders().UpdateStatus(ctx, order.ID, t.To); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Apply(t)

		changed := entity.OrderStatusChanged{
			OrderID:   order.ID,
			TenantID:  order.TenantID,
			From:      t.From,
			To:        t.To,
			ChangedBy: caller.AccountID,
			ChangedAt: s.now(),
		}
		events := append([]entity.Event{changed}, stockEvents...)
		if err := tx.History().Append(ctx, order.ID, order.TenantID, events...); err != nil {
			return fmt.Errorf("failed to record status change: %w", err)
		}

		out.add(messaging.TopicOrders, order.ID, changed)
		for _, e := range stockEvents {
			out.add(messaging.TopicInventory, order.ID, e)
		}
		return nil
	})
	if err != nil {
		s.logger.Info("Status change rejected",
			zap.String("order_id", orderID),
			zap.String("target", status),
			zap.Error(err))
		return nil, err
	}

	if noop {
		s.logger.Debug("Status unchanged", zap.String("order_id", orderID), zap.String("status", string(target)))
		return order, nil
	}
	s.logger.Info("Order status changed", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
	s.publish(ctx, out)
	return order, nil
}

// Delete removes an order and its lines. Stock is not returned to the ledger.
func (s *OrderService) Delete(ctx context.Context, caller entity.Identity, orderID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	if err := RequireManager(caller); err != nil {
		return err
	}

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		order, err := loadOrder(ctx, tx, caller, orderID, true)
		if err != nil {
			return err
		}
		if err := tx.Orders().Delete(ctx, order.ID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}

		deleted := entity.OrderDeleted{
			OrderID:   order.ID,
			TenantID:  order.TenantID,
			Status:    order.Status,
			DeletedBy: caller.AccountID,
			DeletedAt: s.now(),
		}
		if err := tx.History().Append(ctx, order.ID, order.TenantID, deleted); err != nil {
			return fmt.Errorf("failed to record OrderDeleted: %w", err)
		}
		out.add(messaging.TopicOrders, order.ID, deleted)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order deleted", zap.String("order_id", orderID))
	s.publish(ctx, out)
	return nil
}

// loadOrder fetches an order the caller may see. Customers are limited to
// their own orders; forUpdate locks the row for the rest of the unit of work.
func loadOrder(ctx context.Context, tx repository.Tx, caller entity.Identity, orderID string, forUpdate bool) (*entity.Order, error) {
	find := tx.Orders().FindByID
	if forUpdate {
		find = tx.Orders().FindByIDForUpdate
	}
	order, err := find(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, entity.NewOrderNotFound(orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if err := CheckTenant(caller.TenantID, order.TenantID, "order", order.ID); err != nil {
		return nil, err
	}
	if !caller.Role.CanManage() && order.AccountID != caller.AccountID {
		return nil, entity.NewOrderNotFound(orderID)
	}
	return order, nil
}

func loadStore(ctx context.Context, tx repository.Tx, tenantID, storeID string) error {
	store, err := tx.Stores().FindByID(ctx, storeID)
	if errors.Is(err, repository.ErrNotFound) {
		return entity.NewStoreNotFound(storeID)
	}
	if err != nil {
		return fmt.Errorf("failed to load store %s: %w", storeID, err)
	}
	return CheckTenant(tenantID, store.TenantID, "store", store.ID)
}

// publish delivers committed events. Failures are logged: the unit of work
// has already committed and the history table holds the record.
func (s *OrderService) publish(ctx context.Context, out outbox) {
	publishAll(ctx, s.publisher, s.logger, out)
}

func publishAll(ctx context.Context, publisher messaging.Publisher, logger *zap.Logger, out outbox) {
	if publisher == nil {
		return
	}
	for _, o := range out {
		if err := publisher.PublishEvent(ctx, o.topic, o.key, o.event); err != nil {
			logger.Error("Failed to publish event",
				zap.String("topic", o.topic),
				zap.String("event_type", o.event.EventType()),
				zap.String("key", o.key),
				zap.Error(err))
		}
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := entity.KindOf(err); kind != 0 {
			span.SetAttributes(attribute.String("error.kind", kind.String()))
		}
	}
	span.End()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
