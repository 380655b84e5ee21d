package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// DefaultStoreName labels the tenant-wide stock in availability listings.
const DefaultStoreName = "Default"

// InventoryService manages stores, stock levels and the catalog view.
type InventoryService struct {
	uow       repository.UnitOfWork
	publisher messaging.Publisher
	logger    *zap.Logger
	options
}

func NewInventoryService(uow repository.UnitOfWork, publisher messaging.Publisher, logger *zap.Logger, opts ...Option) *InventoryService {
	return &InventoryService{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
		options:   buildOptions(opts),
	}
}

// ListProducts returns the catalog of the caller's tenant.
func (s *InventoryService) ListProducts(ctx context.Context, caller entity.Identity) (products []entity.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ListProducts")
	defer func() { endSpan(span, err) }()

	if err := RequireIdentity(caller); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		products, err = tx.Products().ListByTenant(ctx, caller.TenantID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return nonNil(products), nil
}

// CreateStore registers a new store location for the caller's tenant.
func (s *InventoryService) CreateStore(ctx context.Context, caller entity.Identity, name, city, address string) (store *entity.Store, err error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.CreateStore")
	defer func() { endSpan(span, err) }()

	if err := RequireManager(caller); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entity.NewValidation("store name is required")
	}

	store = &entity.Store{
		ID:       uuid.NewString(),
		TenantID: caller.TenantID,
		Name:     name,
		City:     strings.TrimSpace(city),
		Address:  strings.TrimSpace(address),
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Stores().Create(ctx, store)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	s.logger.Info("Store created", zap.String("store_id", store.ID), zap.String("tenant_id", store.TenantID))
	return store, nil
}

// SetStock overwrites the quantity held for a product, tenant-wide when
// StoreID is empty or at the named store otherwise.
func (s *InventoryService) SetStock(ctx context.Context, caller entity.Identity, req entity.SetStockRequest) (level *entity.StockLevel, err error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.SetStock",
		trace.WithAttributes(attribute.String("product.id", req.ProductID), attribute.String("store.id", req.StoreID)))
	defer func() { endSpan(span, err) }()

	if err := RequireManager(caller); err != nil {
		return nil, err
	}
	if req.ProductID == "" {
		return nil, entity.NewValidation("product_id is required")
	}
	if req.Quantity < 0 {
		return nil, entity.NewValidation("quantity must not be negative, got %d", req.Quantity)
	}
	if req.Quantity > entity.MaxQuantity {
		return nil, entity.NewValidation("quantity must not exceed %d, got %d", entity.MaxQuantity, req.Quantity)
	}

	key := entity.StockKey{TenantID: caller.TenantID, StoreID: req.StoreID, ProductID: req.ProductID}
	adjusted := entity.StockAdjusted{Key: key, Quantity: req.Quantity, AdjustedBy: caller.AccountID, AdjustedAt: s.now()}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := loadProduct(ctx, tx, caller.TenantID, req.ProductID); err != nil {
			return err
		}
		if req.StoreID != "" {
			if err := loadStore(ctx, tx, caller.TenantID, req.StoreID); err != nil {
				return err
			}
		}
		if err := tx.Ledger().SetLevel(ctx, key, req.Quantity); err != nil {
			return fmt.Errorf("failed to set stock level: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.String("product_id", key.ProductID),
		zap.String("store_id", key.StoreID),
		zap.Int("quantity", req.Quantity))
	publishAll(ctx, s.publisher, s.logger, outbox{{topic: messaging.TopicInventory, key: key.ProductID, event: adjusted}})
	return &entity.StockLevel{StockKey: key, Quantity: req.Quantity}, nil
}

// Availability lists where a product can be bought: the tenant-wide stock
// first, then every store holding a positive quantity.
func (s *InventoryService) Availability(ctx context.Context, caller entity.Identity, productID string) (rows []entity.Availability, err error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Availability", trace.WithAttributes(attribute.String("product.id", productID)))
	defer func() { endSpan(span, err) }()

	if err := RequireIdentity(caller); err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := loadProduct(ctx, tx, caller.TenantID, productID); err != nil {
			return err
		}

		onHand, err := tx.Ledger().Available(ctx, entity.StockKey{TenantID: caller.TenantID, ProductID: productID})
		if err != nil {
			return err
		}
		rows = []entity.Availability{{StoreName: DefaultStoreName, Quantity: onHand}}

		levels, err := tx.Ledger().ListLevels(ctx, caller.TenantID, productID)
		if err != nil {
			return fmt.Errorf("failed to list stock levels: %w", err)
		}
		for _, lv := range levels {
			if lv.Quantity <= 0 {
				continue
			}
			store, err := tx.Stores().FindByID(ctx, lv.StoreID)
			if err != nil {
				return fmt.Errorf("failed to load store %s: %w", lv.StoreID, err)
			}
			rows = append(rows, entity.Availability{
				StoreID:   store.ID,
				StoreName: store.Name,
				City:      store.City,
				Quantity:  lv.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func loadProduct(ctx context.Context, tx repository.Tx, tenantID, productID string) error {
	p, err := tx.Products().FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return entity.NewProductNotFound(productID)
	}
	if err != nil {
		return fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	return CheckTenant(tenantID, p.TenantID, "product", p.ID)
}
