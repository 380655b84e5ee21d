package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// PriceLines validates the requested items and captures each product's current
// price as the line's unit price. Every product must belong to tenantID.
func PriceLines(ctx context.Context, products repository.ProductRepository, tenantID string, items []entity.LineRequest) ([]entity.OrderLine, error) {
	if len(items) == 0 {
		return nil, entity.NewValidation("order must have at least one item")
	}

	lines := make([]entity.OrderLine, 0, len(items))
	perProduct := make(map[string]int, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return nil, entity.NewValidation("item %d: product_id is required", i)
		}
		if item.Quantity <= 0 {
			return nil, entity.NewValidation("item %d: quantity must be positive, got %d", i, item.Quantity)
		}
		if item.Quantity > entity.MaxQuantity {
			return nil, entity.NewValidation("item %d: quantity must not exceed %d, got %d", i, entity.MaxQuantity, item.Quantity)
		}
		// Both terms are at most MaxQuantity, so the sum cannot overflow.
		perProduct[item.ProductID] += item.Quantity
		if perProduct[item.ProductID] > entity.MaxQuantity {
			return nil, entity.NewValidation("product %s: total quantity must not exceed %d", item.ProductID, entity.MaxQuantity)
		}

		p, err := products.FindByID(ctx, item.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.NewProductNotFound(item.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %s: %w", item.ProductID, err)
		}
		if err := CheckTenant(tenantID, p.TenantID, "product", p.ID); err != nil {
			return nil, err
		}

		lines = append(lines, entity.OrderLine{
			ID:        uuid.NewString(),
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
	}
	return lines, nil
}
