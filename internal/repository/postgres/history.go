package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type orderHistory struct {
	q querier
}

func (h *orderHistory) Append(ctx context.Context, orderID, tenantID string, events ...entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	var version int
	err := h.q.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM order_events WHERE order_id = $1", orderID).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get current stream version: %w", err)
	}

	now := time.Now().UTC()
	for _, event := range events {
		version++

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}

		_, err = h.q.ExecContext(ctx,
			"INSERT INTO order_events (id, order_id, tenant_id, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			uuid.NewString(), orderID, tenantID, version, event.EventType(), payload, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (h *orderHistory) Load(ctx context.Context, orderID string) ([]entity.OrderEvent, error) {
	rows, err := h.q.QueryContext(ctx,
		"SELECT id, order_id, tenant_id, version, event_type, payload, created_at FROM order_events WHERE order_id = $1 ORDER BY version ASC",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var events []entity.OrderEvent
	for rows.Next() {
		var (
			e       entity.OrderEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.TenantID, &e.Version, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}
