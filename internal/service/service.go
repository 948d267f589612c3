// Package service contains the business logic of the delivery-slot API.
// Services validate inputs, enforce capacity and lifecycle rules, and
// orchestrate repo calls. No SQL lives here; services depend on repo
// interfaces, not implementations.
package service

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/pkordes/sitedrop/backend/internal/service")

// Transactor groups repo calls into one unit of work. repo.TxManager is the
// production implementation.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher delivers lifecycle events to downstream consumers.
// events.Publisher and events.Nop implement it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}
