package ports

import (
	"context"

	"go.trai.ch/memo/internal/core/domain"
)

// MaterializationIndex records which data versions already have durable outputs.
// Implementations must support concurrent lookups and appends.
//
//go:generate go run go.uber.org/mock/mockgen -source=materialization.go -destination=mocks/mock_materialization.go -package=mocks
type MaterializationIndex interface {
	// Has reports whether a materialization of stepKey at version exists.
	Has(ctx context.Context, stepKey string, version domain.DataVersion) (bool, error)

	// Record stores a materialization and makes it the latest for its step key.
	Record(ctx context.Context, materialization domain.Materialization) error

	// Find returns the materialization of stepKey at exactly version.
	// Returns nil, nil if not found.
	Find(ctx context.Context, stepKey string, version domain.DataVersion) (*domain.Materialization, error)

	// Get returns the latest materialization of stepKey, whatever its version.
	// Execution never reads through it; it serves inspection.
	// Returns nil, nil if not found.
	Get(ctx context.Context, stepKey string) (*domain.Materialization, error)
}
