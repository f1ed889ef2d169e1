package storage

import (
	"context"

	"github.com/MosinFAM/content-registry/internal/models"
)

// Storage is the durable journal of registry operations (in-memory or PostgreSQL).
// Operations are stored in append order; replaying them rebuilds the registry.
type Storage interface {
	// AppendOperation stores op and assigns its Seq.
	AppendOperation(ctx context.Context, op *models.Operation) error
	GetOperations(ctx context.Context) ([]models.Operation, error)
	// SubscribeToOperations streams operations appended after the call until ctx is done.
	SubscribeToOperations(ctx context.Context) (<-chan models.Operation, error)
	Close() error
}
