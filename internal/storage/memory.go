package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MosinFAM/content-registry/internal/models"
)

var ErrClosed = errors.New("storage is closed")

// MemoryStorage - journal kept in process memory
type MemoryStorage struct {
	operations    []models.Operation
	subscriptions []chan models.Operation
	closed        bool
	mu            sync.RWMutex
	log           *slog.Logger
}

// NewMemoryStorage creates an empty in-memory journal
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	return &MemoryStorage{log: logger.With("storage", "memory")}
}

// AppendOperation appends op and notifies subscribers
func (s *MemoryStorage) AppendOperation(ctx context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	op.Seq = int64(len(s.operations)) + 1
	s.operations = append(s.operations, *op)
	s.log.DebugContext(ctx, "operation appended", "seq", op.Seq, "kind", op.Kind, "post", op.PostID)

	// A subscriber that cannot keep up is dropped
	for i := 0; i < len(s.subscriptions); {
		select {
		case s.subscriptions[i] <- *op:
			i++
		default:
			s.log.WarnContext(ctx, "dropping slow subscriber")
			close(s.subscriptions[i])
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
		}
	}
	return nil
}

// GetOperations returns a copy of the journal
func (s *MemoryStorage) GetOperations(ctx context.Context) ([]models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]models.Operation, len(s.operations))
	copy(out, s.operations)
	return out, nil
}

// SubscribeToOperations registers a subscriber that is removed when ctx is done
func (s *MemoryStorage) SubscribeToOperations(ctx context.Context) (<-chan models.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	ch := make(chan models.Operation, 64)
	s.subscriptions = append(s.subscriptions, ch)
	s.log.DebugContext(ctx, "subscriber added", "subscribers", len(s.subscriptions))

	go func() {
		<-ctx.Done()
		s.unsubscribe(ch)
	}()
	return ch, nil
}

func (s *MemoryStorage) unsubscribe(ch chan models.Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscriptions {
		if sub == ch {
			close(ch)
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			return
		}
	}
}

// Close closes every subscription channel
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.subscriptions {
		close(ch)
	}
	s.subscriptions = nil
	return nil
}
