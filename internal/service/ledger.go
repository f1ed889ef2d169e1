// Package service runs registry operations one at a time against the
// journal, the in-memory registry and the event publishers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MosinFAM/content-registry/internal/metrics"
	"github.com/MosinFAM/content-registry/internal/models"
	"github.com/MosinFAM/content-registry/internal/registry"
	"github.com/MosinFAM/content-registry/internal/storage"
)

// Publisher receives every operation after it has been applied.
type Publisher interface {
	Publish(ctx context.Context, op models.Operation) error
}

// Ledger is safe for concurrent use. Mutations hold an exclusive lock from
// validation through journaling and application, so readers never observe a
// partially applied operation. Publishing happens after the lock is released.
type Ledger struct {
	mu         sync.RWMutex
	reg        *registry.Registry
	store      storage.Storage
	publishers []Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewLedger returns an empty ledger; call Restore before serving requests.
func NewLedger(store storage.Storage, m *metrics.Metrics, logger *slog.Logger, publishers ...Publisher) *Ledger {
	return &Ledger{
		reg:        registry.New(),
		store:      store,
		publishers: publishers,
		metrics:    m,
		log:        logger.With("component", "ledger"),
	}
}

// Restore replays the journal into the registry. It must run before the
// ledger serves requests.
func (l *Ledger) Restore(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ops, err := l.store.GetOperations(ctx)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}
	for i, op := range ops {
		if err := l.reg.Apply(op); err != nil {
			return i, fmt.Errorf("replay operation %d (%s): %w", op.Seq, op.Kind, err)
		}
	}
	l.metrics.ReplayedOperations.Add(float64(len(ops)))
	l.recordLive()
	l.log.InfoContext(ctx, "journal replayed", "operations", len(ops))
	return len(ops), nil
}

// execute commits op under the lock, then hands it to the publishers once the
// lock is released. Publishers may observe concurrent operations out of seq order.
func (l *Ledger) execute(ctx context.Context, op models.Operation, apply func() error) error {
	committed, err := l.commit(ctx, op, apply)
	if err != nil {
		return err
	}
	l.publish(ctx, committed)
	return nil
}

// commit validates op, journals it, then applies it through apply.
func (l *Ledger) commit(ctx context.Context, op models.Operation, apply func() error) (models.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.reg.Check(op); err != nil {
		l.metrics.Operations.WithLabelValues(string(op.Kind), resultLabel(err)).Inc()
		l.log.DebugContext(ctx, "operation rejected", "kind", op.Kind, "caller", op.Caller, "error", err)
		return op, err
	}
	if err := l.store.AppendOperation(ctx, &op); err != nil {
		l.metrics.Operations.WithLabelValues(string(op.Kind), "storage_error").Inc()
		l.log.ErrorContext(ctx, "journal append failed", "kind", op.Kind, "error", err)
		return op, fmt.Errorf("journal %s: %w", op.Kind, err)
	}
	if err := apply(); err != nil {
		// Check passed under the same lock, so the registry and the journal now disagree.
		l.log.ErrorContext(ctx, "journaled operation failed to apply", "seq", op.Seq, "kind", op.Kind, "error", err)
		return op, fmt.Errorf("apply %s: %w", op.Kind, err)
	}

	l.metrics.Operations.WithLabelValues(string(op.Kind), "ok").Inc()
	l.recordLive()
	l.log.InfoContext(ctx, "operation applied", "seq", op.Seq, "kind", op.Kind, "caller", op.Caller, "post", op.PostID)
	return op, nil
}

func (l *Ledger) publish(ctx context.Context, op models.Operation) {
	for _, p := range l.publishers {
		if err := p.Publish(ctx, op); err != nil {
			l.metrics.PublishFailures.Inc()
			l.log.WarnContext(ctx, "publish failed", "seq", op.Seq, "error", err)
		}
	}
}

func (l *Ledger) recordLive() {
	s := l.reg.Stats()
	l.metrics.SetLive(s.Posts, s.Comments, s.Likes, s.Authors)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return "not_found"
	case errors.Is(err, registry.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, registry.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, registry.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}

func (l *Ledger) AddPost(ctx context.Context, caller models.Identity, cid string, timestamp int64) (models.Post, error) {
	op := models.NewOperation(models.OpAddPost, caller)
	op.PostID = cid
	op.Timestamp = timestamp

	var post models.Post
	err := l.execute(ctx, op, func() (err error) {
		post, err = l.reg.AddPost(caller, cid, timestamp)
		return err
	})
	return post, err
}

func (l *Ledger) DeletePost(ctx context.Context, caller models.Identity, cid string, author models.Identity) error {
	op := models.NewOperation(models.OpDeletePost, caller)
	op.PostID = cid
	op.PostAuthor = author

	return l.execute(ctx, op, func() error {
		return l.reg.DeletePost(caller, cid, author)
	})
}

func (l *Ledger) AddComment(ctx context.Context, caller models.Identity, postID, commentID string, postAuthor models.Identity, timestamp int64) (models.Comment, error) {
	op := models.NewOperation(models.OpAddComment, caller)
	op.PostID = postID
	op.CommentID = commentID
	op.PostAuthor = postAuthor
	op.Timestamp = timestamp

	var comment models.Comment
	err := l.execute(ctx, op, func() (err error) {
		comment, err = l.reg.AddComment(caller, postID, commentID, postAuthor, timestamp)
		return err
	})
	return comment, err
}

func (l *Ledger) DeleteComment(ctx context.Context, caller models.Identity, postID, commentID string, postAuthor, commenter models.Identity) error {
	op := models.NewOperation(models.OpDeleteComment, caller)
	op.PostID = postID
	op.CommentID = commentID
	op.PostAuthor = postAuthor
	op.Commenter = commenter

	return l.execute(ctx, op, func() error {
		return l.reg.DeleteComment(caller, postID, commentID, postAuthor, commenter)
	})
}

func (l *Ledger) Like(ctx context.Context, caller models.Identity, postID string, postAuthor models.Identity) (models.Like, error) {
	op := models.NewOperation(models.OpLike, caller)
	op.PostID = postID
	op.PostAuthor = postAuthor

	var like models.Like
	err := l.execute(ctx, op, func() (err error) {
		like, err = l.reg.Like(caller, postID, postAuthor)
		return err
	})
	return like, err
}

func (l *Ledger) Unlike(ctx context.Context, caller models.Identity, postID string, postAuthor models.Identity) error {
	op := models.NewOperation(models.OpUnlike, caller)
	op.PostID = postID
	op.PostAuthor = postAuthor

	return l.execute(ctx, op, func() error {
		return l.reg.Unlike(caller, postID, postAuthor)
	})
}

// Subscribe streams operations journaled after the call until ctx is done.
func (l *Ledger) Subscribe(ctx context.Context) (<-chan models.Operation, error) {
	return l.store.SubscribeToOperations(ctx)
}
