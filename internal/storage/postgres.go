package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MosinFAM/content-registry/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose"
)

// NotifyChannel is the LISTEN/NOTIFY channel that carries appended operations.
const NotifyChannel = "registry_operations"

// PostgresStorage - journal stored in PostgreSQL
type PostgresStorage struct {
	DB            *sql.DB
	DataSource    string
	MigrationsDir string
	log           *slog.Logger
}

// NewPostgresStorage creates a PostgreSQL-backed journal
func NewPostgresStorage(db *sql.DB, dataSource, migrationsDir string, logger *slog.Logger) *PostgresStorage {
	return &PostgresStorage{
		DB:            db,
		DataSource:    dataSource,
		MigrationsDir: migrationsDir,
		log:           logger.With("storage", "postgres"),
	}
}

// InitDB applies the goose migrations from MigrationsDir
func (s *PostgresStorage) InitDB() error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(s.DB, s.MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations from %s: %w", s.MigrationsDir, err)
	}
	s.log.Info("migrations applied", "dir", s.MigrationsDir)
	return nil
}

const insertOperation = `INSERT INTO operations
	(id, kind, caller, post_id, comment_id, post_author, commenter, ts, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING seq`

// AppendOperation inserts op and announces it on NotifyChannel
func (s *PostgresStorage) AppendOperation(ctx context.Context, op *models.Operation) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, insertOperation,
		op.ID.String(), string(op.Kind), string(op.Caller), op.PostID, op.CommentID,
		string(op.PostAuthor), string(op.Commenter), op.Timestamp, op.RecordedAt,
	).Scan(&op.Seq)
	if err != nil {
		s.log.ErrorContext(ctx, "insert operation failed", "kind", op.Kind, "error", err)
		return fmt.Errorf("insert operation: %w", err)
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	// NOTIFY is delivered on commit
	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, string(payload)); err != nil {
		s.log.ErrorContext(ctx, "notify failed", "error", err)
		return fmt.Errorf("notify %s: %w", NotifyChannel, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	s.log.DebugContext(ctx, "operation appended", "seq", op.Seq, "kind", op.Kind, "post", op.PostID)
	return nil
}

const selectOperations = `SELECT seq, id, kind, caller, post_id, comment_id, post_author, commenter, ts, recorded_at
	FROM operations ORDER BY seq`

// GetOperations reads the whole journal in append order
func (s *PostgresStorage) GetOperations(ctx context.Context) ([]models.Operation, error) {
	rows, err := s.DB.QueryContext(ctx, selectOperations)
	if err != nil {
		s.log.ErrorContext(ctx, "select operations failed", "error", err)
		return nil, fmt.Errorf("select operations: %w", err)
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var (
			op                                      models.Operation
			id, kind, caller, postAuthor, commenter string
		)
		if err := rows.Scan(&op.Seq, &id, &kind, &caller, &op.PostID, &op.CommentID,
			&postAuthor, &commenter, &op.Timestamp, &op.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if op.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("operation %d id: %w", op.Seq, err)
		}
		op.Kind = models.OpKind(kind)
		op.Caller = models.Identity(caller)
		op.PostAuthor = models.Identity(postAuthor)
		op.Commenter = models.Identity(commenter)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}
	return ops, nil
}

// SubscribeToOperations listens on NotifyChannel through a pq.Listener
func (s *PostgresStorage) SubscribeToOperations(ctx context.Context) (<-chan models.Operation, error) {
	listener := pq.NewListener(s.DataSource, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.log.Error("postgres listener error", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}

	ch := make(chan models.Operation)
	go func() {
		defer close(ch)
		defer listener.Close()

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					s.log.Error("postgres listener ping failed", "error", err)
					return
				}
			case n := <-listener.Notify:
				// nil after a reconnect
				if n == nil {
					continue
				}
				var op models.Operation
				if err := json.Unmarshal([]byte(n.Extra), &op); err != nil {
					s.log.Warn("bad operation notification", "error", err)
					continue
				}
				select {
				case ch <- op:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	s.log.InfoContext(ctx, "listening for operations", "channel", NotifyChannel)
	return ch, nil
}

func (s *PostgresStorage) Close() error {
	return s.DB.Close()
}
