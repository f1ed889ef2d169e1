package models

import (
	"time"

	"github.com/google/uuid"
)

// OpKind names a mutating registry operation.
type OpKind string

const (
	OpAddPost       OpKind = "add_post"
	OpDeletePost    OpKind = "delete_post"
	OpAddComment    OpKind = "add_comment"
	OpDeleteComment OpKind = "delete_comment"
	OpLike          OpKind = "like"
	OpUnlike        OpKind = "unlike"
)

// Operation is one journaled mutation. Replaying the journal in Seq order
// rebuilds the registry.
type Operation struct {
	ID         uuid.UUID `json:"id"`
	Seq        int64     `json:"seq"`
	Kind       OpKind    `json:"kind"`
	Caller     Identity  `json:"caller"`
	PostID     string    `json:"postId"`
	CommentID  string    `json:"commentId,omitempty"`
	PostAuthor Identity  `json:"postAuthor,omitempty"`
	Commenter  Identity  `json:"commenter,omitempty"`
	Timestamp  int64     `json:"timestamp,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// NewOperation stamps a fresh ID and the recording time. Seq is assigned by the journal.
func NewOperation(kind OpKind, caller Identity) Operation {
	return Operation{
		ID:         uuid.New(),
		Kind:       kind,
		Caller:     caller,
		RecordedAt: time.Now().UTC(),
	}
}
