package registry

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the registry matches exactly one of
// them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	ErrPostNotFound    = &kindError{msg: "post does not exist", kind: ErrNotFound}
	ErrCommentNotFound = &kindError{msg: "comment does not exist", kind: ErrNotFound}
	ErrLikeNotFound    = &kindError{msg: "user has not liked post", kind: ErrNotFound}

	ErrNotPostOwner    = &kindError{msg: "only post owner can do this action", kind: ErrUnauthorized}
	ErrNotCommentOwner = &kindError{msg: "only comment or post owner can do this action", kind: ErrUnauthorized}

	ErrPostExists    = &kindError{msg: "post already exists", kind: ErrAlreadyExists}
	ErrCommentExists = &kindError{msg: "comment already exists", kind: ErrAlreadyExists}
	ErrAlreadyLiked  = &kindError{msg: "user already liked post", kind: ErrAlreadyExists}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// OpError reports which operation failed on which identifier.
type OpError struct {
	Op  string
	ID  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op, id string, err error) error {
	return &OpError{Op: op, ID: id, Err: err}
}

// MaxIDLength bounds content identifiers and identities so a journaled
// operation always fits a Postgres NOTIFY payload.
const MaxIDLength = 256

func invalid(field string) error {
	return fmt.Errorf("%s is required: %w", field, ErrInvalidArgument)
}

func validID(field, v string) error {
	if v == "" {
		return invalid(field)
	}
	if len(v) > MaxIDLength {
		return fmt.Errorf("%s is longer than %d bytes: %w", field, MaxIDLength, ErrInvalidArgument)
	}
	return nil
}
