package registry

import (
	"fmt"

	"github.com/MosinFAM/content-registry/internal/models"
)

// Check reports the error Apply would return for op without changing anything.
func (r *Registry) Check(op models.Operation) error {
	var err error
	switch op.Kind {
	case models.OpAddPost:
		err = r.checkAddPost(op.Caller, op.PostID)
	case models.OpDeletePost:
		_, err = r.checkDeletePost(op.Caller, op.PostID, op.PostAuthor)
	case models.OpAddComment:
		_, err = r.checkAddComment(op.Caller, op.PostID, op.CommentID, op.PostAuthor)
	case models.OpDeleteComment:
		_, err = r.checkDeleteComment(op.Caller, op.PostID, op.CommentID, op.PostAuthor, op.Commenter)
	case models.OpLike:
		_, err = r.checkLike(op.Caller, op.PostID, op.PostAuthor)
	case models.OpUnlike:
		_, err = r.checkUnlike(op.Caller, op.PostID, op.PostAuthor)
	default:
		return unknownKind(op.Kind)
	}
	if err != nil {
		return opError(string(op.Kind), op.PostID, err)
	}
	return nil
}

// Apply performs op. It is how a journal is replayed.
func (r *Registry) Apply(op models.Operation) error {
	var err error
	switch op.Kind {
	case models.OpAddPost:
		_, err = r.AddPost(op.Caller, op.PostID, op.Timestamp)
	case models.OpDeletePost:
		err = r.DeletePost(op.Caller, op.PostID, op.PostAuthor)
	case models.OpAddComment:
		_, err = r.AddComment(op.Caller, op.PostID, op.CommentID, op.PostAuthor, op.Timestamp)
	case models.OpDeleteComment:
		err = r.DeleteComment(op.Caller, op.PostID, op.CommentID, op.PostAuthor, op.Commenter)
	case models.OpLike:
		_, err = r.Like(op.Caller, op.PostID, op.PostAuthor)
	case models.OpUnlike:
		err = r.Unlike(op.Caller, op.PostID, op.PostAuthor)
	default:
		err = unknownKind(op.Kind)
	}
	return err
}

func unknownKind(kind models.OpKind) error {
	return fmt.Errorf("operation kind %q: %w", kind, ErrInvalidArgument)
}
