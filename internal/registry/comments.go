package registry

import "github.com/MosinFAM/content-registry/internal/models"

func (r *Registry) checkAddComment(caller models.Identity, postID, commentID string, postAuthor models.Identity) (handle, error) {
	if err := validID("caller", string(caller)); err != nil {
		return 0, err
	}
	if err := validID("comment cid", commentID); err != nil {
		return 0, err
	}
	ph, _, err := r.lookupPost(postID, postAuthor)
	if err != nil {
		return 0, err
	}
	if _, ok := r.commentsByKey[commentKey{post: ph, cid: commentID}]; ok {
		return 0, ErrCommentExists
	}
	return ph, nil
}

// AddComment attaches a comment submitted by caller to the post postID written by postAuthor.
func (r *Registry) AddComment(caller models.Identity, postID, commentID string, postAuthor models.Identity, timestamp int64) (models.Comment, error) {
	ph, err := r.checkAddComment(caller, postID, commentID, postAuthor)
	if err != nil {
		return models.Comment{}, opError("addComment", postID, err)
	}

	h := r.alloc()
	comment := models.Comment{
		CID:        commentID,
		PostID:     postID,
		PostAuthor: postAuthor,
		Author:     caller,
		CreatedAt:  timestamp,
	}
	r.comments[h] = &commentRecord{comment: comment, post: ph}
	r.commentsByKey[commentKey{post: ph, cid: commentID}] = h
	r.posts[ph].comments.add(h)
	addTo(r.userComments, caller, h)
	return comment, nil
}

func (r *Registry) checkDeleteComment(caller models.Identity, postID, commentID string, postAuthor, commenter models.Identity) (handle, error) {
	ph, _, err := r.lookupPost(postID, postAuthor)
	if err != nil {
		return 0, err
	}
	h, ok := r.commentsByKey[commentKey{post: ph, cid: commentID}]
	if !ok || r.comments[h].comment.Author != commenter {
		return 0, ErrCommentNotFound
	}
	if caller != commenter && caller != postAuthor {
		return 0, ErrNotCommentOwner
	}
	return h, nil
}

// DeleteComment removes the comment commentID written by commenter under the post
// postID of postAuthor. Either the commenter or the post author may delete it.
func (r *Registry) DeleteComment(caller models.Identity, postID, commentID string, postAuthor, commenter models.Identity) error {
	h, err := r.checkDeleteComment(caller, postID, commentID, postAuthor, commenter)
	if err != nil {
		return opError("deleteComment", commentID, err)
	}
	r.posts[r.comments[h].post].comments.remove(h)
	r.dropComment(h)
	return nil
}

// dropComment removes a comment from the user index and the arena.
// The caller handles the post's own comment list.
func (r *Registry) dropComment(h handle) {
	rec := r.comments[h]
	removeFrom(r.userComments, rec.comment.Author, h)
	delete(r.commentsByKey, commentKey{post: rec.post, cid: rec.comment.CID})
	delete(r.comments, h)
}
