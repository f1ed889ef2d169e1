package registry

import "github.com/MosinFAM/content-registry/internal/models"

func (r *Registry) checkLike(caller models.Identity, postID string, postAuthor models.Identity) (handle, error) {
	if err := validID("caller", string(caller)); err != nil {
		return 0, err
	}
	ph, _, err := r.lookupPost(postID, postAuthor)
	if err != nil {
		return 0, err
	}
	if _, ok := r.likesByKey[likeKey{post: ph, liker: caller}]; ok {
		return 0, ErrAlreadyLiked
	}
	return ph, nil
}

// Like records that caller likes the post postID written by postAuthor.
func (r *Registry) Like(caller models.Identity, postID string, postAuthor models.Identity) (models.Like, error) {
	ph, err := r.checkLike(caller, postID, postAuthor)
	if err != nil {
		return models.Like{}, opError("like", postID, err)
	}

	h := r.alloc()
	like := models.Like{PostID: postID, PostAuthor: postAuthor, Liker: caller}
	r.likes[h] = &likeRecord{like: like, post: ph}
	r.likesByKey[likeKey{post: ph, liker: caller}] = h
	r.posts[ph].likes.add(h)
	addTo(r.userLikes, caller, h)
	return like, nil
}

func (r *Registry) checkUnlike(caller models.Identity, postID string, postAuthor models.Identity) (handle, error) {
	ph, _, err := r.lookupPost(postID, postAuthor)
	if err != nil {
		return 0, err
	}
	h, ok := r.likesByKey[likeKey{post: ph, liker: caller}]
	if !ok {
		return 0, ErrLikeNotFound
	}
	return h, nil
}

// Unlike withdraws caller's like from the post. Unliking a post that was not
// liked fails with ErrLikeNotFound.
func (r *Registry) Unlike(caller models.Identity, postID string, postAuthor models.Identity) error {
	h, err := r.checkUnlike(caller, postID, postAuthor)
	if err != nil {
		return opError("unlike", postID, err)
	}
	r.posts[r.likes[h].post].likes.remove(h)
	r.dropLike(h)
	return nil
}

func (r *Registry) dropLike(h handle) {
	rec := r.likes[h]
	removeFrom(r.userLikes, rec.like.Liker, h)
	delete(r.likesByKey, likeKey{post: rec.post, liker: rec.like.Liker})
	delete(r.likes, h)
}
