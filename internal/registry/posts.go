package registry

import "github.com/MosinFAM/content-registry/internal/models"

func (r *Registry) checkAddPost(caller models.Identity, cid string) error {
	if err := validID("caller", string(caller)); err != nil {
		return err
	}
	if err := validID("cid", cid); err != nil {
		return err
	}
	if _, ok := r.postsByCID[cid]; ok {
		return ErrPostExists
	}
	return nil
}

// AddPost publishes a post authored by caller.
func (r *Registry) AddPost(caller models.Identity, cid string, timestamp int64) (models.Post, error) {
	if err := r.checkAddPost(caller, cid); err != nil {
		return models.Post{}, opError("addPost", cid, err)
	}

	h := r.alloc()
	post := models.Post{CID: cid, Author: caller, CreatedAt: timestamp}
	r.posts[h] = &postRecord{
		post:     post,
		comments: newHandleList(),
		likes:    newHandleList(),
	}
	r.postsByCID[cid] = h
	if first := addTo(r.authorPosts, caller, h); first {
		r.authors[caller] = h
	}
	return post, nil
}

func (r *Registry) checkDeletePost(caller models.Identity, cid string, author models.Identity) (handle, error) {
	h, ok := r.postsByCID[cid]
	if !ok {
		return 0, ErrPostNotFound
	}
	owner := r.posts[h].post.Author
	if caller != owner || author != owner {
		return 0, ErrNotPostOwner
	}
	return h, nil
}

// DeletePost removes a post together with every comment and like attached to it.
// author names the post's author and must be the caller.
func (r *Registry) DeletePost(caller models.Identity, cid string, author models.Identity) error {
	h, err := r.checkDeletePost(caller, cid, author)
	if err != nil {
		return opError("deletePost", cid, err)
	}
	r.removePost(h)
	return nil
}

func (r *Registry) removePost(h handle) {
	rec := r.posts[h]
	author := rec.post.Author

	if gone := removeFrom(r.authorPosts, author, h); gone {
		delete(r.authors, author)
	}

	for _, ch := range rec.comments.items {
		r.dropComment(ch)
	}
	for _, lh := range rec.likes.items {
		r.dropLike(lh)
	}

	delete(r.postsByCID, rec.post.CID)
	delete(r.posts, h)
}
