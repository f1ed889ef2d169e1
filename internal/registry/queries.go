package registry

import (
	"cmp"
	"slices"

	"github.com/MosinFAM/content-registry/internal/models"
)

// Queries never fail on an empty result; they return empty, non-nil slices
// ordered by creation.

// GetPost returns the live post with the given cid.
func (r *Registry) GetPost(cid string) (models.Post, error) {
	h, ok := r.postsByCID[cid]
	if !ok {
		return models.Post{}, opError("getPost", cid, ErrPostNotFound)
	}
	return r.posts[h].post, nil
}

// GetPostsByAuthor lists author's live posts in creation order.
func (r *Registry) GetPostsByAuthor(author models.Identity) []models.Post {
	hs := r.authorPosts[author].ordered()
	out := make([]models.Post, 0, len(hs))
	for _, h := range hs {
		out = append(out, r.posts[h].post)
	}
	return out
}

// GetAuthors lists identities with at least one live post, in the order they
// became authors.
func (r *Registry) GetAuthors() []models.Identity {
	out := make([]models.Identity, 0, len(r.authors))
	for id := range r.authors {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b models.Identity) int {
		return cmp.Compare(r.authors[a], r.authors[b])
	})
	return out
}

// GetCommentsByPost lists the comments on a post.
func (r *Registry) GetCommentsByPost(postID string) []models.Comment {
	h, ok := r.postsByCID[postID]
	if !ok {
		return []models.Comment{}
	}
	return r.collectComments(r.posts[h].comments)
}

// GetCommentsByUser lists the comments submitted by user.
func (r *Registry) GetCommentsByUser(user models.Identity) []models.Comment {
	return r.collectComments(r.userComments[user])
}

func (r *Registry) collectComments(l *handleList) []models.Comment {
	hs := l.ordered()
	out := make([]models.Comment, 0, len(hs))
	for _, h := range hs {
		out = append(out, r.comments[h].comment)
	}
	return out
}

// GetLikesByUser lists the likes given by user.
func (r *Registry) GetLikesByUser(user models.Identity) []models.Like {
	return r.collectLikes(r.userLikes[user])
}

// GetLikesByPost lists the likes received by a post.
func (r *Registry) GetLikesByPost(postID string) []models.Like {
	h, ok := r.postsByCID[postID]
	if !ok {
		return []models.Like{}
	}
	return r.collectLikes(r.posts[h].likes)
}

// GetLikesNumberByPost counts the likes on a post, zero when it does not exist.
func (r *Registry) GetLikesNumberByPost(postID string) int {
	h, ok := r.postsByCID[postID]
	if !ok {
		return 0
	}
	return r.posts[h].likes.len()
}

func (r *Registry) collectLikes(l *handleList) []models.Like {
	hs := l.ordered()
	out := make([]models.Like, 0, len(hs))
	for _, h := range hs {
		out = append(out, r.likes[h].like)
	}
	return out
}
