// Package registry keeps posts, comments and likes together with every index
// that references them. All indices are updated as a unit: an operation either
// fails before touching state or applies every change it implies.
//
// A Registry is not safe for concurrent use; callers serialize access.
package registry

import (
	"github.com/MosinFAM/content-registry/internal/models"
)

type postRecord struct {
	post     models.Post
	comments *handleList
	likes    *handleList
}

type commentRecord struct {
	comment models.Comment
	post    handle
}

type likeRecord struct {
	like models.Like
	post handle
}

type commentKey struct {
	post handle
	cid  string
}

type likeKey struct {
	post  handle
	liker models.Identity
}

// Registry is the in-memory store of posts, comments and likes.
type Registry struct {
	next handle

	posts      map[handle]*postRecord
	postsByCID map[string]handle

	comments      map[handle]*commentRecord
	commentsByKey map[commentKey]handle

	likes      map[handle]*likeRecord
	likesByKey map[likeKey]handle

	authorPosts  map[models.Identity]*handleList
	authors      map[models.Identity]handle // value: post that made the identity an author
	userComments map[models.Identity]*handleList
	userLikes    map[models.Identity]*handleList
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		posts:         make(map[handle]*postRecord),
		postsByCID:    make(map[string]handle),
		comments:      make(map[handle]*commentRecord),
		commentsByKey: make(map[commentKey]handle),
		likes:         make(map[handle]*likeRecord),
		likesByKey:    make(map[likeKey]handle),
		authorPosts:   make(map[models.Identity]*handleList),
		authors:       make(map[models.Identity]handle),
		userComments:  make(map[models.Identity]*handleList),
		userLikes:     make(map[models.Identity]*handleList),
	}
}

func (r *Registry) alloc() handle {
	r.next++
	return r.next
}

// Stats counts live entities.
type Stats struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
	Authors  int `json:"authors"`
}

// Stats returns the current counts.
func (r *Registry) Stats() Stats {
	return Stats{
		Posts:    len(r.posts),
		Comments: len(r.comments),
		Likes:    len(r.likes),
		Authors:  len(r.authors),
	}
}

// lookupPost finds a live post by cid and checks its author.
// A post by a different author is reported as missing.
func (r *Registry) lookupPost(cid string, author models.Identity) (handle, *postRecord, error) {
	h, ok := r.postsByCID[cid]
	if !ok {
		return 0, nil, ErrPostNotFound
	}
	rec := r.posts[h]
	if rec.post.Author != author {
		return 0, nil, ErrPostNotFound
	}
	return h, rec, nil
}
