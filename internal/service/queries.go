package service

import (
	"github.com/MosinFAM/content-registry/internal/models"
	"github.com/MosinFAM/content-registry/internal/registry"
)

func (l *Ledger) GetPost(cid string) (models.Post, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetPost(cid)
}

func (l *Ledger) GetPostsByAuthor(author models.Identity) []models.Post {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetPostsByAuthor(author)
}

func (l *Ledger) GetAuthors() []models.Identity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetAuthors()
}

func (l *Ledger) GetCommentsByPost(postID string) []models.Comment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetCommentsByPost(postID)
}

func (l *Ledger) GetCommentsByUser(user models.Identity) []models.Comment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetCommentsByUser(user)
}

func (l *Ledger) GetLikesByUser(user models.Identity) []models.Like {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetLikesByUser(user)
}

func (l *Ledger) GetLikesByPost(postID string) []models.Like {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetLikesByPost(postID)
}

func (l *Ledger) GetLikesNumberByPost(postID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.GetLikesNumberByPost(postID)
}

func (l *Ledger) Stats() registry.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.Stats()
}
