package api

import (
	"errors"
	"net/http"

	"github.com/MosinFAM/content-registry/internal/models"
	"github.com/MosinFAM/content-registry/internal/registry"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps registry error kinds to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, registry.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, registry.ErrUnauthorized):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, registry.ErrAlreadyExists):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, registry.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "request failed", "error", err)
		msg = "internal server error"
	}
	c.JSON(status, errorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "VALIDATION_ERROR"})
}

type addPostRequest struct {
	CID       string `json:"cid" binding:"required"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) addPost(c *gin.Context) {
	var req addPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := s.reg.AddPost(c.Request.Context(), callerOf(c), req.CID, req.Timestamp)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) deletePost(c *gin.Context) {
	author := c.Query("author")
	if author == "" {
		badRequest(c, "author is required")
		return
	}
	if err := s.reg.DeletePost(c.Request.Context(), callerOf(c), c.Param("cid"), models.Identity(author)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getPost(c *gin.Context) {
	post, err := s.reg.GetPost(c.Param("cid"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) getAuthors(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.GetAuthors())
}

func (s *Server) getPostsByAuthor(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.GetPostsByAuthor(models.Identity(c.Param("identity"))))
}

type addCommentRequest struct {
	CID        string `json:"cid" binding:"required"`
	PostAuthor string `json:"postAuthor" binding:"required"`
	Timestamp  int64  `json:"timestamp"`
}

func (s *Server) addComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	comment, err := s.reg.AddComment(c.Request.Context(), callerOf(c), c.Param("cid"), req.CID,
		models.Identity(req.PostAuthor), req.Timestamp)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) deleteComment(c *gin.Context) {
	postAuthor, commenter := c.Query("postAuthor"), c.Query("commenter")
	if postAuthor == "" || commenter == "" {
		badRequest(c, "postAuthor and commenter are required")
		return
	}
	err := s.reg.DeleteComment(c.Request.Context(), callerOf(c), c.Param("cid"), c.Param("commentCid"),
		models.Identity(postAuthor), models.Identity(commenter))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getCommentsByPost(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.GetCommentsByPost(c.Param("cid")))
}

func (s *Server) getCommentsByUser(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.GetCommentsByUser(models.Identity(c.Param("identity"))))
}

type likeRequest struct {
	PostAuthor string `json:"postAuthor" binding:"required"`
}

func (s *Server) like(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	like, err := s.reg.Like(c.Request.Context(), callerOf(c), c.Param("cid"), models.Identity(req.PostAuthor))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, like)
}

func (s *Server) unlike(c *gin.Context) {
	postAuthor := c.Query("postAuthor")
	if postAuthor == "" {
		badRequest(c, "postAuthor is required")
		return
	}
	if err := s.reg.Unlike(c.Request.Context(), callerOf(c), c.Param("cid"), models.Identity(postAuthor)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type postLikesResponse struct {
	Count  int               `json:"count"`
	Likers []models.Identity `json:"likers"`
}

func (s *Server) getLikesByPost(c *gin.Context) {
	cid := c.Param("cid")
	likes := s.reg.GetLikesByPost(cid)
	resp := postLikesResponse{
		Count:  len(likes),
		Likers: make([]models.Identity, 0, len(likes)),
	}
	for _, l := range likes {
		resp.Likers = append(resp.Likers, l.Liker)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getLikesNumberByPost(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": s.reg.GetLikesNumberByPost(c.Param("cid"))})
}

func (s *Server) getLikesByUser(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.GetLikesByUser(models.Identity(c.Param("identity"))))
}
