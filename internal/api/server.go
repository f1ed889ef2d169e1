// Package api exposes the registry over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/MosinFAM/content-registry/internal/metrics"
	"github.com/MosinFAM/content-registry/internal/models"
	"github.com/MosinFAM/content-registry/internal/registry"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Registry is what the handlers need from the ledger.
type Registry interface {
	AddPost(ctx context.Context, caller models.Identity, cid string, timestamp int64) (models.Post, error)
	DeletePost(ctx context.Context, caller models.Identity, cid string, author models.Identity) error
	AddComment(ctx context.Context, caller models.Identity, postID, commentID string, postAuthor models.Identity, timestamp int64) (models.Comment, error)
	DeleteComment(ctx context.Context, caller models.Identity, postID, commentID string, postAuthor, commenter models.Identity) error
	Like(ctx context.Context, caller models.Identity, postID string, postAuthor models.Identity) (models.Like, error)
	Unlike(ctx context.Context, caller models.Identity, postID string, postAuthor models.Identity) error
	Subscribe(ctx context.Context) (<-chan models.Operation, error)

	GetPost(cid string) (models.Post, error)
	GetPostsByAuthor(author models.Identity) []models.Post
	GetAuthors() []models.Identity
	GetCommentsByPost(postID string) []models.Comment
	GetCommentsByUser(user models.Identity) []models.Comment
	GetLikesByUser(user models.Identity) []models.Like
	GetLikesByPost(postID string) []models.Like
	GetLikesNumberByPost(postID string) int
	Stats() registry.Stats
}

// Options configures NewHandler.
type Options struct {
	// JWTSecret enables bearer-token authentication. Without it the caller
	// is taken from the X-Caller-Identity header set by a trusted gateway.
	JWTSecret      string
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// Server holds the handlers' dependencies.
type Server struct {
	reg      Registry
	auth     *authenticator
	metrics  *metrics.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the router wrapped in CORS handling.
func NewHandler(reg Registry, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		reg:     reg,
		auth:    &authenticator{secret: []byte(opts.JWTSecret)},
		metrics: opts.Metrics,
		log:     opts.Logger.With("component", "api"),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/events", s.events)

	r.GET("/authors", s.getAuthors)
	r.GET("/authors/:identity/posts", s.getPostsByAuthor)
	r.GET("/users/:identity/comments", s.getCommentsByUser)
	r.GET("/users/:identity/likes", s.getLikesByUser)

	r.GET("/posts/:cid", s.getPost)
	r.GET("/posts/:cid/comments", s.getCommentsByPost)
	r.GET("/posts/:cid/likes", s.getLikesByPost)
	r.GET("/posts/:cid/likes/count", s.getLikesNumberByPost)

	authed := r.Group("/", s.auth.middleware())
	authed.POST("/posts", s.addPost)
	authed.DELETE("/posts/:cid", s.deletePost)
	authed.POST("/posts/:cid/comments", s.addComment)
	authed.DELETE("/posts/:cid/comments/:commentCid", s.deleteComment)
	authed.POST("/posts/:cid/likes", s.like)
	authed.DELETE("/posts/:cid/likes", s.unlike)

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", callerHeader},
	})
	return c.Handler(r)
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || slices.Contains(allowed, "*") {
		return true
	}
	return slices.Contains(allowed, origin)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": s.reg.Stats()})
}
