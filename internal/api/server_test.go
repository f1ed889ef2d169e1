package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MosinFAM/content-registry/internal/logging"
	"github.com/MosinFAM/content-registry/internal/metrics"
	"github.com/MosinFAM/content-registry/internal/models"
	"github.com/MosinFAM/content-registry/internal/registry"
	"github.com/MosinFAM/content-registry/internal/service"
	"github.com/MosinFAM/content-registry/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	owner = "0xowner"
	other = "0xother"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handler http.Handler
	ledger  *service.Ledger
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, store storage.Storage, opts Options) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ledger := service.NewLedger(store, m, logging.Discard())

	opts.Metrics = m
	opts.Gatherer = reg
	opts.Logger = logging.Discard()
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	return &testServer{handler: NewHandler(ledger, opts), ledger: ledger, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAddPost(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})

	rec := srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1", "timestamp": 1700000000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	post := decode[models.Post](t, rec)
	assert.Equal(t, "cid1", post.CID)
	assert.Equal(t, models.Identity(owner), post.Author)

	rec = srv.do(t, http.MethodGet, "/authors/"+owner+"/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[[]models.Post](t, rec)
	require.Len(t, posts, 1)
	assert.Equal(t, "cid1", posts[0].CID)

	rec = srv.do(t, http.MethodGet, "/posts/cid1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddPost_Validation(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})

	// no caller
	rec := srv.do(t, http.MethodPost, "/posts", "", gin.H{"cid": "cid1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// no cid
	rec = srv.do(t, http.MethodPost, "/posts", owner, gin.H{"timestamp": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// too long for the journal
	rec = srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": strings.Repeat("x", registry.MaxIDLength+1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.ledger.GetAuthors())

	rec = srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(t, http.MethodPost, "/posts", other, gin.H{"cid": "cid1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode[errorResponse](t, rec).Code)
}

func TestGetEmptyCollections(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})

	for _, path := range []string{
		"/authors", "/authors/" + owner + "/posts", "/users/" + owner + "/comments",
		"/users/" + owner + "/likes", "/posts/cid1/comments",
	} {
		rec := srv.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, "[]", rec.Body.String(), path)
	}

	rec := srv.do(t, http.MethodGet, "/posts/cid1/likes", "", nil)
	assert.JSONEq(t, `{"count":0,"likers":[]}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/posts/cid1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePost(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"}).Code)

	rec := srv.do(t, http.MethodDelete, "/posts/cid1", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/posts/cid1?author="+owner, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "only post owner can do this action")

	rec = srv.do(t, http.MethodDelete, "/posts/cid1?author="+owner, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/posts/cid1?author="+owner, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/authors", "", nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestComments(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"}).Code)

	rec := srv.do(t, http.MethodPost, "/posts/missing/comments", other,
		gin.H{"cid": "c1", "postAuthor": owner})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, cid := range []string{"c1", "c2", "c3"} {
		rec = srv.do(t, http.MethodPost, "/posts/cid1/comments", other,
			gin.H{"cid": cid, "postAuthor": owner, "timestamp": 5})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodDelete, "/posts/cid1/comments/c2?postAuthor="+owner+"&commenter="+other, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/posts/cid1/comments/c2?postAuthor="+owner+"&commenter="+other, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/posts/cid1/comments/c1", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	comments := decode[[]models.Comment](t, srv.do(t, http.MethodGet, "/posts/cid1/comments", "", nil))
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].CID)
	assert.Equal(t, "c3", comments[1].CID)

	comments = decode[[]models.Comment](t, srv.do(t, http.MethodGet, "/users/"+other+"/comments", "", nil))
	assert.Len(t, comments, 2)
}

func TestLikes(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"}).Code)

	rec := srv.do(t, http.MethodPost, "/posts/cid1/likes", other, gin.H{"postAuthor": owner})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = srv.do(t, http.MethodPost, "/posts/cid1/likes", owner, gin.H{"postAuthor": owner})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodPost, "/posts/cid1/likes", other, gin.H{"postAuthor": owner})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "user already liked post")

	resp := decode[postLikesResponse](t, srv.do(t, http.MethodGet, "/posts/cid1/likes", "", nil))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []models.Identity{other, owner}, resp.Likers)

	rec = srv.do(t, http.MethodDelete, "/posts/cid1/likes?postAuthor="+owner, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodDelete, "/posts/cid1/likes?postAuthor="+owner, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp = decode[postLikesResponse](t, srv.do(t, http.MethodGet, "/posts/cid1/likes", "", nil))
	assert.Equal(t, 1, resp.Count)
	rec = srv.do(t, http.MethodGet, "/posts/cid1/likes/count", "", nil)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	likes := decode[[]models.Like](t, srv.do(t, http.MethodGet, "/users/"+other+"/likes", "", nil))
	require.Len(t, likes, 1)
	assert.Equal(t, "cid1", likes[0].PostID)
}

// staleCount reports a like count that lags behind the like list.
type staleCount struct {
	*service.Ledger
}

func (staleCount) GetLikesNumberByPost(string) int { return 0 }

func TestLikesByPostCountMatchesLikers(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})
	handler := NewHandler(staleCount{srv.ledger}, Options{Logger: logging.Discard(), Gatherer: prometheus.NewRegistry(), Metrics: srv.metrics})
	srv.handler = handler
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"}).Code)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/posts/cid1/likes", other, gin.H{"postAuthor": owner}).Code)

	resp := decode[postLikesResponse](t, srv.do(t, http.MethodGet, "/posts/cid1/likes", "", nil))

	assert.Equal(t, []models.Identity{other}, resp.Likers)
	assert.Equal(t, len(resp.Likers), resp.Count)
}

func TestJournalFailureIsInternalError(t *testing.T) {
	store := new(storage.MockStorage)
	store.On("AppendOperation", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	srv := newTestServer(t, store, Options{})

	rec := srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[errorResponse](t, rec).Error)
	store.AssertExpectations(t)
}

func TestJWTAuthentication(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{JWTSecret: secret})

	sign := func(key string, claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return token
	}
	post := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"cid":"cid1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(callerHeader, other) // ignored when JWT is enabled
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post(""))
	assert.Equal(t, http.StatusUnauthorized, post(sign("wrong-secret", jwt.MapClaims{"sub": owner})))
	assert.Equal(t, http.StatusUnauthorized, post(sign(secret, jwt.MapClaims{"name": owner})))
	assert.Equal(t, http.StatusUnauthorized, post(sign(secret, jwt.MapClaims{
		"sub": owner, "exp": time.Now().Add(-time.Minute).Unix(),
	})))
	assert.Equal(t, http.StatusCreated, post(sign(secret, jwt.MapClaims{"sub": owner})))

	assert.Equal(t, []models.Identity{owner}, srv.ledger.GetAuthors())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()),
		Options{AllowedOrigins: []string{"http://app.test"}})

	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/posts", owner, gin.H{"cid": "cid1"}).Code)

	rec := srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"posts":1`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `registry_operations_total{kind="add_post",result="ok"} 1`)
}

func TestEventsStream(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStorage(logging.Discard()), Options{})
	httpSrv := httptest.NewServer(srv.handler)
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the handler subscribes right after the upgrade
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.metrics.EventSubscribers) == 1
	}, time.Second, 10*time.Millisecond)

	_, err = srv.ledger.AddPost(t.Context(), owner, "cid1", 1)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var op models.Operation
	require.NoError(t, conn.ReadJSON(&op))
	assert.Equal(t, models.OpAddPost, op.Kind)
	assert.Equal(t, "cid1", op.PostID)
	assert.Equal(t, int64(1), op.Seq)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.metrics.EventSubscribers) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed([]string{"*"}, "http://x.test"))
	assert.True(t, originAllowed([]string{"http://a.test"}, ""))
	assert.True(t, originAllowed([]string{"http://a.test"}, "http://a.test"))
	assert.False(t, originAllowed([]string{"http://a.test"}, "http://b.test"))
}
