package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MosinFAM/content-registry/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	callerHeader = "X-Caller-Identity"
	callerKey    = "caller"
)

var errNoCaller = errors.New("caller identity is required")

type authenticator struct {
	secret []byte
}

// caller resolves the authenticated identity of a request.
func (a *authenticator) caller(r *http.Request) (models.Identity, error) {
	if len(a.secret) == 0 {
		id := strings.TrimSpace(r.Header.Get(callerHeader))
		if id == "" {
			return "", errNoCaller
		}
		return models.Identity(id), nil
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errNoCaller
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errNoCaller
	}
	return models.Identity(sub), nil
}

func (a *authenticator) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.caller(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "UNAUTHENTICATED"})
			return
		}
		c.Set(callerKey, id)
		c.Next()
	}
}

func callerOf(c *gin.Context) models.Identity {
	return c.MustGet(callerKey).(models.Identity)
}
