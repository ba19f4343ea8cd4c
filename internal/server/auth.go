package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userHeader = "X-User-ID"
	userIDKey  = "user_id"
	maxUserID  = 128
)

var errInvalidToken = errors.New("invalid token")

// identity resolves the caller's opaque user id. With a secret configured
// only HS256 bearer tokens are accepted and the subject is the user id;
// otherwise the X-User-ID header is trusted.
type identity struct {
	secret []byte
}

func newIdentity(secret string) *identity {
	return &identity{secret: []byte(secret)}
}

func (i *identity) verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	if claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

func (i *identity) resolve(r *http.Request) (string, error) {
	if len(i.secret) > 0 {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "", errors.New("authentication required")
		}
		return i.verify(strings.TrimSpace(raw))
	}
	userID := strings.TrimSpace(r.Header.Get(userHeader))
	if userID == "" {
		return "", errors.New("authentication required")
	}
	if len(userID) > maxUserID {
		return "", errors.New("user id is too long")
	}
	return userID, nil
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := s.auth.resolve(c.Request)
		if err != nil {
			abortWith(c, http.StatusUnauthorized, err.Error(), "unauthenticated")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
