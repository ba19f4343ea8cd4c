package server

import (
	"encoding/json"
	"errors"
	"io"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindMessages maps a struct field and a failed validation tag to the
// message shown to the client.
type bindMessages map[string]map[string]string

func (m bindMessages) lookup(field, tag string) (string, bool) {
	msg, ok := m[field][tag]
	return msg, ok
}

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	badRequest(c, describeBindError(err, messages, fallback))
	return false
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		badRequest(c, describeBindError(err, nil, "invalid query"))
		return false
	}
	return true
}

func describeBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if msg, ok := messages.lookup(verr.Field(), verr.Tag()); ok {
				return msg
			}
		}
	}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return typeErr.Field + " has the wrong type"
	case errors.Is(err, io.EOF):
		return "request body is required"
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}

// errorBody is the JSON shape of every failed request.
func errorBody(message string, kind game.Kind) gin.H {
	return gin.H{"error": message, "kind": string(kind)}
}

func abortWith(c *gin.Context, status int, message string, kind game.Kind) {
	c.AbortWithStatusJSON(status, errorBody(message, kind))
}
