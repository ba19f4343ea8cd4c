package server

import (
	"errors"
	"net/http"
	"strconv"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
)

func statusForKind(kind game.Kind) int {
	switch kind {
	case game.KindNotAuthorized:
		return http.StatusForbidden
	case game.KindInvalidState, game.KindGameInProgress, game.KindRoomFull,
		game.KindNotEnoughPlayers, game.KindCannotRemoveSelf:
		return http.StatusConflict
	case game.KindRoundExpired:
		return http.StatusGone
	case game.KindRoomNotFound, game.KindPlayerNotFound:
		return http.StatusNotFound
	case game.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders a service error. Errors outside the taxonomy are
// logged and reported without detail.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := game.KindOf(err)
	if kind == "" {
		if errors.Is(err, game.ErrConflict) {
			c.JSON(http.StatusConflict, errorBody("room is busy, try again", "conflict"))
			return
		}
		s.log.WithField("path", c.FullPath()).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal error", "internal"))
		return
	}
	c.JSON(statusForKind(kind), errorBody(err.Error(), kind))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(message, game.KindInvalidInput))
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
