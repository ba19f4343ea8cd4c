package server

import (
	"errors"
	"io"
	"net/http"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
)

type guessRequest struct {
	Guess      string `json:"guess" binding:"required,guess"`
	PlayerName string `json:"player_name" binding:"omitempty,name"`
	Round      int    `json:"round" binding:"omitempty,min=1"`
}

type pointRequest struct {
	X         float64  `json:"x" binding:"gte=0,lte=800"`
	Y         float64  `json:"y" binding:"gte=0,lte=600"`
	Pressure  *float64 `json:"pressure" binding:"omitempty,gte=0,lte=1"`
	Timestamp int64    `json:"timestamp"`
}

type strokeRequest struct {
	Points []pointRequest `json:"points" binding:"required,min=1,max=2000,dive"`
	Color  string         `json:"color" binding:"required,color"`
	Width  float64        `json:"width" binding:"required,gt=0,lte=100"`
	IsLive bool           `json:"is_live"`
	Round  int            `json:"round" binding:"omitempty,min=1"`
}

type roundRequest struct {
	Round int `json:"round" binding:"omitempty,min=1"`
}

var playMessages = bindMessages{
	"Guess":  {"required": "guess is required", "guess": "guess must be 1-100 letters, digits or punctuation"},
	"Points": {"required": "stroke needs at least one point", "min": "stroke needs at least one point", "max": "too many points in one stroke"},
	"X":      {"gte": "point is outside the canvas", "lte": "point is outside the canvas"},
	"Y":      {"gte": "point is outside the canvas", "lte": "point is outside the canvas"},
	"Color":  {"required": "color is required", "color": "color must be #rgb, #rrggbb or a color name"},
	"Width":  {"required": "width is required", "gt": "width must be positive", "lte": "width is too large"},
}

func (s *Server) handleGuess(c *gin.Context) {
	var req guessRequest
	if !bindJSON(c, &req, playMessages, "invalid guess") {
		return
	}
	result, err := s.svc.SubmitGuess(c.Request.Context(), c.Param("roomID"), game.GuessInput{
		UserID:     currentUser(c),
		PlayerName: normalizeText(req.PlayerName),
		Text:       normalizeText(req.Guess),
		Round:      req.Round,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStroke(c *gin.Context) {
	var req strokeRequest
	if !bindJSON(c, &req, playMessages, "invalid stroke") {
		return
	}
	points := make([]game.Point, 0, len(req.Points))
	for _, p := range req.Points {
		points = append(points, game.Point{X: p.X, Y: p.Y, Pressure: p.Pressure, Timestamp: p.Timestamp})
	}
	stroke, err := s.svc.SubmitStroke(c.Request.Context(), c.Param("roomID"), game.StrokeInput{
		UserID: currentUser(c),
		Points: points,
		Color:  req.Color,
		Width:  req.Width,
		IsLive: req.IsLive,
		Round:  req.Round,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stroke)
}

// bindOptionalRound accepts an empty body as round 0, whether or not the
// client sent a Content-Length.
func bindOptionalRound(c *gin.Context) (int, bool) {
	var req roundRequest
	if c.Request.ContentLength == 0 {
		return 0, true
	}
	err := c.ShouldBindJSON(&req)
	switch {
	case errors.Is(err, io.EOF):
		return 0, true
	case err != nil:
		badRequest(c, describeBindError(err, nil, "invalid round"))
		return 0, false
	}
	return req.Round, true
}

func (s *Server) handleUndo(c *gin.Context) {
	round, ok := bindOptionalRound(c)
	if !ok {
		return
	}
	removed, err := s.svc.UndoLastStroke(c.Request.Context(), c.Param("roomID"), currentUser(c), round)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) handleClear(c *gin.Context) {
	round, ok := bindOptionalRound(c)
	if !ok {
		return
	}
	removed, err := s.svc.ClearCanvas(c.Request.Context(), c.Param("roomID"), currentUser(c), round)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) handleGetStrokes(c *gin.Context) {
	round, ok := queryInt(c, "round")
	if !ok {
		badRequest(c, "round must be a positive number")
		return
	}
	strokes, err := s.svc.GetStrokes(c.Request.Context(), c.Param("roomID"), round)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strokes": strokes})
}

func (s *Server) handleReplayData(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("roomID")
	strokes, err := s.svc.GetAllStrokesForRoom(ctx, roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	guesses, err := s.svc.GetAllGuessesForRoom(ctx, roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sketches, err := s.svc.RoomSketches(ctx, roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	room, err := s.svc.Store().Room(ctx, roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sketches = visibleSketches(room, sketches, currentUser(c))
	c.JSON(http.StatusOK, gin.H{
		"strokes":  strokes,
		"guesses":  guesses,
		"sketches": sketches,
	})
}

// visibleSketches hides the round in play from everyone but its artist.
func visibleSketches(room *game.Room, views []game.SketchView, userID string) []game.SketchView {
	if room.Status != game.StatusPlaying || room.CurrentArtist == userID {
		return views
	}
	out := views[:0]
	for _, view := range views {
		if view.Round != room.CurrentRound {
			out = append(out, view)
		}
	}
	return out
}
