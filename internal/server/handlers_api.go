package server

import (
	"net/http"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Name       string `json:"name" binding:"required,roomname"`
	HostName   string `json:"host_name" binding:"required,name"`
	HostEmail  string `json:"host_email" binding:"omitempty,email,max=254"`
	MaxPlayers int    `json:"max_players" binding:"omitempty,min=2,max=12"`
	MaxRounds  int    `json:"max_rounds" binding:"omitempty,min=1,max=20"`
}

type joinRoomRequest struct {
	Name  string `json:"name" binding:"required,name"`
	Email string `json:"email" binding:"omitempty,email,max=254"`
}

type removePlayerRequest struct {
	UserID string `json:"user_id" binding:"required,max=128"`
}

type nextRoomQuery struct {
	Host string `form:"host" binding:"required"`
}

var roomMessages = bindMessages{
	"Name": {
		"required": "name is required",
		"roomname": "room name must be 1-100 letters, digits or punctuation",
		"name":     "name must be 1-32 letters, digits or punctuation",
	},
	"HostName": {
		"required": "host name is required",
		"name":     "host name must be 1-32 letters, digits or punctuation",
	},
	"HostEmail":  {"email": "host email is invalid"},
	"Email":      {"email": "email is invalid"},
	"MaxPlayers": {"min": "max players must be between 2 and 12", "max": "max players must be between 2 and 12"},
	"MaxRounds":  {"min": "max rounds must be between 1 and 20", "max": "max rounds must be between 1 and 20"},
}

// roomStateResponse adds the secret word when the caller is drawing.
type roomStateResponse struct {
	*game.RoomState
	Word string `json:"word,omitempty"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, roomMessages, "invalid room") {
		return
	}
	room, err := s.svc.CreateRoom(c.Request.Context(), game.CreateRoomInput{
		Name:       normalizeText(req.Name),
		HostID:     currentUser(c),
		HostName:   normalizeText(req.HostName),
		HostEmail:  req.HostEmail,
		MaxPlayers: req.MaxPlayers,
		MaxRounds:  req.MaxRounds,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) handleGetRoom(c *gin.Context) {
	state, err := s.svc.GetRoomState(c.Request.Context(), c.Param("roomID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := roomStateResponse{RoomState: state}
	if state.Room.Status == game.StatusPlaying && state.Room.CurrentArtist == currentUser(c) {
		resp.Word = state.Room.CurrentWord
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetRoomByCode(c *gin.Context) {
	room, err := s.svc.RoomByInviteCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if !bindJSON(c, &req, roomMessages, "invalid join request") {
		return
	}
	player, room, err := s.svc.JoinRoom(c.Request.Context(), game.JoinInput{
		InviteCode: c.Param("code"),
		UserID:     currentUser(c),
		Name:       normalizeText(req.Name),
		Email:      req.Email,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": player, "room": room})
}

func (s *Server) handleStartGame(c *gin.Context) {
	room, err := s.svc.StartGame(c.Request.Context(), c.Param("roomID"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) handleNextRound(c *gin.Context) {
	adv, err := s.svc.NextRound(c.Request.Context(), c.Param("roomID"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"finished": adv.Finished,
		"round":    adv.Round,
		"artist":   adv.Artist,
	})
}

func (s *Server) handleRestartGame(c *gin.Context) {
	room, err := s.svc.HostRestartGame(c.Request.Context(), c.Param("roomID"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) handleEndGame(c *gin.Context) {
	if err := s.svc.HostEndGame(c.Request.Context(), c.Param("roomID"), currentUser(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	if err := s.svc.LeaveRoom(c.Request.Context(), c.Param("roomID"), currentUser(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleRemovePlayer(c *gin.Context) {
	var req removePlayerRequest
	if !bindJSON(c, &req, bindMessages{"UserID": {"required": "user_id is required"}}, "") {
		return
	}
	if err := s.svc.RemovePlayer(c.Request.Context(), c.Param("roomID"), currentUser(c), req.UserID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleNextRoom(c *gin.Context) {
	var query nextRoomQuery
	if !bindQuery(c, &query) {
		return
	}
	room, err := s.svc.FindNewRoomForPlayer(c.Request.Context(), currentUser(c), query.Host)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, errorBody("no new room", game.KindRoomNotFound))
		return
	}
	c.JSON(http.StatusOK, room)
}
