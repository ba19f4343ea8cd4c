package server

import (
	"net/http"

	"draw-royale/internal/game"

	"github.com/gin-gonic/gin"
)

type inviteRequest struct {
	Emails []string `json:"emails" binding:"required,min=1,max=20,dive,max=254"`
}

// deliveryEvent is the delivery provider's webhook body.
type deliveryEvent struct {
	Type string `json:"type" binding:"required"`
	Data struct {
		EmailID string `json:"email_id" binding:"required"`
	} `json:"data"`
}

func (s *Server) handleSendInvites(c *gin.Context) {
	var req inviteRequest
	if !bindJSON(c, &req, bindMessages{
		"Emails": {"required": "at least one email is required", "min": "at least one email is required", "max": "too many emails"},
	}, "invalid invite request") {
		return
	}
	invites, err := s.svc.SendGameInvite(c.Request.Context(), c.Param("roomID"), currentUser(c), req.Emails)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"invites": invites})
}

func (s *Server) handleListInvites(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("roomID")
	room, err := s.svc.Store().Room(ctx, roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if room.HostID != currentUser(c) {
		c.JSON(http.StatusForbidden, errorBody("only the host can list invites", game.KindNotAuthorized))
		return
	}
	invites, err := s.svc.RoomInvites(ctx, roomID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func (s *Server) handleDeliveryWebhook(c *gin.Context) {
	var event deliveryEvent
	if !bindJSON(c, &event, nil, "invalid delivery event") {
		return
	}
	updated, err := s.svc.HandleDeliveryEvent(c.Request.Context(), event.Data.EmailID, event.Type)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
