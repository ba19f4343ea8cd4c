package server

import (
	"net/http"
	"time"

	"draw-royale/internal/config"
	"draw-royale/internal/game"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	svc     *game.Service
	blobs   *game.LocalBlobs
	cfg     config.Config
	log     *logrus.Logger
	ws      *wsHub
	limiter *rateLimiter
	auth    *identity
}

// New wires the HTTP surface to svc. Room changes committed by svc are
// pushed to websocket subscribers.
func New(svc *game.Service, cfg config.Config, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		log:     logger,
		ws:      newWSHub(logger),
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		auth:    newIdentity(cfg.JWTSecret),
	}
	if local, ok := svc.Blobs().(*game.LocalBlobs); ok {
		s.blobs = local
	}
	svc.OnChange(s.roomChanged)
	return s
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/", s.handleHome)
	r.GET("/healthz", s.handleHealth)
	r.GET("/replay/:roomID", s.handleReplayView)
	r.GET("/blobs/:handle", s.handleGetBlob)
	r.PUT("/blobs/:handle", s.limit("upload"), s.handlePutBlob)
	r.GET("/ws/rooms/:roomID", s.handleWebsocket)
	r.POST("/api/webhooks/delivery", s.handleDeliveryWebhook)

	api := r.Group("/api", s.requireUser())
	api.POST("/rooms", s.limit("create"), s.handleCreateRoom)
	api.GET("/rooms/:roomID", s.handleGetRoom)
	api.GET("/invite-codes/:code", s.handleGetRoomByCode)
	api.POST("/invite-codes/:code/join", s.limit("join"), s.handleJoinRoom)
	api.POST("/rooms/:roomID/start", s.handleStartGame)
	api.POST("/rooms/:roomID/guesses", s.limit("guess"), s.handleGuess)
	api.POST("/rooms/:roomID/next", s.handleNextRound)
	api.POST("/rooms/:roomID/restart", s.handleRestartGame)
	api.POST("/rooms/:roomID/end", s.handleEndGame)
	api.POST("/rooms/:roomID/leave", s.handleLeaveRoom)
	api.POST("/rooms/:roomID/remove", s.handleRemovePlayer)
	api.POST("/rooms/:roomID/strokes", s.handleStroke)
	api.POST("/rooms/:roomID/undo", s.handleUndo)
	api.POST("/rooms/:roomID/clear", s.handleClear)
	api.GET("/rooms/:roomID/strokes", s.handleGetStrokes)
	api.GET("/rooms/:roomID/replay", s.handleReplayData)
	api.POST("/rooms/:roomID/invites", s.limit("invite"), s.handleSendInvites)
	api.GET("/rooms/:roomID/invites", s.handleListInvites)
	api.POST("/rooms/:roomID/canvas/upload", s.handleCanvasUpload)
	api.POST("/rooms/:roomID/canvas", s.handleFinalizeCanvas)
	api.GET("/rooms/:roomID/rounds/:round/image", s.handleRoundImage)
	api.GET("/users/me/next-room", s.handleNextRoom)
	api.GET("/idle-players", s.handleIdlePlayers)
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", userHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.cfg.AllowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := s.log.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if userID := c.GetString(userIDKey); userID != "" {
			entry = entry.WithField("user_id", userID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
