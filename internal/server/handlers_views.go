package server

import (
	"context"
	"net/http"

	"draw-royale/internal/game"
	"draw-royale/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleHome(c *gin.Context) {
	templ.Handler(web.Home()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReplayView(c *gin.Context) {
	data, err := s.replayData(c.Request.Context(), c.Param("roomID"))
	if err != nil {
		if game.KindOf(err) == game.KindRoomNotFound {
			s.log.WithField("room_id", c.Param("roomID")).Info("replay view missing room")
			c.Redirect(http.StatusFound, "/")
			return
		}
		s.writeError(c, err)
		return
	}
	templ.Handler(web.Replay(data)).ServeHTTP(c.Writer, c.Request)
}

// replayData assembles the replay page. The round in play is left out so
// its word stays secret.
func (s *Server) replayData(ctx context.Context, roomID string) (web.ReplayData, error) {
	state, err := s.svc.GetRoomState(ctx, roomID)
	if err != nil {
		return web.ReplayData{}, err
	}
	room := state.Room
	sketches, err := s.svc.RoomSketches(ctx, roomID)
	if err != nil {
		return web.ReplayData{}, err
	}
	guesses, err := s.svc.GetAllGuessesForRoom(ctx, roomID)
	if err != nil {
		return web.ReplayData{}, err
	}
	strokes, err := s.svc.GetAllStrokesForRoom(ctx, roomID)
	if err != nil {
		return web.ReplayData{}, err
	}

	lastRound := room.CurrentRound
	if room.Status == game.StatusPlaying {
		lastRound--
	}
	rounds := make([]web.ReplayRound, 0, max(lastRound, 0))
	for round := 1; round <= lastRound; round++ {
		entry := web.ReplayRound{Round: round, Word: "unknown"}
		for _, view := range sketches {
			if view.Round == round {
				entry.Word = view.Word
				entry.ArtistName = view.ArtistName
				entry.ImageURL = view.URL
				break
			}
		}
		for _, stroke := range strokes {
			if stroke.Round == round && !stroke.IsLive {
				entry.StrokeCount++
			}
		}
		for _, guess := range guesses {
			if guess.Round != round {
				continue
			}
			if guess.IsCorrect && entry.Word == "unknown" {
				entry.Word = guess.Text
			}
			entry.Guesses = append(entry.Guesses, web.ReplayGuess{
				PlayerName: guess.PlayerName,
				Text:       guess.Text,
				Correct:    guess.IsCorrect,
				Points:     guess.Points,
				At:         guess.Timestamp,
			})
		}
		rounds = append(rounds, entry)
	}

	scores := make([]web.ScoreRow, 0, len(state.Players))
	for _, player := range state.Players {
		scores = append(scores, web.ScoreRow{Name: player.Name, Score: player.Score})
	}
	return web.ReplayData{
		RoomID:    room.ID,
		RoomName:  room.Name,
		Status:    string(room.Status),
		MaxRounds: room.MaxRounds,
		CreatedAt: room.CreatedAt,
		Rounds:    rounds,
		Scores:    scores,
	}, nil
}

func (s *Server) handleIdlePlayers(c *gin.Context) {
	page, perPage := parsePagination(c, 50, 200)
	idle, err := s.svc.IdlePlayers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	start, end := pageBounds(len(idle), page, perPage)
	c.JSON(http.StatusOK, gin.H{
		"idle_players": idle[start:end],
		"total":        len(idle),
		"page":         page,
		"per_page":     perPage,
	})
}
