package db

import (
	"draw-royale/internal/game"

	"gorm.io/datatypes"
)

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func roomFromGame(r *game.Room) Room {
	return Room{
		ID:             r.ID,
		Name:           r.Name,
		HostID:         r.HostID,
		Status:         string(r.Status),
		CurrentRound:   r.CurrentRound,
		MaxRounds:      r.MaxRounds,
		CurrentArtist:  optString(r.CurrentArtist),
		CurrentWord:    optString(r.CurrentWord),
		RoundStartTime: optInt64(r.RoundStartTime),
		RoundEndTime:   optInt64(r.RoundEndTime),
		InviteCode:     r.InviteCode,
		MaxPlayers:     r.MaxPlayers,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
	}
}

func (r Room) toGame() *game.Room {
	return &game.Room{
		ID:             r.ID,
		Name:           r.Name,
		HostID:         r.HostID,
		Status:         game.Status(r.Status),
		CurrentRound:   r.CurrentRound,
		MaxRounds:      r.MaxRounds,
		CurrentArtist:  derefString(r.CurrentArtist),
		CurrentWord:    derefString(r.CurrentWord),
		RoundStartTime: derefInt64(r.RoundStartTime),
		RoundEndTime:   derefInt64(r.RoundEndTime),
		InviteCode:     r.InviteCode,
		MaxPlayers:     r.MaxPlayers,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
	}
}

// roomColumns lists every mutable column so zero values are written too.
func roomColumns(r *game.Room) map[string]any {
	rec := roomFromGame(r)
	return map[string]any{
		"name":             rec.Name,
		"host_id":          rec.HostID,
		"status":           rec.Status,
		"current_round":    rec.CurrentRound,
		"max_rounds":       rec.MaxRounds,
		"current_artist":   rec.CurrentArtist,
		"current_word":     rec.CurrentWord,
		"round_start_time": rec.RoundStartTime,
		"round_end_time":   rec.RoundEndTime,
		"max_players":      rec.MaxPlayers,
		"version":          rec.Version + 1,
	}
}

func playerFromGame(p *game.Player) Player {
	return Player{
		ID:       p.ID,
		RoomID:   p.RoomID,
		UserID:   p.UserID,
		Name:     p.Name,
		Email:    optString(p.Email),
		Score:    p.Score,
		IsActive: p.IsActive,
		JoinedAt: p.JoinedAt,
	}
}

func (p Player) toGame() game.Player {
	return game.Player{
		ID:       p.ID,
		RoomID:   p.RoomID,
		UserID:   p.UserID,
		Name:     p.Name,
		Email:    derefString(p.Email),
		Score:    p.Score,
		IsActive: p.IsActive,
		JoinedAt: p.JoinedAt,
		Seq:      p.Seq,
	}
}

func playersToGame(rows []Player) []game.Player {
	list := make([]game.Player, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toGame())
	}
	return list
}

func strokeFromGame(s *game.Stroke) Stroke {
	points := s.Points
	if points == nil {
		points = []game.Point{}
	}
	return Stroke{
		ID:       s.ID,
		RoomID:   s.RoomID,
		Round:    s.Round,
		ArtistID: s.ArtistID,
		Points:   datatypes.JSONSlice[game.Point](points),
		Color:    s.Color,
		Width:    s.Width,
		DrawnAt:  s.Timestamp,
		IsLive:   s.IsLive,
	}
}

func (s Stroke) toGame() game.Stroke {
	points := []game.Point(s.Points)
	if points == nil {
		points = []game.Point{}
	}
	return game.Stroke{
		ID:        s.ID,
		RoomID:    s.RoomID,
		Round:     s.Round,
		ArtistID:  s.ArtistID,
		Points:    points,
		Color:     s.Color,
		Width:     s.Width,
		Timestamp: s.DrawnAt,
		IsLive:    s.IsLive,
	}
}

func strokesToGame(rows []Stroke) []game.Stroke {
	list := make([]game.Stroke, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toGame())
	}
	return list
}

func guessFromGame(g *game.Guess) Guess {
	return Guess{
		ID:         g.ID,
		RoomID:     g.RoomID,
		Round:      g.Round,
		PlayerID:   g.PlayerID,
		PlayerName: g.PlayerName,
		Text:       g.Text,
		IsCorrect:  g.IsCorrect,
		GuessedAt:  g.Timestamp,
		Points:     g.Points,
	}
}

func (g Guess) toGame() game.Guess {
	return game.Guess{
		ID:         g.ID,
		RoomID:     g.RoomID,
		Round:      g.Round,
		PlayerID:   g.PlayerID,
		PlayerName: g.PlayerName,
		Text:       g.Text,
		IsCorrect:  g.IsCorrect,
		Timestamp:  g.GuessedAt,
		Points:     g.Points,
	}
}

func guessesToGame(rows []Guess) []game.Guess {
	list := make([]game.Guess, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toGame())
	}
	return list
}

func (s Sketch) toGame() game.Sketch {
	return game.Sketch{
		ID:         s.ID,
		RoomID:     s.RoomID,
		Round:      s.Round,
		ArtistID:   s.ArtistID,
		ArtistName: s.ArtistName,
		Word:       s.Word,
		ImageRef:   s.ImageRef,
		Timestamp:  s.SavedAt,
	}
}

func inviteFromGame(i *game.Invite) Invite {
	return Invite{
		ID:               i.ID,
		RoomID:           i.RoomID,
		Email:            i.Email,
		InvitedBy:        i.InvitedBy,
		InvitedAt:        i.InvitedAt,
		Status:           string(i.Status),
		MessageID:        optString(i.MessageID),
		JoinedAt:         optInt64(i.JoinedAt),
		JoinedPlayerName: optString(i.JoinedPlayerName),
		LastUpdated:      i.LastUpdated,
	}
}

func (i Invite) toGame() game.Invite {
	return game.Invite{
		ID:               i.ID,
		RoomID:           i.RoomID,
		Email:            i.Email,
		InvitedBy:        i.InvitedBy,
		InvitedAt:        i.InvitedAt,
		Status:           game.InviteStatus(i.Status),
		MessageID:        derefString(i.MessageID),
		JoinedAt:         derefInt64(i.JoinedAt),
		JoinedPlayerName: derefString(i.JoinedPlayerName),
		LastUpdated:      i.LastUpdated,
	}
}

func (e Event) toGame() game.Event {
	return game.Event{
		ID:           e.ID,
		RoomID:       derefString(e.RoomID),
		Kind:         game.NotificationKind(e.Kind),
		Payload:      []byte(e.Payload),
		CreatedAt:    e.CreatedAt,
		DispatchedAt: derefInt64(e.DispatchedAt),
		Attempts:     e.Attempts,
		LastError:    e.LastError,
	}
}

func eventFromGame(e *game.Event) Event {
	return Event{
		RoomID:    optString(e.RoomID),
		Kind:      string(e.Kind),
		Payload:   datatypes.JSON(e.Payload),
		CreatedAt: e.CreatedAt,
	}
}
