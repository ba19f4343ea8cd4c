package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	digestWindow     = 24 * time.Hour
	digestTopPlayers = 10
	idleWindow       = 5 * time.Minute
)

type IdlePlayer struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// SendDailyDigest queues a digest of the top players who joined a room in
// the last day. It returns the number of entries, and queues nothing when
// there are none.
func (s *Service) SendDailyDigest(ctx context.Context) (int, error) {
	now := s.now()
	players, err := s.store.PlayersJoinedSince(ctx, now.Add(-digestWindow).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("load recent players: %w", err)
	}
	byEmail := make(map[string]*DigestEntry)
	rooms := make(map[string]map[string]bool)
	for _, player := range players {
		if player.Email == "" {
			continue
		}
		entry, ok := byEmail[player.Email]
		if !ok {
			entry = &DigestEntry{Email: player.Email}
			byEmail[player.Email] = entry
			rooms[player.Email] = make(map[string]bool)
		}
		entry.Name = player.Name
		entry.TotalScore += player.Score
		if !rooms[player.Email][player.RoomID] {
			rooms[player.Email][player.RoomID] = true
			entry.GamesPlayed++
		}
	}
	if len(byEmail) == 0 {
		return 0, nil
	}
	entries := make([]DigestEntry, 0, len(byEmail))
	for _, entry := range byEmail {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Email < entries[j].Email
	})
	if len(entries) > digestTopPlayers {
		entries = entries[:digestTopPlayers]
	}
	payload := DailyDigestPayload{Date: now.Format("2006-01-02"), Entries: entries}
	for _, entry := range entries {
		payload.Recipients = append(payload.Recipients, entry.Email)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	if err := s.store.AppendEvent(ctx, &Event{
		Kind:      NotifyDailyDigest,
		Payload:   data,
		CreatedAt: now.UnixMilli(),
	}); err != nil {
		return 0, fmt.Errorf("queue digest: %w", err)
	}
	s.log.WithField("entries", len(entries)).Info("daily digest queued")
	return len(entries), nil
}

// IdlePlayers lists guessers with an email in playing rooms who have not
// guessed during the last five minutes of the current round.
func (s *Service) IdlePlayers(ctx context.Context) ([]IdlePlayer, error) {
	rooms, err := s.store.PlayingRooms(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-idleWindow).UnixMilli()
	idle := make([]IdlePlayer, 0)
	for _, room := range rooms {
		players, err := s.store.Players(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		guesses, err := s.store.Guesses(ctx, room.ID, room.CurrentRound)
		if err != nil {
			return nil, err
		}
		recent := make(map[string]bool)
		for _, guess := range guesses {
			if guess.Timestamp > cutoff {
				recent[guess.PlayerID] = true
			}
		}
		for _, player := range players {
			if player.Email == "" || player.UserID == room.CurrentArtist || recent[player.UserID] {
				continue
			}
			idle = append(idle, IdlePlayer{
				RoomID:   room.ID,
				RoomName: room.Name,
				UserID:   player.UserID,
				Name:     player.Name,
				Email:    player.Email,
			})
		}
	}
	return idle, nil
}

// DigestScheduler runs the daily digest once a day at a fixed UTC hour.
type DigestScheduler struct {
	svc  *Service
	hour int
	log  *logrus.Logger
}

func NewDigestScheduler(svc *Service, hourUTC int) *DigestScheduler {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 18
	}
	return &DigestScheduler{svc: svc, hour: hourUTC, log: svc.log}
}

// NextRun returns the first run time strictly after now.
func (d *DigestScheduler) NextRun(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func (d *DigestScheduler) Run(ctx context.Context) error {
	for {
		wait := time.Until(d.NextRun(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		d.RunOnce(ctx)
	}
}

func (d *DigestScheduler) RunOnce(ctx context.Context) {
	if _, err := d.svc.SendDailyDigest(ctx); err != nil {
		d.log.WithError(err).Warn("daily digest failed")
	}
	idle, err := d.svc.IdlePlayers(ctx)
	if err != nil {
		d.log.WithError(err).Warn("idle player scan failed")
		return
	}
	d.log.WithField("idle_players", len(idle)).Info("idle player scan finished")
}
