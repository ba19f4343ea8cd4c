package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type NotificationKind string

const (
	NotifyGameInvite   NotificationKind = "game-invite"
	NotifyPlayerJoined NotificationKind = "player-joined"
	NotifyRoundResults NotificationKind = "round-results"
	NotifyGameComplete NotificationKind = "game-complete"
	NotifyDailyDigest  NotificationKind = "daily-digest"
)

const (
	maxDispatchAttempts  = 5
	defaultDispatchBatch = 50
)

type InvitePayload struct {
	InviteID   string `json:"invite_id"`
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	InviteCode string `json:"invite_code"`
	HostName   string `json:"host_name"`
	Email      string `json:"email"`
	JoinURL    string `json:"join_url"`
}

type PlayerJoinedPayload struct {
	RoomID      string `json:"room_id"`
	RoomName    string `json:"room_name"`
	HostName    string `json:"host_name"`
	HostEmail   string `json:"host_email"`
	PlayerName  string `json:"player_name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	RoomURL     string `json:"room_url"`
}

type Standing struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type CorrectGuesser struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type RoundResultsPayload struct {
	RoomID          string           `json:"room_id"`
	RoomName        string           `json:"room_name"`
	Round           int              `json:"round"`
	MaxRounds       int              `json:"max_rounds"`
	Word            string           `json:"word"`
	ArtistID        string           `json:"artist_id"`
	ArtistName      string           `json:"artist_name"`
	Reason          string           `json:"reason"`
	ImageURL        string           `json:"image_url,omitempty"`
	CorrectGuessers []CorrectGuesser `json:"correct_guessers"`
	Leaderboard     []Standing       `json:"leaderboard"`
	Recipients      []string         `json:"recipients"`
}

type GameCompletePayload struct {
	RoomID      string     `json:"room_id"`
	RoomName    string     `json:"room_name"`
	WinnerName  string     `json:"winner_name"`
	WinnerScore int        `json:"winner_score"`
	TotalRounds int        `json:"total_rounds"`
	Leaderboard []Standing `json:"leaderboard"`
	Recipients  []string   `json:"recipients"`
	ReplayURL   string     `json:"replay_url"`
}

type DigestEntry struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	TotalScore  int    `json:"total_score"`
	GamesPlayed int    `json:"games_played"`
}

type DailyDigestPayload struct {
	Date       string        `json:"date"`
	Entries    []DigestEntry `json:"entries"`
	Recipients []string      `json:"recipients"`
}

// Notification is a decoded outbox event ready to hand to a Sender.
type Notification struct {
	EventID int64
	RoomID  string
	Kind    NotificationKind
	Payload any
}

// Sender delivers a notification to an external channel and returns the
// channel's message id.
type Sender interface {
	Send(ctx context.Context, n Notification) (string, error)
}

func decodePayload(kind NotificationKind, data []byte) (any, error) {
	var payload any
	switch kind {
	case NotifyGameInvite:
		payload = &InvitePayload{}
	case NotifyPlayerJoined:
		payload = &PlayerJoinedPayload{}
	case NotifyRoundResults:
		payload = &RoundResultsPayload{}
	case NotifyGameComplete:
		payload = &GameCompletePayload{}
	case NotifyDailyDigest:
		payload = &DailyDigestPayload{}
	default:
		return nil, fmt.Errorf("unknown notification kind %q", kind)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return payload, nil
}

// Dispatcher drains the outbox written by room transactions. Delivery
// failures are recorded on the event and never touch game state.
type Dispatcher struct {
	svc      *Service
	sender   Sender
	interval time.Duration
	batch    int
	log      *logrus.Logger
}

func NewDispatcher(svc *Service, sender Sender, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dispatcher{
		svc:      svc,
		sender:   sender,
		interval: interval,
		batch:    defaultDispatchBatch,
		log:      svc.log,
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			d.log.WithError(err).Warn("outbox drain failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain sends every pending event once and returns how many were delivered.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	events, err := d.svc.store.PendingEvents(ctx, d.batch)
	if err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}
	sent := 0
	for _, event := range events {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if d.dispatch(ctx, event) {
			sent++
		}
	}
	return sent, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event Event) bool {
	fields := logrus.Fields{
		"event_id": event.ID,
		"room_id":  event.RoomID,
		"kind":     event.Kind,
	}
	payload, err := decodePayload(event.Kind, event.Payload)
	if err != nil {
		d.log.WithFields(fields).WithError(err).Warn("dropping undecodable notification")
		d.mark(ctx, event, true, err)
		return false
	}
	if results, ok := payload.(*RoundResultsPayload); ok && results.ImageURL == "" {
		results.ImageURL = d.svc.roundImageURL(ctx, results.RoomID, results.Round, results.ArtistID)
	}

	messageID, sendErr := d.sender.Send(ctx, Notification{
		EventID: event.ID,
		RoomID:  event.RoomID,
		Kind:    event.Kind,
		Payload: payload,
	})
	if invite, ok := payload.(*InvitePayload); ok {
		if err := d.svc.recordInviteSend(ctx, invite.RoomID, invite.InviteID, messageID, sendErr, event.Attempts+1 >= maxDispatchAttempts); err != nil {
			d.log.WithFields(fields).WithError(err).Warn("record invite send failed")
		}
	}
	if sendErr != nil {
		final := event.Attempts+1 >= maxDispatchAttempts
		d.log.WithFields(fields).WithError(sendErr).WithField("final", final).Warn("notification send failed")
		d.mark(ctx, event, final, sendErr)
		return false
	}
	d.log.WithFields(fields).WithField("message_id", messageID).Info("notification sent")
	d.mark(ctx, event, true, nil)
	return true
}

func (d *Dispatcher) mark(ctx context.Context, event Event, done bool, cause error) {
	lastErr := ""
	if cause != nil {
		lastErr = cause.Error()
	}
	if err := d.svc.store.MarkEventAttempt(ctx, event.ID, d.svc.now().UnixMilli(), done, lastErr); err != nil {
		d.log.WithField("event_id", event.ID).WithError(err).Warn("mark event attempt failed")
	}
}
