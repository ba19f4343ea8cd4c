package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"draw-royale/internal/game"
	"draw-royale/internal/web"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrNoRecipients = errors.New("notification has no recipients")

// Mailer renders outbox notifications into email envelopes and hands them
// to a Channel. It implements game.Sender.
type Mailer struct {
	channel Channel
	log     *logrus.Logger
	now     func() time.Time
}

func NewMailer(channel Channel, logger *logrus.Logger) *Mailer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Mailer{channel: channel, log: logger, now: time.Now}
}

var _ game.Sender = (*Mailer)(nil)

func (m *Mailer) Send(ctx context.Context, n game.Notification) (string, error) {
	to, subject, body, err := compose(n)
	if err != nil {
		return "", err
	}
	if len(to) == 0 {
		return "", ErrNoRecipients
	}
	var html bytes.Buffer
	if err := body.Render(ctx, &html); err != nil {
		return "", fmt.Errorf("render %s email: %w", n.Kind, err)
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", n.Kind, err)
	}
	env := Envelope{
		MessageID: uuid.NewString(),
		EventID:   n.EventID,
		RoomID:    n.RoomID,
		Kind:      string(n.Kind),
		To:        to,
		Subject:   subject,
		HTML:      html.String(),
		Payload:   payload,
		CreatedAt: m.now().UnixMilli(),
	}
	if err := m.channel.Deliver(ctx, env); err != nil {
		return "", err
	}
	m.log.WithFields(logrus.Fields{
		"message_id": env.MessageID,
		"kind":       env.Kind,
		"recipients": len(to),
	}).Debug("notification accepted by channel")
	return env.MessageID, nil
}

func compose(n game.Notification) ([]string, string, templ.Component, error) {
	switch p := n.Payload.(type) {
	case *game.InvitePayload:
		return []string{p.Email}, fmt.Sprintf("%s invited you to draw in %s", p.HostName, p.RoomName), web.InviteEmail(p), nil
	case *game.PlayerJoinedPayload:
		return []string{p.HostEmail}, fmt.Sprintf("%s joined %s", p.PlayerName, p.RoomName), web.PlayerJoinedEmail(p), nil
	case *game.RoundResultsPayload:
		return p.Recipients, fmt.Sprintf("Round %d results: %s", p.Round, p.RoomName), web.RoundResultsEmail(p), nil
	case *game.GameCompletePayload:
		return p.Recipients, fmt.Sprintf("%s won %s", p.WinnerName, p.RoomName), web.GameCompleteEmail(p), nil
	case *game.DailyDigestPayload:
		return p.Recipients, "Draw Royale daily digest for " + p.Date, web.DailyDigestEmail(p), nil
	}
	return nil, "", nil, fmt.Errorf("unsupported notification payload %T", n.Payload)
}
