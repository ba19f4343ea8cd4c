package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"draw-royale/internal/game"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	mu   sync.Mutex
	sent []Envelope
	err  error
}

func (c *recordingChannel) Deliver(ctx context.Context, env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *recordingChannel) envelopes() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope(nil), c.sent...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestMailerRendersInvite(t *testing.T) {
	channel := &recordingChannel{}
	mailer := NewMailer(channel, quietLogger())
	mailer.now = func() time.Time { return time.UnixMilli(5000) }

	id, err := mailer.Send(context.Background(), game.Notification{
		EventID: 7,
		RoomID:  "room-1",
		Kind:    game.NotifyGameInvite,
		Payload: &game.InvitePayload{
			RoomName:   "Friday",
			HostName:   "Ann",
			InviteCode: "ABC123",
			Email:      "bob@example.com",
			JoinURL:    "http://draw.test/invite/ABC123?email=bob%40example.com",
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sent := channel.envelopes()
	require.Len(t, sent, 1)
	env := sent[0]
	assert.Equal(t, id, env.MessageID)
	assert.Equal(t, int64(7), env.EventID)
	assert.Equal(t, "game-invite", env.Kind)
	assert.Equal(t, []string{"bob@example.com"}, env.To)
	assert.Equal(t, "Ann invited you to draw in Friday", env.Subject)
	assert.Contains(t, env.HTML, "ABC123")
	assert.Equal(t, int64(5000), env.CreatedAt)
	assert.JSONEq(t, `{"invite_id":"","room_id":"","room_name":"Friday","invite_code":"ABC123","host_name":"Ann","email":"bob@example.com","join_url":"http://draw.test/invite/ABC123?email=bob%40example.com"}`, string(env.Payload))
}

func TestMailerRejectsEmptyRecipients(t *testing.T) {
	channel := &recordingChannel{}
	mailer := NewMailer(channel, quietLogger())

	_, err := mailer.Send(context.Background(), game.Notification{
		Kind:    game.NotifyRoundResults,
		Payload: &game.RoundResultsPayload{RoomName: "Friday", Round: 1},
	})
	require.ErrorIs(t, err, ErrNoRecipients)
	assert.Empty(t, channel.envelopes())
}

func TestMailerUnknownPayload(t *testing.T) {
	mailer := NewMailer(&recordingChannel{}, quietLogger())
	_, err := mailer.Send(context.Background(), game.Notification{Kind: "mystery", Payload: struct{}{}})
	require.Error(t, err)
}

func TestMailerChannelFailure(t *testing.T) {
	channel := &recordingChannel{err: errors.New("queue down")}
	mailer := NewMailer(channel, quietLogger())
	id, err := mailer.Send(context.Background(), game.Notification{
		Kind:    game.NotifyDailyDigest,
		Payload: &game.DailyDigestPayload{Date: "2026-03-01", Recipients: []string{"a@example.com"}},
	})
	require.EqualError(t, err, "queue down")
	assert.Empty(t, id)
}

func TestDispatcherMarksInviteSent(t *testing.T) {
	ctx := context.Background()
	store := game.NewMemoryStore()
	svc := game.NewService(store, game.Options{AppURL: "http://draw.test", Logger: quietLogger()})
	room, err := svc.CreateRoom(ctx, game.CreateRoomInput{Name: "Friday", HostID: "host", HostName: "Ann", MaxPlayers: 4, MaxRounds: 2})
	require.NoError(t, err)
	_, err = svc.SendGameInvite(ctx, room.ID, "host", []string{"Bob@Example.com"})
	require.NoError(t, err)

	channel := &recordingChannel{}
	dispatcher := game.NewDispatcher(svc, NewMailer(channel, quietLogger()), time.Second)
	sent, err := dispatcher.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	envelopes := channel.envelopes()
	require.Len(t, envelopes, 1)
	assert.Equal(t, []string{"bob@example.com"}, envelopes[0].To)

	invites, err := svc.RoomInvites(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, game.InviteSent, invites[0].Status)
	assert.Equal(t, envelopes[0].MessageID, invites[0].MessageID)
}
