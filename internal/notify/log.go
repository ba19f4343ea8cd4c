package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogChannel writes envelopes to the log instead of delivering them. Used
// when no Redis address is configured.
type LogChannel struct {
	log *logrus.Logger
}

func NewLogChannel(logger *logrus.Logger) *LogChannel {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogChannel{log: logger}
}

func (c *LogChannel) Deliver(ctx context.Context, env Envelope) error {
	c.log.WithFields(logrus.Fields{
		"message_id": env.MessageID,
		"event_id":   env.EventID,
		"room_id":    env.RoomID,
		"kind":       env.Kind,
		"to":         env.To,
		"subject":    env.Subject,
	}).Info("notification")
	return nil
}
