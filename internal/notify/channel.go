package notify

import (
	"context"
	"encoding/json"
)

// Envelope is one rendered message handed to a delivery channel. MessageID
// is what the provider echoes back in delivery webhooks.
type Envelope struct {
	MessageID string          `json:"message_id"`
	EventID   int64           `json:"event_id"`
	RoomID    string          `json:"room_id,omitempty"`
	Kind      string          `json:"kind"`
	To        []string        `json:"to"`
	Subject   string          `json:"subject"`
	HTML      string          `json:"html"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

// Channel accepts envelopes for delivery. Accepting is not delivering:
// status changes arrive later through the delivery webhook.
type Channel interface {
	Deliver(ctx context.Context, env Envelope) error
}
