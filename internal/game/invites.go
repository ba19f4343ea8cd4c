package game

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// deliveryStatuses maps provider webhook event types onto invite states.
var deliveryStatuses = map[string]InviteStatus{
	"email.sent":       InviteSent,
	"email.delivered":  InviteDelivered,
	"email.opened":     InviteOpened,
	"email.clicked":    InviteClicked,
	"email.bounced":    InviteFailed,
	"email.complained": InviteFailed,
}

// SendGameInvite creates one invite per address and queues an email for
// each. Duplicate and blank addresses are dropped.
func (s *Service) SendGameInvite(ctx context.Context, roomID, hostID string, emails []string) ([]Invite, error) {
	seen := make(map[string]bool)
	addresses := make([]string, 0, len(emails))
	for _, raw := range emails {
		email, err := normalizeEmail(raw)
		if err != nil {
			return nil, err
		}
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		addresses = append(addresses, email)
	}
	if len(addresses) == 0 {
		return nil, newError(KindInvalidInput, "at least one email is required")
	}

	var invites []Invite
	err := s.update(ctx, roomID, func(tx Tx) error {
		invites = invites[:0]
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.HostID != hostID {
			return ErrNotAuthorized
		}
		if room.Status.Terminal() {
			return newErrorf(KindInvalidState, "cannot invite to a %s room", room.Status)
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		hostName := playerName(players, hostID)
		now := s.now()
		for _, email := range addresses {
			invite := &Invite{
				Email:       email,
				InvitedBy:   hostID,
				InvitedAt:   now.UnixMilli(),
				Status:      InviteSending,
				LastUpdated: now.UnixMilli(),
			}
			if err := tx.InsertInvite(invite); err != nil {
				return err
			}
			if err := s.enqueue(tx, room.ID, NotifyGameInvite, InvitePayload{
				InviteID:   invite.ID,
				RoomID:     room.ID,
				RoomName:   room.Name,
				InviteCode: room.InviteCode,
				HostName:   hostName,
				Email:      email,
				JoinURL:    s.joinURL(room.InviteCode, email),
			}, now); err != nil {
				return err
			}
			invites = append(invites, *invite)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"count":   len(invites),
	}).Info("invites queued")
	return invites, nil
}

func (s *Service) joinURL(code, email string) string {
	return s.appURL + "/invite/" + code + "?email=" + url.QueryEscape(email)
}

// recordInviteSend moves a sending invite to sent, or to failed once the
// final delivery attempt errors.
func (s *Service) recordInviteSend(ctx context.Context, roomID, inviteID, messageID string, sendErr error, final bool) error {
	if sendErr != nil && !final {
		return nil
	}
	return s.update(ctx, roomID, func(tx Tx) error {
		invite, err := tx.InviteByID(inviteID)
		if err != nil || invite == nil {
			return err
		}
		if invite.Status != InviteSending {
			return nil
		}
		if sendErr != nil {
			invite.Status = InviteFailed
		} else {
			invite.Status = InviteSent
			invite.MessageID = messageID
		}
		invite.LastUpdated = s.now().UnixMilli()
		return tx.SaveInvite(invite)
	})
}

// HandleDeliveryEvent applies a delivery provider callback. Unknown message
// ids and event types are ignored, and late events never move an invite
// back to an earlier state. It reports whether the invite changed.
func (s *Service) HandleDeliveryEvent(ctx context.Context, messageID, eventType string) (bool, error) {
	status, ok := deliveryStatuses[strings.ToLower(strings.TrimSpace(eventType))]
	if !ok || messageID == "" {
		return false, nil
	}
	found, err := s.store.InviteByMessageID(ctx, messageID)
	if err != nil || found == nil {
		return false, err
	}
	changed := false
	err = s.update(ctx, found.RoomID, func(tx Tx) error {
		changed = false
		invite, err := tx.InviteByID(found.ID)
		if err != nil || invite == nil {
			return err
		}
		if !status.advancesFrom(invite.Status) {
			return nil
		}
		invite.Status = status
		invite.LastUpdated = s.now().UnixMilli()
		changed = true
		return tx.SaveInvite(invite)
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.log.WithFields(logrus.Fields{
			"invite_id": found.ID,
			"status":    status,
		}).Info("invite status updated")
	}
	return changed, nil
}

// MarkInviteJoined flags the room's latest invite for email as joined.
func (s *Service) MarkInviteJoined(ctx context.Context, roomID, email, playerName string) (bool, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	if normalized == "" {
		return false, newError(KindInvalidInput, "email is required")
	}
	marked := false
	err = s.update(ctx, roomID, func(tx Tx) error {
		var err error
		marked, err = s.markInviteJoined(tx, normalized, playerName, s.now().UnixMilli())
		return err
	})
	return marked, err
}

func (s *Service) markInviteJoined(tx Tx, email, playerName string, at int64) (bool, error) {
	invite, err := tx.InviteByEmail(email)
	if err != nil || invite == nil {
		return false, err
	}
	if invite.Status == InviteJoined {
		return false, nil
	}
	invite.Status = InviteJoined
	invite.JoinedAt = at
	invite.JoinedPlayerName = playerName
	invite.LastUpdated = at
	return true, tx.SaveInvite(invite)
}

// RoomInvites lists a room's invites, newest first.
func (s *Service) RoomInvites(ctx context.Context, roomID string) ([]Invite, error) {
	if _, err := s.store.Room(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.Invites(ctx, roomID)
}
