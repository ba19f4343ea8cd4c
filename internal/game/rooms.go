package game

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type CreateRoomInput struct {
	Name       string
	HostID     string
	HostName   string
	HostEmail  string
	MaxPlayers int
	MaxRounds  int
}

type RoomState struct {
	Room    Room     `json:"room"`
	Players []Player `json:"players"`
	Guesses []Guess  `json:"guesses"`
}

// CreateRoom inserts a waiting room and its host player.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (*Room, error) {
	name := strings.TrimSpace(in.Name)
	hostName := strings.TrimSpace(in.HostName)
	if name == "" || hostName == "" || in.HostID == "" {
		return nil, newError(KindInvalidInput, "room name, host id and host name are required")
	}
	email, err := normalizeEmail(in.HostEmail)
	if err != nil {
		return nil, err
	}
	maxPlayers := in.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = s.maxPlayers
	}
	maxRounds := in.MaxRounds
	if maxRounds == 0 {
		maxRounds = s.maxRounds
	}
	if maxPlayers < 2 || maxRounds < 1 {
		return nil, newError(KindInvalidInput, "a room needs at least 2 players and 1 round")
	}

	now := s.now().UnixMilli()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newInviteCode()
		if err != nil {
			return nil, err
		}
		room := &Room{
			Name:       name,
			HostID:     in.HostID,
			Status:     StatusWaiting,
			MaxRounds:  maxRounds,
			MaxPlayers: maxPlayers,
			InviteCode: code,
			CreatedAt:  now,
		}
		host := &Player{
			UserID:   in.HostID,
			Name:     hostName,
			Email:    email,
			IsActive: true,
			JoinedAt: now,
		}
		err = s.store.CreateRoom(ctx, room, host)
		if errors.Is(err, ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"room_id":     room.ID,
			"invite_code": room.InviteCode,
			"host_id":     room.HostID,
		}).Info("room created")
		return room, nil
	}
	return nil, errors.New("create room: could not allocate a unique invite code")
}

type JoinInput struct {
	InviteCode string
	UserID     string
	Name       string
	Email      string
}

// JoinRoom adds the user to the room behind the invite code. Joining again
// returns the existing player.
func (s *Service) JoinRoom(ctx context.Context, in JoinInput) (*Player, *Room, error) {
	name := strings.TrimSpace(in.Name)
	if in.UserID == "" || name == "" {
		return nil, nil, newError(KindInvalidInput, "user id and name are required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, nil, err
	}
	found, err := s.store.RoomByInviteCode(ctx, normalizeInviteCode(in.InviteCode))
	if err != nil {
		return nil, nil, err
	}

	var (
		joined *Player
		room   *Room
		fresh  bool
	)
	err = s.update(ctx, found.ID, func(tx Tx) error {
		joined, fresh = nil, false
		var err error
		room, err = tx.Room()
		if err != nil {
			return err
		}
		if room.Status != StatusWaiting {
			return ErrGameInProgress
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		if existing := findPlayer(players, in.UserID); existing != nil {
			joined = existing
			return nil
		}
		if len(players) >= room.MaxPlayers {
			return ErrRoomFull
		}
		now := s.now()
		player := &Player{
			RoomID:   room.ID,
			UserID:   in.UserID,
			Name:     name,
			Email:    email,
			IsActive: true,
			JoinedAt: now.UnixMilli(),
		}
		if err := tx.InsertPlayer(player); err != nil {
			return err
		}
		joined, fresh = player, true
		if email == "" {
			return nil
		}
		if _, err := s.markInviteJoined(tx, email, name, now.UnixMilli()); err != nil {
			return err
		}
		host := findPlayer(players, room.HostID)
		if host == nil || host.Email == "" {
			return nil
		}
		return s.enqueue(tx, room.ID, NotifyPlayerJoined, PlayerJoinedPayload{
			RoomID:      room.ID,
			RoomName:    room.Name,
			HostName:    host.Name,
			HostEmail:   host.Email,
			PlayerName:  name,
			PlayerCount: len(players) + 1,
			MaxPlayers:  room.MaxPlayers,
			RoomURL:     s.appURL + "/rooms/" + room.ID,
		}, now)
	})
	if err != nil {
		return nil, nil, err
	}
	if fresh {
		s.log.WithFields(logrus.Fields{
			"room_id": room.ID,
			"user_id": in.UserID,
		}).Info("player joined")
		s.changed(room.ID)
	}
	return joined, room, nil
}

// StartGame moves a waiting room into its first round with the earliest
// joined player drawing.
func (s *Service) StartGame(ctx context.Context, roomID, hostID string) (*Room, error) {
	var room *Room
	err := s.update(ctx, roomID, func(tx Tx) error {
		var err error
		room, err = tx.Room()
		if err != nil {
			return err
		}
		if room.HostID != hostID {
			return ErrNotAuthorized
		}
		if room.Status != StatusWaiting {
			return newErrorf(KindInvalidState, "cannot start a %s game", room.Status)
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		if len(players) < 2 {
			return ErrNotEnoughPlayers
		}
		word, err := s.words.Random(ctx)
		if err != nil {
			return fmt.Errorf("pick word: %w", err)
		}
		if err := room.transition(StatusPlaying); err != nil {
			return err
		}
		now := s.now()
		room.CurrentRound = 1
		room.CurrentArtist = players[0].UserID
		room.CurrentWord = word
		room.RoundStartTime = now.UnixMilli()
		room.RoundEndTime = now.Add(s.roundDuration).UnixMilli()
		return tx.SaveRoom(room)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"room_id": room.ID,
		"artist":  room.CurrentArtist,
	}).Info("game started")
	s.changed(room.ID)
	return room, nil
}

// LeaveRoom removes the user from the room. Host duties pass to the earliest
// remaining joiner, and an empty room is deleted. Leaving twice succeeds.
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID string) error {
	deleted := false
	err := s.update(ctx, roomID, func(tx Tx) error {
		deleted = false
		room, err := tx.Room()
		if err != nil {
			return err
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		leaving := findPlayer(players, userID)
		if leaving == nil {
			return nil
		}
		if err := tx.DeletePlayer(leaving.ID); err != nil {
			return err
		}
		remaining := make([]Player, 0, len(players))
		for _, player := range players {
			if player.ID != leaving.ID {
				remaining = append(remaining, player)
			}
		}
		if len(remaining) == 0 {
			deleted = true
			return tx.DeleteRoom()
		}
		if room.HostID == userID {
			room.HostID = remaining[0].UserID
			return tx.SaveRoom(room)
		}
		return nil
	})
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"room_id":      roomID,
		"user_id":      userID,
		"room_deleted": deleted,
	}).Info("player left")
	s.changed(roomID)
	return nil
}

// RemovePlayer lets the host kick another player.
func (s *Service) RemovePlayer(ctx context.Context, roomID, hostID, targetUserID string) error {
	err := s.update(ctx, roomID, func(tx Tx) error {
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.HostID != hostID {
			return ErrNotAuthorized
		}
		if targetUserID == hostID {
			return ErrCannotRemoveSelf
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		target := findPlayer(players, targetUserID)
		if target == nil {
			return ErrPlayerNotFound
		}
		return tx.DeletePlayer(target.ID)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": targetUserID,
	}).Info("player removed")
	s.changed(roomID)
	return nil
}

// HostRestartGame spawns a fresh waiting room with the same players at zero
// and marks the finished room as restarted.
func (s *Service) HostRestartGame(ctx context.Context, roomID, hostID string) (*Room, error) {
	var next *Room
	err := s.update(ctx, roomID, func(tx Tx) error {
		next = nil
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.HostID != hostID {
			return ErrNotAuthorized
		}
		if room.Status != StatusFinished {
			return newErrorf(KindInvalidState, "cannot restart a %s game", room.Status)
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		now := s.now().UnixMilli()
		for attempt := 0; attempt < maxCodeAttempts && next == nil; attempt++ {
			code, err := newInviteCode()
			if err != nil {
				return err
			}
			candidate := &Room{
				Name:       room.Name + " (New Game)",
				HostID:     room.HostID,
				Status:     StatusWaiting,
				MaxRounds:  room.MaxRounds,
				MaxPlayers: room.MaxPlayers,
				InviteCode: code,
				CreatedAt:  now,
			}
			err = tx.InsertRoom(candidate)
			if errors.Is(err, ErrInviteCodeTaken) {
				continue
			}
			if err != nil {
				return err
			}
			next = candidate
		}
		if next == nil {
			return errors.New("restart: could not allocate a unique invite code")
		}
		for _, player := range players {
			copied := &Player{
				RoomID:   next.ID,
				UserID:   player.UserID,
				Name:     player.Name,
				Email:    player.Email,
				IsActive: true,
				JoinedAt: now,
			}
			if err := tx.InsertPlayer(copied); err != nil {
				return err
			}
		}
		if err := room.transition(StatusRestarted); err != nil {
			return err
		}
		return tx.SaveRoom(room)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"room_id":     roomID,
		"new_room_id": next.ID,
	}).Info("game restarted")
	s.changed(roomID, next.ID)
	return next, nil
}

// HostEndGame archives a finished room.
func (s *Service) HostEndGame(ctx context.Context, roomID, hostID string) error {
	err := s.update(ctx, roomID, func(tx Tx) error {
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.HostID != hostID {
			return ErrNotAuthorized
		}
		if room.Status != StatusFinished {
			return newErrorf(KindInvalidState, "cannot end a %s game", room.Status)
		}
		if err := room.transition(StatusArchived); err != nil {
			return err
		}
		return tx.SaveRoom(room)
	})
	if err != nil {
		return err
	}
	s.log.WithField("room_id", roomID).Info("game archived")
	s.changed(roomID)
	return nil
}

// GetRoomState returns the room, its players by score, and the guesses of
// the round in play.
func (s *Service) GetRoomState(ctx context.Context, roomID string) (*RoomState, error) {
	room, err := s.store.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := s.store.Players(ctx, roomID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})
	guesses := []Guess{}
	if room.Status == StatusPlaying {
		guesses, err = s.store.Guesses(ctx, roomID, room.CurrentRound)
		if err != nil {
			return nil, err
		}
	}
	return &RoomState{Room: *room, Players: players, Guesses: guesses}, nil
}

func (s *Service) RoomByInviteCode(ctx context.Context, code string) (*Room, error) {
	return s.store.RoomByInviteCode(ctx, normalizeInviteCode(code))
}

// FindNewRoomForPlayer returns the waiting room hosted by oldHostID that the
// user belongs to, or nil. Clients use it to follow a restart.
func (s *Service) FindNewRoomForPlayer(ctx context.Context, userID, oldHostID string) (*Room, error) {
	memberships, err := s.store.MembershipsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var newest *Room
	for _, membership := range memberships {
		room, err := s.store.Room(ctx, membership.RoomID)
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if room.Status != StatusWaiting || room.HostID != oldHostID {
			continue
		}
		if newest == nil || room.CreatedAt > newest.CreatedAt {
			newest = room
		}
	}
	return newest, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newErrorf(KindInvalidInput, "invalid email %q", email)
	}
	return strings.ToLower(email), nil
}
