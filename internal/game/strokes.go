package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type StrokeInput struct {
	UserID string
	Points []Point
	Color  string
	Width  float64
	IsLive bool
	// Round, when set, must equal the round in play.
	Round int
}

// SubmitStroke stores drawing input from the current artist. Live batches
// grow the artist's single live stroke in place; a committed stroke replaces
// the live one with the full gesture.
func (s *Service) SubmitStroke(ctx context.Context, roomID string, in StrokeInput) (*Stroke, error) {
	if len(in.Points) == 0 {
		return nil, newError(KindInvalidInput, "stroke needs at least one point")
	}
	if in.Width <= 0 {
		return nil, newError(KindInvalidInput, "stroke width must be positive")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		return nil, newError(KindInvalidInput, "stroke color is required")
	}

	var stroke *Stroke
	err := s.asArtist(ctx, roomID, in.UserID, func(tx Tx) error {
		stroke = nil
		room, err := tx.Room()
		if err != nil {
			return err
		}
		now := s.now()
		if err := authorizeArtist(room, in.UserID, in.Round, now); err != nil {
			return err
		}
		if in.IsLive {
			stroke, err = appendLive(tx, room.CurrentRound, in, color, now)
			return err
		}
		existing, err := tx.ArtistStrokes(room.CurrentRound, in.UserID)
		if err != nil {
			return err
		}
		live := make([]int64, 0, 1)
		for _, st := range existing {
			if st.IsLive {
				live = append(live, st.ID)
			}
		}
		if len(live) > 0 {
			if err := tx.DeleteStrokes(live...); err != nil {
				return err
			}
		}
		stroke = &Stroke{
			Round:     room.CurrentRound,
			ArtistID:  in.UserID,
			Points:    in.Points,
			Color:     color,
			Width:     in.Width,
			Timestamp: now.UnixMilli(),
		}
		return tx.InsertStroke(stroke)
	})
	if err != nil {
		return nil, err
	}
	if !in.IsLive {
		s.log.WithFields(logrus.Fields{
			"room_id": roomID,
			"round":   stroke.Round,
			"points":  len(stroke.Points),
		}).Debug("stroke committed")
	}
	s.changed(roomID)
	return stroke, nil
}

// asArtist runs fn in a shared room transaction while holding the artist's
// drawing lock. The lock is released before change hooks fire.
func (s *Service) asArtist(ctx context.Context, roomID, userID string, fn func(tx Tx) error) error {
	unlock := s.artists.lock(roomID + "/" + userID)
	defer unlock()
	return s.share(ctx, roomID, fn)
}

func appendLive(tx Tx, round int, in StrokeInput, color string, now time.Time) (*Stroke, error) {
	live, err := tx.LiveStroke(round, in.UserID)
	if err != nil {
		return nil, err
	}
	if live == nil {
		stroke := &Stroke{
			Round:     round,
			ArtistID:  in.UserID,
			Points:    in.Points,
			Color:     color,
			Width:     in.Width,
			Timestamp: now.UnixMilli(),
			IsLive:    true,
		}
		err := tx.InsertStroke(stroke)
		if !errors.Is(err, ErrLiveStrokeExists) {
			return stroke, err
		}
		// Lost the insert race to another writer; extend its record instead.
		if live, err = tx.LiveStroke(round, in.UserID); err != nil {
			return nil, err
		}
		if live == nil {
			return nil, ErrConflict
		}
	}
	if err := tx.AppendLivePoints(live.ID, in.Points, now.UnixMilli()); err != nil {
		return nil, err
	}
	live.Points = append(live.Points, in.Points...)
	live.Timestamp = now.UnixMilli()
	return live, nil
}

// UndoLastStroke deletes the artist's most recent committed stroke in the
// current round. It reports false when there was nothing to undo.
func (s *Service) UndoLastStroke(ctx context.Context, roomID, userID string, round int) (bool, error) {
	removed := false
	err := s.asArtist(ctx, roomID, userID, func(tx Tx) error {
		removed = false
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if err := authorizeArtist(room, userID, round, s.now()); err != nil {
			return err
		}
		strokes, err := tx.ArtistStrokes(room.CurrentRound, userID)
		if err != nil {
			return err
		}
		for i := len(strokes) - 1; i >= 0; i-- {
			if strokes[i].IsLive {
				continue
			}
			removed = true
			return tx.DeleteStrokes(strokes[i].ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		s.changed(roomID)
	}
	return removed, nil
}

// ClearCanvas deletes every stroke, live or committed, the artist drew in the
// current round and returns how many went.
func (s *Service) ClearCanvas(ctx context.Context, roomID, userID string, round int) (int, error) {
	cleared := 0
	err := s.asArtist(ctx, roomID, userID, func(tx Tx) error {
		cleared = 0
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if err := authorizeArtist(room, userID, round, s.now()); err != nil {
			return err
		}
		strokes, err := tx.ArtistStrokes(room.CurrentRound, userID)
		if err != nil {
			return err
		}
		if len(strokes) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(strokes))
		for _, st := range strokes {
			ids = append(ids, st.ID)
		}
		cleared = len(ids)
		return tx.DeleteStrokes(ids...)
	})
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		s.changed(roomID)
	}
	return cleared, nil
}

// GetStrokes lists a round's strokes in draw order. A round of 0 means the
// room's current round.
func (s *Service) GetStrokes(ctx context.Context, roomID string, round int) ([]Stroke, error) {
	if round <= 0 {
		room, err := s.store.Room(ctx, roomID)
		if err != nil {
			return nil, err
		}
		round = room.CurrentRound
	}
	return s.store.Strokes(ctx, roomID, round)
}

func (s *Service) GetAllStrokesForRoom(ctx context.Context, roomID string) ([]Stroke, error) {
	if _, err := s.store.Room(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.AllStrokes(ctx, roomID)
}

func (s *Service) GetAllGuessesForRoom(ctx context.Context, roomID string) ([]Guess, error) {
	if _, err := s.store.Room(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.AllGuesses(ctx, roomID)
}

func authorizeArtist(room *Room, userID string, round int, now time.Time) error {
	if room.Status != StatusPlaying || room.CurrentArtist != userID {
		return newError(KindNotAuthorized, "only the current artist can draw")
	}
	if round > 0 && round != room.CurrentRound {
		return ErrRoundExpired
	}
	if room.expiredAt(now) {
		return ErrRoundExpired
	}
	return nil
}
