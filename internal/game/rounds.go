package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	reasonGuess   = "guess"
	reasonHost    = "host"
	reasonTimeout = "timeout"
)

type GuessInput struct {
	UserID     string
	PlayerName string
	Text       string
	// Round, when set, must equal the round in play or the guess is
	// rejected as expired.
	Round int
}

type GuessResult struct {
	Guess         Guess  `json:"guess"`
	IsCorrect     bool   `json:"is_correct"`
	Points        int    `json:"points"`
	RoundAdvanced bool   `json:"round_advanced"`
	GameFinished  bool   `json:"game_finished"`
	NewRound      int    `json:"new_round,omitempty"`
	NewArtist     string `json:"new_artist,omitempty"`
}

// Advance describes the outcome of closing a round.
type Advance struct {
	Finished bool
	Round    int
	Artist   string
}

// SubmitGuess records a guess and, when it is correct, scores it and closes
// the round in the same transaction.
func (s *Service) SubmitGuess(ctx context.Context, roomID string, in GuessInput) (*GuessResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, newError(KindInvalidInput, "guess is required")
	}
	var result *GuessResult
	err := s.update(ctx, roomID, func(tx Tx) error {
		result = nil
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.Status != StatusPlaying {
			return newError(KindInvalidState, "game is not in progress")
		}
		if in.Round > 0 && in.Round != room.CurrentRound {
			return ErrRoundExpired
		}
		if in.UserID == room.CurrentArtist {
			return newError(KindInvalidState, "the artist cannot guess")
		}
		now := s.now()
		if room.expiredAt(now) {
			return ErrRoundExpired
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		guesser := findPlayer(players, in.UserID)
		if guesser == nil {
			return newError(KindNotAuthorized, "not a player in this room")
		}
		name := strings.TrimSpace(in.PlayerName)
		if name == "" {
			name = guesser.Name
		}

		guess := &Guess{
			Round:      room.CurrentRound,
			PlayerID:   in.UserID,
			PlayerName: name,
			Text:       text,
			IsCorrect:  matchesWord(text, room.CurrentWord),
			Timestamp:  now.UnixMilli(),
		}
		if guess.IsCorrect {
			prior, err := tx.Guesses(room.CurrentRound)
			if err != nil {
				return err
			}
			first := true
			for _, g := range prior {
				if g.IsCorrect {
					first = false
					break
				}
			}
			elapsed := now.UnixMilli() - room.RoundStartTime
			duration := room.RoundEndTime - room.RoundStartTime
			guess.Points = Points(elapsed, duration, first)
			if err := tx.AddScore(guesser.ID, guess.Points); err != nil {
				return err
			}
		}
		if err := tx.InsertGuess(guess); err != nil {
			return err
		}
		result = &GuessResult{Guess: *guess, IsCorrect: guess.IsCorrect, Points: guess.Points}
		if !guess.IsCorrect {
			return nil
		}
		adv, err := s.advance(ctx, tx, room, reasonGuess, now)
		if err != nil {
			return err
		}
		result.RoundAdvanced = true
		result.GameFinished = adv.Finished
		if !adv.Finished {
			result.NewRound = adv.Round
			result.NewArtist = adv.Artist
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{
		"room_id": roomID,
		"user_id": in.UserID,
		"round":   result.Guess.Round,
		"correct": result.IsCorrect,
	}
	if result.IsCorrect {
		s.log.WithFields(fields).WithField("points", result.Points).Info("correct guess")
	} else {
		s.log.WithFields(fields).Debug("guess recorded")
	}
	s.changed(roomID)
	return result, nil
}

// NextRound lets the host close the current round without a winner.
func (s *Service) NextRound(ctx context.Context, roomID, hostID string) (*Advance, error) {
	var adv Advance
	err := s.update(ctx, roomID, func(tx Tx) error {
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.HostID != hostID {
			return ErrNotAuthorized
		}
		if room.Status != StatusPlaying {
			return newError(KindInvalidState, "game is not in progress")
		}
		adv, err = s.advance(ctx, tx, room, reasonHost, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.changed(roomID)
	return &adv, nil
}

// AdvanceExpired closes the round of a room whose deadline has passed. A
// round of 0 matches any round. It reports false when the room moved on or
// is no longer overdue.
func (s *Service) AdvanceExpired(ctx context.Context, roomID string, round int) (bool, error) {
	advanced := false
	err := s.update(ctx, roomID, func(tx Tx) error {
		advanced = false
		room, err := tx.Room()
		if err != nil {
			return err
		}
		if room.Status != StatusPlaying {
			return nil
		}
		if round > 0 && room.CurrentRound != round {
			return nil
		}
		now := s.now()
		if !room.expiredAt(now) {
			return nil
		}
		if _, err := s.advance(ctx, tx, room, reasonTimeout, now); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if advanced {
		s.changed(roomID)
	}
	return advanced, nil
}

// ScanExpired advances every overdue room and returns how many moved.
// A failure on one room does not stop the scan.
func (s *Service) ScanExpired(ctx context.Context) (int, error) {
	ids, err := s.store.ExpiredRooms(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("list expired rooms: %w", err)
	}
	advanced := 0
	for _, id := range ids {
		ok, err := s.AdvanceExpired(ctx, id, 0)
		if err != nil {
			s.log.WithField("room_id", id).WithError(err).Warn("timeout advance failed")
			continue
		}
		if ok {
			advanced++
		}
	}
	return advanced, nil
}

// advance closes the current round of a playing room: it commits live
// strokes, then either finishes the game or rotates the artist and opens the
// next round. The room is saved through tx and notifications are queued in
// the same transaction.
func (s *Service) advance(ctx context.Context, tx Tx, room *Room, reason string, now time.Time) (Advance, error) {
	outgoing := room.CurrentRound
	if _, err := tx.CommitLiveStrokes(outgoing); err != nil {
		return Advance{}, fmt.Errorf("commit live strokes: %w", err)
	}
	players, err := tx.Players()
	if err != nil {
		return Advance{}, err
	}
	guesses, err := tx.Guesses(outgoing)
	if err != nil {
		return Advance{}, err
	}
	results := RoundResultsPayload{
		RoomID:          room.ID,
		RoomName:        room.Name,
		Round:           outgoing,
		MaxRounds:       room.MaxRounds,
		Word:            room.CurrentWord,
		ArtistID:        room.CurrentArtist,
		ArtistName:      playerName(players, room.CurrentArtist),
		Reason:          reason,
		CorrectGuessers: correctGuessers(guesses),
		Leaderboard:     leaderboard(players),
		Recipients:      recipients(players),
	}

	var adv Advance
	if outgoing >= room.MaxRounds || len(players) == 0 {
		if err := room.transition(StatusFinished); err != nil {
			return Advance{}, err
		}
		room.CurrentWord = ""
		room.RoundStartTime = 0
		room.RoundEndTime = 0
		adv = Advance{Finished: true, Round: outgoing}
	} else {
		idx := -1
		for i, player := range players {
			if player.UserID == room.CurrentArtist {
				idx = i
				break
			}
		}
		next := players[(idx+1)%len(players)]
		word, err := s.words.Random(ctx)
		if err != nil {
			return Advance{}, fmt.Errorf("pick word: %w", err)
		}
		if err := room.transition(StatusPlaying); err != nil {
			return Advance{}, err
		}
		room.CurrentRound = outgoing + 1
		room.CurrentArtist = next.UserID
		room.CurrentWord = word
		room.RoundStartTime = now.UnixMilli()
		room.RoundEndTime = now.Add(s.roundDuration).UnixMilli()
		adv = Advance{Round: room.CurrentRound, Artist: next.UserID}
	}
	if err := tx.SaveRoom(room); err != nil {
		return Advance{}, err
	}

	if err := s.enqueue(tx, room.ID, NotifyRoundResults, results, now); err != nil {
		return Advance{}, err
	}
	if adv.Finished {
		complete := GameCompletePayload{
			RoomID:      room.ID,
			RoomName:    room.Name,
			TotalRounds: outgoing,
			Leaderboard: results.Leaderboard,
			Recipients:  results.Recipients,
			ReplayURL:   s.appURL + "/replay/" + room.ID,
		}
		if len(results.Leaderboard) > 0 {
			complete.WinnerName = results.Leaderboard[0].Name
			complete.WinnerScore = results.Leaderboard[0].Score
		}
		if err := s.enqueue(tx, room.ID, NotifyGameComplete, complete, now); err != nil {
			return Advance{}, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"room_id":  room.ID,
		"round":    outgoing,
		"reason":   reason,
		"finished": adv.Finished,
		"artist":   adv.Artist,
	}).Info("round advanced")
	return adv, nil
}

func matchesWord(guess, word string) bool {
	word = strings.TrimSpace(word)
	return word != "" && strings.EqualFold(strings.TrimSpace(guess), word)
}

func correctGuessers(guesses []Guess) []CorrectGuesser {
	list := make([]CorrectGuesser, 0)
	for _, guess := range guesses {
		if guess.IsCorrect {
			list = append(list, CorrectGuesser{Name: guess.PlayerName, Points: guess.Points})
		}
	}
	return list
}

func leaderboard(players []Player) []Standing {
	list := make([]Standing, 0, len(players))
	for _, player := range players {
		list = append(list, Standing{Name: player.Name, Score: player.Score})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Score > list[j].Score
	})
	return list
}

func recipients(players []Player) []string {
	list := make([]string, 0, len(players))
	for _, player := range players {
		if player.Email != "" {
			list = append(list, player.Email)
		}
	}
	return list
}
