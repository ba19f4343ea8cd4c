package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"draw-royale/internal/game"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements game.Store on Postgres. Room transactions lock the room
// row: FOR UPDATE for Update, FOR SHARE for Share.
type Store struct {
	conn *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	return &Store{conn: conn}
}

var _ game.Store = (*Store)(nil)

func (s *Store) CreateRoom(ctx context.Context, room *game.Room, host *game.Player) error {
	err := s.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertRoom(tx, room); err != nil {
			return err
		}
		if host == nil {
			return nil
		}
		host.RoomID = room.ID
		return insertPlayer(tx, host)
	})
	return mapError(err)
}

func insertRoom(tx *gorm.DB, room *game.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	record := roomFromGame(room)
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invite_code"}},
		DoNothing: true,
	}).Create(&record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrInviteCodeTaken
	}
	return nil
}

func insertPlayer(tx *gorm.DB, player *game.Player) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	record := playerFromGame(player)
	if err := tx.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("player already in room: %w", err)
		}
		return err
	}
	player.Seq = record.Seq
	return nil
}

func (s *Store) Update(ctx context.Context, roomID string, fn func(tx game.Tx) error) error {
	return s.lockRoom(ctx, roomID, "UPDATE", fn)
}

func (s *Store) Share(ctx context.Context, roomID string, fn func(tx game.Tx) error) error {
	return s.lockRoom(ctx, roomID, "SHARE", fn)
}

func (s *Store) lockRoom(ctx context.Context, roomID, strength string, fn func(tx game.Tx) error) error {
	if _, err := uuid.Parse(roomID); err != nil {
		return game.ErrRoomNotFound
	}
	err := s.conn.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		var room Room
		err := conn.Clauses(clause.Locking{Strength: strength}).
			Where("id = ?", roomID).
			Take(&room).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		return fn(&tx{db: conn, roomID: roomID})
	})
	return mapError(err)
}

func (s *Store) Room(ctx context.Context, roomID string) (*game.Room, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, game.ErrRoomNotFound
	}
	return findRoom(s.conn.WithContext(ctx), roomID)
}

func findRoom(conn *gorm.DB, roomID string) (*game.Room, error) {
	var room Room
	err := conn.Where("id = ?", roomID).Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room.toGame(), nil
}

func (s *Store) RoomByInviteCode(ctx context.Context, code string) (*game.Room, error) {
	var room Room
	err := s.conn.WithContext(ctx).Where("invite_code = ?", code).Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room.toGame(), nil
}

func (s *Store) Players(ctx context.Context, roomID string) ([]game.Player, error) {
	return listPlayers(s.conn.WithContext(ctx), roomID)
}

func listPlayers(conn *gorm.DB, roomID string) ([]game.Player, error) {
	var rows []Player
	if err := conn.Where("room_id = ?", roomID).Order("joined_at, seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	return playersToGame(rows), nil
}

func (s *Store) PlayingRooms(ctx context.Context) ([]game.Room, error) {
	var rows []Room
	if err := s.conn.WithContext(ctx).Where("status = ?", string(game.StatusPlaying)).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	list := make([]game.Room, 0, len(rows))
	for _, row := range rows {
		list = append(list, *row.toGame())
	}
	return list, nil
}

func (s *Store) ExpiredRooms(ctx context.Context, nowMs int64) ([]string, error) {
	var ids []string
	err := s.conn.WithContext(ctx).Model(&Room{}).
		Where("status = ? AND round_end_time < ?", string(game.StatusPlaying), nowMs).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (s *Store) MembershipsForUser(ctx context.Context, userID string) ([]game.Player, error) {
	var rows []Player
	if err := s.conn.WithContext(ctx).Where("user_id = ?", userID).Order("joined_at, seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	return playersToGame(rows), nil
}

func (s *Store) PlayersJoinedSince(ctx context.Context, sinceMs int64) ([]game.Player, error) {
	var rows []Player
	if err := s.conn.WithContext(ctx).Where("joined_at > ?", sinceMs).Order("joined_at, seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	return playersToGame(rows), nil
}

func (s *Store) Strokes(ctx context.Context, roomID string, round int) ([]game.Stroke, error) {
	var rows []Stroke
	if err := s.conn.WithContext(ctx).Where("room_id = ? AND round = ?", roomID, round).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return strokesToGame(rows), nil
}

func (s *Store) AllStrokes(ctx context.Context, roomID string) ([]game.Stroke, error) {
	var rows []Stroke
	if err := s.conn.WithContext(ctx).Where("room_id = ?", roomID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return strokesToGame(rows), nil
}

func (s *Store) Guesses(ctx context.Context, roomID string, round int) ([]game.Guess, error) {
	return listGuesses(s.conn.WithContext(ctx), roomID, round)
}

func listGuesses(conn *gorm.DB, roomID string, round int) ([]game.Guess, error) {
	var rows []Guess
	if err := conn.Where("room_id = ? AND round = ?", roomID, round).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return guessesToGame(rows), nil
}

func (s *Store) AllGuesses(ctx context.Context, roomID string) ([]game.Guess, error) {
	var rows []Guess
	if err := s.conn.WithContext(ctx).Where("room_id = ?", roomID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return guessesToGame(rows), nil
}

func (s *Store) Sketches(ctx context.Context, roomID string) ([]game.Sketch, error) {
	var rows []Sketch
	if err := s.conn.WithContext(ctx).Where("room_id = ?", roomID).Order("round, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	list := make([]game.Sketch, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toGame())
	}
	return list, nil
}

func (s *Store) Invites(ctx context.Context, roomID string) ([]game.Invite, error) {
	var rows []Invite
	if err := s.conn.WithContext(ctx).Where("room_id = ?", roomID).Order("invited_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	list := make([]game.Invite, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toGame())
	}
	return list, nil
}

func (s *Store) InviteByMessageID(ctx context.Context, messageID string) (*game.Invite, error) {
	if messageID == "" {
		return nil, nil
	}
	var row Invite
	err := s.conn.WithContext(ctx).Where("message_id = ?", messageID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	invite := row.toGame()
	return &invite, nil
}

func (s *Store) Words(ctx context.Context) ([]string, error) {
	var words []string
	err := s.conn.WithContext(ctx).Model(&Word{}).Order("id").Pluck("text", &words).Error
	return words, err
}

// AddWords inserts words not already present, ignoring case, and returns
// how many were new.
func (s *Store) AddWords(ctx context.Context, words []game.Word) (int, error) {
	inserted := 0
	conn := s.conn.WithContext(ctx)
	for _, word := range words {
		text := strings.TrimSpace(word.Text)
		if text == "" {
			continue
		}
		difficulty := string(word.Difficulty)
		if difficulty == "" {
			difficulty = string(game.DifficultyMedium)
		}
		record := Word{Text: text, Difficulty: difficulty, Category: word.Category}
		res := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += int(res.RowsAffected)
	}
	return inserted, nil
}

func (s *Store) AppendEvent(ctx context.Context, event *game.Event) error {
	return appendEvent(s.conn.WithContext(ctx), event)
}

func appendEvent(conn *gorm.DB, event *game.Event) error {
	record := eventFromGame(event)
	if err := conn.Create(&record).Error; err != nil {
		return err
	}
	event.ID = record.ID
	return nil
}

func (s *Store) PendingEvents(ctx context.Context, limit int) ([]game.Event, error) {
	query := s.conn.WithContext(ctx).Where("dispatched_at IS NULL").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	list := make([]game.Event, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toGame())
	}
	return list, nil
}

func (s *Store) MarkEventAttempt(ctx context.Context, id int64, atMs int64, dispatched bool, lastErr string) error {
	updates := map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastErr,
	}
	if dispatched {
		updates["dispatched_at"] = atMs
	}
	res := s.conn.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("event not found")
	}
	return nil
}
