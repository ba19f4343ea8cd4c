package db

import (
	"encoding/json"
	"errors"

	"draw-royale/internal/game"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tx runs inside the transaction that holds the room row lock.
type tx struct {
	db     *gorm.DB
	roomID string
}

var _ game.Tx = (*tx)(nil)

func (t *tx) Room() (*game.Room, error) {
	return findRoom(t.db, t.roomID)
}

func (t *tx) SaveRoom(room *game.Room) error {
	if room.ID != t.roomID {
		return errors.New("room does not belong to this transaction")
	}
	res := t.db.Model(&Room{}).
		Where("id = ? AND version = ?", room.ID, room.Version).
		Updates(roomColumns(room))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrConflict
	}
	room.Version++
	return nil
}

// DeleteRoom relies on the ON DELETE CASCADE foreign keys for child rows.
func (t *tx) DeleteRoom() error {
	res := t.db.Where("id = ?", t.roomID).Delete(&Room{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrRoomNotFound
	}
	return nil
}

func (t *tx) InsertRoom(room *game.Room) error {
	return insertRoom(t.db, room)
}

func (t *tx) Players() ([]game.Player, error) {
	return listPlayers(t.db, t.roomID)
}

func (t *tx) InsertPlayer(player *game.Player) error {
	if player.RoomID == "" {
		player.RoomID = t.roomID
	}
	return insertPlayer(t.db, player)
}

func (t *tx) DeletePlayer(playerID string) error {
	res := t.db.Where("id = ? AND room_id = ?", playerID, t.roomID).Delete(&Player{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

func (t *tx) AddScore(playerID string, points int) error {
	res := t.db.Model(&Player{}).
		Where("id = ? AND room_id = ?", playerID, t.roomID).
		Update("score", gorm.Expr("score + ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

func (t *tx) Guesses(round int) ([]game.Guess, error) {
	return listGuesses(t.db, t.roomID, round)
}

func (t *tx) InsertGuess(guess *game.Guess) error {
	guess.RoomID = t.roomID
	record := guessFromGame(guess)
	if err := t.db.Create(&record).Error; err != nil {
		return err
	}
	guess.ID = record.ID
	return nil
}

func (t *tx) LiveStroke(round int, artistID string) (*game.Stroke, error) {
	var row Stroke
	err := t.db.Where("room_id = ? AND round = ? AND artist_id = ? AND is_live", t.roomID, round, artistID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stroke := row.toGame()
	return &stroke, nil
}

func (t *tx) ArtistStrokes(round int, artistID string) ([]game.Stroke, error) {
	var rows []Stroke
	err := t.db.Where("room_id = ? AND round = ? AND artist_id = ?", t.roomID, round, artistID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return strokesToGame(rows), nil
}

// InsertStroke reports game.ErrLiveStrokeExists when a live stroke for the
// same artist and round is already present.
func (t *tx) InsertStroke(stroke *game.Stroke) error {
	stroke.RoomID = t.roomID
	record := strokeFromGame(stroke)
	query := t.db
	if stroke.IsLive {
		query = query.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "room_id"}, {Name: "round"}, {Name: "artist_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "is_live"}}},
			DoNothing:   true,
		})
	}
	res := query.Create(&record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrLiveStrokeExists
	}
	stroke.ID = record.ID
	return nil
}

func (t *tx) AppendLivePoints(strokeID int64, points []game.Point, atMs int64) error {
	if points == nil {
		points = []game.Point{}
	}
	batch, err := json.Marshal(points)
	if err != nil {
		return err
	}
	res := t.db.Model(&Stroke{}).
		Where("id = ? AND room_id = ? AND is_live", strokeID, t.roomID).
		Updates(map[string]any{
			"points":   gorm.Expr("points || ?::jsonb", string(batch)),
			"drawn_at": atMs,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("live stroke not found")
	}
	return nil
}

func (t *tx) DeleteStrokes(ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return t.db.Where("room_id = ? AND id IN ?", t.roomID, ids).Delete(&Stroke{}).Error
}

func (t *tx) CommitLiveStrokes(round int) (int, error) {
	res := t.db.Model(&Stroke{}).
		Where("room_id = ? AND round = ? AND is_live", t.roomID, round).
		Update("is_live", false)
	return int(res.RowsAffected), res.Error
}

// UpsertSketch keeps one row per (room, round, artist); a repeat upload
// replaces the image reference and timestamp.
func (t *tx) UpsertSketch(sketch *game.Sketch) error {
	sketch.RoomID = t.roomID
	record := Sketch{
		RoomID:     sketch.RoomID,
		Round:      sketch.Round,
		ArtistID:   sketch.ArtistID,
		ArtistName: sketch.ArtistName,
		Word:       sketch.Word,
		ImageRef:   sketch.ImageRef,
		SavedAt:    sketch.Timestamp,
	}
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "round"}, {Name: "artist_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"image_ref", "saved_at"}),
	}).Create(&record).Error
	if err != nil {
		return err
	}
	var stored Sketch
	err = t.db.Where("room_id = ? AND round = ? AND artist_id = ?", sketch.RoomID, sketch.Round, sketch.ArtistID).
		Take(&stored).Error
	if err != nil {
		return err
	}
	*sketch = stored.toGame()
	return nil
}

func (t *tx) InsertInvite(invite *game.Invite) error {
	invite.RoomID = t.roomID
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	record := inviteFromGame(invite)
	return t.db.Create(&record).Error
}

func (t *tx) SaveInvite(invite *game.Invite) error {
	record := inviteFromGame(invite)
	res := t.db.Model(&Invite{}).
		Where("id = ? AND room_id = ?", invite.ID, t.roomID).
		Updates(map[string]any{
			"status":             record.Status,
			"message_id":         record.MessageID,
			"joined_at":          record.JoinedAt,
			"joined_player_name": record.JoinedPlayerName,
			"last_updated":       record.LastUpdated,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("invite not found")
	}
	return nil
}

func (t *tx) InviteByID(id string) (*game.Invite, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return t.takeInvite(t.db.Where("id = ? AND room_id = ?", id, t.roomID))
}

func (t *tx) InviteByEmail(email string) (*game.Invite, error) {
	return t.takeInvite(t.db.
		Where("room_id = ? AND lower(email) = lower(?)", t.roomID, email).
		Order("invited_at DESC"))
}

func (t *tx) takeInvite(query *gorm.DB) (*game.Invite, error) {
	var row Invite
	err := query.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	invite := row.toGame()
	return &invite, nil
}

func (t *tx) AppendEvent(event *game.Event) error {
	return appendEvent(t.db, event)
}
