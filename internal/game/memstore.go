package game

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrLiveStrokeExists is returned when a second live stroke would be created
// for the same room, round and artist.
var ErrLiveStrokeExists = errors.New("live stroke already exists")

// MemoryStore keeps all state in process. Room transactions hold a per-room
// RWMutex for their whole duration; mu only guards the maps and is held for
// single reads or writes.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	rooms    map[string]*Room
	players  map[string]*Player
	strokes  map[int64]*Stroke
	guesses  map[int64]*Guess
	sketches map[int64]*Sketch
	invites  map[string]*Invite
	events   map[int64]*Event
	words    []Word

	locksMu sync.Mutex
	locks   map[string]*sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		rooms:    make(map[string]*Room),
		players:  make(map[string]*Player),
		strokes:  make(map[int64]*Stroke),
		guesses:  make(map[int64]*Guess),
		sketches: make(map[int64]*Sketch),
		invites:  make(map[string]*Invite),
		events:   make(map[int64]*Event),
		locks:    make(map[string]*sync.RWMutex),
	}
}

func (s *MemoryStore) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *MemoryStore) roomLock(roomID string) *sync.RWMutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[roomID]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[roomID] = lock
	}
	return lock
}

func (s *MemoryStore) CreateRoom(ctx context.Context, room *Room, host *Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inviteCodeTaken(room.InviteCode) {
		return ErrInviteCodeTaken
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	stored := *room
	s.rooms[room.ID] = &stored
	if host != nil {
		host.RoomID = room.ID
		s.insertPlayer(host)
	}
	return nil
}

func (s *MemoryStore) inviteCodeTaken(code string) bool {
	for _, existing := range s.rooms {
		if existing.InviteCode == code {
			return true
		}
	}
	return false
}

func (s *MemoryStore) insertPlayer(player *Player) {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	player.Seq = s.allocID()
	stored := *player
	s.players[player.ID] = &stored
}

func (s *MemoryStore) Update(ctx context.Context, roomID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()
	return s.run(roomID, fn)
}

func (s *MemoryStore) Share(ctx context.Context, roomID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.roomLock(roomID)
	lock.RLock()
	defer lock.RUnlock()
	return s.run(roomID, fn)
}

func (s *MemoryStore) run(roomID string, fn func(tx Tx) error) error {
	s.mu.Lock()
	_, ok := s.rooms[roomID]
	s.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}
	tx := &memTx{s: s, roomID: roomID}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		tx.rollback()
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) Room(ctx context.Context, roomID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := *room
	return &out, nil
}

func (s *MemoryStore) RoomByInviteCode(ctx context.Context, code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if room.InviteCode == code {
			out := *room
			return &out, nil
		}
	}
	return nil, ErrRoomNotFound
}

func (s *MemoryStore) Players(ctx context.Context, roomID string) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomPlayers(roomID), nil
}

func (s *MemoryStore) roomPlayers(roomID string) []Player {
	list := make([]Player, 0)
	for _, player := range s.players {
		if player.RoomID == roomID {
			list = append(list, *player)
		}
	}
	sortPlayers(list)
	return list
}

func sortPlayers(list []Player) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt != list[j].JoinedAt {
			return list[i].JoinedAt < list[j].JoinedAt
		}
		return list[i].Seq < list[j].Seq
	})
}

func (s *MemoryStore) PlayingRooms(ctx context.Context) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Room, 0)
	for _, room := range s.rooms {
		if room.Status == StatusPlaying {
			list = append(list, *room)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *MemoryStore) ExpiredRooms(ctx context.Context, nowMs int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0)
	for _, room := range s.rooms {
		if room.Status == StatusPlaying && room.RoundEndTime < nowMs {
			ids = append(ids, room.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) MembershipsForUser(ctx context.Context, userID string) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Player, 0)
	for _, player := range s.players {
		if player.UserID == userID {
			list = append(list, *player)
		}
	}
	sortPlayers(list)
	return list, nil
}

func (s *MemoryStore) PlayersJoinedSince(ctx context.Context, sinceMs int64) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Player, 0)
	for _, player := range s.players {
		if player.JoinedAt > sinceMs {
			list = append(list, *player)
		}
	}
	sortPlayers(list)
	return list, nil
}

func (s *MemoryStore) Strokes(ctx context.Context, roomID string, round int) ([]Stroke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterStrokes(func(st *Stroke) bool {
		return st.RoomID == roomID && st.Round == round
	}), nil
}

func (s *MemoryStore) AllStrokes(ctx context.Context, roomID string) ([]Stroke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterStrokes(func(st *Stroke) bool { return st.RoomID == roomID }), nil
}

func (s *MemoryStore) filterStrokes(match func(*Stroke) bool) []Stroke {
	list := make([]Stroke, 0)
	for _, stroke := range s.strokes {
		if match(stroke) {
			list = append(list, copyStroke(stroke))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func copyStroke(stroke *Stroke) Stroke {
	out := *stroke
	out.Points = append([]Point(nil), stroke.Points...)
	return out
}

func (s *MemoryStore) Guesses(ctx context.Context, roomID string, round int) ([]Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterGuesses(func(g *Guess) bool { return g.RoomID == roomID && g.Round == round }), nil
}

func (s *MemoryStore) AllGuesses(ctx context.Context, roomID string) ([]Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterGuesses(func(g *Guess) bool { return g.RoomID == roomID }), nil
}

func (s *MemoryStore) filterGuesses(match func(*Guess) bool) []Guess {
	list := make([]Guess, 0)
	for _, guess := range s.guesses {
		if match(guess) {
			list = append(list, *guess)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (s *MemoryStore) Sketches(ctx context.Context, roomID string) ([]Sketch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Sketch, 0)
	for _, sketch := range s.sketches {
		if sketch.RoomID == roomID {
			list = append(list, *sketch)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Round != list[j].Round {
			return list[i].Round < list[j].Round
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *MemoryStore) Invites(ctx context.Context, roomID string) ([]Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Invite, 0)
	for _, invite := range s.invites {
		if invite.RoomID == roomID {
			list = append(list, *invite)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].InvitedAt != list[j].InvitedAt {
			return list[i].InvitedAt > list[j].InvitedAt
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (s *MemoryStore) InviteByMessageID(ctx context.Context, messageID string) (*Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if messageID == "" {
		return nil, nil
	}
	for _, invite := range s.invites {
		if invite.MessageID == messageID {
			out := *invite
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Words(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]string, 0, len(s.words))
	for _, word := range s.words {
		list = append(list, word.Text)
	}
	return list, nil
}

func (s *MemoryStore) AddWords(ctx context.Context, words []Word) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, word := range words {
		text := strings.TrimSpace(word.Text)
		if text == "" {
			continue
		}
		exists := false
		for _, existing := range s.words {
			if strings.EqualFold(existing.Text, text) {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		word.Text = text
		s.words = append(s.words, word)
		inserted++
	}
	return inserted, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendEvent(event)
	return nil
}

func (s *MemoryStore) appendEvent(event *Event) {
	event.ID = s.allocID()
	stored := *event
	s.events[event.ID] = &stored
}

func (s *MemoryStore) PendingEvents(ctx context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Event, 0)
	for _, event := range s.events {
		if event.DispatchedAt == 0 {
			list = append(list, *event)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MemoryStore) MarkEventAttempt(ctx context.Context, id int64, atMs int64, dispatched bool, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return errors.New("event not found")
	}
	event.Attempts++
	event.LastError = lastErr
	if dispatched {
		event.DispatchedAt = atMs
	}
	return nil
}

// memTx journals an inverse for every write so a failed transaction can be
// unwound. Inverses run with s.mu held.
type memTx struct {
	s      *MemoryStore
	roomID string
	undo   []func()
}

func (t *memTx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) Room() (*Room, error) {
	return t.s.Room(context.Background(), t.roomID)
}

func (t *memTx) SaveRoom(room *Room) error {
	if room.ID != t.roomID {
		return errors.New("room does not belong to this transaction")
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stored, ok := t.s.rooms[room.ID]
	if !ok {
		return ErrRoomNotFound
	}
	if stored.Version != room.Version {
		return ErrConflict
	}
	previous := *stored
	*stored = *room
	stored.Version++
	room.Version = stored.Version
	t.record(func() { *stored = previous })
	return nil
}

func (t *memTx) DeleteRoom() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	room, ok := t.s.rooms[t.roomID]
	if !ok {
		return ErrRoomNotFound
	}
	delete(t.s.rooms, t.roomID)
	t.record(func() { t.s.rooms[room.ID] = room })
	for id, player := range t.s.players {
		if player.RoomID == t.roomID {
			delete(t.s.players, id)
			t.record(func() { t.s.players[player.ID] = player })
		}
	}
	for id, stroke := range t.s.strokes {
		if stroke.RoomID == t.roomID {
			delete(t.s.strokes, id)
			t.record(func() { t.s.strokes[stroke.ID] = stroke })
		}
	}
	for id, guess := range t.s.guesses {
		if guess.RoomID == t.roomID {
			delete(t.s.guesses, id)
			t.record(func() { t.s.guesses[guess.ID] = guess })
		}
	}
	for id, sketch := range t.s.sketches {
		if sketch.RoomID == t.roomID {
			delete(t.s.sketches, id)
			t.record(func() { t.s.sketches[sketch.ID] = sketch })
		}
	}
	for id, invite := range t.s.invites {
		if invite.RoomID == t.roomID {
			delete(t.s.invites, id)
			t.record(func() { t.s.invites[invite.ID] = invite })
		}
	}
	return nil
}

func (t *memTx) InsertRoom(room *Room) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.inviteCodeTaken(room.InviteCode) {
		return ErrInviteCodeTaken
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	stored := *room
	t.s.rooms[room.ID] = &stored
	t.record(func() { delete(t.s.rooms, room.ID) })
	return nil
}

func (t *memTx) Players() ([]Player, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.roomPlayers(t.roomID), nil
}

func (t *memTx) InsertPlayer(player *Player) error {
	if player.RoomID == "" {
		player.RoomID = t.roomID
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.players {
		if existing.RoomID == player.RoomID && existing.UserID == player.UserID {
			return errors.New("player already in room")
		}
	}
	t.s.insertPlayer(player)
	id := player.ID
	t.record(func() { delete(t.s.players, id) })
	return nil
}

func (t *memTx) DeletePlayer(playerID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	player, ok := t.s.players[playerID]
	if !ok || player.RoomID != t.roomID {
		return ErrPlayerNotFound
	}
	delete(t.s.players, playerID)
	t.record(func() { t.s.players[playerID] = player })
	return nil
}

func (t *memTx) AddScore(playerID string, points int) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	player, ok := t.s.players[playerID]
	if !ok || player.RoomID != t.roomID {
		return ErrPlayerNotFound
	}
	player.Score += points
	t.record(func() { player.Score -= points })
	return nil
}

func (t *memTx) Guesses(round int) ([]Guess, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.filterGuesses(func(g *Guess) bool { return g.RoomID == t.roomID && g.Round == round }), nil
}

func (t *memTx) InsertGuess(guess *Guess) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	guess.RoomID = t.roomID
	guess.ID = t.s.allocID()
	stored := *guess
	t.s.guesses[guess.ID] = &stored
	t.record(func() { delete(t.s.guesses, stored.ID) })
	return nil
}

func (t *memTx) liveStroke(round int, artistID string) *Stroke {
	for _, stroke := range t.s.strokes {
		if stroke.RoomID == t.roomID && stroke.Round == round && stroke.ArtistID == artistID && stroke.IsLive {
			return stroke
		}
	}
	return nil
}

func (t *memTx) LiveStroke(round int, artistID string) (*Stroke, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stroke := t.liveStroke(round, artistID)
	if stroke == nil {
		return nil, nil
	}
	out := copyStroke(stroke)
	return &out, nil
}

func (t *memTx) ArtistStrokes(round int, artistID string) ([]Stroke, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.filterStrokes(func(st *Stroke) bool {
		return st.RoomID == t.roomID && st.Round == round && st.ArtistID == artistID
	}), nil
}

func (t *memTx) InsertStroke(stroke *Stroke) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stroke.RoomID = t.roomID
	if stroke.IsLive && t.liveStroke(stroke.Round, stroke.ArtistID) != nil {
		return ErrLiveStrokeExists
	}
	stroke.ID = t.s.allocID()
	stored := copyStroke(stroke)
	t.s.strokes[stroke.ID] = &stored
	t.record(func() { delete(t.s.strokes, stored.ID) })
	return nil
}

func (t *memTx) AppendLivePoints(strokeID int64, points []Point, atMs int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stroke, ok := t.s.strokes[strokeID]
	if !ok || stroke.RoomID != t.roomID || !stroke.IsLive {
		return errors.New("live stroke not found")
	}
	previousLen := len(stroke.Points)
	previousTs := stroke.Timestamp
	stroke.Points = append(stroke.Points, points...)
	stroke.Timestamp = atMs
	t.record(func() {
		stroke.Points = stroke.Points[:previousLen]
		stroke.Timestamp = previousTs
	})
	return nil
}

func (t *memTx) DeleteStrokes(ids ...int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, id := range ids {
		stroke, ok := t.s.strokes[id]
		if !ok || stroke.RoomID != t.roomID {
			continue
		}
		delete(t.s.strokes, id)
		t.record(func() { t.s.strokes[stroke.ID] = stroke })
	}
	return nil
}

func (t *memTx) CommitLiveStrokes(round int) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	committed := 0
	for _, stroke := range t.s.strokes {
		if stroke.RoomID == t.roomID && stroke.Round == round && stroke.IsLive {
			stroke.IsLive = false
			committed++
			t.record(func() { stroke.IsLive = true })
		}
	}
	return committed, nil
}

func (t *memTx) UpsertSketch(sketch *Sketch) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	sketch.RoomID = t.roomID
	for _, existing := range t.s.sketches {
		if existing.RoomID == sketch.RoomID && existing.Round == sketch.Round && existing.ArtistID == sketch.ArtistID {
			previous := *existing
			existing.ImageRef = sketch.ImageRef
			existing.Timestamp = sketch.Timestamp
			*sketch = *existing
			t.record(func() { *existing = previous })
			return nil
		}
	}
	sketch.ID = t.s.allocID()
	stored := *sketch
	t.s.sketches[sketch.ID] = &stored
	t.record(func() { delete(t.s.sketches, stored.ID) })
	return nil
}

func (t *memTx) InsertInvite(invite *Invite) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	invite.RoomID = t.roomID
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	stored := *invite
	t.s.invites[invite.ID] = &stored
	t.record(func() { delete(t.s.invites, stored.ID) })
	return nil
}

func (t *memTx) SaveInvite(invite *Invite) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	stored, ok := t.s.invites[invite.ID]
	if !ok || stored.RoomID != t.roomID {
		return errors.New("invite not found")
	}
	previous := *stored
	*stored = *invite
	t.record(func() { *stored = previous })
	return nil
}

func (t *memTx) InviteByID(id string) (*Invite, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	invite, ok := t.s.invites[id]
	if !ok || invite.RoomID != t.roomID {
		return nil, nil
	}
	out := *invite
	return &out, nil
}

func (t *memTx) InviteByEmail(email string) (*Invite, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var found *Invite
	for _, invite := range t.s.invites {
		if invite.RoomID != t.roomID || !strings.EqualFold(invite.Email, email) {
			continue
		}
		if found == nil || invite.InvitedAt > found.InvitedAt {
			found = invite
		}
	}
	if found == nil {
		return nil, nil
	}
	out := *found
	return &out, nil
}

func (t *memTx) AppendEvent(event *Event) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.appendEvent(event)
	id := event.ID
	t.record(func() { delete(t.s.events, id) })
	return nil
}
