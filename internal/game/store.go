package game

import "context"

// Store is the durable state behind the game. Update and Share open a
// transaction scoped to one room: Update is exclusive, Share may run
// alongside other Share calls for the same room but never alongside Update.
// Writes made through a Tx are discarded if fn returns an error.
type Store interface {
	WordSource

	CreateRoom(ctx context.Context, room *Room, host *Player) error
	Update(ctx context.Context, roomID string, fn func(tx Tx) error) error
	Share(ctx context.Context, roomID string, fn func(tx Tx) error) error

	Room(ctx context.Context, roomID string) (*Room, error)
	RoomByInviteCode(ctx context.Context, code string) (*Room, error)
	Players(ctx context.Context, roomID string) ([]Player, error)
	PlayingRooms(ctx context.Context) ([]Room, error)
	ExpiredRooms(ctx context.Context, nowMs int64) ([]string, error)
	MembershipsForUser(ctx context.Context, userID string) ([]Player, error)
	PlayersJoinedSince(ctx context.Context, sinceMs int64) ([]Player, error)

	Strokes(ctx context.Context, roomID string, round int) ([]Stroke, error)
	AllStrokes(ctx context.Context, roomID string) ([]Stroke, error)
	Guesses(ctx context.Context, roomID string, round int) ([]Guess, error)
	AllGuesses(ctx context.Context, roomID string) ([]Guess, error)
	Sketches(ctx context.Context, roomID string) ([]Sketch, error)
	Invites(ctx context.Context, roomID string) ([]Invite, error)
	InviteByMessageID(ctx context.Context, messageID string) (*Invite, error)

	AddWords(ctx context.Context, words []Word) (int, error)

	AppendEvent(ctx context.Context, event *Event) error
	PendingEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventAttempt(ctx context.Context, id int64, atMs int64, dispatched bool, lastErr string) error
}

// Tx is bound to the room whose lock it holds. Room returns the row as read
// under that lock.
type Tx interface {
	Room() (*Room, error)
	SaveRoom(room *Room) error
	DeleteRoom() error
	InsertRoom(room *Room) error

	Players() ([]Player, error)
	InsertPlayer(player *Player) error
	DeletePlayer(playerID string) error
	AddScore(playerID string, points int) error

	Guesses(round int) ([]Guess, error)
	InsertGuess(guess *Guess) error

	LiveStroke(round int, artistID string) (*Stroke, error)
	ArtistStrokes(round int, artistID string) ([]Stroke, error)
	InsertStroke(stroke *Stroke) error
	AppendLivePoints(strokeID int64, points []Point, atMs int64) error
	DeleteStrokes(ids ...int64) error
	CommitLiveStrokes(round int) (int, error)

	UpsertSketch(sketch *Sketch) error

	InsertInvite(invite *Invite) error
	SaveInvite(invite *Invite) error
	InviteByID(id string) (*Invite, error)
	InviteByEmail(email string) (*Invite, error)

	AppendEvent(event *Event) error
}
