package game

import "time"

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
	StatusArchived  Status = "archived"
	StatusRestarted Status = "restarted"
)

var statusTransitions = map[Status][]Status{
	StatusWaiting:   {StatusPlaying},
	StatusPlaying:   {StatusPlaying, StatusFinished},
	StatusFinished:  {StatusArchived, StatusRestarted},
	StatusArchived:  nil,
	StatusRestarted: nil,
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether a room in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

type Room struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	HostID         string `json:"host_id"`
	Status         Status `json:"status"`
	CurrentRound   int    `json:"current_round"`
	MaxRounds      int    `json:"max_rounds"`
	CurrentArtist  string `json:"current_artist,omitempty"`
	CurrentWord    string `json:"-"`
	RoundStartTime int64  `json:"round_start_time,omitempty"`
	RoundEndTime   int64  `json:"round_end_time,omitempty"`
	InviteCode     string `json:"invite_code"`
	MaxPlayers     int    `json:"max_players"`
	Version        int64  `json:"version"`
	CreatedAt      int64  `json:"created_at"`
}

// Playing reports whether the room satisfies the playing invariant: the round
// fields are all set and the round counter is within bounds.
func (r *Room) Playing() bool {
	return r.Status == StatusPlaying &&
		r.CurrentArtist != "" &&
		r.CurrentWord != "" &&
		r.RoundStartTime > 0 &&
		r.RoundEndTime > 0 &&
		r.CurrentRound > 0 &&
		r.CurrentRound <= r.MaxRounds
}

func (r *Room) expiredAt(now time.Time) bool {
	return now.UnixMilli() > r.RoundEndTime
}

func (r *Room) transition(next Status) error {
	if !r.Status.CanTransition(next) {
		return newError(KindInvalidState, "room cannot move from "+string(r.Status)+" to "+string(next))
	}
	r.Status = next
	return nil
}

type Player struct {
	ID       string `json:"id"`
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Score    int    `json:"score"`
	IsActive bool   `json:"is_active"`
	JoinedAt int64  `json:"joined_at"`
	// Seq breaks joinedAt ties so the listing order is stable.
	Seq int64 `json:"-"`
}

type Point struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Pressure  *float64 `json:"pressure,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type Stroke struct {
	ID        int64   `json:"id"`
	RoomID    string  `json:"room_id"`
	Round     int     `json:"round"`
	ArtistID  string  `json:"artist_id"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Timestamp int64   `json:"timestamp"`
	IsLive    bool    `json:"is_live"`
}

type Guess struct {
	ID         int64  `json:"id"`
	RoomID     string `json:"room_id"`
	Round      int    `json:"round"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Text       string `json:"guess"`
	IsCorrect  bool   `json:"is_correct"`
	Timestamp  int64  `json:"timestamp"`
	Points     int    `json:"points"`
}

type Sketch struct {
	ID         int64  `json:"id"`
	RoomID     string `json:"room_id"`
	Round      int    `json:"round"`
	ArtistID   string `json:"artist_id"`
	ArtistName string `json:"artist_name"`
	Word       string `json:"word"`
	ImageRef   string `json:"image_ref"`
	Timestamp  int64  `json:"timestamp"`
}

type InviteStatus string

const (
	InviteSending   InviteStatus = "sending"
	InviteSent      InviteStatus = "sent"
	InviteDelivered InviteStatus = "delivered"
	InviteOpened    InviteStatus = "opened"
	InviteClicked   InviteStatus = "clicked"
	InviteJoined    InviteStatus = "joined"
	InviteFailed    InviteStatus = "failed"
)

// inviteProgress orders invite states. Delivery callbacks may arrive out of
// order and only ever move an invite forward. A bounce or complaint ends
// delivery tracking; only a join outranks it.
var inviteProgress = map[InviteStatus]int{
	InviteSending:   0,
	InviteSent:      1,
	InviteDelivered: 2,
	InviteOpened:    3,
	InviteClicked:   4,
	InviteFailed:    5,
	InviteJoined:    6,
}

func (s InviteStatus) advancesFrom(current InviteStatus) bool {
	return inviteProgress[s] > inviteProgress[current]
}

type Invite struct {
	ID               string       `json:"id"`
	RoomID           string       `json:"room_id"`
	Email            string       `json:"email"`
	InvitedBy        string       `json:"invited_by"`
	InvitedAt        int64        `json:"invited_at"`
	Status           InviteStatus `json:"status"`
	MessageID        string       `json:"message_id,omitempty"`
	JoinedAt         int64        `json:"joined_at,omitempty"`
	JoinedPlayerName string       `json:"joined_player_name,omitempty"`
	LastUpdated      int64        `json:"last_updated"`
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Word struct {
	Text       string
	Difficulty Difficulty
	Category   string
}

// Event is a row of the notification outbox. It is written in the same
// transaction as the game mutation that produced it.
type Event struct {
	ID           int64
	RoomID       string
	Kind         NotificationKind
	Payload      []byte
	CreatedAt    int64
	DispatchedAt int64
	Attempts     int
	LastError    string
}
