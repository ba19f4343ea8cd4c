package web

type ScoreRow struct {
	Name  string
	Score int
}

type ReplayGuess struct {
	PlayerName string
	Text       string
	Correct    bool
	Points     int
	At         int64
}

type ReplayRound struct {
	Round       int
	Word        string
	ArtistName  string
	ImageURL    string
	StrokeCount int
	Guesses     []ReplayGuess
}

// ReplayData is everything the replay page shows for one room.
type ReplayData struct {
	RoomID    string
	RoomName  string
	Status    string
	MaxRounds int
	CreatedAt int64
	Rounds    []ReplayRound
	Scores    []ScoreRow
}
