package game

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *testClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := newTestClock()
	svc := NewService(store, Options{
		AppURL: "http://draw.test",
		Clock:  clock.Now,
		Logger: quietLogger(),
		Rand:   rand.New(rand.NewPCG(1, 2)),
	})
	return svc, store, clock
}

// setupRoom creates a room hosted by users[0] and joins the rest in order.
func setupRoom(t *testing.T, svc *Service, maxPlayers, maxRounds int, users ...string) *Room {
	t.Helper()
	ctx := context.Background()
	room, err := svc.CreateRoom(ctx, CreateRoomInput{
		Name:       "Friday Sketches",
		HostID:     users[0],
		HostName:   "name-" + users[0],
		MaxPlayers: maxPlayers,
		MaxRounds:  maxRounds,
	})
	require.NoError(t, err)
	for _, user := range users[1:] {
		_, _, err := svc.JoinRoom(ctx, JoinInput{
			InviteCode: room.InviteCode,
			UserID:     user,
			Name:       "name-" + user,
		})
		require.NoError(t, err)
	}
	return room
}

func startRoom(t *testing.T, svc *Service, maxRounds int, users ...string) *Room {
	t.Helper()
	room := setupRoom(t, svc, 8, maxRounds, users...)
	started, err := svc.StartGame(context.Background(), room.ID, users[0])
	require.NoError(t, err)
	return started
}

func loadRoom(t *testing.T, store Store, roomID string) *Room {
	t.Helper()
	room, err := store.Room(context.Background(), roomID)
	require.NoError(t, err)
	return room
}

func scoreOf(t *testing.T, store Store, roomID, userID string) int {
	t.Helper()
	players, err := store.Players(context.Background(), roomID)
	require.NoError(t, err)
	player := findPlayer(players, userID)
	require.NotNil(t, player, "player %s not in room", userID)
	return player.Score
}

func eventsOfKind(t *testing.T, store Store, kind NotificationKind) []Event {
	t.Helper()
	events, err := store.PendingEvents(context.Background(), 0)
	require.NoError(t, err)
	list := make([]Event, 0)
	for _, event := range events {
		if event.Kind == kind {
			list = append(list, event)
		}
	}
	return list
}

func livePoints(n int, startX float64) []Point {
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, Point{X: startX + float64(i), Y: float64(i * 2), Timestamp: int64(i)})
	}
	return points
}
