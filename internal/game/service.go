package game

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultRoundDuration = 120 * time.Second
	DefaultMaxPlayers    = 6
	DefaultMaxRounds     = 5

	maxConflictRetries = 3
	maxCodeAttempts    = 8
)

type Clock func() time.Time

type Options struct {
	RoundDuration     time.Duration
	DefaultMaxPlayers int
	DefaultMaxRounds  int
	// AppURL prefixes links placed in notifications.
	AppURL string
	Clock  Clock
	Logger *logrus.Logger
	Blobs  BlobStore
	Rand   *rand.Rand
}

// Service runs every room operation. Each mutation is a single Store
// transaction; callers never see partially applied state.
type Service struct {
	store         Store
	words         *WordProvider
	blobs         BlobStore
	log           *logrus.Logger
	now           Clock
	roundDuration time.Duration
	maxPlayers    int
	maxRounds     int
	appURL        string

	artists keyedMutex

	hooksMu sync.RWMutex
	hooks   []func(roomID string)
}

func NewService(store Store, opts Options) *Service {
	svc := &Service{
		store:         store,
		words:         NewWordProvider(store, opts.Rand),
		blobs:         opts.Blobs,
		log:           opts.Logger,
		now:           opts.Clock,
		roundDuration: opts.RoundDuration,
		maxPlayers:    opts.DefaultMaxPlayers,
		maxRounds:     opts.DefaultMaxRounds,
		appURL:        strings.TrimRight(opts.AppURL, "/"),
	}
	if svc.log == nil {
		svc.log = logrus.StandardLogger()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	if svc.roundDuration <= 0 {
		svc.roundDuration = DefaultRoundDuration
	}
	if svc.maxPlayers < 2 {
		svc.maxPlayers = DefaultMaxPlayers
	}
	if svc.maxRounds < 1 {
		svc.maxRounds = DefaultMaxRounds
	}
	if svc.blobs == nil {
		svc.blobs = NewLocalBlobs(svc.appURL)
	}
	return svc
}

func (s *Service) Store() Store {
	return s.store
}

func (s *Service) Blobs() BlobStore {
	return s.blobs
}

func (s *Service) RoundDuration() time.Duration {
	return s.roundDuration
}

// OnChange registers fn to run after any committed mutation of a room. It is
// called outside the room transaction and must not block for long.
func (s *Service) OnChange(fn func(roomID string)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Service) changed(roomIDs ...string) {
	s.hooksMu.RLock()
	hooks := append([]func(string){}, s.hooks...)
	s.hooksMu.RUnlock()
	for _, roomID := range roomIDs {
		if roomID == "" {
			continue
		}
		for _, hook := range hooks {
			hook(roomID)
		}
	}
}

// update runs fn in an exclusive room transaction, retrying from scratch when
// the room version moved underneath it. fn must reset anything it captures.
func (s *Service) update(ctx context.Context, roomID string, fn func(tx Tx) error) error {
	return s.retry(ctx, roomID, func() error {
		return s.store.Update(ctx, roomID, fn)
	})
}

func (s *Service) share(ctx context.Context, roomID string, fn func(tx Tx) error) error {
	return s.retry(ctx, roomID, func() error {
		return s.store.Share(ctx, roomID, fn)
	})
}

func (s *Service) retry(ctx context.Context, roomID string, run func() error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = run()
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.WithFields(logrus.Fields{
			"room_id": roomID,
			"attempt": attempt,
		}).Debug("room version conflict, retrying")
	}
	return err
}

func (s *Service) enqueue(tx Tx, roomID string, kind NotificationKind, payload any, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.AppendEvent(&Event{
		RoomID:    roomID,
		Kind:      kind,
		Payload:   data,
		CreatedAt: at.UnixMilli(),
	})
}

func findPlayer(players []Player, userID string) *Player {
	for i := range players {
		if players[i].UserID == userID {
			return &players[i]
		}
	}
	return nil
}

func playerName(players []Player, userID string) string {
	if player := findPlayer(players, userID); player != nil {
		return player.Name
	}
	return "Unknown"
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &refMutex{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
