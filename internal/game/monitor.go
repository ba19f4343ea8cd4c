package game

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const timerSlack = 250 * time.Millisecond

// Monitor closes overdue rounds. The periodic scan is the backstop; Watch
// adds per-room timers so rounds usually close right at their deadline.
type Monitor struct {
	svc      *Service
	interval time.Duration
	log      *logrus.Logger

	timersMu sync.Mutex
	timers   map[string]*roundTimer
}

type roundTimer struct {
	*time.Timer
	round int
	endMs int64
}

func NewMonitor(svc *Service, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		svc:      svc,
		interval: interval,
		log:      svc.log,
		timers:   make(map[string]*roundTimer),
	}
}

func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.stopAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

// Scan advances every overdue room once.
func (m *Monitor) Scan(ctx context.Context) int {
	advanced, err := m.svc.ScanExpired(ctx)
	if err != nil {
		m.log.WithError(err).Warn("timeout scan failed")
		return 0
	}
	if advanced > 0 {
		m.log.WithField("rooms", advanced).Info("timeout scan advanced rooms")
	}
	return advanced
}

// Watch arms a timer for each room whenever it changes. Changes that leave
// the round deadline alone keep the existing timer, fired or not; the
// periodic scan covers a deadline the timer missed.
func (m *Monitor) Watch(ctx context.Context) {
	m.svc.OnChange(func(roomID string) {
		room, err := m.svc.store.Room(ctx, roomID)
		if err != nil || room.Status != StatusPlaying {
			m.cancel(roomID)
			return
		}
		m.schedule(ctx, room.ID, room.CurrentRound, room.RoundEndTime)
	})
}

func (m *Monitor) schedule(ctx context.Context, roomID string, round int, endMs int64) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	existing, ok := m.timers[roomID]
	if ok && existing.round == round && existing.endMs == endMs {
		return
	}
	if ok {
		existing.Stop()
	}
	delay := time.Until(time.UnixMilli(endMs)) + timerSlack
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := m.svc.AdvanceExpired(ctx, roomID, round); err != nil {
			m.log.WithFields(logrus.Fields{
				"room_id": roomID,
				"round":   round,
			}).WithError(err).Warn("round timer advance failed")
		}
	})
	m.timers[roomID] = &roundTimer{Timer: timer, round: round, endMs: endMs}
}

func (m *Monitor) cancel(roomID string) {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	if timer, ok := m.timers[roomID]; ok {
		timer.Stop()
		delete(m.timers, roomID)
	}
}

func (m *Monitor) stopAll() {
	m.timersMu.Lock()
	defer m.timersMu.Unlock()
	for id, timer := range m.timers {
		timer.Stop()
		delete(m.timers, id)
	}
}
