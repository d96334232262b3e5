package beat

import (
	"math"
	"time"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// Interval returns the delay between beats for bpm, rounded to the
// nearest millisecond. Out of range tempos are clamped.
func Interval(bpm int) time.Duration {
	bpm = model.ClampBPM(bpm)
	ms := math.Round(60000 / float64(bpm))
	return time.Duration(ms) * time.Millisecond
}

// Tick describes one beat firing.
type Tick struct {
	Index   int
	At      time.Time
	Elapsed time.Duration
}

// TickFunc handles a beat. Returning false stops the scheduler.
type TickFunc func(Tick) bool

// Scheduler fires a TickFunc at the current tempo. Tick 0 fires
// synchronously from Start; later ticks are chained one-shot timers whose
// callbacks are handed to dispatch. All methods and the TickFunc must run
// on the same goroutine (the one dispatch delivers to).
type Scheduler struct {
	clock    Clock
	dispatch func(func())
	tempo    func() int
	onTick   TickFunc

	running   bool
	paused    bool
	pending   Timer
	gen       uint64
	index     int
	startedAt time.Time
	pausedAt  time.Time

	armed     int
	cancelled int
}

// NewScheduler returns an idle scheduler. tempo is consulted every time a
// firing is armed.
func NewScheduler(clock Clock, dispatch func(func()), tempo func() int, onTick TickFunc) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &Scheduler{clock: clock, dispatch: dispatch, tempo: tempo, onTick: onTick}
}

// Start begins a session and fires tick 0. It is a no-op while running.
func (s *Scheduler) Start() bool {
	if s.running {
		return false
	}
	s.running = true
	s.paused = false
	s.index = 0
	s.startedAt = s.clock.Now()
	s.pausedAt = time.Time{}
	if !s.fire() {
		s.Stop()
		return true
	}
	if s.running && s.pending == nil {
		s.arm()
	}
	return true
}

// Stop cancels the pending firing and ends the session.
func (s *Scheduler) Stop() {
	s.cancel()
	s.running = false
	s.paused = false
	s.pausedAt = time.Time{}
}

// Pause cancels the pending firing but remembers the session so Resume can
// continue it. Paused time is excluded from Elapsed.
func (s *Scheduler) Pause() bool {
	if !s.running {
		return false
	}
	s.cancel()
	s.running = false
	s.paused = true
	s.pausedAt = s.clock.Now()
	return true
}

// Resume re-arms a paused session.
func (s *Scheduler) Resume() bool {
	if s.running || !s.paused {
		return false
	}
	s.startedAt = s.startedAt.Add(s.clock.Now().Sub(s.pausedAt))
	s.pausedAt = time.Time{}
	s.paused = false
	s.running = true
	s.arm()
	return true
}

// Reschedule replaces the pending firing with one at the current tempo.
// It only acts when a firing is pending.
func (s *Scheduler) Reschedule() bool {
	if !s.running || s.pending == nil {
		return false
	}
	s.cancel()
	s.arm()
	return true
}

// Running reports whether firings are being scheduled.
func (s *Scheduler) Running() bool { return s.running }

// Paused reports whether the session is paused.
func (s *Scheduler) Paused() bool { return s.paused }

// StartedAt returns the session start, shifted forward by paused time.
func (s *Scheduler) StartedAt() time.Time { return s.startedAt }

// Armed returns how many firings have been scheduled.
func (s *Scheduler) Armed() int { return s.armed }

// Cancelled returns how many pending firings were cancelled.
func (s *Scheduler) Cancelled() int { return s.cancelled }

func (s *Scheduler) fire() bool {
	now := s.clock.Now()
	t := Tick{Index: s.index, At: now, Elapsed: now.Sub(s.startedAt)}
	s.index++
	return s.onTick(t)
}

func (s *Scheduler) arm() {
	s.gen++
	gen := s.gen
	s.armed++
	s.pending = s.clock.AfterFunc(Interval(s.tempo()), func() {
		s.dispatch(func() { s.handle(gen) })
	})
}

func (s *Scheduler) cancel() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
		s.cancelled++
	}
	s.gen++
}

func (s *Scheduler) handle(gen uint64) {
	// stale firing from a cancelled timer that already left the clock
	if !s.running || gen != s.gen {
		return
	}
	s.pending = nil
	if !s.fire() {
		s.Stop()
		return
	}
	if s.running && s.pending == nil {
		s.arm()
	}
}
