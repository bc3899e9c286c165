// Package timer runs the per-attempt countdown and autosave tasks.
//
// Each active attempt owns one Session with two goroutines: a countdown that
// forces submission at zero and an autosave loop that checkpoints the latest
// snapshot. Both are tied to a context and stop together.
package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
)

// EventType identifies what a session reports to its consumer.
type EventType string

const (
	EventTick             EventType = "tick"
	EventLowTime          EventType = "low_time"
	EventExpired          EventType = "expired"
	EventSubmitted        EventType = "submitted"
	EventCheckpointFailed EventType = "checkpoint_failed"
)

// Event is delivered on Session.Events.
type Event struct {
	Type             EventType
	AttemptID        uuid.UUID
	RemainingSeconds int
	Result           *model.ScoredResult
	Err              error
}

// SubmitFunc force-submits an attempt. It returns nil, nil when the attempt was
// already terminal.
type SubmitFunc func(ctx context.Context, attemptID uuid.UUID) (*model.ScoredResult, error)

// CheckpointFunc persists a snapshot. Errors are logged and retried on the next tick.
type CheckpointFunc func(ctx context.Context, cp *model.Checkpoint) error

// Config tunes the coordinator. Zero values take the defaults.
type Config struct {
	// TickInterval is the wall time of one countdown second.
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	LowTimeThreshold int
	EventBuffer      int
	Now              func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.AutosaveInterval <= 0 {
		c.AutosaveInterval = 30 * time.Second
	}
	if c.LowTimeThreshold <= 0 {
		c.LowTimeThreshold = 300
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 16
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Deadline describes the attempt a session counts down for. A zero Limit
// means the quiz is untimed.
type Deadline struct {
	AttemptID uuid.UUID
	StartedAt time.Time
	Limit     time.Duration
}

// Coordinator owns at most one Session per attempt.
type Coordinator struct {
	cfg        Config
	submit     SubmitFunc
	checkpoint CheckpointFunc
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(cfg Config, submit SubmitFunc, checkpoint CheckpointFunc, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:        cfg.withDefaults(),
		submit:     submit,
		checkpoint: checkpoint,
		log:        log.With().Str("component", "timer").Logger(),
		sessions:   make(map[uuid.UUID]*Session),
	}
}

// Start launches a session for d.AttemptID, replacing any running one.
// initial seeds the autosave snapshot and may be nil.
func (c *Coordinator) Start(parent context.Context, d Deadline, initial *model.Checkpoint) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		coord:     c,
		attemptID: d.AttemptID,
		events:    make(chan Event, c.cfg.EventBuffer),
		cancel:    cancel,
		snapshot:  model.Checkpoint{AttemptID: d.AttemptID, Answers: model.Answers{}},
		log:       c.log.With().Str("attempt_id", d.AttemptID.String()).Logger(),
	}
	if initial != nil {
		s.snapshot.Answers = initial.Answers.Clone()
		s.snapshot.CurrentQuestionIndex = initial.CurrentQuestionIndex
	}
	if d.Limit > 0 {
		s.timed = true
		s.remaining = seedRemaining(d, c.cfg.Now())
	}

	workers := 1
	if s.timed {
		workers++
	}
	s.wg.Add(workers)

	c.mu.Lock()
	old := c.sessions[d.AttemptID]
	c.sessions[d.AttemptID] = s
	c.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	if s.timed {
		go s.countdown(ctx)
	}
	go s.autosave(ctx)

	go func() {
		s.wg.Wait()
		c.forget(s)
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	}()
	return s
}

// seedRemaining is max(0, limit - elapsed) rounded up to whole seconds.
func seedRemaining(d Deadline, now time.Time) int {
	left := d.StartedAt.Add(d.Limit).Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// Session returns the running session of an attempt.
func (c *Coordinator) Session(attemptID uuid.UUID) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[attemptID]
	return s, ok
}

// Stop stops the attempt's session if one is running.
func (c *Coordinator) Stop(attemptID uuid.UUID) {
	if s, ok := c.Session(attemptID); ok {
		s.Stop()
	}
}

// Record forwards an answer change to the attempt's session, if any.
func (c *Coordinator) Record(attemptID, questionID uuid.UUID, optionIDs []uuid.UUID) {
	if s, ok := c.Session(attemptID); ok {
		s.Record(questionID, optionIDs)
	}
}

// SetIndex forwards a navigation to the attempt's session, if any.
func (c *Coordinator) SetIndex(attemptID uuid.UUID, index int) {
	if s, ok := c.Session(attemptID); ok {
		s.SetIndex(index)
	}
}

// Complete ends the session of an attempt that left IN_PROGRESS outside the
// countdown (a manual submit or the expiry sweeper). The result is delivered as
// an EventSubmitted before both goroutines are cancelled. It does not wait, so
// it is safe to call while holding locks the goroutines may need.
func (c *Coordinator) Complete(attemptID uuid.UUID, result *model.ScoredResult) {
	s, ok := c.Session(attemptID)
	if !ok || s.expiring.Load() {
		return
	}
	s.deliver(Event{Type: EventSubmitted, Result: result})
	s.stopOnce.Do(s.cancel)
}

// StopAll stops every session and waits for them. Called on shutdown.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	c.log.Info().Int("sessions", len(sessions)).Msg("All attempt timers stopped")
}

// Active returns the number of running sessions.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Coordinator) forget(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[s.attemptID] == s {
		delete(c.sessions, s.attemptID)
	}
}

// Session is the running countdown and autosave of one attempt.
type Session struct {
	coord     *Coordinator
	attemptID uuid.UUID
	events    chan Event
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
	expireOne sync.Once
	expiring  atomic.Bool
	log       zerolog.Logger

	mu        sync.Mutex
	snapshot  model.Checkpoint
	dirty     bool
	timed     bool
	remaining int
	closed    bool
}

// AttemptID returns the attempt this session belongs to.
func (s *Session) AttemptID() uuid.UUID { return s.attemptID }

// Events is closed once both goroutines have exited.
func (s *Session) Events() <-chan Event { return s.events }

// Remaining reports the countdown value. ok is false for untimed attempts.
func (s *Session) Remaining() (seconds int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining, s.timed
}

// Record updates the snapshot with a question's current selection.
func (s *Session) Record(questionID uuid.UUID, optionIDs []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Answers[questionID] = append([]uuid.UUID(nil), optionIDs...)
	s.dirty = true
}

// SetIndex updates the snapshot's current question index.
func (s *Session) SetIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.CurrentQuestionIndex = index
	s.dirty = true
}

// Stop cancels both goroutines and waits for them. Safe to call repeatedly and
// from any goroutine except the session's own.
func (s *Session) Stop() {
	s.stopOnce.Do(s.cancel)
	s.wg.Wait()
}

func (s *Session) countdown(ctx context.Context) {
	defer s.wg.Done()

	threshold := s.coord.cfg.LowTimeThreshold
	warned := false
	warn := func(rem int) {
		if !warned && rem > 0 && rem <= threshold {
			warned = true
			s.emitCritical(ctx, Event{Type: EventLowTime, RemainingSeconds: rem})
		}
	}

	rem, _ := s.Remaining()
	if rem == 0 {
		s.expire(ctx)
		return
	}
	warn(rem)

	ticker := time.NewTicker(s.coord.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.remaining > 0 {
				s.remaining--
			}
			rem = s.remaining
			s.mu.Unlock()

			s.emit(Event{Type: EventTick, RemainingSeconds: rem})
			warn(rem)
			if rem == 0 {
				s.expire(ctx)
				return
			}
		}
	}
}

// expire forces submission exactly once, then stops the autosave loop.
func (s *Session) expire(ctx context.Context) {
	s.expireOne.Do(func() {
		s.expiring.Store(true)
		s.emitCritical(ctx, Event{Type: EventExpired})

		result, err := s.coord.submit(ctx, s.attemptID)
		if err != nil {
			s.log.Error().Err(err).Msg("Forced submission failed")
		} else if result != nil {
			s.log.Info().Int("score", result.Score).Msg("Attempt force-submitted at deadline")
		}
		s.emitCritical(ctx, Event{Type: EventSubmitted, Result: result, Err: err})

		s.stopOnce.Do(s.cancel)
	})
}

func (s *Session) autosave(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.coord.cfg.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.save(ctx)
		}
	}
}

func (s *Session) save(ctx context.Context) {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	cp := model.Checkpoint{
		AttemptID:            s.attemptID,
		Answers:              s.snapshot.Answers.Clone(),
		CurrentQuestionIndex: s.snapshot.CurrentQuestionIndex,
		SavedAt:              s.coord.cfg.Now().UTC(),
	}
	s.dirty = false
	s.mu.Unlock()

	if err := s.coord.checkpoint(ctx, &cp); err != nil {
		s.log.Warn().Err(err).Msg("Autosave failed, retrying next tick")
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		s.emit(Event{Type: EventCheckpointFailed, Err: err})
	}
}

// emit never blocks: a slow consumer loses ticks, not the countdown.
func (s *Session) emit(e Event) {
	e.AttemptID = s.attemptID
	select {
	case s.events <- e:
	default:
	}
}

// deliver is emit for callers outside the session's goroutines, which may run
// after the events channel was closed.
func (s *Session) deliver(e Event) {
	e.AttemptID = s.attemptID
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
	}
}

// emitCritical waits for room until ctx is done.
func (s *Session) emitCritical(ctx context.Context, e Event) {
	e.AttemptID = s.attemptID
	select {
	case s.events <- e:
	case <-ctx.Done():
	}
}
