// Package playback turns a stream of player events into watched segments.
//
// A Session observes one playback of one video. While the video plays, a
// sampler emits the span played since the last sample once per interval.
// Pause, seek, end and teardown close the pending span so no watched time is
// lost between samples. A backward seek emits nothing and only moves the
// anchor, so the skipped-over region is never counted.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/metrics"
	"github.com/treefix50/watchtrack/internal/progress"
)

// State is the observer's position in the playback lifecycle.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event names as sent by players.
type Event string

const (
	EventPlay       Event = "play"
	EventPause      Event = "pause"
	EventSeeking    Event = "seeking"
	EventTimeUpdate Event = "timeupdate"
	EventEnded      Event = "ended"
)

var (
	// ErrClosed is returned for events delivered after Close.
	ErrClosed = errors.New("playback: session closed")
	// ErrUnknownEvent is returned by Handle for unrecognized event names.
	ErrUnknownEvent = errors.New("playback: unknown event")
)

// Options tune a Session. Zero values select defaults.
type Options struct {
	// SampleInterval is the sampler period. Defaults to one second.
	SampleInterval time.Duration
	// PositionSaveInterval throttles position saves triggered by timeupdate.
	PositionSaveInterval time.Duration
	// NewTicker replaces the wall-clock ticker, mainly in tests.
	NewTicker TickerFactory
	// OnProgress is called with the view returned after every emitted segment.
	OnProgress func(progress.View)
}

// Session observes a single playback. Events and sampler ticks are handled
// strictly one at a time.
type Session struct {
	id      string
	videoID string
	ctx     context.Context
	player  Player
	sink    Sink
	logger  zerolog.Logger

	interval   time.Duration
	newTicker  TickerFactory
	onProgress func(progress.View)
	saveLimit  *rate.Limiter

	mu        sync.Mutex
	state     State
	anchor    float64
	hasAnchor bool
	closed    bool

	// sampler bookkeeping; gen invalidates ticks from a stopped sampler.
	gen  uint64
	stop chan struct{}
	done chan struct{}
}

// NewSession starts observing videoID in the Idle state.
func NewSession(ctx context.Context, videoID string, player Player, sink Sink, opts Options) *Session {
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = time.Second
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	limit := rate.Inf
	if opts.PositionSaveInterval > 0 {
		limit = rate.Every(opts.PositionSaveInterval)
	}

	id := uuid.NewString()
	s := &Session{
		id:         id,
		videoID:    videoID,
		ctx:        ctx,
		player:     player,
		sink:       sink,
		interval:   opts.SampleInterval,
		newTicker:  opts.NewTicker,
		onProgress: opts.OnProgress,
		saveLimit:  rate.NewLimiter(limit, 1),
		logger: log.WithComponent("playback").With().
			Str(log.FieldSessionID, id).
			Str(log.FieldVideoID, videoID).
			Logger(),
	}
	metrics.SessionOpened()
	s.logger.Debug().Msg("session opened")
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// VideoID returns the observed video.
func (s *Session) VideoID() string { return s.videoID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle dispatches a named player event.
func (s *Session) Handle(ev Event) error {
	switch ev {
	case EventPlay:
		return s.Play()
	case EventPause:
		return s.Pause()
	case EventSeeking:
		return s.Seek()
	case EventTimeUpdate:
		return s.TimeUpdate()
	case EventEnded:
		return s.Ended()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev)
	}
}

// Play anchors tracking at the current time and starts the sampler. Play while
// already playing is ignored.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	metrics.RecordPlaybackEvent(string(EventPlay))
	if s.state == StatePlaying {
		return nil
	}
	s.anchor = s.player.CurrentTime()
	s.hasAnchor = true
	s.state = StatePlaying
	s.startSampler()
	s.logger.Debug().Float64("at", s.anchor).Msg("playing")
	return nil
}

// Pause stops the sampler, emits the pending span and reports the position.
func (s *Session) Pause() error {
	return s.finish(EventPause, StatePaused)
}

// Ended behaves like Pause and returns the session to Idle.
func (s *Session) Ended() error {
	return s.finish(EventEnded, StateIdle)
}

// Seek handles a seek to the player's current time. While playing, the span
// up to the new time is emitted if it lies ahead of the anchor, and the anchor
// moves to the new time in either direction.
func (s *Session) Seek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	metrics.RecordPlaybackEvent(string(EventSeeking))
	now := s.player.CurrentTime()
	if s.state == StatePlaying && s.hasAnchor {
		if now > s.anchor {
			s.emit(s.anchor, now)
		}
		s.anchor = now
	}
	s.savePosition(now)
	return nil
}

// TimeUpdate saves the current position, at most once per
// PositionSaveInterval.
func (s *Session) TimeUpdate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.saveLimit.Allow() {
		s.savePosition(s.player.CurrentTime())
	}
	return nil
}

// Close tears the session down: the sampler is stopped and joined, the
// pending span is emitted and the position is reported. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	join := s.closeSpan()
	s.state = StateIdle
	s.closed = true
	s.mu.Unlock()

	join()
	metrics.SessionClosed()
	s.logger.Debug().Msg("session closed")
	return nil
}

func (s *Session) finish(ev Event, next State) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	metrics.RecordPlaybackEvent(string(ev))
	wasPlaying := s.state == StatePlaying
	join := s.closeSpan()
	if wasPlaying || next == StateIdle {
		s.state = next
	}
	s.mu.Unlock()

	join()
	return nil
}

// closeSpan detaches the sampler, emits the pending span and reports the
// position. The returned func joins the sampler goroutine and must be called
// without holding mu.
func (s *Session) closeSpan() func() {
	join := s.detachSampler()
	now := s.player.CurrentTime()
	if s.hasAnchor && now > s.anchor {
		s.emit(s.anchor, now)
	}
	s.hasAnchor = false
	s.savePosition(now)
	return join
}

func (s *Session) startSampler() {
	s.gen++
	gen := s.gen
	ticker := s.newTicker(s.interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				s.sample(gen)
			}
		}
	}()
}

func (s *Session) detachSampler() func() {
	if s.stop == nil {
		return func() {}
	}
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.gen++
	close(stop)
	return func() { <-done }
}

func (s *Session) sample(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StatePlaying || !s.hasAnchor {
		return
	}
	now := s.player.CurrentTime()
	if now > s.anchor {
		s.emit(s.anchor, now)
		s.anchor = now
	}
}

func (s *Session) emit(start, end float64) {
	view, err := s.sink.RecordSegment(s.ctx, s.videoID, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Float64("start", start).Float64("end", end).Msg("segment not recorded")
		return
	}
	s.logger.Debug().Float64("start", start).Float64("end", end).Int("progress", view.Progress).Msg("segment recorded")
	if s.onProgress != nil {
		s.onProgress(view)
	}
}

func (s *Session) savePosition(pos float64) {
	if err := s.sink.UpdatePosition(s.ctx, s.videoID, pos); err != nil {
		s.logger.Warn().Err(err).Float64("position", pos).Msg("position not saved")
	}
}
