package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/treefix50/watchtrack/internal/progress"
)

// Player exposes the current playback time of the video being watched.
type Player interface {
	CurrentTime() float64
}

// ReportedPlayer is a Player fed by a remote client. Every playback event
// carries the client's current time, which is stored with Report.
type ReportedPlayer struct {
	mu sync.Mutex
	t  float64
}

// NewReportedPlayer returns a player positioned at start.
func NewReportedPlayer(start float64) *ReportedPlayer {
	p := &ReportedPlayer{}
	p.Report(start)
	return p
}

// Report stores the latest time seen by the client. Non-finite and negative
// values are ignored.
func (p *ReportedPlayer) Report(t float64) {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return
	}
	p.mu.Lock()
	p.t = t
	p.mu.Unlock()
}

// CurrentTime implements Player.
func (p *ReportedPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t
}

// Sink receives what a session observes.
type Sink interface {
	RecordSegment(ctx context.Context, videoID string, start, end float64) (progress.View, error)
	UpdatePosition(ctx context.Context, videoID string, pos float64) error
}

// Ticker drives the periodic sampler.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the TickerFactory backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}
