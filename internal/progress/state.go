package progress

import (
	"fmt"
	"math"
)

// State is the accumulated progress of one video. It is the persisted record.
type State struct {
	WatchedIntervals WatchedSet `json:"watchedIntervals"`
	LastPosition     float64    `json:"lastPosition"`
	Progress         int        `json:"progress"`
}

// DefaultState is the state of a video nobody has watched yet.
func DefaultState() State {
	return State{WatchedIntervals: WatchedSet{}}
}

// ApplySegment records [start, end) and recomputes Progress against duration.
func (s State) ApplySegment(start, end, duration float64) State {
	merged := RecordSegment(s.WatchedIntervals, start, end)
	return State{
		WatchedIntervals: merged,
		LastPosition:     s.LastPosition,
		Progress:         ProgressPercent(merged, duration),
	}
}

// WithPosition returns s with LastPosition set. Negative or non-finite
// positions are stored as 0.
func (s State) WithPosition(pos float64) State {
	if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
		pos = 0
	}
	s.WatchedIntervals = s.WatchedIntervals.Clone()
	s.LastPosition = pos
	return s
}

// Sanitize repairs a state decoded from storage: intervals are re-merged and
// progress is clamped into 0..100.
func (s State) Sanitize() State {
	out := State{
		WatchedIntervals: Normalize(s.WatchedIntervals),
		LastPosition:     s.LastPosition,
		Progress:         min(100, max(0, s.Progress)),
	}
	if math.IsNaN(out.LastPosition) || math.IsInf(out.LastPosition, 0) || out.LastPosition < 0 {
		out.LastPosition = 0
	}
	return out
}

// Segment is the geometry of one watched interval on a progress bar.
type Segment struct {
	StartPercent float64 `json:"startPercent"`
	WidthPercent float64 `json:"widthPercent"`
}

// View is a read model of a video's progress for display.
type View struct {
	VideoID string `json:"videoId"`
	State
	Duration      float64   `json:"duration"`
	UniqueSeconds int       `json:"uniqueSeconds"`
	UniqueClock   string    `json:"uniqueClock"`
	Segments      []Segment `json:"segments"`
}

// NewView derives the display model for state s of a video lasting duration
// seconds.
func NewView(videoID string, s State, duration float64) View {
	unique := UniqueWatchedSeconds(s.WatchedIntervals)
	if s.WatchedIntervals == nil {
		s.WatchedIntervals = WatchedSet{}
	}
	return View{
		VideoID:       videoID,
		State:         s,
		Duration:      duration,
		UniqueSeconds: unique,
		UniqueClock:   FormatClock(unique),
		Segments:      Segments(s.WatchedIntervals, duration),
	}
}

// Segments maps each interval onto a 0..100 bar. Intervals reaching past
// duration are clipped.
func Segments(set WatchedSet, duration float64) []Segment {
	out := make([]Segment, 0, len(set))
	if math.IsNaN(duration) || duration <= 0 {
		return out
	}
	for _, iv := range set {
		start := float64(iv.Start) / duration * 100
		end := math.Min(float64(iv.End)/duration*100, 100)
		if start >= 100 {
			break
		}
		out = append(out, Segment{StartPercent: start, WidthPercent: end - start})
	}
	return out
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
