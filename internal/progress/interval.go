// Package progress implements the watched-interval engine: it merges watched
// playback segments into a sorted, non-overlapping set and derives unique
// watched time and completion percentage from it.
//
// Everything in this package is pure. Functions never mutate their inputs and
// never fail on nil or empty sets.
package progress

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
)

// Interval is one contiguous span of whole seconds confirmed watched.
// End is exclusive for duration math but inclusive for merge adjacency.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of seconds covered by the interval.
func (i Interval) Len() int {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// WatchedSet is sorted ascending by Start and for every consecutive pair
// a.End < b.Start holds.
type WatchedSet []Interval

// MarshalJSON encodes a nil set as an empty array so persisted records always
// carry a list.
func (s WatchedSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Interval(s))
}

// Valid reports whether the set satisfies the ordering and non-overlap
// invariant.
func (s WatchedSet) Valid() bool {
	for i, iv := range s {
		if iv.Start < 0 || iv.End <= iv.Start {
			return false
		}
		if i > 0 && s[i-1].End >= iv.Start {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no memory with s.
func (s WatchedSet) Clone() WatchedSet {
	if s == nil {
		return WatchedSet{}
	}
	return slices.Clone(s)
}

// RecordSegment merges the playback segment [start, end) into set and returns
// the new set. start is floored and end is ceiled, so partial seconds count as
// watched. A segment that is empty or reversed after rounding leaves the set
// unchanged.
func RecordSegment(set WatchedSet, start, end float64) WatchedSet {
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return set
	}
	s := int(math.Floor(start))
	e := int(math.Ceil(end))
	if s < 0 {
		s = 0
	}
	if s >= e {
		return set
	}

	all := make([]Interval, 0, len(set)+1)
	all = append(all, set...)
	all = append(all, Interval{Start: s, End: e})
	return merge(all)
}

// Normalize drops invalid intervals and re-merges the rest. Loaders use it on
// persisted data that may have been edited by hand.
func Normalize(intervals []Interval) WatchedSet {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Start < 0 {
			iv.Start = 0
		}
		if iv.End <= iv.Start {
			continue
		}
		valid = append(valid, iv)
	}
	return merge(valid)
}

// UniqueWatchedSeconds sums the lengths of the intervals in set. The set must
// already be merged; it is not re-merged here.
func UniqueWatchedSeconds(set WatchedSet) int {
	total := 0
	for _, iv := range set {
		total += iv.Len()
	}
	return total
}

// ProgressPercent returns the rounded share of duration covered by set,
// capped at 100. An unknown or non-positive duration yields 0.
//
// Because RecordSegment widens segments to whole seconds, progress can reach
// 100 while the literal union is slightly shorter than duration.
func ProgressPercent(set WatchedSet, duration float64) int {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0
	}
	unique := float64(UniqueWatchedSeconds(set))
	pct := int(math.Round(100 * unique / duration))
	return min(100, pct)
}

func merge(intervals []Interval) WatchedSet {
	if len(intervals) == 0 {
		return WatchedSet{}
	}
	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		return cmp.Compare(a.Start, b.Start)
	})

	out := make(WatchedSet, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= current.End {
			current.End = max(current.End, next.End)
			continue
		}
		out = append(out, current)
		current = next
	}
	return append(out, current)
}
