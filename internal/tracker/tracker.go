// Package tracker applies observed playback to stored progress. It is the
// playback.Sink used by sessions and the read side of the HTTP API.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/treefix50/watchtrack/internal/catalog"
	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/metrics"
	"github.com/treefix50/watchtrack/internal/progress"
)

var (
	// ErrNoVideo is returned when an operation names no video.
	ErrNoVideo = errors.New("tracker: no video selected")
	// ErrUnknownVideo is returned for ids missing from the catalog.
	ErrUnknownVideo = errors.New("tracker: unknown video")
)

// Videos resolves video metadata.
type Videos interface {
	GetVideo(id string) (catalog.Video, bool)
	ByCategory(category string) []catalog.Video
}

// Store loads and saves per-video progress.
type Store interface {
	Load(ctx context.Context, videoID string) (progress.State, error)
	Save(ctx context.Context, videoID string, state progress.State) error
}

// Tracker serializes all progress mutations.
type Tracker struct {
	videos Videos
	store  Store
	logger zerolog.Logger

	mu sync.Mutex
}

// New returns a tracker over videos and store.
func New(videos Videos, store Store) *Tracker {
	return &Tracker{
		videos: videos,
		store:  store,
		logger: log.WithComponent("tracker"),
	}
}

// LibraryEntry is a catalog video together with its progress.
type LibraryEntry struct {
	catalog.Video
	Progress progress.View `json:"progress"`
}

// RecordSegment merges [start, end) into videoID's watched set and returns the
// updated view. A failed save is only logged; the view is still returned.
func (t *Tracker) RecordSegment(ctx context.Context, videoID string, start, end float64) (progress.View, error) {
	video, err := t.lookup(videoID)
	if err != nil {
		metrics.RecordSegment("rejected")
		return progress.View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.store.Load(ctx, videoID)
	if err != nil {
		return progress.View{}, fmt.Errorf("record segment for %q: %w", videoID, err)
	}

	next := state.ApplySegment(start, end, video.Duration)
	// the union only grows, so equal coverage means an unchanged set
	if progress.UniqueWatchedSeconds(next.WatchedIntervals) == progress.UniqueWatchedSeconds(state.WatchedIntervals) {
		metrics.RecordSegment("ignored")
	} else {
		metrics.RecordSegment("merged")
	}

	t.save(ctx, videoID, next)
	return progress.NewView(videoID, next, video.Duration), nil
}

// UpdatePosition stores the playback position of videoID. Negative positions
// are stored as 0.
func (t *Tracker) UpdatePosition(ctx context.Context, videoID string, pos float64) error {
	if _, err := t.lookup(videoID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.store.Load(ctx, videoID)
	if err != nil {
		return fmt.Errorf("update position for %q: %w", videoID, err)
	}
	t.save(ctx, videoID, state.WithPosition(pos))
	return nil
}

// Progress returns the view of videoID.
func (t *Tracker) Progress(ctx context.Context, videoID string) (progress.View, error) {
	video, err := t.lookup(videoID)
	if err != nil {
		return progress.View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.store.Load(ctx, videoID)
	if err != nil {
		return progress.View{}, fmt.Errorf("progress of %q: %w", videoID, err)
	}
	return t.view(video, state), nil
}

// Library lists the videos of category with their progress.
func (t *Tracker) Library(ctx context.Context, category string) ([]LibraryEntry, error) {
	videos := t.videos.ByCategory(category)

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]LibraryEntry, 0, len(videos))
	for _, v := range videos {
		state, err := t.store.Load(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("progress of %q: %w", v.ID, err)
		}
		out = append(out, LibraryEntry{Video: v, Progress: t.view(v, state)})
	}
	return out, nil
}

// view recomputes progress against the catalog duration, which may have
// changed since the record was saved.
func (t *Tracker) view(video catalog.Video, state progress.State) progress.View {
	state.Progress = progress.ProgressPercent(state.WatchedIntervals, video.Duration)
	return progress.NewView(video.ID, state, video.Duration)
}

func (t *Tracker) lookup(videoID string) (catalog.Video, error) {
	if videoID == "" {
		return catalog.Video{}, ErrNoVideo
	}
	video, ok := t.videos.GetVideo(videoID)
	if !ok {
		return catalog.Video{}, fmt.Errorf("%w: %q", ErrUnknownVideo, videoID)
	}
	return video, nil
}

func (t *Tracker) save(ctx context.Context, videoID string, state progress.State) {
	if err := t.store.Save(ctx, videoID, state); err != nil {
		t.logger.Error().Err(err).Str(log.FieldVideoID, videoID).Msg("progress not persisted")
	}
}
