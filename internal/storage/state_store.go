package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/metrics"
	"github.com/treefix50/watchtrack/internal/progress"
)

// KeyPrefix namespaces progress records in the KV.
const KeyPrefix = "progress:"

// Key returns the KV key holding videoID's progress record.
func Key(videoID string) string {
	return KeyPrefix + videoID
}

// StateStore persists one progress.State per video.
type StateStore struct {
	kv     KV
	logger zerolog.Logger
}

// NewStateStore layers progress records over kv.
func NewStateStore(kv KV) *StateStore {
	return &StateStore{kv: kv, logger: log.WithComponent("store")}
}

// KV returns the underlying key-value backend.
func (s *StateStore) KV() KV { return s.kv }

// Load returns the stored state of videoID. A missing or malformed record
// yields the default state; only backend failures are returned as errors.
// Stored intervals are always re-merged.
func (s *StateStore) Load(ctx context.Context, videoID string) (progress.State, error) {
	raw, err := s.kv.Get(ctx, Key(videoID))
	if errors.Is(err, ErrNotFound) {
		metrics.RecordStoreOp("load", "miss")
		return progress.DefaultState(), nil
	}
	if err != nil {
		metrics.RecordStoreOp("load", "error")
		return progress.DefaultState(), fmt.Errorf("load progress for %q: %w", videoID, err)
	}

	state, err := decodeState(raw)
	if err != nil {
		metrics.RecordStoreOp("load", "corrupt")
		s.logger.Warn().Err(err).Str(log.FieldVideoID, videoID).Msg("malformed progress record, using defaults")
		return progress.DefaultState(), nil
	}
	metrics.RecordStoreOp("load", "ok")
	return state, nil
}

// Save writes state as videoID's record.
func (s *StateStore) Save(ctx context.Context, videoID string, state progress.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode progress for %q: %w", videoID, err)
	}
	if err := s.kv.Set(ctx, Key(videoID), raw); err != nil {
		metrics.RecordStoreOp("save", "error")
		return fmt.Errorf("save progress for %q: %w", videoID, err)
	}
	metrics.RecordStoreOp("save", "ok")
	return nil
}

// Delete forgets videoID's progress.
func (s *StateStore) Delete(ctx context.Context, videoID string) error {
	if err := s.kv.Delete(ctx, Key(videoID)); err != nil {
		return fmt.Errorf("delete progress for %q: %w", videoID, err)
	}
	return nil
}

// Snapshot returns every stored record keyed by video id. Malformed records
// are skipped.
func (s *StateStore) Snapshot(ctx context.Context) (map[string]progress.State, error) {
	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}

	out := make(map[string]progress.State, len(keys))
	for _, key := range keys {
		videoID := strings.TrimPrefix(key, KeyPrefix)
		raw, err := s.kv.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", key, err)
		}
		state, err := decodeState(raw)
		if err != nil {
			s.logger.Warn().Err(err).Str(log.FieldVideoID, videoID).Msg("skipping malformed progress record")
			continue
		}
		out[videoID] = state
	}
	return out, nil
}

// Restore writes every record of states, sanitizing each one first.
func (s *StateStore) Restore(ctx context.Context, states map[string]progress.State) error {
	var errs []error
	for videoID, state := range states {
		if videoID == "" {
			errs = append(errs, errors.New("record with empty video id"))
			continue
		}
		if err := s.Save(ctx, videoID, state.Sanitize()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the underlying KV.
func (s *StateStore) Close() error {
	return s.kv.Close()
}

// decodeState parses a persisted record. Missing fields keep their defaults
// and the intervals are re-merged.
func decodeState(raw []byte) (progress.State, error) {
	var rec struct {
		WatchedIntervals []progress.Interval `json:"watchedIntervals"`
		LastPosition     float64             `json:"lastPosition"`
		Progress         int                 `json:"progress"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return progress.State{}, err
	}
	return progress.State{
		WatchedIntervals: progress.WatchedSet(rec.WatchedIntervals),
		LastPosition:     rec.LastPosition,
		Progress:         rec.Progress,
	}.Sanitize(), nil
}

// DecodeExport parses a combined export map as written by Snapshot.
func DecodeExport(raw []byte) (map[string]progress.State, error) {
	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	out := make(map[string]progress.State, len(records))
	for videoID, rec := range records {
		state, err := decodeState(rec)
		if err != nil {
			return nil, fmt.Errorf("parse export record %q: %w", videoID, err)
		}
		out[videoID] = state
	}
	return out, nil
}
