package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/treefix50/watchtrack/internal/metrics"
	"github.com/treefix50/watchtrack/internal/storage"
)

const maintenanceTimeout = 10 * time.Minute

func (s *Server) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	start := time.Now()
	if err := s.Maintain(ctx); err != nil {
		metrics.RecordMaintenance("error")
		s.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("maintenance failed")
		return
	}
	metrics.RecordMaintenance("ok")
	s.logger.Info().Dur("duration", time.Since(start)).Msg("maintenance finished")
}

// Maintain rescans the catalog and runs backend specific store upkeep.
func (s *Server) Maintain(ctx context.Context) error {
	var errs []error
	if s.opts.Loader != nil {
		if err := s.opts.Loader.Reload(ctx); err != nil {
			errs = append(errs, fmt.Errorf("catalog reload: %w", err))
		}
	}
	if err := MaintainKV(s.opts.Store.KV()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// MaintainKV runs the upkeep a backend supports. Backends without any are
// left alone.
func MaintainKV(kv storage.KV) error {
	switch b := kv.(type) {
	case *storage.Store:
		if b.ReadOnly() {
			return nil
		}
		results, err := b.IntegrityCheck()
		if err != nil {
			return fmt.Errorf("sqlite integrity check: %w", err)
		}
		if len(results) != 1 || results[0] != "ok" {
			return fmt.Errorf("sqlite integrity check: %v", results)
		}
		if err := b.Analyze(); err != nil {
			return fmt.Errorf("sqlite analyze: %w", err)
		}
	case *storage.Badger:
		if err := b.RunGC(); err != nil {
			return fmt.Errorf("badger gc: %w", err)
		}
	}
	return nil
}
