package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/metrics"
)

// Loader fills a Catalog from its configured sources.
type Loader struct {
	ManifestPath string
	MediaRoot    string
	Prober       DurationProber
	// Debounce delays reloads after manifest changes. Defaults to 500ms.
	Debounce time.Duration

	catalog  *Catalog
	logger   zerolog.Logger
	reloadMu sync.Mutex
}

// NewLoader returns a loader writing into c.
func NewLoader(c *Catalog, manifestPath, mediaRoot string, prober DurationProber) *Loader {
	return &Loader{
		ManifestPath: manifestPath,
		MediaRoot:    mediaRoot,
		Prober:       prober,
		catalog:      c,
		logger:       log.WithComponent("catalog"),
	}
}

// Catalog returns the catalog the loader maintains.
func (l *Loader) Catalog() *Catalog { return l.catalog }

// Reload rebuilds the catalog from the manifest followed by the media root
// scan. Manifest entries win over scanned videos with the same id. A manifest
// error leaves the catalog untouched; scan errors for individual entries are
// logged and the rest of the scan is kept.
func (l *Loader) Reload(ctx context.Context) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	var videos []Video
	seen := make(map[string]bool)

	if l.ManifestPath != "" {
		manifest, err := LoadManifest(l.ManifestPath)
		if err != nil {
			return err
		}
		for _, v := range manifest {
			seen[v.ID] = true
		}
		videos = append(videos, manifest...)
	}

	if l.MediaRoot != "" {
		scanned, err := Scan(ctx, l.MediaRoot, l.Prober)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("catalog: scan %s: %w", l.MediaRoot, err)
			}
			l.logger.Warn().Err(err).Str("root", l.MediaRoot).Msg("media scan finished with errors")
		}
		for _, v := range scanned {
			if !seen[v.ID] {
				videos = append(videos, v)
			}
		}
	}

	if err := l.catalog.Replace(videos); err != nil {
		return err
	}
	metrics.SetCatalogVideos(len(videos))
	l.logger.Info().Int("videos", len(videos)).Msg("catalog loaded")
	return nil
}

// Watch reloads the catalog whenever the manifest changes, until ctx is done.
// Without a manifest it simply waits for ctx.
func (l *Loader) Watch(ctx context.Context) error {
	if l.ManifestPath == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so the directory is watched
	target := filepath.Clean(l.ManifestPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", target, err)
	}
	l.logger.Info().Str("path", target).Msg("watching catalog manifest")

	debounce := l.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := l.Reload(ctx); err != nil {
				l.logger.Error().Err(err).Msg("catalog reload failed, keeping previous catalog")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error().Err(err).Msg("catalog watcher error")
		}
	}
}
