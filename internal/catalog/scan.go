package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/treefix50/watchtrack/internal/log"
)

var allowedExtensions = map[string]bool{
	".avi":  true,
	".m2ts": true,
	".m4v":  true,
	".mkv":  true,
	".mov":  true,
	".mp4":  true,
	".ts":   true,
	".webm": true,
}

// DurationProber measures a media file's duration in seconds.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// ProberFunc adapts a function to DurationProber.
type ProberFunc func(ctx context.Context, path string) (float64, error)

func (f ProberFunc) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return f(ctx, path)
}

// Scan walks root for video files. Metadata comes from a sibling .nfo file
// when present; durations missing from the NFO are probed with prober, which
// may be nil. Unreadable entries are skipped and reported in the joined error
// alongside the videos that were found.
func Scan(ctx context.Context, root string, prober DurationProber) ([]Video, error) {
	logger := log.WithComponent("catalog")
	var found []Video
	var scanErrs []error

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			scanErrs = append(scanErrs, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		id := stableID(filepath.ToSlash(rel))
		v := Video{
			ID:       id,
			Title:    strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Category: categoryFromDir(rel),
			VideoURL: "/api/videos/" + id + "/stream",
			Path:     path,
		}

		if nfoPath := guessNFOPath(path); nfoPath != "" {
			nfo, err := ParseNFOFile(nfoPath)
			if err != nil {
				logger.Warn().Err(err).Str("path", nfoPath).Msg("nfo parse failed")
			} else {
				applyNFO(&v, nfo)
			}
		}

		if v.Duration == 0 && prober != nil {
			secs, err := prober.ProbeDuration(ctx, path)
			if err != nil {
				logger.Debug().Err(err).Str("path", path).Msg("duration probe failed")
			} else {
				v.Duration = secs
			}
		}

		found = append(found, v)
		return nil
	})
	if err != nil {
		scanErrs = append(scanErrs, err)
	}

	sortByTitle(found)
	return found, errors.Join(scanErrs...)
}

func applyNFO(v *Video, nfo *NFO) {
	if nfo.Title != "" {
		v.Title = nfo.Title
	}
	if nfo.Plot != "" {
		v.Description = nfo.Plot
	}
	if len(nfo.Genres) > 0 {
		v.Category = nfo.Genres[0]
	}
	if nfo.Author != "" {
		v.Author = nfo.Author
	}
	if nfo.Thumb != "" {
		v.Thumbnail = nfo.Thumb
	}
	if nfo.DurationSeconds > 0 {
		v.Duration = nfo.DurationSeconds
	}
}

// categoryFromDir uses the top-level directory below the root as category.
func categoryFromDir(rel string) string {
	dir := filepath.Dir(filepath.ToSlash(rel))
	if dir == "." || dir == "" {
		return ""
	}
	first, _, _ := strings.Cut(dir, "/")
	return first
}

func guessNFOPath(videoPath string) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	nfo := base + ".nfo"
	if _, err := os.Stat(nfo); err == nil {
		return nfo
	}
	return ""
}

func stableID(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8]) // short but stable
}
