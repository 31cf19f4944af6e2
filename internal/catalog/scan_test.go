package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Basics", "intro.mp4"), "x")
	writeFile(t, filepath.Join(root, "Basics", "intro.nfo"),
		`<movie><title>Introduction</title><genre>Getting Started</genre><runtime>5</runtime></movie>`)
	writeFile(t, filepath.Join(root, "Advanced", "Deep", "generics.MKV"), "x")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a video")

	probed := map[string]bool{}
	prober := ProberFunc(func(_ context.Context, path string) (float64, error) {
		probed[filepath.Base(path)] = true
		return 1234.5, nil
	})

	videos, err := Scan(context.Background(), root, prober)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	byTitle := map[string]Video{}
	for _, v := range videos {
		byTitle[v.Title] = v
	}

	intro := byTitle["Introduction"]
	assert.Equal(t, "Getting Started", intro.Category, "nfo genre wins over directory")
	assert.Equal(t, 300.0, intro.Duration)
	assert.Equal(t, "/api/videos/"+intro.ID+"/stream", intro.VideoURL)
	assert.Equal(t, filepath.Join(root, "Basics", "intro.mp4"), intro.Path)

	gen := byTitle["generics"]
	assert.Equal(t, "Advanced", gen.Category)
	assert.Equal(t, 1234.5, gen.Duration)

	assert.Equal(t, map[string]bool{"generics.MKV": true}, probed, "only videos without nfo duration are probed")
}

func TestScan_StableIDsAcrossRoots(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(a, "x", "clip.webm"), "x")
	writeFile(t, filepath.Join(b, "x", "clip.webm"), "x")

	va, err := Scan(context.Background(), a, nil)
	require.NoError(t, err)
	vb, err := Scan(context.Background(), b, nil)
	require.NoError(t, err)

	require.Len(t, va, 1)
	require.Len(t, vb, 1)
	assert.Equal(t, va[0].ID, vb[0].ID, "ids depend on the path relative to the root")
	assert.Equal(t, 0.0, va[0].Duration)
}

func TestScan_ProbeFailureKeepsVideo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "clip.mov"), "x")

	videos, err := Scan(context.Background(), root, ProberFunc(func(context.Context, string) (float64, error) {
		return 0, errors.New("ffprobe missing")
	}))
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, 0.0, videos[0].Duration)
}

func TestScan_MissingRoot(t *testing.T) {
	videos, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
	assert.Empty(t, videos)
}
