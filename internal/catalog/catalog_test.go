package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVideos() []Video {
	return []Video{
		{ID: "intro", Title: "Introduction", Category: "Basics", Duration: 600},
		{ID: "loops", Title: "Loops", Category: "Control Flow", Duration: 900},
		{ID: "vars", Title: "Variables", Category: "Basics", Duration: 300},
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c, err := New(sampleVideos())
	require.NoError(t, err)

	v, ok := c.GetVideo("loops")
	require.True(t, ok)
	assert.Equal(t, 900.0, v.Duration)

	_, ok = c.GetVideo("missing")
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestCatalog_ByCategory(t *testing.T) {
	c, err := New(sampleVideos())
	require.NoError(t, err)

	ids := func(videos []Video) []string {
		var out []string
		for _, v := range videos {
			out = append(out, v.ID)
		}
		return out
	}

	assert.Equal(t, []string{"intro", "loops", "vars"}, ids(c.All()))
	assert.Equal(t, []string{"intro", "loops", "vars"}, ids(c.ByCategory(AllCategories)))
	assert.Equal(t, []string{"intro", "vars"}, ids(c.ByCategory("Basics")))
	assert.Empty(t, c.ByCategory("basics"), "categories match exactly")
	assert.Equal(t, []string{"Basics", "Control Flow"}, c.Categories())
}

func TestCatalog_ReplaceRejectsBadIDs(t *testing.T) {
	c, err := New(sampleVideos())
	require.NoError(t, err)

	err = c.Replace([]Video{{ID: "a"}, {ID: "a"}})
	assert.ErrorContains(t, err, `duplicate video id "a"`)
	err = c.Replace([]Video{{Title: "No id"}})
	assert.ErrorContains(t, err, "has no id")

	assert.Equal(t, 3, c.Len(), "failed replace keeps the old content")
}

func TestCatalog_NegativeDurationClamped(t *testing.T) {
	c, err := New([]Video{{ID: "x", Duration: -4}})
	require.NoError(t, err)

	v, _ := c.GetVideo("x")
	assert.Equal(t, 0.0, v.Duration)
}

func TestParseManifest(t *testing.T) {
	videos, err := ParseManifest([]byte(`
videos:
  - id: intro
    title: Introduction
    author: Ada
    category: Basics
    thumbnail: /thumbs/intro.jpg
    videoUrl: https://cdn.example/intro.mp4
    duration: 634.5
`))
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, Video{
		ID:        "intro",
		Title:     "Introduction",
		Author:    "Ada",
		Category:  "Basics",
		Thumbnail: "/thumbs/intro.jpg",
		VideoURL:  "https://cdn.example/intro.mp4",
		Duration:  634.5,
	}, videos[0])

	_, err = ParseManifest([]byte("videos:\n  - id: x\n    length: 3\n"))
	assert.Error(t, err, "unknown fields are rejected")

	videos, err = ParseManifest(nil)
	require.NoError(t, err)
	assert.Empty(t, videos)
}
