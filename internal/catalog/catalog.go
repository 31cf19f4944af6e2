// Package catalog provides the video metadata that progress is computed
// against. Videos come from a YAML manifest, a scanned media directory, or
// both.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AllCategories selects every video in ByCategory.
const AllCategories = "All"

// Video is the read-only metadata of one catalog entry.
type Video struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Author      string  `json:"author,omitempty" yaml:"author"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Category    string  `json:"category,omitempty" yaml:"category"`
	Thumbnail   string  `json:"thumbnail,omitempty" yaml:"thumbnail"`
	VideoURL    string  `json:"videoUrl,omitempty" yaml:"videoUrl"`
	Duration    float64 `json:"duration" yaml:"duration"`

	// Path is the local file for scanned videos. It is never exposed.
	Path string `json:"-" yaml:"path"`
}

// Catalog is a concurrency-safe set of videos keyed by id.
type Catalog struct {
	mu     sync.RWMutex
	videos map[string]Video
	order  []string
}

// New returns a catalog holding videos.
func New(videos []Video) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(videos); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the whole content atomically. Empty or duplicate ids are
// rejected and leave the catalog unchanged.
func (c *Catalog) Replace(videos []Video) error {
	byID := make(map[string]Video, len(videos))
	order := make([]string, 0, len(videos))
	for _, v := range videos {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("catalog: video %q has no id", v.Title)
		}
		if _, dup := byID[v.ID]; dup {
			return fmt.Errorf("catalog: duplicate video id %q", v.ID)
		}
		if v.Duration < 0 {
			v.Duration = 0
		}
		byID[v.ID] = v
		order = append(order, v.ID)
	}

	c.mu.Lock()
	c.videos = byID
	c.order = order
	c.mu.Unlock()
	return nil
}

// GetVideo looks up a video by id.
func (c *Catalog) GetVideo(id string) (Video, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.videos[id]
	return v, ok
}

// All returns every video in catalog order.
func (c *Catalog) All() []Video {
	return c.ByCategory(AllCategories)
}

// ByCategory returns the videos of category in catalog order. An empty
// category or AllCategories selects everything.
func (c *Catalog) ByCategory(category string) []Video {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Video, 0, len(c.order))
	for _, id := range c.order {
		v := c.videos[id]
		if category == "" || category == AllCategories || v.Category == category {
			out = append(out, v)
		}
	}
	return out
}

// Categories lists the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, id := range c.order {
		cat := c.videos[id].Category
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	return out
}

// Len returns the number of videos.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func sortByTitle(videos []Video) {
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Title < videos[j].Title })
}
