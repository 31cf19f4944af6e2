package catalog

import (
	"encoding/xml"
	"os"
	"strconv"
	"strings"
)

// NFO is the subset of a Kodi-style .nfo sidecar the catalog uses.
type NFO struct {
	Type            string // movie / episode / unknown
	Title           string
	Plot            string
	Genres          []string
	Author          string
	Thumb           string
	DurationSeconds float64
}

type nfoStreamDetails struct {
	Video []struct {
		DurationInSeconds string `xml:"durationinseconds"`
	} `xml:"video"`
}

type nfoBody struct {
	Title    string   `xml:"title"`
	Plot     string   `xml:"plot"`
	Genre    []string `xml:"genre"`
	Director []string `xml:"director"`
	Studio   []string `xml:"studio"`
	Thumb    []string `xml:"thumb"`
	Runtime  string   `xml:"runtime"`
	FileInfo struct {
		StreamDetails nfoStreamDetails `xml:"streamdetails"`
	} `xml:"fileinfo"`
}

func ParseNFOFile(path string) (*NFO, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseNFO(b)
}

func parseNFO(b []byte) (*NFO, error) {
	root := detectRootName(b)
	var kind string
	switch root {
	case "movie":
		kind = "movie"
	case "episodedetails":
		kind = "episode"
	default:
		return &NFO{Type: "unknown"}, nil
	}

	var body nfoBody
	if err := xml.Unmarshal(b, &body); err != nil {
		return nil, err
	}

	n := &NFO{
		Type:   kind,
		Title:  strings.TrimSpace(body.Title),
		Plot:   strings.TrimSpace(body.Plot),
		Genres: trimAll(body.Genre),
	}
	if d := trimAll(body.Director); len(d) > 0 {
		n.Author = d[0]
	} else if s := trimAll(body.Studio); len(s) > 0 {
		n.Author = s[0]
	}
	if th := trimAll(body.Thumb); len(th) > 0 {
		n.Thumb = th[0]
	}

	// <durationinseconds> is exact; <runtime> is whole minutes
	for _, v := range body.FileInfo.StreamDetails.Video {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v.DurationInSeconds), 64); err == nil && secs > 0 {
			n.DurationSeconds = secs
			break
		}
	}
	if n.DurationSeconds == 0 {
		if mins, err := strconv.Atoi(strings.TrimSpace(body.Runtime)); err == nil && mins > 0 {
			n.DurationSeconds = float64(mins * 60)
		}
	}
	return n, nil
}

func detectRootName(b []byte) string {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, "<?xml") {
		if i := strings.Index(s, "?>"); i >= 0 {
			s = strings.TrimSpace(s[i+2:])
		}
	}
	if strings.HasPrefix(s, "<") {
		s = s[1:]
	}
	end := strings.IndexAny(s, " >\n\r\t")
	if end <= 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s[:end]))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
