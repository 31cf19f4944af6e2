// Package ffmpeg wraps the ffprobe binary for reading media durations.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoDuration is returned when ffprobe reports no usable duration.
var ErrNoDuration = errors.New("ffprobe: no duration")

// VideoInfo contains information about a video file.
type VideoInfo struct {
	Path     string
	Duration float64
	Width    int
	Height   int
	Bitrate  int64
	Codec    string
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// GetVideoInfo runs ffprobe on videoPath.
func GetVideoInfo(ctx context.Context, ffprobePath, videoPath string) (*VideoInfo, error) {
	if ffprobePath == "" {
		return nil, fmt.Errorf("ffprobe path is empty")
	}
	if videoPath == "" {
		return nil, fmt.Errorf("video path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	}

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}
	info.Path = videoPath
	return info, nil
}

// ProbeDuration returns the duration of videoPath in seconds.
func ProbeDuration(ctx context.Context, ffprobePath, videoPath string) (float64, error) {
	info, err := GetVideoInfo(ctx, ffprobePath, videoPath)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("%w for %s", ErrNoDuration, videoPath)
	}
	return info.Duration, nil
}

// parseProbeOutput reads ffprobe's JSON. The container duration wins; the
// first video stream's duration is the fallback.
func parseProbeOutput(output []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{
		Duration: parseSeconds(out.Format.Duration),
	}
	if br, err := strconv.ParseInt(strings.TrimSpace(out.Format.BitRate), 10, 64); err == nil {
		info.Bitrate = br
	}
	for _, st := range out.Streams {
		if st.CodecType != "video" {
			continue
		}
		info.Codec = st.CodecName
		info.Width = st.Width
		info.Height = st.Height
		if info.Duration == 0 {
			info.Duration = parseSeconds(st.Duration)
		}
		break
	}
	return info, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
