package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestParseProbeOutput(t *testing.T) {
	output := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac", "duration": "12.0"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "duration": "633.5"}
		],
		"format": {"duration": "634.533000", "bit_rate": "5123456"}
	}`)

	info, err := parseProbeOutput(output)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if info.Duration != 634.533 {
		t.Fatalf("Duration = %v, want 634.533", info.Duration)
	}
	if info.Codec != "h264" || info.Width != 1920 || info.Height != 1080 {
		t.Fatalf("video stream = %+v", info)
	}
	if info.Bitrate != 5123456 {
		t.Fatalf("Bitrate = %d", info.Bitrate)
	}
}

func TestParseProbeOutput_StreamDurationFallback(t *testing.T) {
	info, err := parseProbeOutput([]byte(`{"streams":[{"codec_type":"video","duration":"90.25"}],"format":{"duration":"N/A"}}`))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if info.Duration != 90.25 {
		t.Fatalf("Duration = %v, want 90.25", info.Duration)
	}
}

func TestParseProbeOutput_Invalid(t *testing.T) {
	if _, err := parseProbeOutput([]byte("Invalid data found when processing input")); err == nil {
		t.Fatalf("parseProbeOutput() accepted non-JSON output")
	}
}

func TestGetVideoInfo_Validation(t *testing.T) {
	if _, err := GetVideoInfo(context.Background(), "", "a.mp4"); err == nil {
		t.Fatalf("GetVideoInfo() accepted empty ffprobe path")
	}
	if _, err := GetVideoInfo(context.Background(), "ffprobe", ""); err == nil {
		t.Fatalf("GetVideoInfo() accepted empty video path")
	}
}

func TestLocate_LocalTools(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "tools", "ffmpeg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	local := filepath.Join(dir, exe("ffprobe"))
	if err := os.WriteFile(local, []byte{}, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Locate("watchtrack-missing-ffprobe", base)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if got != local {
		t.Fatalf("Locate() = %q, want %q", got, local)
	}
}

func TestLocate_NotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH lookup semantics differ")
	}
	_, err := Locate("watchtrack-missing-ffprobe", t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Locate() error = %v, want ErrNotFound", err)
	}
}
