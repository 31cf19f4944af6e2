package ffmpeg

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNotFound is returned by Locate when no binary is available.
var ErrNotFound = errors.New("ffprobe not found")

// Locate resolves the ffprobe binary. An explicit path or a name on PATH is
// used first, then baseDir/tools/ffmpeg.
func Locate(configured, baseDir string) (string, error) {
	if configured == "" {
		configured = "ffprobe"
	}
	if p, err := exec.LookPath(configured); err == nil {
		return p, nil
	}
	if baseDir != "" {
		local := filepath.Join(baseDir, "tools", "ffmpeg", exe("ffprobe"))
		if fileExists(local) {
			return local, nil
		}
	}
	return "", ErrNotFound
}

func exe(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
