package server

import (
	"net/http"
	"os"
	"path/filepath"
)

// serveVideoFile streams the file at path with Range support.
func serveVideoFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		writeError(w, http.StatusInternalServerError, "file stat failed")
		return
	}

	if ct := videoContentType(path); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, filepath.Base(path), st.ModTime(), f)
}
