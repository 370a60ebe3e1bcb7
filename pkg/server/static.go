package server

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/vango-dev/staticrouter/pkg/statebridge"
)

const documentFile = "index.html"

// outputRelPath returns a sanitized path into the output tree, "." for the
// root. It rejects traversal and absolute-path tricks.
func outputRelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return ".", true
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(strings.TrimSuffix(rel, "/"), "/") {
		if seg == "." || seg == ".." || seg == "" {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if !fs.ValidPath(clean) {
		return "", false
	}
	return clean, true
}

// serveOutput serves a file of the output tree. Directories serve their
// index.html so page URLs work with and without a trailing slash.
func (s *Server) serveOutput(w http.ResponseWriter, r *http.Request) {
	rel, ok := outputRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	info, err := fs.Stat(s.config.Output, rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		rel = path.Join(rel, documentFile)
		if info, err = fs.Stat(s.config.Output, rel); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
	}

	f, err := s.config.Output.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		content = bytes.NewReader(data)
	}

	s.applyCacheHeaders(w, r, rel)
	http.ServeContent(w, r, path.Base(rel), info.ModTime(), content)
}

// buildID is the build currently served. The hub tracks rebuilds.
func (s *Server) buildID() string {
	if s.config.Hub != nil {
		return s.config.Hub.BuildID()
	}
	return s.config.BuildID
}

// applyCacheHeaders sets Cache-Control for a file of the output tree.
func (s *Server) applyCacheHeaders(w http.ResponseWriter, r *http.Request, rel string) {
	var value string
	switch base := path.Base(rel); {
	case base == documentFile:
		value = "no-cache"
	case base == statebridge.StateFileName:
		if id := s.buildID(); id != "" && r.URL.Query().Get(statebridge.BuildQueryParam) == id {
			value = "public, max-age=31536000, immutable"
		} else {
			value = "no-cache"
		}
	case isFingerprinted(rel):
		value = "public, max-age=31536000, immutable"
	default:
		value = "public, max-age=3600, must-revalidate"
	}
	w.Header().Set("Cache-Control", value)
}

// isFingerprinted checks if a file path appears to be fingerprinted.
// Fingerprinted files have a hash in their name, e.g., "app.a1b2c3d4.css"
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}

	// Hashes are typically 8+ hex characters
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
