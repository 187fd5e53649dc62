package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// contentTypeFor maps a recording's extension to a MIME type (spec §6:
// ".mp4"->"video/mp4", ".h264"->"video/h264"; ".webm" is additionally
// recognized, matching the original implementation's content-type table).
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".h264", ".264":
		return "video/h264"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// byteRange is an inclusive [start, end] span within a file.
type byteRange struct {
	start, end int64
}

// parseRange parses a "bytes=start-end" Range header value, treating an
// open-ended end as file_size-1 (spec §6). Returns ok=false for anything
// malformed or out of bounds, which callers treat as "ignore the header".
func parseRange(header string, fileSize int64) (byteRange, bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, false
	}
	parts := strings.SplitN(header[len(prefix):], "-", 2)
	if len(parts) != 2 {
		return byteRange{}, false
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return byteRange{}, false
	}

	end := fileSize - 1
	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return byteRange{}, false
		}
	}

	if start > end || end >= fileSize {
		return byteRange{}, false
	}
	return byteRange{start: start, end: end}, true
}

// handleRecordingStream serves a recording file with HTTP Range support
// (spec §6 "Direct Range-requested byte serving of a recording file").
func (s *Server) handleRecordingStream(w http.ResponseWriter, r *http.Request) {
	fid := chi.URLParam(r, "fid")
	path := filepath.Join(s.cfg.StorageRoot, filepath.Base(fid))

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	fileSize := info.Size()
	contentType := contentTypeFor(path)

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		if rng, ok := parseRange(rangeHeader, fileSize); ok {
			s.serveRange(w, f, rng, fileSize, contentType)
			return
		}
	}
	s.serveFull(w, f, fileSize, contentType)
}

func (s *Server) serveRange(w http.ResponseWriter, f *os.File, rng byteRange, fileSize int64, contentType string) {
	if _, err := f.Seek(rng.start, io.SeekStart); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	length := rng.end - rng.start + 1

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, fileSize))
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusPartialContent)

	_, _ = io.CopyN(w, f, length)
}

func (s *Server) serveFull(w http.ResponseWriter, f *os.File, fileSize int64, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)

	_, _ = io.Copy(w, f)
}
