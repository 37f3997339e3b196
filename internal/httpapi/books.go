package httpapi

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/service"
	"github.com/dustbooks/dust-server/internal/store"
)

func splitCSV(q string) []string {
	if q == "" {
		return nil
	}
	parts := strings.Split(q, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// bookFilterFromQuery builds a store.BookFilter from the list query
// parameters. excludeGenres and excludeTags name the SAME underlying
// exclusion set (tag name is the join key), per the resolved open
// question in SPEC_FULL.md.
func bookFilterFromQuery(r *http.Request) store.BookFilter {
	q := r.URL.Query()
	include := append(splitCSV(q.Get("includeGenres")), splitCSV(q.Get("includeTags"))...)
	exclude := append(splitCSV(q.Get("excludeGenres")), splitCSV(q.Get("excludeTags"))...)

	filter := store.BookFilter{
		IncludeTags: include,
		ExcludeTags: exclude,
		Search:      q.Get("search"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}
	return filter
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.List(r.Context(), userID(r.Context()), bookFilterFromQuery(r))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, books, s.log)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.books.Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, b, s.log)
}

func (s *Server) handleBooksByTag(w http.ResponseWriter, r *http.Request) {
	filter := store.BookFilter{IncludeTags: []string{chi.URLParam(r, "tagName")}}
	books, err := s.books.List(r.Context(), userID(r.Context()), filter)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, books, s.log)
}

var bookContentTypes = map[string]string{
	"epub": "application/epub+zip",
	"pdf":  "application/pdf",
	"mobi": "application/x-mobipocket-ebook",
	"azw":  "application/vnd.amazon.ebook",
	"azw3": "application/vnd.amazon.ebook",
	"cbz":  "application/vnd.comicbook+zip",
	"cbr":  "application/vnd.comicbook-rar",
	"djvu": "image/vnd.djvu",
}

func contentTypeFor(format string) string {
	if ct, ok := bookContentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + format); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// handleStreamBook serves book bytes, honoring a single-range Range header.
// The whole file is never buffered in memory; bytes copy in fixed chunks.
func (s *Server) handleStreamBook(w http.ResponseWriter, r *http.Request) {
	uid := userID(r.Context())
	id := chi.URLParam(r, "id")

	b, f, err := s.books.OpenForStream(r.Context(), uid, id)
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, apperr.NotFound("book not found"), s.log, s.devErrors)
		return
	}
	size := info.Size()
	contentType := contentTypeFor(b.FileFormat)

	start, end, status, ok := parseRange(r.Header.Get("Range"), size)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		writeError(w, apperr.RangeErr("requested range not satisfiable"), s.log, s.devErrors)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	if status == http.StatusPartialContent {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if err := service.StreamRange(w, f, start, end); err != nil {
		s.log.WithError(err).Warn("stream interrupted", "book_id", id)
	}
}

// parseRange parses a single "bytes=a-b" Range header. No header means the
// full file, 200. A malformed or unsatisfiable range returns ok=false.
func parseRange(header string, size int64) (start, end int64, status int, ok bool) {
	if header == "" {
		return 0, size - 1, http.StatusOK, true
	}
	if !strings.HasPrefix(header, "bytes=") || strings.Contains(header[6:], ",") {
		return 0, 0, 0, false
	}
	spec := header[6:]
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, 0, false
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	switch {
	case startStr == "" && endStr != "":
		// suffix range: last N bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, http.StatusPartialContent, true
	case startStr != "":
		s, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || s < 0 || s >= size {
			return 0, 0, 0, false
		}
		e := size - 1
		if endStr != "" {
			parsed, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || parsed < s {
				return 0, 0, 0, false
			}
			if parsed < e {
				e = parsed
			}
		}
		return s, e, http.StatusPartialContent, true
	default:
		return 0, 0, 0, false
	}
}

func (s *Server) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.authors.List(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, authors, s.log)
}

func (s *Server) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	detail, err := s.authors.Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeOK(w, detail, s.log)
}

func (s *Server) handleApplyTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TagName string `json:"tag_name" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	t, err := s.store.GetTagByName(r.Context(), req.TagName)
	if err != nil {
		writeError(w, apperr.NotFound("tag not found"), s.log, s.devErrors)
		return
	}
	bookTag := &domain.BookTag{BookID: chi.URLParam(r, "id"), TagID: t.ID, AppliedBy: userID(r.Context())}
	if err := s.store.ApplyTag(r.Context(), bookTag); err != nil {
		writeError(w, apperr.Storage(err), s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTagByName(r.Context(), chi.URLParam(r, "tagName"))
	if err != nil {
		writeError(w, apperr.NotFound("tag not found"), s.log, s.devErrors)
		return
	}
	if err := s.store.RemoveBookTag(r.Context(), chi.URLParam(r, "id"), t.ID); err != nil {
		writeError(w, apperr.Storage(err), s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleArchiveBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = decodeJSON(r, &req)
	if err := s.books.Archive(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleUnarchiveBook(w http.ResponseWriter, r *http.Request) {
	if err := s.books.Unarchive(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, s.log, s.devErrors)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleValidateArchive(w http.ResponseWriter, r *http.Request) {
	if err := s.scanner.ReconcileArchive(r.Context()); err != nil {
		writeError(w, apperr.Wrap(err, apperr.CodeIO, "archive reconciliation failed"), s.log, s.devErrors)
		return
	}
	writeOK(w, map[string]string{"status": "reconciled"}, s.log)
}
