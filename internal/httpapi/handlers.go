package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dusk-indust/callscope/internal/apierr"
	"github.com/dusk-indust/callscope/internal/codesearch"
)

// searchError is the /search error payload; it always carries an empty
// result list so clients can render it like a normal response.
type searchError struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Results []string `json:"results"`
	Limited bool     `json:"limited"`
}

// handleSearch serves GET /search?path=&pattern=&limit=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q, "limit", s.defaults.SearchLimit)
	if err != nil {
		s.writeSearchError(w, apierr.New(apierr.InvalidInput, err.Error(), nil))
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	res, err := s.searcher.Search(ctx, q.Get("path"), q.Get("pattern"), limit)
	if err != nil {
		e := apierr.From(err)
		if e.Code == apierr.InvalidInput {
			e = apierr.New(apierr.InvalidInput, "Invalid directory path", err)
		}
		s.logger.Warn("search failed", slog.String("error", err.Error()))
		s.writeSearchError(w, e)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeSearchError(w http.ResponseWriter, e *apierr.Error) {
	s.writeJSON(w, e.Status(), searchError{
		Error:   e.Message,
		Code:    string(e.Code),
		Results: []string{},
	})
}

// handleFileContent serves
// GET /file-content?file_path=&line_number=&context_lines=&base_path=.
func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	line, err := intParam(q, "line_number", 0)
	if err != nil {
		s.writeError(w, apierr.New(apierr.InvalidInput, err.Error(), nil))
		return
	}
	contextLines, err := intParam(q, "context_lines", s.defaults.ContextLines)
	if err != nil {
		s.writeError(w, apierr.New(apierr.InvalidInput, err.Error(), nil))
		return
	}

	fc, err := codesearch.ReadContext(q.Get("file_path"), line, contextLines, q.Get("base_path"))
	if err != nil {
		s.writeError(w, apierr.From(err))
		return
	}
	s.writeJSON(w, http.StatusOK, fc)
}

// handleCallHierarchy serves
// GET /call-hierarchy?function_name=&base_path=&max_depth=.
func (s *Server) handleCallHierarchy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	depth, err := intParam(q, "max_depth", s.defaults.MaxDepth)
	if err != nil {
		s.writeError(w, apierr.New(apierr.InvalidInput, err.Error(), nil))
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	root, err := s.engine.GetCallHierarchy(ctx, q.Get("function_name"), q.Get("base_path"), depth)
	if err != nil {
		e := apierr.From(err)
		if e.Code != apierr.InvalidInput {
			s.logger.Error("call hierarchy failed",
				slog.String("function", q.Get("function_name")),
				slog.String("error", err.Error()),
			)
		}
		s.writeError(w, e)
		return
	}
	s.writeJSON(w, http.StatusOK, root)
}

func (s *Server) writeError(w http.ResponseWriter, e *apierr.Error) {
	s.writeJSON(w, e.Status(), e)
}

// intParam parses an optional integer query parameter.
func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", name, v)
	}
	return n, nil
}
