package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sambeau/tabula/pkg/loader"
	"github.com/sambeau/tabula/pkg/query"
	"github.com/sambeau/tabula/pkg/scope"
	"github.com/sambeau/tabula/pkg/session"
	"github.com/sambeau/tabula/pkg/table"
)

// maxBodySize caps request bodies of file and write requests.
const maxBodySize = 10 << 20

// editorInfo describes one configured editor.
type editorInfo struct {
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	SourceType loader.SourceType `json:"sourceType"`
	Hash       string            `json:"hash"`
}

// viewResponse is one page of the table at a scope.
type viewResponse struct {
	Hash       string         `json:"hash"`
	ScopeID    string         `json:"scopeId"`
	Mode       scope.Mode     `json:"mode"`
	Metadata   scope.Metadata `json:"metadata"`
	Headers    []string       `json:"headers"`
	Rows       []*table.Row   `json:"rows"`
	Display    [][]string     `json:"display"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	Total      int            `json:"total"`
	NoDataNote string         `json:"noDataNote,omitempty"`
}

// handleGetFile answers the loader's file requests from the data root.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	var fr loader.FileRequest
	if err := json.Unmarshal(body, &fr); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	resp, err := s.files.Fetch(r.Context(), s.config.Data.FileEndpoint, loader.Request{Method: r.Method, Body: body})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func (s *Server) handleEditors(w http.ResponseWriter, r *http.Request) {
	out := make([]editorInfo, len(s.config.Editors))
	for i, ed := range s.config.Editors {
		out[i] = editorInfo{
			ID:         i,
			Name:       ed.Name,
			SourceType: ed.SourceType,
			Hash:       "#" + scope.Hash{View: "table", EditorID: i}.String(),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, err := s.openSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.view(sess, r, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.openSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	base, err := s.config.TableConfig()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, cfg := sess.Project(base)
	// Exports cover every matching row
	all := *cfg
	all.Paginate = false

	engine := query.New(&all, query.WithLogger(s.log.Named("query")))
	req, err := parseRequest(r, &all)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res := engine.Run(rows, req)

	title := r.URL.Query().Get("title")
	if title == "" {
		title = sess.Editor().Name
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": title + ".csv"}))
	if err := engine.Export(res.Rows, title, query.CSVWriter{W: w}); err != nil {
		s.log.Warn("export failed", zap.String("title", title), zap.Error(err))
	}
}

// handleWrite stores the JSON body at the scope: under segment when given,
// descending into it, otherwise replacing the current value.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	sess, err := s.openSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var v any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&v); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decoding value: %v", errBadRequest, err))
		return
	}

	if seg := r.URL.Query().Get("segment"); seg != "" {
		err = sess.WriteAndDescend(scope.ParseSegment(seg), v)
	} else {
		err = sess.UpdateSubLevel(v)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.docs.Store(sess.Editor(), draftOf(r), sess.Navigator().Document().Root())

	view, err := s.view(sess, r, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// openSession loads the editor named by the hash parameter and scopes into
// its path.
func (s *Server) openSession(r *http.Request) (*session.Session, error) {
	loc := scope.NewMemoryLocation(r.URL.Query().Get("hash"))
	sess := session.New(loc, s.docs, session.WithLogger(s.log.Named("session")))
	if err := sess.Initialize(r.Context(), s.config.Editors, draftOf(r)); err != nil {
		return nil, err
	}
	return sess, nil
}

// view projects the session's scope and runs the query parameters over it.
// Without withQuery the first unfiltered page is returned.
func (s *Server) view(sess *session.Session, r *http.Request, withQuery bool) (*viewResponse, error) {
	base, err := s.config.TableConfig()
	if err != nil {
		return nil, err
	}
	rows, cfg := sess.Project(base)
	engine := query.New(cfg, query.WithLogger(s.log.Named("query")))

	req := query.Request{Page: 1}
	if withQuery {
		if req, err = parseRequest(r, cfg); err != nil {
			return nil, err
		}
	}
	res := engine.Run(rows, req)

	nav := sess.Navigator()
	headers, display := engine.Display(res.Rows)

	view := &viewResponse{
		Hash:       "#" + sess.Hash().String(),
		ScopeID:    nav.ScopeID(),
		Mode:       nav.Mode(),
		Metadata:   nav.Metadata(),
		Headers:    headers,
		Rows:       res.Rows,
		Display:    display,
		Page:       req.Page,
		TotalPages: res.TotalPages,
		Total:      res.Total,
	}
	if res.Total == 0 {
		view.NoDataNote = cfg.NoDataNote
	}
	return view, nil
}

// parseRequest reads q, sort, order, page and repeated filter parameters.
func parseRequest(r *http.Request, cfg *table.Config) (query.Request, error) {
	q := r.URL.Query()
	req := query.Request{
		Search:  q.Get("q"),
		SortKey: q.Get("sort"),
		Page:    1,
	}

	order, err := query.ParseOrder(q.Get("order"))
	if err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	req.Order = order
	if req.SortKey != "" && order == query.Default {
		req.Order = query.Asc
	}

	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return req, fmt.Errorf("%w: invalid page %q", errBadRequest, p)
		}
		req.Page = n
	}

	for _, f := range q["filter"] {
		filter, err := query.ParseFilter(f, cfg)
		if err != nil {
			return req, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		req.Filters = append(req.Filters, filter)
	}
	return req, nil
}

func draftOf(r *http.Request) loader.Draft {
	q := r.URL.Query()
	return loader.Draft{Name: q.Get("draft"), User: q.Get("user")}
}
