// Package server exposes the open project read-only over HTTP for report
// tooling running beside the editor.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"titanroof/internal/annotation"
	"titanroof/internal/project"
	"titanroof/internal/version"
)

// Session is the state the server reads. Implementations must be safe to
// call from the HTTP goroutines.
type Session interface {
	BuildSnapshot() *project.Snapshot
}

// Server is the HTTP export surface.
type Server struct {
	addr    string
	session Session
	router  chi.Router
	logger  *log.Logger
	now     func() time.Time
}

// New creates a server for session. logger may be nil.
func New(addr string, session Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		addr:    addr,
		session: session,
		router:  chi.NewRouter(),
		logger:  logger,
		now:     time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/document", s.handleDocument)
	r.Get("/api/pages", s.handleListPages)
	r.Get("/api/pages/{page}/items", s.handleListItems)
	r.Get("/api/pages/{page}/dashboard", s.handleDashboard)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Printf("HTTP: %s %s", r.Method, r.URL.Path)
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Minute,
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     version.AppName(),
		"version": version.Version,
	})
}

// handleDocument returns the whole project as an exported .trp file.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	snap := s.session.BuildSnapshot()
	data, err := project.Encode(snap, s.now())
	if err != nil {
		s.logger.Printf("HTTP: encode document: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to encode document")
		return
	}
	w.Header().Set("Content-Type", project.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+project.FileName(snap.ResidenceName)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PageSummary describes one page in the page list.
type PageSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Active        bool    `json:"active"`
	AspectRatio   float64 `json:"aspectRatio"`
	Rotation      int     `json:"rotation"`
	HasBackground bool    `json:"hasBackground"`
	MapEnabled    bool    `json:"mapEnabled"`
	Items         int     `json:"items"`
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	snap := s.session.BuildSnapshot()
	counts := make(map[string]int, len(snap.Pages))
	for _, it := range snap.Items {
		counts[it.PageID]++
	}
	out := make([]PageSummary, 0, len(snap.Pages))
	for _, p := range snap.Pages {
		out = append(out, PageSummary{
			ID:            p.ID,
			Name:          p.Name,
			Active:        p.ID == snap.ActivePageID,
			AspectRatio:   p.AspectRatio,
			Rotation:      p.Rotation,
			HasBackground: p.HasBackground(),
			MapEnabled:    p.Map.Enabled,
			Items:         counts[p.ID],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// pageItems returns the items of the {page} URL parameter, writing a 404
// when the page does not exist.
func (s *Server) pageItems(w http.ResponseWriter, r *http.Request) ([]*annotation.Item, bool) {
	id := chi.URLParam(r, "page")
	snap := s.session.BuildSnapshot()
	found := false
	for _, p := range snap.Pages {
		if p.ID == id {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "page not found")
		return nil, false
	}
	items := make([]*annotation.Item, 0)
	for _, it := range snap.Items {
		if it.PageID == id {
			items = append(items, it)
		}
	}
	return items, true
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, ok := s.pageItems(w, r)
	if !ok {
		return
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filtered := items[:0]
		for _, it := range items {
			if string(it.Type) == t {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	items, ok := s.pageItems(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"directions":     annotation.Dashboard(items),
		"hailIndicators": annotation.HailIndicators(items),
	})
}
