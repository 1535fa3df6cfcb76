// Package web serves the filtered event views over HTTP: HTML listing and
// widgets, a JSON API, an iCalendar export and Prometheus metrics.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ctlcal/internal/config"
	"ctlcal/internal/filter"
	"ctlcal/internal/ics"
	"ctlcal/internal/listing"
	appLog "ctlcal/internal/log"
	"ctlcal/internal/metrics"
	"ctlcal/internal/model"
	"ctlcal/internal/render"
	"ctlcal/internal/urlstate"
)

// Provider hands out the current snapshot. *listing.Refresher implements it.
type Provider interface {
	Current() *listing.Snapshot
	Location() *time.Location
}

// Server provides the HTML, JSON and calendar endpoints.
type Server struct {
	cfg *config.Config
	src Provider
	mux *http.ServeMux
	now func() time.Time
}

// NewServer constructs a new Server reading snapshots from src.
func NewServer(cfg *config.Config, src Provider) *Server {
	s := &Server{
		cfg: cfg,
		src: src,
		mux: http.NewServeMux(),
		now: time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="CTLCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves HTTP on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, src Provider) error {
	s := NewServer(cfg, src)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/events", s.handleListing)
	s.mux.HandleFunc("/homepage", s.handleHomepage)
	s.mux.HandleFunc("/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("/calendar.ics", s.handleICS)
	s.mux.Handle("/metrics", metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// request is the decoded view state of one request.
type request struct {
	params   []urlstate.Param
	criteria filter.Criteria
	page     int
}

func (s *Server) parseRequest(r *http.Request) request {
	params := urlstate.ReadParams(r.URL.RawQuery)
	req := request{
		params:   params,
		criteria: urlstate.CriteriaFromParams(params, s.src.Location()),
		page:     1,
	}
	if v, ok := urlstate.Lookup(params, render.KeyPage); ok {
		req.page = parseIntDefault(v, 1)
	}
	if req.page < 1 {
		req.page = 1
	}
	return req
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events    []model.Event `json:"events"`
	Alerts    []string      `json:"alerts"`
	Total     int           `json:"total"`
	Page      int           `json:"page"`
	Pages     int           `json:"pages"`
	PerPage   int           `json:"per_page"`
	Query     string        `json:"query"`
	Form      urlstate.Form `json:"form"`
	FetchedAt time.Time     `json:"fetched_at"`
	FromCache bool          `json:"from_cache"`
}

// handleEvents returns one page of the filtered view as JSON.
//
// GET /api/events?q=lab&loc=...&audience=...&start=2030-3-1&end=...&eventID=...&page=2
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, render.AlertLoadFailed)
		return
	}

	req := s.parseRequest(r)
	res := snap.Filter(req.criteria)
	perPage := s.cfg.ItemsPerPage

	appLog.Debug("api events request",
		"query", r.URL.RawQuery,
		"matched", len(res.Events),
		"page", req.page,
	)

	alerts := res.Alerts
	if alerts == nil {
		alerts = []string{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:    render.Paginate(res.Events, req.page, perPage),
		Alerts:    alerts,
		Total:     len(res.Events),
		Page:      req.page,
		Pages:     render.PageCount(len(res.Events), perPage),
		PerPage:   perPage,
		Query:     urlstate.Encode(req.criteria).String(),
		Form:      urlstate.Populate(req.params),
		FetchedAt: snap.FetchedAt,
		FromCache: snap.FromCache,
	})
}

// handleListing renders the events page with the search form pre-filled.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	req := s.parseRequest(r)
	page := render.Page{
		Query:     req.criteria.Query,
		PageNum:   req.page,
		PerPage:   s.cfg.ItemsPerPage,
		Canonical: urlstate.Encode(req.criteria),
		Form:      urlstate.Populate(req.params),
	}

	snap := s.src.Current()
	if snap == nil {
		page.Alerts = []string{render.AlertLoadFailed}
		page.Retry = true
		page.Locations = filter.Choices(nil)
		page.Audiences = filter.Choices(nil)
		writeHTML(w, http.StatusServiceUnavailable, render.Document(page))
		return
	}

	res := snap.Filter(req.criteria)
	page.Events = res.Events
	page.Alerts = res.Alerts
	page.Locations = snap.Locations()
	page.Audiences = snap.Audiences()
	writeHTML(w, http.StatusOK, render.Document(page))
}

// handleHomepage renders the compact homepage widget.
func (s *Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	events, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeHTML(w, http.StatusOK, render.Homepage(events, s.cfg.HomepageItems))
}

// handleUpcoming renders the upcoming-events teasers.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	events, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeHTML(w, http.StatusOK, render.UpcomingList(events, s.cfg.UpcomingItems))
}

// handleICS exports the whole filtered view as an iCalendar file.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	events, ok := s.filtered(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ctl-events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics.Export(events, s.now())))
}

// filtered applies the request's criteria to the current snapshot. It
// writes a 503 and reports false when nothing is loaded.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]model.Event, bool) {
	snap := s.src.Current()
	if snap == nil {
		http.Error(w, render.AlertLoadFailed, http.StatusServiceUnavailable)
		return nil, false
	}
	return snap.Filter(s.parseRequest(r).criteria).Events, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
