// Package web serves the scheduling engine over a JSON API. Handlers
// read raw events from the store, run the pure engine stages
// (expansion, conflict/workload analysis, column layout) and return
// their outputs; no engine state lives here beyond a short response
// cache.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dashcal/internal/config"
	"dashcal/internal/conflict"
	"dashcal/internal/layout"
	appLog "dashcal/internal/log"
	"dashcal/internal/model"
	"dashcal/internal/recur"
	"dashcal/internal/store"
	"dashcal/internal/timeutil"
)

// expandedCacheTTL bounds how long /api responses may reuse a previous
// expansion of the full store.
const expandedCacheTTL = 30 * time.Second

// Server provides the HTTP JSON API.
type Server struct {
	cfg   *config.Config
	store *store.Store
	mux   *http.ServeMux

	// Cache of the fully expanded store, shared by all read endpoints.
	// Invalidated on mutation and after expandedCacheTTL.
	expandedMu sync.RWMutex
	expanded   []model.Event
	expandedAt time.Time
}

// NewServer constructs a Server over the given config and store.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware protects everything except /health.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="dashcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/", s.handleEventByID)
	s.mux.HandleFunc("/api/day", s.handleDay)
	s.mux.HandleFunc("/api/workload", s.handleWorkload)
	s.mux.HandleFunc("/api/suggest", s.handleSuggest)
	s.mux.HandleFunc("/api/stats", s.handleStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// expandedEvents returns every store event with recurrences expanded,
// serving from the short-lived cache when fresh.
func (s *Server) expandedEvents() []model.Event {
	now := time.Now()

	s.expandedMu.RLock()
	if s.expanded != nil && now.Sub(s.expandedAt) < expandedCacheTTL {
		cached := s.expanded
		s.expandedMu.RUnlock()
		return cached
	}
	s.expandedMu.RUnlock()

	opts := recur.Options{MaxInstances: s.cfg.MaxInstances}
	all := make([]model.Event, 0)
	for _, ev := range s.store.Events() {
		all = append(all, recur.Expand(ev, opts)...)
	}

	s.expandedMu.Lock()
	s.expanded = all
	s.expandedAt = now
	s.expandedMu.Unlock()
	return all
}

func (s *Server) invalidateExpanded() {
	s.expandedMu.Lock()
	s.expanded = nil
	s.expandedMu.Unlock()
}

// InvalidateCache drops the expansion cache. The refresh loop calls
// this after reloading the store from disk or an ICS pull.
func (s *Server) InvalidateCache() {
	s.invalidateExpanded()
}

// eventsOn returns the expanded instances active on one date,
// multi-day spans included.
func (s *Server) eventsOn(date string) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.expandedEvents() {
		if timeutil.ActiveOnDate(ev.StartDate, ev.EndDate, date) {
			out = append(out, ev)
		}
	}
	return out
}

// eventsResponse is the JSON shape of GET /api/events.
type eventsResponse struct {
	Events []model.Event `json:"events"`
	From   string        `json:"from"`
	To     string        `json:"to"`
}

// handleEvents serves the expanded instance list (GET, range-bounded)
// and event creation (POST).
//
// GET /api/events?from=2026-01-01&to=2026-01-31
// Defaults: from=today, to=today+horizon_days.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleEventsList(w, r)
	case http.MethodPost:
		s.handleEventCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleEventsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	today := timeutil.FormatDate(time.Now())
	from := q.Get("from")
	if from == "" {
		from = today
	}
	fromDay, err := timeutil.ParseDate(from)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad from date")
		return
	}
	to := q.Get("to")
	if to == "" {
		to = timeutil.FormatDate(fromDay.AddDate(0, 0, s.cfg.HorizonDays))
	} else if _, err := timeutil.ParseDate(to); err != nil {
		writeError(w, http.StatusBadRequest, "bad to date")
		return
	}
	if to < from {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	matched := make([]model.Event, 0)
	for _, ev := range s.expandedEvents() {
		end := ev.EndDate
		if end == "" {
			end = ev.StartDate
		}
		if ev.StartDate <= to && end >= from {
			matched = append(matched, ev)
		}
	}

	writeJSON(w, http.StatusOK, eventsResponse{Events: matched, From: from, To: to})
}

func (s *Server) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad event payload")
		return
	}
	if ev.StartDate == "" {
		writeError(w, http.StatusBadRequest, "start_date is required")
		return
	}
	if _, err := timeutil.ParseDate(ev.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "bad start_date")
		return
	}

	created, err := s.store.Add(ev)
	if err != nil {
		appLog.Error("event create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}
	s.invalidateExpanded()
	writeJSON(w, http.StatusCreated, created)
}

// handleEventByID handles GET/PUT/DELETE /api/events/{id}.
func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing event id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		ev, err := s.store.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeJSON(w, http.StatusOK, ev)

	case http.MethodPut:
		var ev model.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "bad event payload")
			return
		}
		ev.ID = id
		if err := s.store.Update(ev); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "event not found")
				return
			}
			appLog.Error("event update failed", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update event")
			return
		}
		s.invalidateExpanded()
		writeJSON(w, http.StatusOK, ev)

	case http.MethodDelete:
		if err := s.store.Delete(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "event not found")
				return
			}
			appLog.Error("event delete failed", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to delete event")
			return
		}
		s.invalidateExpanded()
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// dayResponse is the JSON shape of GET /api/day: everything a day
// timeline needs in one call.
type dayResponse struct {
	Date      string              `json:"date"`
	Events    []layout.Positioned `json:"events"`
	Workload  conflict.Workload   `json:"workload"`
	Conflicts map[string][]string `json:"conflicts,omitempty"`
}

// handleDay returns the positioned column layout, workload summary and
// per-event conflict ids for one date.
//
// GET /api/day?date=2026-01-05&hour_height=80
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = timeutil.FormatDate(time.Now())
	}
	if _, err := timeutil.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad date")
		return
	}

	hourHeight := s.cfg.HourHeight
	if hh := r.URL.Query().Get("hour_height"); hh != "" {
		if v, err := strconv.ParseFloat(hh, 64); err == nil && v > 0 {
			hourHeight = v
		}
	}

	dayEvents := s.eventsOn(date)
	positioned := layout.Layout(dayEvents, hourHeight)

	conflicts := make(map[string][]string)
	for _, ev := range dayEvents {
		hits := conflict.Detect(ev, dayEvents)
		if len(hits) == 0 {
			continue
		}
		ids := make([]string, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, h.ID)
		}
		conflicts[ev.ID] = ids
	}
	if len(conflicts) == 0 {
		conflicts = nil
	}

	writeJSON(w, http.StatusOK, dayResponse{
		Date:      date,
		Events:    positioned,
		Workload:  conflict.AnalyzeWorkload(dayEvents, date),
		Conflicts: conflicts,
	})
}

// handleWorkload returns the workload summary for one date.
func (s *Server) handleWorkload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = timeutil.FormatDate(time.Now())
	}
	if _, err := timeutil.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad date")
		return
	}

	writeJSON(w, http.StatusOK, conflict.AnalyzeWorkload(s.eventsOn(date), date))
}

// suggestResponse is the JSON shape of GET /api/suggest.
type suggestResponse struct {
	Date        string   `json:"date"`
	DurationMin int      `json:"duration_min"`
	Times       []string `json:"times"`
}

// handleSuggest returns free-slot start times for one date.
//
// GET /api/suggest?date=2026-01-05&duration=45
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = timeutil.FormatDate(time.Now())
	}
	if _, err := timeutil.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad date")
		return
	}
	duration := parseIntDefault(q.Get("duration"), 60)

	writeJSON(w, http.StatusOK, suggestResponse{
		Date:        date,
		DurationMin: duration,
		Times:       conflict.SuggestTimes(s.eventsOn(date), date, duration),
	})
}

// handleStats returns coarse whole-calendar statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, conflict.Summarize(s.store.Events(), time.Now()))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
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
