package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcal/internal/config"
	"dashcal/internal/model"
	"dashcal/internal/store"
)

func testServer(t *testing.T, events []model.Event) *Server {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)
	for _, ev := range events {
		_, err := st.Add(ev)
		require.NoError(t, err)
	}

	cfg := config.DefaultConfig()
	return NewServer(cfg, st)
}

func doJSON(t *testing.T, s *Server, method, target string, body []byte, out any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleEvents_RangeAndExpansion(t *testing.T) {
	s := testServer(t, []model.Event{
		{ID: "single", StartDate: "2026-01-06", StartTime: "09:00", EndTime: "10:00"},
		{ID: "outside", StartDate: "2026-03-01"},
		{
			ID:          "weekly",
			StartDate:   "2026-01-05", // a Monday
			StartTime:   "12:00",
			EndTime:     "13:00",
			IsRecurring: true,
			Recurrence: &model.Recurrence{
				Frequency:  model.FreqWeekly,
				Interval:   1,
				DaysOfWeek: []int{1},
			},
		},
	})

	var resp eventsResponse
	rec := doJSON(t, s, http.MethodGet, "/api/events?from=2026-01-05&to=2026-01-18", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)

	ids := make([]string, 0, len(resp.Events))
	for _, ev := range resp.Events {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{
		"single",
		"weekly-2026-01-05",
		"weekly-2026-01-12",
	}, ids)
}

func TestHandleEvents_BadRange(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/events?from=2026-01-10&to=2026-01-05", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/events?from=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed bounds are rejected even when both are supplied.
	rec = doJSON(t, s, http.MethodGet, "/api/events?from=Jan+5&to=2026-01-10", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/events?from=2026-01-05&to=someday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEventCreateAndDelete(t *testing.T) {
	s := testServer(t, nil)

	payload, err := json.Marshal(model.Event{Title: "new", StartDate: "2026-01-06"})
	require.NoError(t, err)

	var created model.Event
	rec := doJSON(t, s, http.MethodPost, "/api/events", payload, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, created.ID)

	var fetched model.Event
	rec = doJSON(t, s, http.MethodGet, "/api/events/"+created.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new", fetched.Title)

	rec = doJSON(t, s, http.MethodDelete, "/api/events/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/events/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEventCreate_Validation(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/events", []byte(`{"title":"no date"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/events", []byte(`not json`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDay(t *testing.T) {
	s := testServer(t, []model.Event{
		{ID: "a", StartDate: "2026-01-05", StartTime: "09:00", EndTime: "10:00"},
		{ID: "b", StartDate: "2026-01-05", StartTime: "09:30", EndTime: "10:30"},
		{ID: "allday", StartDate: "2026-01-05"},
		{ID: "elsewhere", StartDate: "2026-01-06", StartTime: "09:00", EndTime: "10:00"},
	})

	var resp dayResponse
	rec := doJSON(t, s, http.MethodGet, "/api/day?date=2026-01-05", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "2026-01-05", resp.Date)
	require.Len(t, resp.Events, 3)

	// a and b overlap: two columns, mutual conflicts.
	for _, p := range resp.Events {
		switch p.Event.ID {
		case "a", "b":
			assert.Equal(t, 2, p.TotalColumns)
		case "allday":
			assert.Equal(t, 1, p.TotalColumns)
		}
	}
	assert.Equal(t, []string{"b"}, resp.Conflicts["a"])
	assert.Equal(t, []string{"a"}, resp.Conflicts["b"])

	assert.Equal(t, 3, resp.Workload.Count)
	assert.Equal(t, 150, resp.Workload.DurationMin) // 60 + 60 + 30 default
}

func TestHandleDay_BadDate(t *testing.T) {
	s := testServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/day?date=tomorrow", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWorkload(t *testing.T) {
	s := testServer(t, []model.Event{
		{ID: "a", StartDate: "2026-01-05", StartTime: "09:00", EndTime: "15:00"},
	})

	var resp struct {
		Count       int    `json:"count"`
		DurationMin int    `json:"duration_min"`
		Level       string `json:"level"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/workload?date=2026-01-05", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 360, resp.DurationMin)
	assert.Equal(t, "heavy", resp.Level)
}

func TestHandleSuggest(t *testing.T) {
	s := testServer(t, []model.Event{
		{ID: "a", StartDate: "2026-01-05", StartTime: "09:00", EndTime: "12:00"},
	})

	var resp suggestResponse
	rec := doJSON(t, s, http.MethodGet, "/api/suggest?date=2026-01-05&duration=90", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 90, resp.DurationMin)
	assert.Equal(t, []string{"12:00"}, resp.Times)
}

func TestBasicAuth(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "hunter2"}
	s := NewServer(cfg, st)

	// /health stays open.
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// API requires credentials.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMutationInvalidatesExpansionCache(t *testing.T) {
	s := testServer(t, nil)

	var before eventsResponse
	doJSON(t, s, http.MethodGet, "/api/events?from=2026-01-05&to=2026-01-06", nil, &before)
	assert.Empty(t, before.Events)

	payload, err := json.Marshal(model.Event{Title: "fresh", StartDate: "2026-01-05"})
	require.NoError(t, err)
	rec := doJSON(t, s, http.MethodPost, "/api/events", payload, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var after eventsResponse
	doJSON(t, s, http.MethodGet, "/api/events?from=2026-01-05&to=2026-01-06", nil, &after)
	require.Len(t, after.Events, 1)
	assert.Equal(t, "fresh", after.Events[0].Title)
}
