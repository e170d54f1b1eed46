package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ics2org/internal/config"
	"ics2org/internal/ics"
)

const calendar = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART;TZID=America/New_York:20240115T093000\r\n" +
	"DTEND;TZID=America/New_York:20240115T103000\r\n" +
	"ORGANIZER;CN=Jane Doe:mailto:jane@example.com\r\n" +
	"SUMMARY:Planning\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "work.ics")
	if err := os.WriteFile(path, []byte(calendar), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Sources = []config.SourceConfig{{ID: "work", URL: path}}
	return NewServer(cfg, ics.NewFetcher(filepath.Join(dir, "cache"))), path
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestEvents(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/api/events?source=work")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp eventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(resp.Events))
	}
	ev := resp.Events[0]
	if ev.Title != "Planning" || ev.SourceID != "work" || ev.MailTo != "jane@example.com" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Start.Format != "timezone" || ev.Start.TZID != "America/New_York" || ev.Start.Hour != 9 {
		t.Errorf("start = %+v", ev.Start)
	}
}

func TestEventsUnknownSource(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/api/events?source=nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEventsCache(t *testing.T) {
	s, path := newTestServer(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if rec := get(t, s.Handler(), "/api/events"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	// Within the TTL the removed file is not noticed.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if rec := get(t, s.Handler(), "/api/events"); rec.Code != http.StatusOK {
		t.Errorf("cached request status = %d, want 200", rec.Code)
	}

	now = now.Add(eventsCacheTTL + time.Second)
	if rec := get(t, s.Handler(), "/api/events"); rec.Code != http.StatusBadGateway {
		t.Errorf("expired request status = %d, want 502", rec.Code)
	}
}

func TestOrg(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/org")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := "* Google Calendar\n** Planning\nSCHEDULED: <2024-01-15 Mon>\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	get(t, s.Handler(), "/org")
	rec := get(t, s.Handler(), "/metrics")
	if !strings.Contains(rec.Body.String(), "ics2org_events_parsed_total") {
		t.Errorf("metrics body missing counter")
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	h := s.Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 without auth", rec.Code)
	}
	if rec := get(t, h, "/org"); rec.Code != http.StatusUnauthorized {
		t.Errorf("/org status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/org", nil)
	req.SetBasicAuth("u", "p")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authorised /org status = %d, want 200", rec.Code)
	}
}
