package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"ics2org/internal/config"
	"ics2org/internal/ics"
	appLog "ics2org/internal/log"
	"ics2org/internal/metric"
	"ics2org/internal/model"
	"ics2org/internal/org"
	"ics2org/internal/pipeline"
)

// eventsCacheTTL bounds how long parsed sources are reused between
// requests.
const eventsCacheTTL = 30 * time.Second

// Server exposes converted calendars over HTTP.
type Server struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	mux     *http.ServeMux
	now     func() time.Time

	eventsMu    sync.RWMutex
	eventsCache map[string]eventsCache
}

// eventsCache holds the parsed events of one source and when they were
// fetched.
type eventsCache struct {
	events    []model.Event
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, fetcher *ics.Fetcher) *Server {
	s := &Server{
		cfg:         cfg,
		fetcher:     fetcher,
		mux:         http.NewServeMux(),
		now:         time.Now,
		eventsCache: make(map[string]eventsCache),
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /org", s.handleOrg)
	s.mux.Handle("GET /metrics", metric.Handler())
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with both
// a username and a password.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
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
			w.Header().Set("WWW-Authenticate", `Basic realm="ics2org", charset="UTF-8"`)
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

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, cfg *config.Config, fetcher *ics.Fetcher) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, fetcher).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// dateTimeDTO is the JSON view of a DateTime.
type dateTimeDTO struct {
	Format string `json:"format"`
	TZID   string `json:"tzid,omitempty"`
	Year   uint32 `json:"year"`
	Month  uint8  `json:"month"`
	Day    uint8  `json:"day"`
	Hour   uint8  `json:"hour"`
	Minute uint8  `json:"minute"`
	Second uint8  `json:"second"`
}

// eventDTO is the JSON view of an Event.
type eventDTO struct {
	SourceID    string      `json:"source_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Organizer   string      `json:"organizer,omitempty"`
	MailTo      string      `json:"mail_to,omitempty"`
	Start       dateTimeDTO `json:"start"`
	End         dateTimeDTO `json:"end"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events  []eventDTO `json:"events"`
	Sources []string   `json:"sources"`
	Errors  []string   `json:"errors,omitempty"`
}

// handleEvents returns the parsed events of one source (?source=<id>) or of
// every configured source.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sources, ok := s.selectSources(w, r)
	if !ok {
		return
	}

	resp := eventsResponse{Events: []eventDTO{}, Sources: []string{}}
	for _, src := range sources {
		events, err := s.loadEvents(r.Context(), src)
		if err != nil {
			resp.Errors = append(resp.Errors, src.ID+": "+err.Error())
			continue
		}
		resp.Sources = append(resp.Sources, src.ID)
		for _, ev := range events {
			resp.Events = append(resp.Events, toDTO(src.ID, ev))
		}
	}

	status := http.StatusOK
	if len(resp.Sources) == 0 && len(resp.Errors) > 0 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// handleOrg renders the selected sources as one Org document.
func (s *Server) handleOrg(w http.ResponseWriter, r *http.Request) {
	sources, ok := s.selectSources(w, r)
	if !ok {
		return
	}

	var all []model.Event
	var errs []string
	for _, src := range sources {
		events, err := s.loadEvents(r.Context(), src)
		if err != nil {
			errs = append(errs, src.ID+": "+err.Error())
			continue
		}
		all = append(all, events...)
	}
	if len(errs) > 0 && len(all) == 0 {
		writeError(w, http.StatusBadGateway, strings.Join(errs, "; "))
		return
	}

	w.Header().Set("Content-Type", "text/org; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := org.Write(w, all, pipeline.RenderOptions(s.cfg)); err != nil {
		appLog.Error("failed to write org response", err)
	}
}

// selectSources resolves the optional ?source=<id> filter. It writes a 404
// and returns false for an unknown id.
func (s *Server) selectSources(w http.ResponseWriter, r *http.Request) ([]ics.Source, bool) {
	want := r.URL.Query().Get("source")

	sources := make([]ics.Source, 0, len(s.cfg.Sources))
	for _, cs := range s.cfg.Sources {
		if cs.URL == "" {
			continue
		}
		if want != "" && cs.Key() != want {
			continue
		}
		sources = append(sources, ics.Source{ID: cs.Key(), URL: cs.URL})
	}

	if want != "" && len(sources) == 0 {
		writeError(w, http.StatusNotFound, "unknown source "+want)
		return nil, false
	}
	return sources, true
}

// loadEvents returns the cached events for src or fetches and parses it.
func (s *Server) loadEvents(ctx context.Context, src ics.Source) ([]model.Event, error) {
	now := s.now()

	s.eventsMu.RLock()
	ec, ok := s.eventsCache[src.ID]
	s.eventsMu.RUnlock()
	if ok && now.Sub(ec.updatedAt) < eventsCacheTTL {
		return ec.events, nil
	}

	res, err := s.fetcher.FetchOne(ctx, src)
	if err != nil {
		appLog.Error("api: fetch failed", err, "id", src.ID)
		return nil, err
	}
	events, err := ics.ParseBytes(res.Body)
	if err != nil {
		appLog.Error("api: parse failed", err, "id", src.ID)
		return nil, err
	}

	s.eventsMu.Lock()
	s.eventsCache[src.ID] = eventsCache{events: events, updatedAt: now}
	s.eventsMu.Unlock()
	return events, nil
}

func toDTO(sourceID string, ev model.Event) eventDTO {
	return eventDTO{
		SourceID:    sourceID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Organizer:   ev.Organizer.Calendar,
		MailTo:      ev.Organizer.MailTo,
		Start:       dateTimeToDTO(ev.Start),
		End:         dateTimeToDTO(ev.End),
	}
}

func dateTimeToDTO(dt model.DateTime) dateTimeDTO {
	return dateTimeDTO{
		Format: dt.Format.Kind.String(),
		TZID:   dt.Format.TZID,
		Year:   dt.Year,
		Month:  dt.Month,
		Day:    dt.Day,
		Hour:   dt.Hour,
		Minute: dt.Minute,
		Second: dt.Second,
	}
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
