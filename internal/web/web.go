package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"swintt/internal/config"
	"swintt/internal/generate"
	"swintt/internal/ics"
	appLog "swintt/internal/log"
	"swintt/internal/model"
	"swintt/internal/schedule"
	"swintt/internal/source"
)

// maxBodyBytes bounds POST bodies; a selection request is tiny.
const maxBodyBytes = 1 << 20

// Server provides the HTTP API for group lookup and calendar export.
type Server struct {
	cfg   *config.Config
	store *source.Store
	loc   *time.Location
	now   func() time.Time
	mux   *http.ServeMux
}

// NewServer constructs a new Server. Course rows are read through store.
func NewServer(cfg *config.Config, store *source.Store) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:   cfg,
		store: store,
		loc:   resolveLocationOrLocal(cfg.Timezone),
		now:   time.Now,
		mux:   http.NewServeMux(),
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
	if s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="Timetable", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, store *source.Store) error {
	s := NewServer(cfg, store)
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
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("GET /api/groups", s.handleGroups)
	s.mux.HandleFunc("POST /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("POST /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCourses lists the courses currently held in memory and when each
// was last loaded.
func (s *Server) handleCourses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]source.CourseInfo{"courses": s.store.Courses()})
}

// typeDTO is one selectable type class, e.g. {"class":"TU","label":"Tutorial"}.
type typeDTO struct {
	Class string `json:"class"`
	Label string `json:"label"`
}

// groupsResponse is the JSON response shape for /api/groups.
type groupsResponse struct {
	Course string        `json:"course"`
	Groups []model.Group `json:"groups"`
	Types  []typeDTO     `json:"types"`
}

// handleGroups returns the selectable groups of one course.
//
// GET /api/groups?course=COS10003
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.URL.Query().Get("course"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "course is required")
		return
	}

	rows, err := s.store.Rows(r.Context(), code)
	if err != nil {
		appLog.Error("api groups: load failed", err, "course", code)
		writeError(w, http.StatusNotFound, "could not load timetable for "+code)
		return
	}

	groups := schedule.BuildCatalog(code, rows)
	classes := schedule.TypeClasses(groups)
	types := make([]typeDTO, 0, len(classes))
	for _, tc := range classes {
		types = append(types, typeDTO{Class: tc, Label: model.TypeLabel(tc)})
	}

	writeJSON(w, http.StatusOK, groupsResponse{Course: code, Groups: groups, Types: types})
}

// calendarRequest is the POST body of /api/calendar and /api/events.
type calendarRequest struct {
	Courses    []source.Ref            `json:"courses"`
	Selections map[string]selectionDTO `json:"selections"`

	// From/To bound /api/events (YYYY-MM-DD, inclusive). Ignored by
	// /api/calendar.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type selectionDTO struct {
	IncludedGroups []string `json:"includedGroups"`
}

// problemResponse is the 422 body for requests that cannot produce a
// calendar.
type problemResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Dropped []string `json:"dropped,omitempty"`
}

// buildRequest decodes the body and loads the courses it names. Courses
// that fail to load are dropped and reported. ok is false once a response
// has been written.
func (s *Server) buildRequest(w http.ResponseWriter, r *http.Request) (req generate.Request, body calendarRequest, dropped []string, ok bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, body, nil, false
	}

	refs := make([]source.Ref, 0, len(body.Courses))
	for _, c := range body.Courses {
		code := normalizeCode(c.Code)
		if code == "" {
			continue
		}
		refs = append(refs, source.Ref{Code: code, Term: strings.TrimSpace(c.Term)})
	}
	if len(refs) == 0 {
		writeError(w, http.StatusBadRequest, generate.ErrNoCourses.Error())
		return req, body, nil, false
	}

	courses, failed := source.LoadCourses(r.Context(), s.store, refs)
	for _, d := range failed {
		dropped = append(dropped, d.Code)
	}
	if len(courses) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, problemResponse{
			Error:   "no timetable could be loaded",
			Dropped: dropped,
		})
		return req, body, dropped, false
	}

	selections := make(map[string]model.GroupSelection, len(body.Selections))
	for code, sel := range body.Selections {
		selections[normalizeCode(code)] = model.GroupSelection{IncludedGroups: sel.IncludedGroups}
	}

	req = generate.Request{
		Courses:        courses,
		Selections:     selections,
		Now:            s.now(),
		Location:       s.loc,
		FilenamePrefix: s.cfg.FilenamePrefix,
	}
	return req, body, dropped, true
}

// writeGenerateError maps pipeline errors to responses.
func writeGenerateError(w http.ResponseWriter, err error, dropped []string) {
	var selErr *schedule.SelectionError
	if errors.As(err, &selErr) {
		missing := make([]string, 0, len(selErr.Gaps))
		for _, g := range selErr.Gaps {
			missing = append(missing, g.String())
		}
		writeJSON(w, http.StatusUnprocessableEntity, problemResponse{
			Error:   "please select required groups",
			Missing: missing,
			Dropped: dropped,
		})
		return
	}
	appLog.Error("api: generation failed", err)
	writeError(w, http.StatusInternalServerError, "failed to generate timetable")
}

// handleCalendar returns the selected timetable as an .ics attachment.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	req, _, dropped, ok := s.buildRequest(w, r)
	if !ok {
		return
	}

	res, err := generate.Run(req)
	if err != nil {
		writeGenerateError(w, err, dropped)
		return
	}
	if res.Empty {
		writeJSON(w, http.StatusUnprocessableEntity, problemResponse{
			Error:   "nothing to export",
			Dropped: dropped,
		})
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("X-Timetable-Classes", fmt.Sprint(res.Classes))
	w.Header().Set("X-Timetable-Weekly-Hours", fmt.Sprintf("%.1f", res.WeeklyHours))
	if len(dropped) > 0 {
		w.Header().Set("X-Timetable-Dropped", strings.Join(dropped, ","))
	}
	w.WriteHeader(http.StatusOK)
	if err := generate.Export(w, res); err != nil {
		appLog.Error("api calendar: write failed", err)
	}
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	Truncated       []string        `json:"truncated,omitempty"`
	Dropped         []string        `json:"dropped,omitempty"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// handleEvents returns every dated class of the selection, optionally
// bounded by from/to, for calendar views.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	req, body, dropped, ok := s.buildRequest(w, r)
	if !ok {
		return
	}

	cfg := ics.ExpandConfig{DisplayLocation: s.loc}
	var err error
	if cfg.RangeStart, err = parseDay(body.From, s.loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	if cfg.RangeEnd, err = parseDay(body.To, s.loc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	if !cfg.RangeEnd.IsZero() {
		cfg.RangeEnd = cfg.RangeEnd.AddDate(0, 0, 1)
	}

	events, err := generate.Events(req)
	if err != nil {
		writeGenerateError(w, err, dropped)
		return
	}

	expanded, err := ics.Expand(events, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dtos := make([]occurrenceDTO, 0, len(expanded.Occurrences))
	for _, occ := range expanded.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Title,
			Description: occ.Description,
			Location:    occ.Location,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences:     dtos,
		Truncated:       expanded.Truncated,
		Dropped:         dropped,
		DisplayTimeZone: s.loc.String(),
	})
}

// handleRefresh reloads every cached course now.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	errs := s.store.Refresh(r.Context())
	failed := make(map[string]string, len(errs))
	for code, err := range errs {
		failed[code] = err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"courses": s.store.Codes(),
		"failed":  failed,
	})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func parseDay(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", v, loc)
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
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
