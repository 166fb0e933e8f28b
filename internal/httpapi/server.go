// Package httpapi exposes the planner over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/sandeepkv93/dayplan/internal/auth"
	"github.com/sandeepkv93/dayplan/internal/log"
	"github.com/sandeepkv93/dayplan/internal/model"
	"github.com/sandeepkv93/dayplan/internal/service"
)

const (
	DefaultShutdownTimeout = 10 * time.Second
	maxBodyBytes           = 1 << 20
)

type Config struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type Server struct {
	planner *service.Planner
	issuer  *auth.Issuer
	logger  *log.Logger
	cfg     Config
}

func New(planner *service.Planner, issuer *auth.Issuer, logger *log.Logger, cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{planner: planner, issuer: issuer, logger: log.OrNop(logger).With("component", "httpapi"), cfg: cfg}
}

// Handler returns the routed, authenticated, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	v1 := http.NewServeMux()
	v1.HandleFunc("GET /v1/plan", s.getPlan)
	v1.HandleFunc("GET /v1/tasks", s.listTasks)
	v1.HandleFunc("POST /v1/tasks", s.createTask)
	v1.HandleFunc("PATCH /v1/tasks/{id}", s.updateTask)
	v1.HandleFunc("DELETE /v1/tasks/{id}", s.deleteTask)
	v1.HandleFunc("POST /v1/tasks/{id}/complete", s.completeTask)
	v1.HandleFunc("POST /v1/tasks/{id}/postpone", s.postponeTask)
	v1.HandleFunc("PUT /v1/dayplan", s.putDayPlan)
	v1.HandleFunc("POST /v1/breaks", s.recordBreak)
	v1.HandleFunc("GET /v1/busy", s.listBusy)
	v1.HandleFunc("POST /v1/busy", s.addBusy)
	v1.HandleFunc("DELETE /v1/busy/{id}", s.deleteBusy)
	v1.HandleFunc("POST /v1/recommendations/{id}/apply", s.applyRecommendation)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/v1/", s.issuer.Middleware(v1))

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.logRequests(mux))
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for at most the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	plan, err := s.planner.Plan(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	tasks, err := s.planner.ListTasks(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Task{"tasks": tasks})
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in service.NewTask
	if !s.decode(w, r, &in) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	task, err := s.planner.CreateTask(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch service.TaskPatch
	if !s.decode(w, r, &patch) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	task, err := s.planner.UpdateTask(r.Context(), userID, r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	if err := s.planner.DeleteTask(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	task, err := s.planner.CompleteTask(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) postponeTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Days int `json:"days"`
	}
	if r.ContentLength != 0 && !s.decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	task, err := s.planner.PostponeTask(r.Context(), userID, r.PathValue("id"), body.Days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) putDayPlan(w http.ResponseWriter, r *http.Request) {
	var patch service.DayPlanPatch
	if !s.decode(w, r, &patch) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	plan, err := s.planner.UpdateDayPlan(r.Context(), userID, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) recordBreak(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Minutes int `json:"minutes"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	b, err := s.planner.RecordBreak(r.Context(), userID, body.Minutes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) listBusy(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	blocks, err := s.planner.ListBusyBlocks(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []model.BusyBlock{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.BusyBlock{"busy": blocks})
}

func (s *Server) addBusy(w http.ResponseWriter, r *http.Request) {
	var in service.NewBusyBlock
	if !s.decode(w, r, &in) {
		return
	}
	userID, _ := auth.UserID(r.Context())
	b, err := s.planner.AddBusyBlock(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) deleteBusy(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	if err := s.planner.DeleteBusyBlock(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyRecommendation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	rec, err := s.planner.Apply(r.Context(), userID, r.URL.Query().Get("date"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrMustLimit):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
