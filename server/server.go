package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/lamnv/todoagent/agent/contract"
	todox "github.com/lamnv/todoagent/agent/todo"
)

// Asker is the conversational entry point, satisfied by the orchestrator.
type Asker interface {
	Ask(ctx context.Context, prompt string) (contractx.AskResult, error)
}

// Server exposes the task list as plain CRUD plus the /ask agent endpoint.
type Server struct {
	store *todox.Store
	agent Asker
	log   zerolog.Logger
}

// Option customizes a Server.
type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

func New(store *todox.Store, agent Asker, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("todo store is required")
	}
	if agent == nil {
		return nil, errors.New("agent is required")
	}

	s := &Server{
		store: store,
		agent: agent,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /todos", s.handleListTodos)
	mux.HandleFunc("GET /todos/{id}", s.handleGetTodo)
	mux.HandleFunc("POST /todos", s.handleCreateTodo)
	mux.HandleFunc("PUT /todos/{id}", s.handleUpdateTodo)
	mux.HandleFunc("DELETE /todos/{id}", s.handleDeleteTodo)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.accessLog(mux)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List(r.Context()))
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusNotFound, todox.ErrNotFound.Error())
		return
	}

	task, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type createTodoRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := todox.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := todox.ValidateDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.store.Create(r.Context(), todox.NewTask{Title: req.Title, Date: req.Date})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// updateTodoRequest keeps field presence: a key absent from the body leaves
// the stored value unchanged, while an explicit false/value is applied.
type updateTodoRequest struct {
	Title *string `json:"title"`
	Date  *string `json:"date"`
	Done  *bool   `json:"done"`
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusNotFound, todox.ErrNotFound.Error())
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != nil {
		if err := todox.ValidateTitle(*req.Title); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Date != nil {
		if err := todox.ValidateDate(*req.Date); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	task, err := s.store.Update(r.Context(), id, todox.Patch{
		Title: req.Title,
		Date:  req.Date,
		Done:  req.Done,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusNotFound, todox.ErrNotFound.Error())
		return
	}

	task, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := s.agent.Ask(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("agent request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "agent request failed",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, todox.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, todox.ErrDuplicate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("store operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
