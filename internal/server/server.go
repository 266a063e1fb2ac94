// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/user/gitscout/internal/dedupe"
	"github.com/user/gitscout/internal/dispatch"
	"github.com/user/gitscout/internal/session"
	"github.com/user/gitscout/internal/stream"
	"github.com/user/gitscout/internal/tools"
	"github.com/user/gitscout/internal/types"
)

// Server exposes the streaming query endpoint plus the direct-access side
// channels (file reads, repo selection, documentation lookup).
type Server struct {
	manager    *session.Manager
	guard      *dedupe.Guard
	runner     *stream.Runner
	dispatcher *dispatch.Dispatcher
	pages      *tools.PageFetcher
	mux        *http.ServeMux
}

// NewServer wires the HTTP surface. pages may be nil, which disables /docs.
func NewServer(manager *session.Manager, guard *dedupe.Guard, runner *stream.Runner, dispatcher *dispatch.Dispatcher, pages *tools.PageFetcher) *Server {
	s := &Server{
		manager:    manager,
		guard:      guard,
		runner:     runner,
		dispatcher: dispatcher,
		pages:      pages,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /stream", s.handleStream)
	s.mux.HandleFunc("GET /file/{session}/{owner}/{repo}/{path...}", s.handleFile)
	s.mux.HandleFunc("POST /set_current_repo", s.handleSetCurrentRepo)
	s.mux.HandleFunc("GET /docs", s.handleDocs)
	return s
}

// ServeHTTP delegates to the internal mux behind the CORS wrapper,
// implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// streamRequest is the JSON body for POST /stream.
type streamRequest struct {
	SessionID string         `json:"session_id"`
	Query     string         `json:"query"`
	Context   map[string]any `json:"context,omitempty"`
}

// handleStream runs one query and streams its events. The response is always
// an SSE stream once headers are committed, so validation failures surface as
// a single error event rather than an HTTP status.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = string(types.FallbackRequestID())
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = streamRequest{}
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		slog.Error("sse unsupported", "request_id", reqID, "error", err)
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	if req.SessionID == "" || req.Query == "" {
		sse.Send(stream.ErrorEvent("Missing session_id or query"))
		return
	}

	sessionID := types.SessionID(req.SessionID)
	if !s.guard.Admit(sessionID, req.Query) {
		slog.Info("duplicate request rejected", "request_id", reqID, "session", sessionID)
		sse.Send(stream.ErrorEvent("Duplicate request detected"))
		return
	}

	sess := s.manager.GetOrCreate(sessionID)
	if len(req.Context) > 0 {
		sess.UpdateContext(req.Context)
	}

	slog.Info("stream opened", "request_id", reqID, "session", sessionID)
	for ev := range s.runner.Run(r.Context(), sess, req.Query) {
		if err := sse.Send(ev); err != nil {
			slog.Warn("client disconnected", "request_id", reqID, "session", sessionID, "error", err)
			return
		}
	}
	slog.Info("stream closed", "request_id", reqID, "session", sessionID)
}

// handleFile reads one file directly, bypassing the decision loop. The repo
// name comes from the owner and repo path segments; the rest of the path is
// the file path, percent-decoded.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(r.PathValue("session"))
	repoName := r.PathValue("owner") + "/" + r.PathValue("repo")
	filePath := r.PathValue("path")
	if decoded, err := url.PathUnescape(filePath); err == nil {
		filePath = decoded
	}

	sess := s.manager.GetOrCreate(sessionID)
	spec := &types.ActionSpec{
		Action: types.ActionReadFile,
		Parameters: types.Params{
			"repo_name": repoName,
			"file_path": filePath,
		},
	}
	env := s.dispatcher.Execute(r.Context(), spec, sess.Memory, sess.Log)
	if !env.IsError() {
		sess.AddCurrentFile(filePath)
	}
	writeEnvelope(w, env)
}

// setRepoRequest is the JSON body for POST /set_current_repo.
type setRepoRequest struct {
	SessionID string `json:"session_id"`
	RepoName  string `json:"repo_name"`
}

// handleSetCurrentRepo pins the session's current repository and returns its
// root directory listing so the client can render it immediately.
func (s *Server) handleSetCurrentRepo(w http.ResponseWriter, r *http.Request) {
	var req setRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.SessionID == "" || req.RepoName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id and repo_name are required"})
		return
	}

	sess := s.manager.GetOrCreate(types.SessionID(req.SessionID))
	sess.UpdateContext(map[string]any{session.KeyCurrentRepo: req.RepoName})

	spec := &types.ActionSpec{
		Action:     types.ActionListDirectory,
		Parameters: types.Params{"repo_name": req.RepoName},
	}
	env := s.dispatcher.Execute(r.Context(), spec, sess.Memory, sess.Log)
	writeEnvelope(w, env)
}

// handleDocs fetches an external documentation page as markdown.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if s.pages == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "documentation lookup not configured"})
		return
	}
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url parameter is required"})
		return
	}

	content, err := s.pages.FetchPage(r.Context(), pageURL)
	if err != nil {
		slog.Warn("docs fetch failed", "url", pageURL, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": pageURL, "content": content})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, env *types.Envelope) {
	status := http.StatusOK
	if env.IsError() {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// Listen starts the HTTP server on addr and blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
