package remote

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxPushBytes bounds the size of one push request body.
const maxPushBytes = 8 << 20

type server struct {
	backend Backend
	log     *zap.Logger
}

// NewServer exposes backend over HTTP. A non-empty token is required as a
// bearer token on every request.
func NewServer(backend Backend, token string, log *zap.Logger) http.Handler {
	s := &server{backend: backend, log: log}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logging(log))
	r.Use(bearerAuth(token))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/account", s.account)
		r.Post("/push", s.push)
		r.Get("/changes", s.changes)
		r.Post("/lists/{id}/share", s.share)
		r.Get("/lists/{id}/share", s.isShared)
	})

	return r
}

func (s *server) account(w http.ResponseWriter, r *http.Request) {
	status, err := s.backend.AccountStatus(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	responseWithJSON(w, http.StatusOK, accountResponse{Status: status})
}

func (s *server) push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBytes)).Decode(&req); err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Device == "" {
		responseWithError(w, http.StatusBadRequest, "device is required")
		return
	}

	if err := s.backend.Push(r.Context(), req.Device, req.Records); err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) changes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.backend.Pull(r.Context(), q.Get("device"), q.Get("cursor"))
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	responseWithJSON(w, http.StatusOK, res)
}

func (s *server) share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		responseWithError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	h, err := s.backend.Share(r.Context(), chi.URLParam(r, "id"), req.Title)
	if errors.Is(err, ErrNotFound) {
		responseWithError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	responseWithJSON(w, http.StatusOK, h)
}

func (s *server) isShared(w http.ResponseWriter, r *http.Request) {
	shared, err := s.backend.IsShared(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	responseWithJSON(w, http.StatusOK, sharedResponse{Shared: shared})
}

func (s *server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("backend failure",
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	)
	responseWithError(w, http.StatusInternalServerError, "internal error")
}

func responseWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func responseWithError(w http.ResponseWriter, code int, message string) {
	responseWithJSON(w, code, errorResponse{Error: message})
}
