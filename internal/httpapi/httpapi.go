// Package httpapi exposes governance operations over a small REST
// surface for the web UI. Authentication happens upstream (the reverse
// proxy injects the caller's identity and role headers); this layer only
// translates requests into service calls and sentinel errors into status
// codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/curiahq/curia/internal/governance"
	"github.com/curiahq/curia/pkg/ledger"
)

// Caller identity headers set by the authenticating proxy.
const (
	headerCallerID    = "X-Curia-Caller"
	headerCallerRoles = "X-Curia-Roles" // comma-separated role names
)

// Server wires the governance service into an HTTP router.
type Server struct {
	svc *governance.Service
}

// NewServer creates the API server.
func NewServer(svc *governance.Service) *Server {
	return &Server{svc: svc}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/v1", func(api chi.Router) {
		api.Route("/portfolios/{member}", func(pr chi.Router) {
			pr.Get("/", s.handleGetPortfolio)
			pr.Delete("/", s.handleDeletePortfolio)
			pr.Put("/draft", s.handleSaveDraft)
			pr.Post("/submit", s.handleSubmit)
			pr.Post("/review", s.handleReview)
			pr.Post("/votes", s.handleCastVote)
			pr.Get("/cooldown", s.handleCooldown)
			pr.Get("/history", s.handleHistory)
		})
		api.Get("/votes", s.handleOpenVotes)
	})

	return r
}

type draftRequest struct {
	CurrentRole string   `json:"current_role"`
	Content     []string `json:"content"`
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := s.svc.SaveDraft(r.Context(), chi.URLParam(r, "member"), req.CurrentRole, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.SubmitPortfolio(r.Context(), chi.URLParam(r, "member"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Portfolio(r.Context(), chi.URLParam(r, "member"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePortfolio(r.Context(), chi.URLParam(r, "member")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewRequest struct {
	Action string `json:"action"` // "approve" or "reject"
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	reviewerID := r.Header.Get(headerCallerID)
	if reviewerID == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.svc.Review(r.Context(), chi.URLParam(r, "member"), reviewerID,
		callerRoles(r), governance.ReviewAction(req.Action), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type voteRequest struct {
	Choice string `json:"choice"` // "yes" or "no"
}

type voteResponse struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	voterID := r.Header.Get(headerCallerID)
	if voterID == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tally, err := s.svc.CastVote(r.Context(), chi.URLParam(r, "member"), voterID, ledger.Choice(req.Choice))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{Yes: tally.Yes, No: tally.No})
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.CooldownStatus(r.Context(), chi.URLParam(r, "member"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.History(r.Context(), chi.URLParam(r, "member"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []*ledger.PromotionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleOpenVotes(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.OpenVotes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*ledger.VoteEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func callerRoles(r *http.Request) []string {
	raw := r.Header.Get(headerCallerRoles)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps governance and ledger sentinels onto HTTP
// status codes. Unknown errors become 500 with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governance.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, governance.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, governance.ErrIncompleteContent),
		errors.Is(err, governance.ErrNoPromotionPath):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, governance.ErrInvalidTransition),
		errors.Is(err, governance.ErrCooldownActive),
		errors.Is(err, ledger.ErrDuplicateVote),
		errors.Is(err, ledger.ErrVotingClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}
