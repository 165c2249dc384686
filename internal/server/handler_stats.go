package server

import (
	"net/http"

	"github.com/me/redrive/internal/scheduler"
	"github.com/me/redrive/pkg/model"
)

type statsResponse struct {
	Records  map[model.Status]int     `json:"records"`
	Triggers []scheduler.TriggerState `json:"triggers,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	counts, err := s.store.CountByStatus(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	resp := statsResponse{Records: counts}
	if s.triggers != nil {
		resp.Triggers = s.triggers.Triggers()
	}
	respondOK(w, reqID, resp)
}
