package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/me/redrive/internal/store"
	"github.com/me/redrive/pkg/model"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	if v := q.Get("status"); v != "" {
		if !model.Status(v).Valid() {
			respondError(w, reqID, http.StatusBadRequest,
				model.NewValidationError("unknown status "+strconv.Quote(v)))
			return
		}
		opts.Status = v
	}
	opts.Kind = q.Get("kind")
	opts.Clamp()

	records, total, err := s.store.ListRecords(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	respondList(w, reqID, records, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(records) < total,
	})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}
	if req.Kind == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("kind is required"))
		return
	}

	rec := &model.Record{
		ID:           "rec_" + uuid.New().String(),
		Kind:         req.Kind,
		Payload:      req.Payload,
		Status:       model.StatusNew,
		DateInserted: time.Now().UTC(),
	}
	if err := s.store.CreateRecord(r.Context(), rec); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("record enqueued", "record_id", rec.ID, "kind", rec.Kind, "request_id", reqID)
	respondCreated(w, reqID, rec)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if rec == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("record", id))
		return
	}
	respondOK(w, reqID, rec)
}

// handleRetryRecord clears an ERROR record's failure history so the next tick
// may select it immediately.
func (s *Server) handleRetryRecord(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := s.store.ResetRecord(r.Context(), id)
	if err == store.ErrNotFound {
		respondError(w, reqID, http.StatusConflict, &model.APIError{
			Code:    model.ErrConflict,
			Message: "record " + strconv.Quote(id) + " does not exist or is not in ERROR",
		})
		return
	}
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil || rec == nil {
		respondOK(w, reqID, map[string]any{"reset": true})
		return
	}
	s.logger.Info("record reset for retry", "record_id", id, "request_id", reqID)
	respondOK(w, reqID, rec)
}
