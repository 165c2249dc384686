package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Scheduler string `json:"scheduler"`
	Store     string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	schedState := "disabled"
	if s.triggers != nil {
		schedState = "running"
	}
	storeState := "ok"
	if _, err := s.store.CountByStatus(r.Context()); err != nil {
		storeState = "error: " + err.Error()
	}

	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   s.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Scheduler: schedState,
		Store:     storeState,
	})
}
