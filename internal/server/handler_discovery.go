package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "redrive API",
		Version:     "v1",
		Description: "Persisted backlog retry scheduler with Fibonacci and progressive backoff",
		Endpoints: []endpointInfo{
			{"/api/v1/records", []string{"GET", "POST"}, "List backlog records or enqueue a new one"},
			{"/api/v1/records/{id}", []string{"GET"}, "Single record detail"},
			{"/api/v1/records/{id}/retry", []string{"POST"}, "Clear an ERROR record's failure history for immediate retry"},
			{"/api/v1/stats", []string{"GET"}, "Record counts per status and trigger schedule state"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
			{"/metrics", []string{"GET"}, "Prometheus metrics"},
		},
	})
}
