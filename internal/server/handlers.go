package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sells-group/servicearea/internal/policy"
	"github.com/sells-group/servicearea/internal/registry"
)

const maxBodyBytes = 1 << 16

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, Banner)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	reg := s.svc.Registry()
	body := map[string]any{
		"status":  "ok",
		"streets": reg.StreetCount(),
		"keys":    reg.Len(),
	}
	if s.breakers != nil {
		providers := make(map[string]string)
		for name, state := range s.breakers.States() {
			providers[name] = state.String()
		}
		body["providers"] = providers
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("address"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "No address provided")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Check(r.Context(), q))
}

type matchRequest struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	HouseNumber *int   `json:"house_number"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Match(policy.Input{
		Street:      req.Street,
		City:        req.City,
		State:       req.State,
		HouseNumber: req.HouseNumber,
	}))
}

// StreetSegment is one serviced street segment.
type StreetSegment struct {
	Street        string `json:"street"`
	ServiceEntity string `json:"service_entity"`
	Start         *int   `json:"start,omitempty"`
	End           *int   `json:"end,omitempty"`
}

func (s *Server) handleStreets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StreetList(s.svc.Registry()))
}

// StreetList flattens the registry into one entry per serviced segment.
func StreetList(reg *registry.Registry) []StreetSegment {
	out := []StreetSegment{}
	for _, st := range reg.Streets() {
		for _, seg := range st.Segments() {
			item := StreetSegment{Street: seg.DisplayName, ServiceEntity: seg.ServiceEntity}
			if seg.Range != nil {
				start, end := seg.Range.Start, seg.Range.End
				item.Start, item.End = &start, &end
			}
			out = append(out, item)
		}
	}
	return out
}
