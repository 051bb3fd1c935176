package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

type StatsResponse struct {
	Generated       time.Time      `json:"generated"`
	Total           int            `json:"total_contacts"`
	ByStatus        map[string]int `json:"by_status"`
	ByType          map[string]int `json:"by_type"`
	RecentlyReached int            `json:"recently_reached"`
	Eligible        int            `json:"eligible"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Warnf("encode response: %v", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	now := s.Now()
	cs := st.All()
	rep := store.BuildReport(cs, now)

	resp := StatsResponse{
		Generated:       rep.Generated,
		Total:           rep.Total,
		ByStatus:        make(map[string]int, len(rep.ByStatus)),
		ByType:          make(map[string]int, len(rep.ByType)),
		RecentlyReached: rep.RecentlyReached,
		Eligible:        len(s.Filter.Eligible(cs, now, nil)),
	}
	for k, v := range rep.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range rep.ByType {
		resp.ByType[string(k)] = v
	}
	writeJSON(w, resp)
}

// parseTypes reads the comma-separated type query parameter.
func parseTypes(raw string) ([]contact.Type, error) {
	var out []contact.Type
	for _, p := range strings.Split(raw, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		t, err := contact.ParseType(p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	types, err := parseTypes(q.Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var status contact.Status
	if raw := q.Get("status"); raw != "" {
		if status, err = contact.ParseStatus(raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	st, err := s.load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := []contact.Contact{}
	for _, c := range st.All() {
		if status != "" && c.Status != status {
			continue
		}
		if len(types) > 0 && !hasType(types, c.Type) {
			continue
		}
		out = append(out, c)
	}
	writeJSON(w, out)
}

func (s *Server) handleEligible(w http.ResponseWriter, r *http.Request) {
	types, err := parseTypes(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := s.Filter.Eligible(st.All(), s.Now(), types)
	writeJSON(w, out)
}

type RespondRequest struct {
	Fingerprint string `json:"fingerprint"`
	Note        string `json:"note"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var updated contact.Contact
	err := s.write(r.Context(), func(st *store.Store) error {
		var err error
		updated, err = st.Modify(r.Context(), req.Fingerprint, func(c *contact.Contact) error {
			return c.RecordResponse(s.Now(), strings.TrimSpace(req.Note))
		})
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, contact.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, updated)
}

type OptOutRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

func (s *Server) optOutsEnabled(w http.ResponseWriter) bool {
	if s.OptOuts == nil {
		http.Error(w, "opt-outs need the sqlite backend", http.StatusNotImplemented)
		return false
	}
	return true
}

func (s *Server) handleListOptOuts(w http.ResponseWriter, r *http.Request) {
	if !s.optOutsEnabled(w) {
		return
	}
	list, err := s.OptOuts.ListOptOuts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleAddOptOut(w http.ResponseWriter, r *http.Request) {
	if !s.optOutsEnabled(w) {
		return
	}
	var req OptOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.OptOuts.AddOptOut(r.Context(), req.Email, req.Reason); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRemoveOptOut(w http.ResponseWriter, r *http.Request) {
	if !s.optOutsEnabled(w) {
		return
	}
	var req OptOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.OptOuts.RemoveOptOut(r.Context(), req.Email); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func hasType(types []contact.Type, t contact.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
