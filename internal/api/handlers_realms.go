package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lotkeeper/internal/models"
)

// handleListRealms returns all registered realms.
func (s *Server) handleListRealms(w http.ResponseWriter, r *http.Request) {
	realms, err := s.realmService.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if realms == nil {
		realms = []*models.ServerRealm{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"realms": realms,
	})
}

// createRealmRequest registers a realm ahead of its first snapshot.
type createRealmRequest struct {
	Server string `json:"server"`
	Realm  string `json:"realm"`
}

// handleCreateRealm registers a realm explicitly. Registration is also
// implicit on the agent submission path; this endpoint exists for setup
// tooling. Idempotent.
func (s *Server) handleCreateRealm(w http.ResponseWriter, r *http.Request) {
	var req createRealmRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid request body: "+err.Error(), nil)
		return
	}

	realm, err := s.realmService.Register(r.Context(), req.Server, req.Realm)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, realm)
}

// handleRealmStats returns the realm's current auction count and summed
// buyout market value.
func (s *Server) handleRealmStats(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	stats, err := s.auctionService.Stats(r.Context(), realm.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// resolveRealm resolves the {server}/{realm} path segments to a registered
// realm, writing the error response on failure.
func (s *Server) resolveRealm(w http.ResponseWriter, r *http.Request) (*models.ServerRealm, bool) {
	vars := mux.Vars(r)

	realm, err := s.realmService.Resolve(r.Context(), vars["server"], vars["realm"])
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}

	return realm, true
}
