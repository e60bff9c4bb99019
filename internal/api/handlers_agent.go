package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lotkeeper/internal/models"
)

// snapshotRequest is the scraper agent's submission payload: the complete
// set of listings currently visible in the auction house.
type snapshotRequest struct {
	Listings []models.SnapshotListing `json:"listings"`
}

// handleSubmitSnapshot ingests one full auction house snapshot. The realm
// is registered on first submission. A snapshot declined by the anomaly
// guard answers 406 with the guard metrics so the agent can decide whether
// to rescan.
func (s *Server) handleSubmitSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	server := vars["server"]
	realmSlug := vars["realm"]

	var req snapshotRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid request body: "+err.Error(), nil)
		return
	}

	realm, err := s.realmService.Register(r.Context(), server, models.NormalizeRealmSlug(realmSlug))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.ingestService.SubmitSnapshot(r.Context(), realm.ID, req.Listings)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !result.Accepted {
		respondJSON(w, http.StatusNotAcceptable, result)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
