package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lotkeeper/internal/models"
)

// defaultSummaryWindow is the range served when from/to are absent
const defaultSummaryWindow = 24 * time.Hour

// parseTimestamp accepts RFC3339 or a naive timestamp, which is assumed
// UTC
func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseTimeRange reads the half-open [from, to) window, defaulting to the
// last 24 hours
func parseTimeRange(r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	to := time.Now().UTC()
	if v := q.Get("to"); v != "" {
		parsed, ok := parseTimestamp(v)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}

	from := to.Add(-defaultSummaryWindow)
	if v := q.Get("from"); v != "" {
		parsed, ok := parseTimestamp(v)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}

	return from, to, true
}

// parseItemID reads the itemId path segment
func parseItemID(r *http.Request) (int64, bool) {
	itemID, err := strconv.ParseInt(mux.Vars(r)["itemId"], 10, 64)
	return itemID, err == nil && itemID > 0
}

// handlePriceHourly returns an item's hourly filtered price distribution.
func (s *Server) handlePriceHourly(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	itemID, ok := parseItemID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid item id", nil)
		return
	}

	from, to, ok := parseTimeRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid time range", nil)
		return
	}

	summaries, err := s.summaryService.PriceHourlySummary(r.Context(), realm.ID, itemID, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if summaries == nil {
		summaries = []*models.ItemPriceHourlySummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"itemId":    itemID,
		"from":      from,
		"to":        to,
		"summaries": summaries,
	})
}

// handleActivityHourly returns an item's hourly market activity.
func (s *Server) handleActivityHourly(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	itemID, ok := parseItemID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid item id", nil)
		return
	}

	from, to, ok := parseTimeRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid time range", nil)
		return
	}

	summaries, err := s.summaryService.ActivityHourlySummary(r.Context(), realm.ID, itemID, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if summaries == nil {
		summaries = []*models.ItemActivityHourlySummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"itemId":    itemID,
		"from":      from,
		"to":        to,
		"summaries": summaries,
	})
}

// handleRealmActivity returns realm-wide activity re-bucketed from the
// stored hourly rollups. The bucket width is given in hours.
func (s *Server) handleRealmActivity(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	from, to, ok := parseTimeRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid time range", nil)
		return
	}

	bucket := time.Hour
	if v, err := strconv.Atoi(r.URL.Query().Get("bucketHours")); err == nil && v > 0 {
		bucket = time.Duration(v) * time.Hour
	}

	rollups, err := s.summaryService.RealmActivityRange(r.Context(), realm.ID, from, to, bucket)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if rollups == nil {
		rollups = []*models.RealmActivityRollup{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":    from,
		"to":      to,
		"buckets": rollups,
	})
}
