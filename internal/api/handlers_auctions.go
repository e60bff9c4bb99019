package api

import (
	"net/http"
	"strconv"

	"github.com/lotkeeper/internal/models"
	"github.com/lotkeeper/internal/storage"
	"github.com/lotkeeper/internal/types"
)

// parsePagination reads limit/offset query parameters
func parsePagination(r *http.Request) types.Pagination {
	p := types.Pagination{}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		p.Offset = v
	}
	return p
}

// parseListingFilter reads the item metadata filters
func parseListingFilter(r *http.Request) *models.ListingFilter {
	q := r.URL.Query()
	filter := &models.ListingFilter{}
	applied := false

	if v, err := strconv.ParseInt(q.Get("itemId"), 10, 64); err == nil {
		filter.ItemID = &v
		applied = true
	}
	if v := q.Get("name"); v != "" {
		filter.ItemName = &v
		applied = true
	}
	if v, err := strconv.ParseInt(q.Get("quality"), 10, 32); err == nil {
		quality := int32(v)
		filter.ItemQuality = &quality
		applied = true
	}
	if v, err := strconv.ParseInt(q.Get("level"), 10, 32); err == nil {
		level := int32(v)
		filter.ItemLevel = &level
		applied = true
	}
	if v, err := strconv.ParseInt(q.Get("classIndex"), 10, 32); err == nil {
		class := int32(v)
		filter.ItemClass = &class
		applied = true
	}
	if v := q.Get("className"); v != "" {
		filter.ItemClassName = &v
		applied = true
	}

	if !applied {
		return nil
	}
	return filter
}

// parseItemFilter reads the item catalog filters
func parseItemFilter(r *http.Request) *models.ItemFilter {
	q := r.URL.Query()
	filter := &models.ItemFilter{}
	applied := false

	if v, err := strconv.ParseInt(q.Get("itemId"), 10, 64); err == nil {
		filter.ID = &v
		applied = true
	}
	if v := q.Get("name"); v != "" {
		filter.Name = &v
		applied = true
	}
	if v, err := strconv.ParseInt(q.Get("quality"), 10, 32); err == nil {
		quality := int32(v)
		filter.Quality = &quality
		applied = true
	}
	if v, err := strconv.ParseInt(q.Get("level"), 10, 32); err == nil {
		level := int32(v)
		filter.Level = &level
		applied = true
	}
	if v, err := strconv.ParseInt(q.Get("classIndex"), 10, 32); err == nil {
		class := int32(v)
		filter.ClassIndex = &class
		applied = true
	}
	if v := q.Get("className"); v != "" {
		filter.ClassName = &v
		applied = true
	}

	if !applied {
		return nil
	}
	return filter
}

// handleListItems returns one page of a realm's known item catalog.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	page, err := s.auctionService.Items(r.Context(), realm.ID, parseItemFilter(r), parsePagination(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if page.Data == nil {
		page.Data = []*models.Item{}
	}

	respondJSON(w, http.StatusOK, page)
}

// handleBrowseAuctions returns one page of a realm's active listings.
func (s *Server) handleBrowseAuctions(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	page, err := s.auctionService.Browse(r.Context(), realm.ID, parseListingFilter(r), parsePagination(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if page.Data == nil {
		page.Data = []*models.ListingWithItem{}
	}

	respondJSON(w, http.StatusOK, page)
}

// handleDeals returns listings priced below vendor price.
func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	page, err := s.auctionService.Deals(r.Context(), realm.ID, parsePagination(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if page.Data == nil {
		page.Data = []*models.ListingWithItem{}
	}

	respondJSON(w, http.StatusOK, page)
}

// handleTopItems returns the realm's most listed items.
func (s *Server) handleTopItems(w http.ResponseWriter, r *http.Request) {
	realm, ok := s.resolveRealm(w, r)
	if !ok {
		return
	}

	limit := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}

	items, err := s.auctionService.TopItems(r.Context(), realm.ID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if items == nil {
		items = []*storage.TopItem{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
	})
}
