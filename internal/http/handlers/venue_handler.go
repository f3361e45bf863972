// Venue inventory HTTP handlers.
//
// This file exposes read-only endpoints over a venue's wine list:
//   - POST /venues/{id}/match   (rank the list against a free-text descriptor)
//   - GET  /venues/{id}/wines   (list, paginated, ETag support)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/repo"
	"github.com/tbourn/go-wine-scanner/internal/services"
	"github.com/tbourn/go-wine-scanner/internal/utils"
)

//
// DTOs
//

// MatchRequest is the JSON payload for a free-text inventory match.
type MatchRequest struct {
	// Query describes the wine, e.g. what a guest read off a label.
	Query string `json:"query" binding:"required,min=1" example:"Conterno Barolo 2018"`
}

// MatchResponse carries the ranked matches for a query.
type MatchResponse struct {
	VenueID string             `json:"venue_id"`
	Query   string             `json:"query"`
	Matches []domain.WineMatch `json:"matches"`
}

// ListWinesResponse wraps a page of wines and pagination information.
type ListWinesResponse struct {
	VenueID    string                   `json:"venue_id"`
	Wines      []domain.WineWithRatings `json:"wines"`
	Pagination Pagination               `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	page, pageSize, _ = utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
		false,
	)
	return
}

//
// Handlers
//

// MatchWines godoc
// @ID          matchWines
// @Summary     Match a descriptor against a venue's list
// @Description Ranks the venue's wines by similarity to the query (name, producer, grape/region, vintage).
// @Tags        Venues
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Venue ID (UUID)"  format(uuid)
// @Param       body  body  handlers.MatchRequest  true  "Descriptor"
//
// @Success     200  {object}  handlers.MatchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Venue not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /venues/{id}/match [post]
func (h *Handlers) MatchWines(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "query required")
		return
	}
	venueID := c.Param("id")

	matches, err := h.invSvc.Match(c.Request.Context(), venueID, req.Query)
	if err != nil {
		failFromService(c, err, 0)
		return
	}
	if matches == nil {
		matches = []domain.WineMatch{}
	}
	ok(c, http.StatusOK, MatchResponse{VenueID: venueID, Query: req.Query, Matches: matches})
}

// ListWines godoc
// @ID          listWines
// @Summary     List a venue's wines (paginated)
// @Description Returns a page of the venue's wines with aggregated guest ratings. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Venues
// @Produce     json
//
// @Param       id             path    string  true  "Venue ID (UUID)"              format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"wines:abc:3:1700000000:2:1:20\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListWinesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Venue not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /venues/{id}/wines [get]
func (h *Handlers) ListWines(c *gin.Context) {
	ctx := c.Request.Context()
	venueID := c.Param("id")
	page, pageSize := clampPagination(c)

	etag := h.winesETag(c, venueID, page, pageSize)
	if notModified(c, etag) {
		return
	}

	items, total, err := h.invSvc.ListWines(ctx, venueID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrVenueNotFound) {
			failFromService(c, err, 0)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list wines")
		return
	}
	if items == nil {
		items = []domain.WineWithRatings{}
	}
	if etag != "" {
		c.Header("ETag", etag)
	}
	ok(c, http.StatusOK, ListWinesResponse{
		VenueID:    venueID,
		Wines:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// winesETag derives a weak ETag from the venue's list size, last update,
// rating count and the requested page. Empty when the stats are unavailable
// or the venue has no wines, so unknown venues still reach the 404 path.
func (h *Handlers) winesETag(c *gin.Context, venueID string, page, pageSize int) string {
	svc, isDB := h.invSvc.(*services.MatchService)
	if !isDB || svc.DB == nil {
		return ""
	}
	count, maxTS, ratings, err := repo.InventoryStats(c.Request.Context(), svc.DB, venueID)
	if err != nil || count == 0 {
		return ""
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	return fmt.Sprintf(`W/"wines:%s:%d:%d:%d:%d:%d"`, venueID, count, ts, ratings, page, pageSize)
}
