// Label scan HTTP handler.
//
// This file exposes the photo pipeline:
//   - POST /scan   (validate, classify, read and enrich a wine label photo)
//
// A photo that is too blurry to read is not an error: the response is a 200
// with success=false and a message asking for a clearer photo.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wine-scanner/internal/imaging"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

// ScanLabelRequest is the JSON payload for a label scan.
type ScanLabelRequest struct {
	// Image is the photo as base64 or a data URL.
	Image string `json:"image" binding:"required" example:"data:image/jpeg;base64,/9j/4AAQSkZJRg..."`
	// MediaType is required unless Image is a data URL carrying one.
	MediaType string `json:"media_type,omitempty" example:"image/jpeg"`
	// VenueID optionally reconciles the label against that venue's list.
	VenueID string `json:"venue_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// ScanLabel godoc
// @ID          scanLabel
// @Summary     Scan a wine label photo
// @Description Validates the photo, rejects images that are confidently not wine related, reads the label,
// @Description enriches it into a structured profile and, when venue_id is given, matches it against that
// @Description venue's list. Low-confidence reads return 200 with success=false and a guidance message.
// @Tags        Scan
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID  header  string  false "Splits the per-IP quota when TRUST_CLIENT_ID is set"  example(kiosk-7)
// @Param       body         body    handlers.ScanLabelRequest  true  "Label photo"
//
// @Success     200  {object}  services.ScanOutcome
// @Header      200  {integer} X-RateLimit-Limit      "Requests allowed per window"
// @Header      200  {integer} X-RateLimit-Remaining  "Requests left in the window"
// @Header      200  {integer} X-RateLimit-Reset      "Seconds until the window resets"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid image"
// @Failure     404  {object}  handlers.ErrorResponse  "Venue not found"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     422  {object}  handlers.ErrorResponse  "Not a wine label"
// @Failure     429  {object}  middleware.RateLimitedResponse  "Rate limited"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream model failure"
// @Failure     504  {object}  handlers.ErrorResponse  "Request deadline exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /scan [post]
func (h *Handlers) ScanLabel(c *gin.Context) {
	var req ScanLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "image required")
		return
	}

	out, err := h.scanSvc.Run(c.Request.Context(), services.ScanRequest{
		Image: imaging.Payload{
			Data:      req.Image,
			MediaType: strings.TrimSpace(req.MediaType),
		},
		VenueID: strings.TrimSpace(req.VenueID),
	})
	if err != nil {
		failFromService(c, err, 0)
		return
	}
	ok(c, http.StatusOK, out)
}
