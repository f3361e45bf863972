// Venue chat HTTP handlers.
//
// This file declares the service contracts consumed by the HTTP layer, the
// Handlers wiring, and the conversational endpoint:
//   - POST /venues/{id}/chat   (match wines mentioned in a guest message and reply)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

//
// Service contracts (context-aware)
//

// ScanService runs the label pipeline for one photo.
//
// Implementations must honor the provided context: a canceled request
// abandons any outstanding model call.
type ScanService interface {
	Run(ctx context.Context, req services.ScanRequest) (*services.ScanOutcome, error)
}

// InventoryService exposes read-only access to a venue's wine list.
type InventoryService interface {
	// Match ranks the venue's wines against a free-text descriptor.
	Match(ctx context.Context, venueID, query string) ([]domain.WineMatch, error)
	// ListWines returns a page of the venue's wines and the total count.
	ListWines(ctx context.Context, venueID string, page, pageSize int) ([]domain.WineWithRatings, int64, error)
}

// ChatService answers a guest message about a venue's list.
type ChatService interface {
	Reply(ctx context.Context, venueID, message string) (*services.ChatReply, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for label scans, inventory matching and
// venue chat. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	scanSvc ScanService
	invSvc  InventoryService
	chatSvc ChatService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(scanSvc ScanService, invSvc InventoryService, chatSvc ChatService) *Handlers {
	return &Handlers{scanSvc: scanSvc, invSvc: invSvc, chatSvc: chatSvc}
}

//
// DTOs
//

// ChatRequest is the JSON payload for a guest message.
type ChatRequest struct {
	// Message is the guest's question. It must be non-empty.
	Message string `json:"message" binding:"required,min=1" example:"Is the \"Barolo Riserva\" any good with steak?"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxMessageRunes inspects the concrete ChatService for a configured
// message-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxMessageRunes(svc ChatService) int {
	const fallback = 1000
	if cs, ok := svc.(*services.ChatService); ok && cs.MaxMessageRunes > 0 {
		return cs.MaxMessageRunes
	}
	return fallback
}

//
// Handlers
//

// Chat godoc
// @ID          venueChat
// @Summary     Ask about a venue's wine list
// @Description Extracts wine mentions from the guest message, matches them against the venue's list,
// @Description and returns a short sommelier reply grounded on the matched wines. Nothing is persisted.
// @Tags        Venues
// @Accept      json
// @Produce     json
//
// @Param       X-Client-ID  header  string  false "Splits the per-IP quota when TRUST_CLIENT_ID is set"  example(kiosk-7)
// @Param       id           path    string  true  "Venue ID (UUID)"  format(uuid)
// @Param       body         body    handlers.ChatRequest  true  "Guest message"
//
// @Success     200  {object}  services.ChatReply
// @Header      200  {integer} X-RateLimit-Limit      "Requests allowed per window"
// @Header      200  {integer} X-RateLimit-Remaining  "Requests left in the window"
// @Header      200  {integer} X-RateLimit-Reset      "Seconds until the window resets"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Venue not found"
// @Failure     429  {object}  middleware.RateLimitedResponse  "Rate limited"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream model failure"
// @Failure     504  {object}  handlers.ErrorResponse  "Request deadline exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /venues/{id}/chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	maxRunes := discoverMaxMessageRunes(h.chatSvc)

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "message required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	msg := sanitizeContent(req.Message)
	if msg == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	if utf8.RuneCountInString(msg) > maxRunes {
		failFromService(c, services.ErrTooLong, maxRunes)
		return
	}

	reply, err := h.chatSvc.Reply(c.Request.Context(), c.Param("id"), msg)
	if err != nil {
		failFromService(c, err, maxRunes)
		return
	}
	if reply.Matches == nil {
		reply.Matches = []domain.WineMatch{}
	}
	if reply.Mentions == nil {
		reply.Mentions = []string{}
	}
	ok(c, http.StatusOK, reply)
}
