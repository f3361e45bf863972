package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/search"
)

// ChatReply is the answer to one guest message. Nothing is persisted.
type ChatReply struct {
	Reply    string             `json:"reply"`
	Mentions []string           `json:"mentions"`
	Matches  []domain.WineMatch `json:"matches"`
}

// ChatService answers guest questions about a venue's list, grounding the
// reply on the wines mentioned in the message.
type ChatService struct {
	Matches *MatchService
	AI      ai.Client
	Model   string
	Policy  CallPolicy

	// MaxMessageRunes caps the guest message; 0 disables the check.
	MaxMessageRunes int
	// Deadline bounds one reply, retries included. Zero means none.
	Deadline time.Duration
}

// NewChatService constructs a ChatService with a 1000 rune message cap.
func NewChatService(m *MatchService, c ai.Client, model string, p CallPolicy) *ChatService {
	return &ChatService{Matches: m, AI: c, Model: model, Policy: p, MaxMessageRunes: 1000}
}

// Reply extracts wine mentions from message, matches them against the
// venue's list and asks the model for a short sommelier answer.
func (s *ChatService) Reply(parent context.Context, venueID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}

	ctx, cancel := withDeadline(parent, s.Deadline)
	defer cancel()
	ctx, span := otel.Tracer("services/chat").Start(ctx, "Reply",
		trace.WithAttributes(attribute.String("venue.id", venueID)))
	defer span.End()

	venue, inv, err := s.Matches.Inventory(ctx, venueID)
	if err != nil {
		err = deadlineError(parent, ctx, err)
		span.RecordError(err)
		return nil, err
	}

	mentions := search.ExtractMentions(message)
	matches := s.Matches.Matcher.MatchAll(mentions, inv)
	span.SetAttributes(attribute.Int("mentions", len(mentions)), attribute.Int("matches", len(matches)))

	req := ai.Request{
		Model:       s.Model,
		System:      chatSystem,
		Prompt:      chatPrompt(venue.Name, renderWines(matches), message),
		Temperature: 0.7,
	}
	text, err := callStage(ctx, s.Policy, StageChat, func(ctx context.Context) (string, error) {
		res, err := s.AI.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		logUsage(ctx, s.AI, req, res)
		return strings.TrimSpace(res.Text), nil
	})
	if err != nil {
		err = deadlineError(parent, ctx, err)
		stageOutcomes.WithLabelValues(StageChat, outcomeLabel(err)).Inc()
		span.RecordError(err)
		return nil, err
	}
	stageOutcomes.WithLabelValues(StageChat, "continue").Inc()
	zerolog.Ctx(ctx).Debug().Int("mentions", len(mentions)).Int("matches", len(matches)).Msg("chat reply generated")

	return &ChatReply{Reply: text, Mentions: mentions, Matches: matches}, nil
}

// renderWines lists matched wines one per line for the prompt.
func renderWines(ms []domain.WineMatch) string {
	if len(ms) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, m := range ms {
		w := m.Wine
		fmt.Fprintf(&b, "- %s", w.Name)
		if w.Producer != "" {
			fmt.Fprintf(&b, " by %s", w.Producer)
		}
		if w.Vintage != nil {
			fmt.Fprintf(&b, ", %d", *w.Vintage)
		}
		if w.Grape != "" {
			fmt.Fprintf(&b, ", %s", w.Grape)
		}
		if w.Region != "" {
			fmt.Fprintf(&b, ", %s", w.Region)
		}
		fmt.Fprintf(&b, ", %.2f", w.Price)
		if w.RatingCount > 0 {
			fmt.Fprintf(&b, ", rated %.1f/5 by %d guests", w.AvgRating, w.RatingCount)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
