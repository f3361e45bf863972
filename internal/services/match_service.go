package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/search"
	"github.com/tbourn/go-wine-scanner/internal/utils"
)

// InventoryRepo is the read-only venue inventory lookup.
type InventoryRepo interface {
	// GetVenue returns gorm.ErrRecordNotFound for unknown IDs.
	GetVenue(ctx context.Context, db *gorm.DB, id string) (*domain.Venue, error)

	// VenueInventory returns every wine of the venue with rating aggregates.
	VenueInventory(ctx context.Context, db *gorm.DB, venueID string) ([]domain.WineWithRatings, error)

	// CountVenueWines returns the number of wines for pagination.
	CountVenueWines(ctx context.Context, db *gorm.DB, venueID string) (int64, error)

	// ListVenueWinesPage returns one page of wines ordered by name.
	ListVenueWinesPage(ctx context.Context, db *gorm.DB, venueID string, offset, limit int) ([]domain.WineWithRatings, error)
}

// MatchService reconciles free text against a venue's wine list.
type MatchService struct {
	DB      *gorm.DB
	Repo    InventoryRepo
	Matcher *search.Matcher
}

// NewMatchService constructs a MatchService. A nil matcher gets defaults.
func NewMatchService(db *gorm.DB, r InventoryRepo, m *search.Matcher) *MatchService {
	if m == nil {
		m = search.NewMatcher()
	}
	return &MatchService{DB: db, Repo: r, Matcher: m}
}

// Inventory loads a venue and its wines. Unknown venues yield ErrVenueNotFound.
func (s *MatchService) Inventory(ctx context.Context, venueID string) (*domain.Venue, []domain.WineWithRatings, error) {
	v, err := s.venue(ctx, venueID)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.Repo.VenueInventory(ctx, s.DB, v.ID)
	if err != nil {
		return nil, nil, err
	}
	return v, inv, nil
}

// Match ranks the venue's wines against query.
func (s *MatchService) Match(ctx context.Context, venueID, query string) ([]domain.WineMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyDescriptor
	}
	ctx, span := otel.Tracer("services/match").Start(ctx, "Match",
		trace.WithAttributes(attribute.String("venue.id", venueID)))
	defer span.End()

	_, inv, err := s.Inventory(ctx, venueID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := s.MatchInventory(query, inv)
	span.SetAttributes(attribute.Int("inventory.size", len(inv)), attribute.Int("matches", len(out)))
	return out, nil
}

// MatchInventory ranks an already loaded inventory. It never fails.
func (s *MatchService) MatchInventory(descriptor string, inv []domain.WineWithRatings) []domain.WineMatch {
	return s.Matcher.Match(descriptor, inv)
}

// ListWines returns a page of the venue's wines and the total count.
func (s *MatchService) ListWines(ctx context.Context, venueID string, page, pageSize int) ([]domain.WineWithRatings, int64, error) {
	_, pageSize, offset := utils.ClampPage(page, pageSize, true)
	v, err := s.venue(ctx, venueID)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountVenueWines(ctx, s.DB, v.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.WineWithRatings{}, 0, nil
	}
	items, err := s.Repo.ListVenueWinesPage(ctx, s.DB, v.ID, offset, pageSize)
	return items, total, err
}

func (s *MatchService) venue(ctx context.Context, id string) (*domain.Venue, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrVenueNotFound
	}
	v, err := s.Repo.GetVenue(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return v, nil
}
