// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read-only venue inventory lookup.
//
// All functions are context-aware and accept a *gorm.DB handle. Missing
// venues surface as gorm.ErrRecordNotFound (ErrNotFound).
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ratingAgg joins each wine with its rating average and count.
const ratingAgg = `LEFT JOIN (
	SELECT wine_id, AVG(value) AS avg_rating, COUNT(*) AS rating_count
	FROM ratings GROUP BY wine_id
) r ON r.wine_id = wines.id`

func winesWithRatings(ctx context.Context, db *gorm.DB, venueID string) *gorm.DB {
	return db.WithContext(ctx).
		Model(&domain.Wine{}).
		Select("wines.*, COALESCE(r.avg_rating, 0) AS avg_rating, COALESCE(r.rating_count, 0) AS rating_count").
		Joins(ratingAgg).
		Where("wines.venue_id = ?", venueID).
		Order("wines.name ASC, wines.id ASC")
}

// GetVenue fetches a venue by ID.
func GetVenue(ctx context.Context, db *gorm.DB, id string) (*domain.Venue, error) {
	var v domain.Venue
	if err := db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// FindVenueByName fetches a venue by its unique name.
func FindVenueByName(ctx context.Context, db *gorm.DB, name string) (*domain.Venue, error) {
	var v domain.Venue
	if err := db.WithContext(ctx).Where("name = ?", name).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVenues returns all venues ordered by name.
func ListVenues(ctx context.Context, db *gorm.DB) ([]domain.Venue, error) {
	var out []domain.Venue
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// VenueInventory returns all wines of a venue with rating aggregates,
// ordered by name. A venue without wines yields an empty slice.
func VenueInventory(ctx context.Context, db *gorm.DB, venueID string) ([]domain.WineWithRatings, error) {
	out := []domain.WineWithRatings{}
	err := winesWithRatings(ctx, db, venueID).Scan(&out).Error
	return out, err
}

// CountVenueWines returns the number of wines listed by a venue.
func CountVenueWines(ctx context.Context, db *gorm.DB, venueID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Wine{}).
		Where("venue_id = ?", venueID).
		Count(&total).Error
	return total, err
}

// ListVenueWinesPage returns one page of a venue's wines with rating
// aggregates. The caller computes offset and limit.
func ListVenueWinesPage(ctx context.Context, db *gorm.DB, venueID string, offset, limit int) ([]domain.WineWithRatings, error) {
	out := []domain.WineWithRatings{}
	err := winesWithRatings(ctx, db, venueID).Offset(offset).Limit(limit).Scan(&out).Error
	return out, err
}

// Inventory adapts the package functions to services.InventoryRepo.
type Inventory struct{}

func (Inventory) GetVenue(ctx context.Context, db *gorm.DB, id string) (*domain.Venue, error) {
	return GetVenue(ctx, db, id)
}

func (Inventory) VenueInventory(ctx context.Context, db *gorm.DB, venueID string) ([]domain.WineWithRatings, error) {
	return VenueInventory(ctx, db, venueID)
}

func (Inventory) CountVenueWines(ctx context.Context, db *gorm.DB, venueID string) (int64, error) {
	return CountVenueWines(ctx, db, venueID)
}

func (Inventory) ListVenueWinesPage(ctx context.Context, db *gorm.DB, venueID string, offset, limit int) ([]domain.WineWithRatings, error) {
	return ListVenueWinesPage(ctx, db, venueID, offset, limit)
}
