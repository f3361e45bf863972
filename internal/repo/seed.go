package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/search"
)

// SeedReport summarizes a SeedInventory run.
type SeedReport struct {
	VenuesCreated int
	VenuesSkipped int
	Wines         int
	Ratings       int
}

// SeedInventory inserts the given venues with their wines and ratings.
// Venues that already exist by name are left untouched, so seeding the same
// file twice is a no-op. Each venue is written in its own transaction.
func SeedInventory(ctx context.Context, db *gorm.DB, venues []search.SeedVenue) (SeedReport, error) {
	var rep SeedReport
	for _, sv := range venues {
		_, err := FindVenueByName(ctx, db, sv.Name)
		if err == nil {
			rep.VenuesSkipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return rep, err
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			now := time.Now().UTC()
			v := &domain.Venue{ID: uuid.NewString(), Name: sv.Name, City: sv.City, CreatedAt: now, UpdatedAt: now}
			if err := tx.Create(v).Error; err != nil {
				return err
			}
			for _, sw := range sv.Wines {
				w := &domain.Wine{
					ID:        uuid.NewString(),
					VenueID:   v.ID,
					Name:      sw.Name,
					Producer:  sw.Producer,
					Region:    sw.Region,
					Grape:     sw.Grape,
					Type:      sw.Type,
					Price:     sw.Price,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if sw.Vintage > 0 {
					y := sw.Vintage
					w.Vintage = &y
				}
				if err := tx.Create(w).Error; err != nil {
					return fmt.Errorf("wine %q: %w", sw.Name, err)
				}
				rep.Wines++
				for i, val := range sw.Ratings {
					r := &domain.Rating{
						ID:        uuid.NewString(),
						WineID:    w.ID,
						UserID:    fmt.Sprintf("seed-%d", i+1),
						Value:     val,
						CreatedAt: now,
					}
					if err := tx.Create(r).Error; err != nil {
						return fmt.Errorf("rating for %q: %w", sw.Name, err)
					}
					rep.Ratings++
				}
			}
			return nil
		})
		if err != nil {
			return rep, fmt.Errorf("seed venue %q: %w", sv.Name, err)
		}
		rep.VenuesCreated++
	}
	return rep, nil
}
