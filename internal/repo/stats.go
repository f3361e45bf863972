// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/domain"
)

// InventoryStats returns aggregate metadata for a venue's list: the number
// of wines, the greatest UpdatedAt among them (nil when empty), and the
// number of ratings on those wines. Any change to the list or its ratings
// changes at least one of the three.
func InventoryStats(ctx context.Context, db *gorm.DB, venueID string) (count int64, maxUpdatedAt *time.Time, ratings int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Wine{}).Where("venue_id = ?", venueID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, 0, err
	}
	if count == 0 {
		return 0, nil, 0, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, 0, err
	}

	err = db.WithContext(ctx).
		Model(&domain.Rating{}).
		Joins("JOIN wines ON wines.id = ratings.wine_id").
		Where("wines.venue_id = ? AND wines.deleted_at IS NULL", venueID).
		Count(&ratings).Error
	if err != nil {
		return 0, nil, 0, err
	}
	return count, &row.UpdatedAt, ratings, nil
}
