// Package domain defines the persistence models for venues, their wine
// lists and guest ratings, together with the request-scoped values produced
// by the label pipeline. The persistence types are mapped with GORM and are
// read-only to the scanning and matching code.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Venue is a restaurant or bar that curates its own wine list.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name; unique among live venues.
//   - City: optional location hint.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Venue struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null;uniqueIndex:ux_venue_name"`
	City      string         `json:"city,omitempty" gorm:"type:varchar(128)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Venue.
func (Venue) TableName() string { return "venues" }

// Wine is one entry on a venue's list. Vintage is nil for non-vintage
// bottlings. Price is expressed in the venue's currency.
type Wine struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	VenueID   string         `json:"venue_id"   gorm:"type:char(36);not null;index:idx_venue_wines,priority:1"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null;index:idx_venue_wines,priority:2"`
	Producer  string         `json:"producer,omitempty" gorm:"type:varchar(255)"`
	Vintage   *int           `json:"vintage,omitempty"`
	Region    string         `json:"region,omitempty"   gorm:"type:varchar(255)"`
	Grape     string         `json:"grape,omitempty"    gorm:"type:varchar(255)"`
	Type      string         `json:"type,omitempty"     gorm:"type:varchar(32)"`
	Price     float64        `json:"price"      gorm:"not null;default:0;check:price >= 0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Venue owns the wine. Wines are cascade-deleted with their venue.
	Venue Venue `json:"-" gorm:"foreignKey:VenueID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Wine.
func (Wine) TableName() string { return "wines" }

// Rating is a guest score for a wine, from 1 to 5. A guest rates a wine once.
type Rating struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	WineID    string    `json:"wine_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_rating_wine_user"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_rating_wine_user"`
	Value     int       `json:"value"    gorm:"not null;check:value BETWEEN 1 AND 5"`
	CreatedAt time.Time `json:"created_at"`

	Wine Wine `json:"-" gorm:"foreignKey:WineID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "ratings" }

// WineWithRatings is an inventory entry as seen by the matcher: the wine
// plus its aggregated guest ratings.
type WineWithRatings struct {
	Wine
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int64   `json:"rating_count"`
}
