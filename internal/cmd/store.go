package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/config"
	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/repo"
	"github.com/tbourn/go-wine-scanner/internal/search"
)

// openStore opens the configured database, migrates it and loads seedPath
// when set. With ephemeral the configured database is ignored and the list
// lives in a private in-memory SQLite database.
func openStore(ctx context.Context, cfg config.Config, seedPath string, ephemeral bool) (*gorm.DB, error) {
	driver, path, dsn := cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL
	if ephemeral {
		driver, path, dsn = "sqlite", fmt.Sprintf("file:winescan_%s?mode=memory&cache=shared", uuid.NewString()), ""
	}

	db, err := repo.Open(driver, path, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if seedPath == "" {
		return db, nil
	}

	venues, err := search.LoadSeed(seedPath)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", seedPath, err)
	}
	rep, err := repo.SeedInventory(ctx, db, venues)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", seedPath, err)
	}
	zerolog.Ctx(ctx).Info().
		Str("path", seedPath).
		Int("venues_created", rep.VenuesCreated).
		Int("venues_skipped", rep.VenuesSkipped).
		Int("wines", rep.Wines).
		Int("ratings", rep.Ratings).
		Msg("inventory seeded")
	return db, nil
}

// resolveVenue accepts a venue id or an exact name. With ref empty it
// returns the only venue when there is exactly one.
func resolveVenue(ctx context.Context, db *gorm.DB, ref string) (*domain.Venue, error) {
	if ref == "" {
		vs, err := repo.ListVenues(ctx, db)
		if err != nil {
			return nil, err
		}
		switch len(vs) {
		case 0:
			return nil, errors.New("no venues loaded")
		case 1:
			return &vs[0], nil
		default:
			return nil, fmt.Errorf("%d venues loaded, pick one with --venue", len(vs))
		}
	}

	if v, err := repo.GetVenue(ctx, db, ref); err == nil {
		return v, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	v, err := repo.FindVenueByName(ctx, db, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("venue %q not found", ref)
	}
	return v, err
}
