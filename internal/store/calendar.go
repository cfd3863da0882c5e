package store

import (
	"context"
	"fmt"
	"time"

	"atrium-jazz/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- CALENDAR QUERIES ----------------

// ListEvents returns events between from and to (inclusive, YYYY-MM-DD) at
// venues that are not hidden, with venue and artist loaded.
func (d *DB) ListEvents(ctx context.Context, from, to string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("Venue").
		Relation("Artist").
		Where("event.date_string >= ?", from).
		Where("event.date_string <= ?", to).
		Where("venue.hide = ?", false).
		Order("event.date_string ASC", "event.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEventBySlug loads one event with venue, artist and lineup.
func (d *DB) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Venue").
		Relation("Artist").
		Relation("Performers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("performer.name ASC")
		}).
		Where("event.slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetVenueBySlug loads a venue and its events in [from, to].
func (d *DB) GetVenueBySlug(ctx context.Context, slug, from, to string) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Relation("Events", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("event.date_string >= ?", from).
				Where("event.date_string <= ?", to).
				Order("event.date_string ASC", "event.name ASC")
		}).
		Where("venue.slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

// ListVisibleVenues returns every venue not flagged hidden, by name.
func (d *DB) ListVisibleVenues(ctx context.Context) ([]models.Venue, error) {
	var venues []models.Venue
	err := d.Bun.NewSelect().
		Model(&venues).
		Where("venue.hide = ?", false).
		Order("venue.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return venues, nil
}

// GetArtistByID loads an artist profile and its events in [from, to] at visible venues.
func (d *DB) GetArtistByID(ctx context.Context, id, from, to string) (*models.ArtistProfile, error) {
	var artist models.ArtistProfile
	err := d.Bun.NewSelect().
		Model(&artist).
		Where("artist.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	err = d.Bun.NewSelect().
		Model(&artist.Events).
		Relation("Venue").
		Where("event.artist_id = ?", id).
		Where("event.date_string >= ?", from).
		Where("event.date_string <= ?", to).
		Where("venue.hide = ?", false).
		Order("event.date_string ASC", "event.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

// ---------------- ADMIN ----------------

// VenueUpdate carries the admin-editable venue fields. Nil means unchanged.
type VenueUpdate struct {
	URL         *string
	GMapsURL    *string
	Description *string
	Hide        *bool
	Thumbnail   *string
}

func (d *DB) UpdateVenue(ctx context.Context, slug string, upd VenueUpdate) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().Model(&venue).Where("venue.slug = ?", slug).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}

	if upd.URL != nil {
		venue.URL = *upd.URL
	}
	if upd.GMapsURL != nil {
		venue.GMapsURL = *upd.GMapsURL
	}
	if upd.Description != nil {
		venue.Description = *upd.Description
	}
	if upd.Hide != nil {
		venue.Hide = *upd.Hide
	}
	if upd.Thumbnail != nil {
		venue.Thumbnail = *upd.Thumbnail
	}
	venue.UpdatedAt = time.Now().UTC()

	_, err = d.Bun.NewUpdate().
		Model(&venue).
		Column("url", "gmaps_url", "description", "hide", "thumbnail", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update venue %s: %w", slug, err)
	}
	return &venue, nil
}

// DeleteVenueBySlug removes a venue together with its events and their lineups.
func (d *DB) DeleteVenueBySlug(ctx context.Context, slug string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var venue models.Venue
		err := tx.NewSelect().Model(&venue).Column("id").Where("venue.slug = ?", slug).Limit(1).Scan(ctx)
		if err != nil {
			return err
		}

		eventIDs := tx.NewSelect().Model((*models.Event)(nil)).Column("id").Where("venue_id = ?", venue.ID)

		if _, err := tx.NewDelete().
			Model((*models.EventPerformer)(nil)).
			Where("event_id IN (?)", eventIDs).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete lineups: %w", err)
		}
		if _, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("venue_id = ?", venue.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		if _, err := tx.NewDelete().
			Model((*models.Venue)(nil)).
			Where("id = ?", venue.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete venue: %w", err)
		}
		return nil
	})
}

// DeleteEvent removes an event and its lineup. Returns sql.ErrNoRows when the
// event does not exist.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Event)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return errNoRows
		}

		if _, err := tx.NewDelete().
			Model((*models.EventPerformer)(nil)).
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete lineup: %w", err)
		}
		_, err = tx.NewDelete().Model((*models.Event)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// UpdateArtist overwrites the editable profile fields.
func (d *DB) UpdateArtist(ctx context.Context, a *models.ArtistProfile) error {
	if a.YoutubeURLs == nil {
		a.YoutubeURLs = []string{}
	}
	a.UpdatedAt = time.Now().UTC()

	res, err := d.Bun.NewUpdate().
		Model(a).
		Column("name", "website", "instagram", "biography", "youtube_urls", "spotify_top_track", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update artist %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNoRows
	}
	return nil
}

// DeleteArtist unlinks the artist's events, then removes the profile.
func (d *DB) DeleteArtist(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("artist_id = NULL").
			Where("artist_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("unlink events: %w", err)
		}

		res, err := tx.NewDelete().Model((*models.ArtistProfile)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errNoRows
		}
		return nil
	})
}
