package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"atrium-jazz/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func New(db *bun.DB) *DB {
	db.RegisterModel((*models.EventPerformer)(nil))
	return &DB{Bun: db}
}

// ---------------- VENUES ----------------

// UpsertVenue inserts the venue or refreshes its url when the name already
// exists. v.ID is replaced with the stored row's ID. v.Slug is only a wish: an
// existing venue keeps its slug and a new one gets a free variant of it.
func (d *DB) UpsertVenue(ctx context.Context, v *models.Venue) error {
	now := time.Now().UTC()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	existing := new(models.Venue)
	err := d.Bun.NewSelect().
		Model(existing).
		Column("slug").
		Where("name = ?", v.Name).
		Limit(1).
		Scan(ctx)
	switch {
	case err == nil:
		v.Slug = existing.Slug
	case errors.Is(err, sql.ErrNoRows):
		if v.Slug, err = d.freeSlug(ctx, (*models.Venue)(nil), v.Slug, v.Name); err != nil {
			return fmt.Errorf("slug for venue %q: %w", v.Name, err)
		}
	default:
		return fmt.Errorf("find venue %q: %w", v.Name, err)
	}
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err = d.Bun.NewInsert().
		Model(v).
		On("CONFLICT (name) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert venue %q: %w", v.Name, err)
	}

	return d.Bun.NewSelect().
		Model(v).
		Where("name = ?", v.Name).
		Limit(1).
		Scan(ctx)
}

// ---------------- EVENTS ----------------

// UpsertEvent inserts the event or overwrites url, logline and set times of
// the row with the same (name, date_string, venue_id). Slugs are resolved the
// same way as in UpsertVenue.
func (d *DB) UpsertEvent(ctx context.Context, e *models.Event) error {
	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	existing := new(models.Event)
	err := d.Bun.NewSelect().
		Model(existing).
		Column("slug").
		Where("name = ?", e.Name).
		Where("date_string = ?", e.DateString).
		Where("venue_id = ?", e.VenueID).
		Limit(1).
		Scan(ctx)
	switch {
	case err == nil:
		e.Slug = existing.Slug
	case errors.Is(err, sql.ErrNoRows):
		key := e.Name + "\x00" + e.DateString + "\x00" + e.VenueID
		if e.Slug, err = d.freeSlug(ctx, (*models.Event)(nil), e.Slug, key); err != nil {
			return fmt.Errorf("slug for event %q on %s: %w", e.Name, e.DateString, err)
		}
	default:
		return fmt.Errorf("find event %q on %s: %w", e.Name, e.DateString, err)
	}
	if e.SetTimes == nil {
		e.SetTimes = []string{}
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err = d.Bun.NewInsert().
		Model(e).
		On("CONFLICT (name, date_string, venue_id) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("logline = EXCLUDED.logline").
		Set("set_times = EXCLUDED.set_times").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert event %q on %s: %w", e.Name, e.DateString, err)
	}

	return d.Bun.NewSelect().
		Model(e).
		Where("name = ?", e.Name).
		Where("date_string = ?", e.DateString).
		Where("venue_id = ?", e.VenueID).
		Limit(1).
		Scan(ctx)
}

// freeSlug returns want if no row of model uses it yet. Otherwise it appends a
// short hash of the natural key, so different keys whose names slugify alike
// get distinct slugs and a re-run derives the same one.
func (d *DB) freeSlug(ctx context.Context, model interface{}, want, key string) (string, error) {
	candidate := want
	for round := 1; ; round++ {
		if candidate != "" {
			taken, err := d.Bun.NewSelect().
				Model(model).
				Where("slug = ?", candidate).
				Exists(ctx)
			if err != nil {
				return "", err
			}
			if !taken {
				return candidate, nil
			}
		}
		suffix := keyHash(key, round)
		if want == "" {
			candidate = suffix
		} else {
			candidate = want + "-" + suffix
		}
	}
}

func keyHash(key string, round int) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s\x00%d", key, round)))
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// ---------------- PERFORMERS ----------------

func (d *DB) UpsertPerformer(ctx context.Context, p *models.Performer) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := d.Bun.NewInsert().
		Model(p).
		On("CONFLICT (name, instrument) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert performer %q (%s): %w", p.Name, p.Instrument, err)
	}

	return d.Bun.NewSelect().
		Model(p).
		Where("name = ?", p.Name).
		Where("instrument = ?", p.Instrument).
		Limit(1).
		Scan(ctx)
}

// LinkPerformer adds the performer to the event lineup. Linking twice is a no-op.
func (d *DB) LinkPerformer(ctx context.Context, eventID, performerID string) error {
	link := &models.EventPerformer{EventID: eventID, PerformerID: performerID}
	_, err := d.Bun.NewInsert().
		Model(link).
		On("CONFLICT (event_id, performer_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("link performer %s to event %s: %w", performerID, eventID, err)
	}
	return nil
}

// ---------------- ARTISTS ----------------

// UpsertArtist inserts the profile or replaces every descriptive field of the
// profile with the same name. List fields are replaced, never merged.
func (d *DB) UpsertArtist(ctx context.Context, a *models.ArtistProfile) error {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.YoutubeURLs == nil {
		a.YoutubeURLs = []string{}
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := d.Bun.NewInsert().
		Model(a).
		On("CONFLICT (name) DO UPDATE").
		Set("website = EXCLUDED.website").
		Set("instagram = EXCLUDED.instagram").
		Set("biography = EXCLUDED.biography").
		Set("youtube_urls = EXCLUDED.youtube_urls").
		Set("spotify_top_track = EXCLUDED.spotify_top_track").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert artist %q: %w", a.Name, err)
	}

	return d.Bun.NewSelect().
		Model(a).
		Where("name = ?", a.Name).
		Limit(1).
		Scan(ctx)
}

// LinkArtistEvents points every event whose name contains artistName
// (case-insensitive, folded by the database) at the artist and returns how many rows changed.
func (d *DB) LinkArtistEvents(ctx context.Context, artistID, artistName string) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("artist_id = ?", artistID).
		Where("lower(name) LIKE lower(?) ESCAPE '!'", ContainsPattern(artistName)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("link events to artist %q: %w", artistName, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern builds a LIKE pattern matching s anywhere, with wildcard
// characters in s taken literally (escape character '!'). Case folding is left
// to the database so both sides fold the same way.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
