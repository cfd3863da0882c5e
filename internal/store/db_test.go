package store_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"atrium-jazz/internal/models"
	"atrium-jazz/internal/store"
	"atrium-jazz/internal/testinfra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedVenue(t *testing.T, db *store.DB, name, slug string) *models.Venue {
	t.Helper()
	v := &models.Venue{Name: name, Slug: slug, URL: "https://example.com/" + slug}
	require.NoError(t, db.UpsertVenue(context.Background(), v))
	return v
}

func seedEvent(t *testing.T, db *store.DB, venueID, name, date string, setTimes ...string) *models.Event {
	t.Helper()
	e := &models.Event{
		Name:       name,
		Slug:       name + "-" + date,
		DateString: date,
		SetTimes:   setTimes,
		VenueID:    venueID,
	}
	require.NoError(t, db.UpsertEvent(context.Background(), e))
	return e
}

func TestUpsertVenueKeepsOneRowPerName(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()

	first := &models.Venue{Name: "Smalls", Slug: "smalls", URL: "https://smalls.example/a"}
	require.NoError(t, db.UpsertVenue(ctx, first))

	second := &models.Venue{Name: "Smalls", Slug: "smalls", URL: "https://smalls.example/b"}
	require.NoError(t, db.UpsertVenue(ctx, second))

	assert.Equal(t, first.ID, second.ID, "second upsert should resolve to the existing row")
	assert.Equal(t, "https://smalls.example/b", second.URL)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Venues)
}

func TestUpsertVenueLeavesAdminFieldsAlone(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()

	v := seedVenue(t, db, "Mezzrow", "mezzrow")
	hide := true
	desc := "Piano room"
	_, err := db.UpdateVenue(ctx, "mezzrow", store.VenueUpdate{Hide: &hide, Description: &desc})
	require.NoError(t, err)

	again := &models.Venue{Name: "Mezzrow", Slug: "mezzrow", URL: "https://mezzrow.example"}
	require.NoError(t, db.UpsertVenue(ctx, again))

	assert.Equal(t, v.ID, again.ID)
	assert.True(t, again.Hide)
	assert.Equal(t, "Piano room", again.Description)
	assert.Equal(t, "https://mezzrow.example", again.URL)
}

func TestUpsertEventOverwritesMutableFields(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Village Vanguard", "village-vanguard")

	first := &models.Event{
		Name: "John Doe Quartet", Slug: "jdq-1", DateString: "2025-06-01",
		SetTimes: []string{"19:00"}, URL: "https://vv.example/1", VenueID: v.ID,
	}
	require.NoError(t, db.UpsertEvent(ctx, first))

	second := &models.Event{
		Name: "John Doe Quartet", Slug: "jdq-1", DateString: "2025-06-01",
		SetTimes: []string{"19:00", "21:00"}, URL: "https://vv.example/2",
		Logline: "Hard bop", VenueID: v.ID,
	}
	require.NoError(t, db.UpsertEvent(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"19:00", "21:00"}, second.SetTimes)
	assert.Equal(t, "https://vv.example/2", second.URL)
	assert.Equal(t, "Hard bop", second.Logline)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Events)
}

func TestUpsertEventDistinctKeys(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	a := seedVenue(t, db, "Smalls", "smalls")
	b := seedVenue(t, db, "Mezzrow", "mezzrow")

	seedEvent(t, db, a.ID, "Jam Session", "2025-06-01")
	seedEvent(t, db, a.ID, "Jam Session", "2025-06-02")
	e := &models.Event{Name: "Jam Session", Slug: "jam-mezzrow", DateString: "2025-06-01", VenueID: b.ID}
	require.NoError(t, db.UpsertEvent(ctx, e))

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Events)
	assert.Equal(t, []string{}, e.SetTimes)
}

func TestPerformerUpsertAndIdempotentLink(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")
	e := seedEvent(t, db, v.ID, "Late Set", "2025-06-01")

	p1 := &models.Performer{Name: "Jane Smith", Instrument: "piano"}
	require.NoError(t, db.UpsertPerformer(ctx, p1))
	p2 := &models.Performer{Name: "Jane Smith", Instrument: "piano"}
	require.NoError(t, db.UpsertPerformer(ctx, p2))
	p3 := &models.Performer{Name: "Jane Smith", Instrument: "vocals"}
	require.NoError(t, db.UpsertPerformer(ctx, p3))

	assert.Equal(t, p1.ID, p2.ID)
	assert.NotEqual(t, p1.ID, p3.ID)

	require.NoError(t, db.LinkPerformer(ctx, e.ID, p1.ID))
	require.NoError(t, db.LinkPerformer(ctx, e.ID, p1.ID))

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Performers)
	assert.Equal(t, 1, counts.EventPerformers)
}

func TestUpsertArtistReplacesLists(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()

	a := &models.ArtistProfile{Name: "John Doe", YoutubeURLs: []string{"https://yt/1", "https://yt/2"}}
	require.NoError(t, db.UpsertArtist(ctx, a))

	b := &models.ArtistProfile{Name: "John Doe", Website: "https://johndoe.example", YoutubeURLs: []string{"https://yt/3"}}
	require.NoError(t, db.UpsertArtist(ctx, b))

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, []string{"https://yt/3"}, b.YoutubeURLs)
	assert.Equal(t, "https://johndoe.example", b.Website)
}

func TestLinkArtistEventsSubstringCaseInsensitive(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")

	quartet := seedEvent(t, db, v.ID, "John Doe Quartet", "2025-06-01")
	trio := seedEvent(t, db, v.ID, "Jane Smith Trio", "2025-06-01")
	shouting := seedEvent(t, db, v.ID, "JOHN DOE TRIO", "2025-06-02")

	artist := &models.ArtistProfile{Name: "John Doe"}
	require.NoError(t, db.UpsertArtist(ctx, artist))

	n, err := db.LinkArtistEvents(ctx, artist.ID, artist.Name)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, tc := range []struct {
		event *models.Event
		want  string
	}{
		{quartet, artist.ID},
		{trio, ""},
		{shouting, artist.ID},
	} {
		got, err := db.GetEventBySlug(ctx, tc.event.Slug)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.ArtistID, tc.event.Name)
	}
}

func TestLinkArtistEventsTreatsWildcardsLiterally(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")

	seedEvent(t, db, v.ID, "100% Groove", "2025-06-01")
	seedEvent(t, db, v.ID, "100 Groove", "2025-06-01")

	n, err := db.LinkArtistEvents(ctx, "artist-1", "100%")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%John Doe%", store.ContainsPattern("John Doe"))
	assert.Equal(t, "%50!% OFF!_now!!%", store.ContainsPattern("50% OFF_now!"))
}

func TestLinkArtistEventsNonASCIIName(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")
	seedEvent(t, db, v.ID, "ÉLODIE TRIO", "2025-06-01")
	seedEvent(t, db, v.ID, "Élodie Quartet", "2025-06-02")

	n, err := db.LinkArtistEvents(ctx, "artist-1", "Élodie")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsertVenueSlugCollision(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()

	first := seedVenue(t, db, "Smalls", "smalls")
	second := seedVenue(t, db, "SMALLS", "smalls")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "smalls", first.Slug)
	assert.NotEqual(t, "smalls", second.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "smalls-"))

	again := &models.Venue{Name: "SMALLS", Slug: "smalls", URL: "https://smalls.example"}
	require.NoError(t, db.UpsertVenue(ctx, again))
	assert.Equal(t, second.ID, again.ID)
	assert.Equal(t, second.Slug, again.Slug)

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Venues)
}

func TestUpsertEventSlugCollision(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")

	upper := &models.Event{Name: "John Doe Trio", Slug: "john-doe-trio", DateString: "2025-06-01", VenueID: v.ID}
	lower := &models.Event{Name: "John Doe trio", Slug: "john-doe-trio", DateString: "2025-06-01", VenueID: v.ID}
	require.NoError(t, db.UpsertEvent(ctx, upper))
	require.NoError(t, db.UpsertEvent(ctx, lower))

	assert.NotEqual(t, upper.ID, lower.ID)
	assert.Equal(t, "john-doe-trio", upper.Slug)
	assert.True(t, strings.HasPrefix(lower.Slug, "john-doe-trio-"))

	// an empty wish still yields a usable slug
	blank := &models.Event{Name: "???", DateString: "2025-06-01", VenueID: v.ID}
	require.NoError(t, db.UpsertEvent(ctx, blank))
	assert.NotEmpty(t, blank.Slug)
}

func TestDeleteEventCascadesLineup(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")
	e := seedEvent(t, db, v.ID, "Late Set", "2025-06-01")
	p := &models.Performer{Name: "Jane Smith", Instrument: "piano"}
	require.NoError(t, db.UpsertPerformer(ctx, p))
	require.NoError(t, db.LinkPerformer(ctx, e.ID, p.ID))

	require.NoError(t, db.DeleteEvent(ctx, e.ID))

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Events)
	assert.Equal(t, 0, counts.EventPerformers)
	assert.Equal(t, 1, counts.Performers)

	err = db.DeleteEvent(ctx, e.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDeleteVenueBySlugCascades(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	keep := seedVenue(t, db, "Mezzrow", "mezzrow")
	gone := seedVenue(t, db, "Smalls", "smalls")

	seedEvent(t, db, keep.ID, "Piano Night", "2025-06-01")
	e := seedEvent(t, db, gone.ID, "Late Set", "2025-06-01")
	seedEvent(t, db, gone.ID, "Early Set", "2025-06-02")
	p := &models.Performer{Name: "Jane Smith", Instrument: "piano"}
	require.NoError(t, db.UpsertPerformer(ctx, p))
	require.NoError(t, db.LinkPerformer(ctx, e.ID, p.ID))

	require.NoError(t, db.DeleteVenueBySlug(ctx, "smalls"))

	counts, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Venues)
	assert.Equal(t, 1, counts.Events)
	assert.Equal(t, 0, counts.EventPerformers)

	err = db.DeleteVenueBySlug(ctx, "smalls")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDeleteArtistUnlinksEvents(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()
	v := seedVenue(t, db, "Smalls", "smalls")
	e := seedEvent(t, db, v.ID, "John Doe Quartet", "2025-06-01")

	artist := &models.ArtistProfile{Name: "John Doe"}
	require.NoError(t, db.UpsertArtist(ctx, artist))
	_, err := db.LinkArtistEvents(ctx, artist.ID, artist.Name)
	require.NoError(t, err)

	require.NoError(t, db.DeleteArtist(ctx, artist.ID))

	got, err := db.GetEventBySlug(ctx, e.Slug)
	require.NoError(t, err)
	assert.Empty(t, got.ArtistID)
	assert.Nil(t, got.Artist)

	assert.True(t, errors.Is(db.DeleteArtist(ctx, artist.ID), sql.ErrNoRows))
}

func TestUpdateArtist(t *testing.T) {
	db := testinfra.NewSQLite(t)
	ctx := context.Background()

	artist := &models.ArtistProfile{Name: "John Doe"}
	require.NoError(t, db.UpsertArtist(ctx, artist))

	artist.Biography = "Saxophonist from Detroit."
	artist.YoutubeURLs = []string{"https://yt/9"}
	require.NoError(t, db.UpdateArtist(ctx, artist))

	got, err := db.GetArtistByID(ctx, artist.ID, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Saxophonist from Detroit.", got.Biography)
	assert.Equal(t, []string{"https://yt/9"}, got.YoutubeURLs)

	missing := &models.ArtistProfile{ID: "nope", Name: "Nobody"}
	assert.True(t, errors.Is(db.UpdateArtist(ctx, missing), sql.ErrNoRows))
}
