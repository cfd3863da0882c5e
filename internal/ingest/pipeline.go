// Package ingest loads scraped event pages and artist profiles into the
// calendar database.
//
// Event ingestion runs as a chain of stages: read pages, normalize dates,
// resolve venues, reconcile events, link performers. Artist ingestion is a
// separate pass that must run after the events it should link to are stored.
package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"atrium-jazz/internal/logger"
	"atrium-jazz/internal/models"

	"github.com/gosimple/slug"
)

// Store is the persistence the pipeline writes through. Every method is an
// idempotent upsert, so a failed run can simply be repeated.
type Store interface {
	UpsertVenue(ctx context.Context, v *models.Venue) error
	UpsertEvent(ctx context.Context, e *models.Event) error
	UpsertPerformer(ctx context.Context, p *models.Performer) error
	LinkPerformer(ctx context.Context, eventID, performerID string) error
	UpsertArtist(ctx context.Context, a *models.ArtistProfile) error
	LinkArtistEvents(ctx context.Context, artistID, artistName string) (int, error)
}

// Publisher announces stored events. Failures are logged, never fatal.
type Publisher interface {
	PublishEventUpserted(ctx context.Context, e *models.Event) error
	PublishIngestCompleted(ctx context.Context, stats *Stats) error
}

type noopPublisher struct{}

func (noopPublisher) PublishEventUpserted(context.Context, *models.Event) error { return nil }
func (noopPublisher) PublishIngestCompleted(context.Context, *Stats) error      { return nil }

type Options struct {
	Dates     DateOptions
	Publisher Publisher
	Metrics   *Metrics
}

type Pipeline struct {
	store     Store
	log       *logger.Logger
	dates     DateOptions
	publisher Publisher
	metrics   *Metrics
}

func NewPipeline(store Store, log *logger.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Pipeline{
		store:     store,
		log:       log,
		dates:     opts.Dates,
		publisher: pub,
		metrics:   opts.Metrics,
	}
}

// plannedPage is a page that passed validation, with its dates resolved.
type plannedPage struct {
	EventPage
	Dates []DateGroup
}

// IngestEvents reads every page from r before writing anything, so a
// malformed line aborts the run with no rows touched. Pages missing a title
// or venue and slots missing a date are skipped with a diagnostic.
func (p *Pipeline) IngestEvents(ctx context.Context, r io.Reader) (*Stats, error) {
	stats := &Stats{Kind: KindEvents}

	pages, err := ReadEventPages(r)
	if err != nil {
		return stats, fmt.Errorf("read event pages: %w", err)
	}
	stats.Pages = len(pages)
	stats.FirstDate, stats.LastDate = DateRange(pages)
	p.log.LogIngest("read", "events", fmt.Sprintf("%d pages, raw dates %s to %s",
		len(pages), orNone(stats.FirstDate), orNone(stats.LastDate)))

	byVenue := p.planPages(pages, stats)

	for _, group := range byVenue {
		venue, err := p.resolveVenue(ctx, group)
		if err != nil {
			return stats, err
		}
		stats.Venues++

		for _, page := range group.pages {
			for _, date := range page.Dates {
				event, err := p.reconcileEvent(ctx, venue, page, date)
				if err != nil {
					return stats, err
				}
				stats.Events++

				linked, skipped, err := p.linkPerformers(ctx, event, page.Performers)
				if err != nil {
					return stats, fmt.Errorf("link performers (line %d): %w", page.Line, err)
				}
				stats.PerformerLinks += linked
				stats.SkippedPerformers += skipped
			}
		}
	}

	p.finish(ctx, stats)
	return stats, nil
}

// venueGroup holds the pages of one venue in the order they will be stored.
type venueGroup struct {
	name  string
	url   string
	pages []plannedPage
}

// planPages validates pages, resolves their dates and groups them by venue in
// first-seen order. Pages left without any usable date are skipped, so a
// venue is only stored when at least one of its events is. Within a venue,
// pages are ordered by first date then first set time.
func (p *Pipeline) planPages(pages []EventPage, stats *Stats) []*venueGroup {
	var groups []*venueGroup
	index := make(map[string]*venueGroup)

	for _, page := range pages {
		subject := fmt.Sprintf("line %d", page.Line)
		if missing := missingField(page); missing != "" {
			p.log.LogSkip("validate", subject, fmt.Sprintf("missing %s at %s", missing, orNone(page.Venue)))
			stats.SkippedPages++
			continue
		}

		dates, dropped := NormalizeDates(page.Slots, p.dates)
		for _, d := range dropped {
			p.log.LogSkip("dates", fmt.Sprintf("%s at %s", page.Title, page.Venue), d.Reason)
		}
		stats.DroppedDates += len(dropped)
		if len(dates) == 0 {
			p.log.LogSkip("dates", subject, fmt.Sprintf("no usable dates for %s at %s", page.Title, page.Venue))
			stats.SkippedPages++
			continue
		}

		g, ok := index[page.Venue]
		if !ok {
			url := page.VenueURL
			if url == "" {
				url = page.URL
			}
			g = &venueGroup{name: page.Venue, url: url}
			index[page.Venue] = g
			groups = append(groups, g)
		}
		g.pages = append(g.pages, plannedPage{EventPage: page, Dates: dates})
	}

	for _, g := range groups {
		sort.SliceStable(g.pages, func(i, j int) bool {
			return pageSortKey(g.pages[i]) < pageSortKey(g.pages[j])
		})
	}
	return groups
}

func pageSortKey(p plannedPage) string {
	d := p.Dates[0]
	if len(d.SetTimes) == 0 {
		return d.Date
	}
	return d.Date + " " + d.SetTimes[0]
}

func (p *Pipeline) resolveVenue(ctx context.Context, g *venueGroup) (*models.Venue, error) {
	venue := &models.Venue{
		Name: g.name,
		Slug: slug.Make(g.name),
		URL:  g.url,
	}
	if err := p.store.UpsertVenue(ctx, venue); err != nil {
		return nil, fmt.Errorf("resolve venue: %w", err)
	}
	p.log.LogIngest("venue", venue.Name, fmt.Sprintf("%d pages", len(g.pages)))
	return venue, nil
}

func (p *Pipeline) reconcileEvent(ctx context.Context, venue *models.Venue, page plannedPage, date DateGroup) (*models.Event, error) {
	event := &models.Event{
		Name:       page.Title,
		Slug:       EventSlug(page.Title, venue.Slug, date.Date),
		DateString: date.Date,
		SetTimes:   date.SetTimes,
		URL:        page.URL,
		Logline:    page.Logline,
		VenueID:    venue.ID,
	}
	if err := p.store.UpsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("reconcile event (line %d): %w", page.Line, err)
	}
	p.log.LogIngest("event", event.Name, fmt.Sprintf("%s at %s, sets %s",
		event.DateString, venue.Name, orNone(strings.Join(event.SetTimes, ", "))))

	if err := p.publisher.PublishEventUpserted(ctx, event); err != nil {
		p.log.Warn("KAFKA", fmt.Sprintf("publish event %s: %v", event.ID, err))
	}
	return event, nil
}

// linkPerformers stores each named performer and adds it to the event lineup.
func (p *Pipeline) linkPerformers(ctx context.Context, event *models.Event, performers []PerformerRecord) (linked, skipped int, err error) {
	for _, rec := range performers {
		if missing := missingField(rec); missing != "" {
			p.log.LogSkip("performer", event.Name, "performer without a name")
			skipped++
			continue
		}

		performer := &models.Performer{
			Name:       rec.Name,
			Instrument: NormalizeInstrument(rec.Instrument),
		}
		if err := p.store.UpsertPerformer(ctx, performer); err != nil {
			return linked, skipped, err
		}
		if err := p.store.LinkPerformer(ctx, event.ID, performer.ID); err != nil {
			return linked, skipped, err
		}
		linked++
	}
	return linked, skipped, nil
}

// IngestArtists upserts every artist profile and then links events whose name
// contains the artist name, ignoring case. Run it after IngestEvents.
func (p *Pipeline) IngestArtists(ctx context.Context, r io.Reader) (*Stats, error) {
	stats := &Stats{Kind: KindArtists}

	recs, err := ReadArtistRecords(r)
	if err != nil {
		return stats, fmt.Errorf("read artist profiles: %w", err)
	}
	p.log.LogIngest("read", "artists", fmt.Sprintf("%d profiles", len(recs)))

	for _, rec := range recs {
		if missing := missingField(rec); missing != "" {
			p.log.LogSkip("artist", fmt.Sprintf("line %d", rec.Line), "missing "+missing)
			stats.SkippedArtists++
			continue
		}

		artist := &models.ArtistProfile{
			Name:            rec.Name,
			Website:         rec.Website,
			Instagram:       rec.Instagram,
			Biography:       rec.Biography,
			YoutubeURLs:     rec.YoutubeURLs,
			SpotifyTopTrack: rec.SpotifyTopTrack,
		}
		if err := p.store.UpsertArtist(ctx, artist); err != nil {
			return stats, fmt.Errorf("line %d: %w", rec.Line, err)
		}
		stats.Artists++

		n, err := p.store.LinkArtistEvents(ctx, artist.ID, artist.Name)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", rec.Line, err)
		}
		stats.LinkedEvents += n
		p.log.LogIngest("artist", artist.Name, fmt.Sprintf("linked %d events", n))
	}

	p.finish(ctx, stats)
	return stats, nil
}

func (p *Pipeline) finish(ctx context.Context, stats *Stats) {
	switch stats.Kind {
	case KindEvents:
		p.metrics.add(KindEvents, outcomeStored, stats.Events)
		p.metrics.add(KindEvents, outcomeSkipped, stats.SkippedPages)
		p.metrics.add(KindEvents, outcomeDropped, stats.DroppedDates)
	case KindArtists:
		p.metrics.add(KindArtists, outcomeStored, stats.Artists)
		p.metrics.add(KindArtists, outcomeSkipped, stats.SkippedArtists)
		p.metrics.add(KindArtists, outcomeLinked, stats.LinkedEvents)
	}

	p.log.LogIngest("done", stats.Kind, stats.String())
	if err := p.publisher.PublishIngestCompleted(ctx, stats); err != nil {
		p.log.Warn("KAFKA", fmt.Sprintf("publish %s summary: %v", stats.Kind, err))
	}
}

// NormalizeInstrument lowercases the instrument, defaulting to "unknown".
func NormalizeInstrument(instrument string) string {
	instrument = strings.ToLower(strings.TrimSpace(instrument))
	if instrument == "" {
		return models.UnknownInstrument
	}
	return instrument
}

// EventSlug derives the public slug of an event from its natural key.
func EventSlug(name, venueSlug, date string) string {
	return slug.Make(name + " " + venueSlug + " " + date)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
