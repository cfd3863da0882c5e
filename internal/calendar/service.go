// Package calendar serves the public listings and the admin back office on top
// of the ingested data.
package calendar

import (
	"context"
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"atrium-jazz/internal/config"
	"atrium-jazz/internal/models"
	"atrium-jazz/internal/store"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// CalendarDB is the persistence the service reads and edits through.
type CalendarDB interface {
	ListEvents(ctx context.Context, from, to string) ([]models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	GetVenueBySlug(ctx context.Context, slug, from, to string) (*models.Venue, error)
	ListVisibleVenues(ctx context.Context) ([]models.Venue, error)
	GetArtistByID(ctx context.Context, id, from, to string) (*models.ArtistProfile, error)

	UpdateVenue(ctx context.Context, slug string, upd store.VenueUpdate) (*models.Venue, error)
	DeleteVenueBySlug(ctx context.Context, slug string) error
	DeleteEvent(ctx context.Context, id string) error
	UpdateArtist(ctx context.Context, a *models.ArtistProfile) error
	DeleteArtist(ctx context.Context, id string) error
}

type Service struct {
	DB   CalendarDB
	Site config.SiteConfig
	// Now is swapped in tests.
	Now func() time.Time

	validate *validator.Validate
}

func NewService(db CalendarDB, site config.SiteConfig) *Service {
	return &Service{
		DB:       db,
		Site:     site,
		Now:      time.Now,
		validate: validator.New(),
	}
}

// ---------------- DATE WINDOW ----------------

// Window is an inclusive range of calendar dates (YYYY-MM-DD).
type Window struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
}

// DefaultWindow runs from today in the site time zone through DaysAhead days
// later.
func (s *Service) DefaultWindow() Window {
	today := s.Now().In(s.Site.Location())
	return Window{
		From: today.Format(dateLayout),
		To:   today.AddDate(0, 0, s.Site.DaysAhead).Format(dateLayout),
	}
}

// ParseWindow fills missing bounds from the default window and validates the
// result.
func (s *Service) ParseWindow(from, to string) (Window, error) {
	w := s.DefaultWindow()
	if from != "" {
		w.From = from
	}
	if to != "" {
		w.To = to
	}
	if err := s.validate.Struct(w); err != nil {
		return Window{}, fmt.Errorf("%w: dates must be YYYY-MM-DD", ErrInvalidInput)
	}
	if w.From > w.To {
		return Window{}, fmt.Errorf("%w: from is after to", ErrInvalidInput)
	}
	return w, nil
}

// ---------------- PUBLIC READS ----------------

// Events lists events in w at visible venues, ordered by date, first set time
// and name. Events without a set time sort last within their date.
func (s *Service) Events(ctx context.Context, w Window) ([]models.Event, error) {
	events, err := s.DB.ListEvents(ctx, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	SortEvents(events)
	return events, nil
}

func SortEvents(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		if a.DateString != b.DateString {
			return a.DateString < b.DateString
		}
		at, bt := a.FirstSetTime(), b.FirstSetTime()
		if at != bt {
			if at == "" || bt == "" {
				return bt == ""
			}
			return at < bt
		}
		return a.Name < b.Name
	})
}

func (s *Service) Event(ctx context.Context, slug string) (*models.Event, error) {
	event, err := s.DB.GetEventBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "event %s", slug)
	}
	if event.Venue != nil && event.Venue.Hide {
		return nil, fmt.Errorf("event %s: %w", slug, ErrNotFound)
	}
	return event, nil
}

// Venue returns a visible venue with its events in the default window.
func (s *Service) Venue(ctx context.Context, slug string) (*models.Venue, error) {
	w := s.DefaultWindow()
	venue, err := s.DB.GetVenueBySlug(ctx, slug, w.From, w.To)
	if err != nil {
		return nil, notFound(err, "venue %s", slug)
	}
	if venue.Hide {
		return nil, fmt.Errorf("venue %s: %w", slug, ErrNotFound)
	}
	SortEvents(venue.Events)
	return venue, nil
}

// Artist returns an artist profile with its events in the default window.
func (s *Service) Artist(ctx context.Context, id string) (*models.ArtistProfile, error) {
	w := s.DefaultWindow()
	artist, err := s.DB.GetArtistByID(ctx, id, w.From, w.To)
	if err != nil {
		return nil, notFound(err, "artist %s", id)
	}
	SortEvents(artist.Events)
	return artist, nil
}

// ---------------- SITEMAP ----------------

type sitemapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap lists the home page, upcoming events and visible venues.
func (s *Service) Sitemap(ctx context.Context) ([]byte, error) {
	events, err := s.Events(ctx, s.DefaultWindow())
	if err != nil {
		return nil, err
	}
	venues, err := s.DB.ListVisibleVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	base := strings.TrimRight(s.Site.BaseURL, "/")
	locs := make([]string, 0, 1+len(events)+len(venues))
	locs = append(locs, base+"/")
	for _, e := range events {
		locs = append(locs, base+"/event/"+e.Slug)
	}
	for _, v := range venues {
		locs = append(locs, base+"/venue/"+v.Slug)
	}

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, loc := range locs {
		set.URLs = append(set.URLs, sitemapURL{Loc: loc, ChangeFreq: "daily", Priority: "0.7"})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// ---------------- ADMIN ----------------

// VenueInput is the admin venue edit. Nil fields are left unchanged.
type VenueInput struct {
	URL         *string `json:"url" validate:"omitempty,url"`
	GMapsURL    *string `json:"gMapsUrl" validate:"omitempty,url"`
	Description *string `json:"description"`
	Hide        *bool   `json:"hide"`
	Thumbnail   *string `json:"thumbnail" validate:"omitempty,url"`
}

func (s *Service) UpdateVenue(ctx context.Context, slug string, in VenueInput) (*models.Venue, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	venue, err := s.DB.UpdateVenue(ctx, slug, store.VenueUpdate{
		URL:         in.URL,
		GMapsURL:    in.GMapsURL,
		Description: in.Description,
		Hide:        in.Hide,
		Thumbnail:   in.Thumbnail,
	})
	if err != nil {
		return nil, notFound(err, "venue %s", slug)
	}
	return venue, nil
}

func (s *Service) DeleteVenue(ctx context.Context, slug string) error {
	return notFound(s.DB.DeleteVenueBySlug(ctx, slug), "venue %s", slug)
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return notFound(s.DB.DeleteEvent(ctx, id), "event %s", id)
}

// ArtistInput replaces every editable field of an artist profile.
type ArtistInput struct {
	Name            string   `json:"name" validate:"required"`
	Website         string   `json:"website" validate:"omitempty,url"`
	Instagram       string   `json:"instagram"`
	Biography       string   `json:"biography"`
	YoutubeURLs     []string `json:"youtubeUrls" validate:"dive,url"`
	SpotifyTopTrack string   `json:"spotifyTopTrack"`
}

func (s *Service) UpdateArtist(ctx context.Context, id string, in ArtistInput) (*models.ArtistProfile, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	artist := &models.ArtistProfile{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		Website:         in.Website,
		Instagram:       in.Instagram,
		Biography:       in.Biography,
		YoutubeURLs:     in.YoutubeURLs,
		SpotifyTopTrack: in.SpotifyTopTrack,
	}
	if err := s.DB.UpdateArtist(ctx, artist); err != nil {
		return nil, notFound(err, "artist %s", id)
	}
	return artist, nil
}

func (s *Service) DeleteArtist(ctx context.Context, id string) error {
	return notFound(s.DB.DeleteArtist(ctx, id), "artist %s", id)
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func notFound(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
