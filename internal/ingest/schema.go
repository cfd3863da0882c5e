package ingest

import (
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// looseString decodes any JSON scalar into its text form. Objects and arrays
// decode to "" so a malformed optional field never fails the whole line.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = looseString(t)
	case float64:
		*s = looseString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(t))
	default:
		*s = ""
	}
	return nil
}

func (s looseString) String() string { return strings.TrimSpace(string(s)) }

// first returns the first non-empty value, so renamed fields can be read in
// newest-first order.
func first(values ...looseString) string {
	for _, v := range values {
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

// ---------------- RAW SHAPES ----------------

// rawEventPage covers every scraped event-page revision seen so far:
// event_name was renamed event_title and events_url was renamed url.
type rawEventPage struct {
	Venue         looseString    `json:"venue"`
	VenueURL      looseString    `json:"venue_url"`
	URL           looseString    `json:"url"`
	EventsURL     looseString    `json:"events_url"`
	EventTitle    looseString    `json:"event_title"`
	EventName     looseString    `json:"event_name"`
	EventLogline  looseString    `json:"event_logline"`
	DatesAndTimes []rawDateTime  `json:"dates_and_times"`
	Performers    []rawPerformer `json:"performers"`
}

type rawDateTime struct {
	Date looseString `json:"date"`
	Time looseString `json:"time"`
}

type rawPerformer struct {
	Name       looseString `json:"name"`
	Instrument looseString `json:"instrument"`
}

// rawArtistProfile accepts youtube_urls as well as the older
// youtube_search_results list.
type rawArtistProfile struct {
	ArtistName           looseString     `json:"artist_name"`
	Website              looseString     `json:"website"`
	Instagram            looseString     `json:"instagram"`
	Biography            looseString     `json:"biography"`
	YoutubeURLs          []looseString   `json:"youtube_urls"`
	YoutubeSearchResults []rawYoutubeHit `json:"youtube_search_results"`
	SpotifyTopTrack      looseString     `json:"spotify_top_track"`
}

type rawYoutubeHit struct {
	WatchURL looseString `json:"watch_url"`
}

// ---------------- CANONICAL RECORDS ----------------

// EventPage is one scraped event page after shape normalization. A page can
// list several dates and becomes one event per date.
type EventPage struct {
	Line       int
	Venue      string `validate:"required"`
	VenueURL   string
	URL        string
	Title      string `validate:"required"`
	Logline    string
	Slots      []DateSlot
	Performers []PerformerRecord
}

// DateSlot is one raw (date, time) pair; either part may be empty.
type DateSlot struct {
	Date string
	Time string
}

type PerformerRecord struct {
	Name       string `validate:"required"`
	Instrument string
}

type ArtistRecord struct {
	Line            int
	Name            string `validate:"required"`
	Website         string
	Instagram       string
	Biography       string
	YoutubeURLs     []string
	SpotifyTopTrack string
}

func (r rawEventPage) canonical(line int) EventPage {
	page := EventPage{
		Line:     line,
		Venue:    r.Venue.String(),
		VenueURL: r.VenueURL.String(),
		URL:      first(r.URL, r.EventsURL),
		Title:    first(r.EventTitle, r.EventName),
		Logline:  r.EventLogline.String(),
	}
	for _, dt := range r.DatesAndTimes {
		page.Slots = append(page.Slots, DateSlot{Date: dt.Date.String(), Time: dt.Time.String()})
	}
	for _, p := range r.Performers {
		page.Performers = append(page.Performers, PerformerRecord{
			Name:       p.Name.String(),
			Instrument: p.Instrument.String(),
		})
	}
	return page
}

func (r rawArtistProfile) canonical(line int) ArtistRecord {
	rec := ArtistRecord{
		Line:            line,
		Name:            r.ArtistName.String(),
		Website:         r.Website.String(),
		Instagram:       r.Instagram.String(),
		Biography:       r.Biography.String(),
		SpotifyTopTrack: r.SpotifyTopTrack.String(),
		YoutubeURLs:     []string{},
	}
	if len(r.YoutubeURLs) > 0 {
		for _, u := range r.YoutubeURLs {
			if s := u.String(); s != "" {
				rec.YoutubeURLs = append(rec.YoutubeURLs, s)
			}
		}
	} else {
		for _, hit := range r.YoutubeSearchResults {
			if s := hit.WatchURL.String(); s != "" {
				rec.YoutubeURLs = append(rec.YoutubeURLs, s)
			}
		}
	}
	return rec
}

// ReadEventPages parses every line of r into canonical pages. A malformed line
// fails the whole read with a *ParseError.
func ReadEventPages(r io.Reader) ([]EventPage, error) {
	var pages []EventPage
	err := ReadAll(r, func(rec rawEventPage, line int) {
		pages = append(pages, rec.canonical(line))
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// ReadArtistRecords parses every line of r into canonical artist records.
func ReadArtistRecords(r io.Reader) ([]ArtistRecord, error) {
	var recs []ArtistRecord
	err := ReadAll(r, func(rec rawArtistProfile, line int) {
		recs = append(recs, rec.canonical(line))
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ---------------- VALIDATION ----------------

var validate = validator.New()

// missingField returns the name of the first required field that is empty,
// or "" when v is complete.
func missingField(v interface{}) string {
	err := validate.Struct(v)
	if err == nil {
		return ""
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return strings.ToLower(verrs[0].Field())
	}
	return err.Error()
}
