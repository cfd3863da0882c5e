package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is one show at a venue on one calendar date. (name, date_string,
// venue_id) is unique; a show with several sets that night keeps all of them
// in SetTimes.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	ID         string    `bun:"id,pk" json:"id"`
	Name       string    `bun:"name,notnull,unique:event_key" json:"name"`
	Slug       string    `bun:"slug,notnull,unique" json:"slug"`
	DateString string    `bun:"date_string,notnull,unique:event_key" json:"dateString"`
	SetTimes   []string  `bun:"set_times,notnull" json:"setTimes"`
	URL        string    `bun:"url" json:"url"`
	Logline    string    `bun:"logline,nullzero" json:"logline,omitempty"`
	VenueID    string    `bun:"venue_id,notnull,unique:event_key" json:"venueId"`
	ArtistID   string    `bun:"artist_id,nullzero" json:"artistId,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Venue      *Venue         `bun:"rel:belongs-to,join:venue_id=id" json:"venue,omitempty"`
	Artist     *ArtistProfile `bun:"rel:belongs-to,join:artist_id=id" json:"artist,omitempty"`
	Performers []Performer    `bun:"m2m:event_performers,join:Event=Performer" json:"performers,omitempty"`
}

// FirstSetTime returns the earliest listed set time, or "" when the time is
// still to be announced.
func (e *Event) FirstSetTime() string {
	if len(e.SetTimes) == 0 {
		return ""
	}
	return e.SetTimes[0]
}
