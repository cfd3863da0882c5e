package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Venue is a club or hall that hosts events. Name is the natural key used by
// ingestion; slug is the public identifier.
type Venue struct {
	bun.BaseModel `bun:"table:venues,alias:venue"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull,unique" json:"name"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	URL         string    `bun:"url" json:"url"`
	GMapsURL    string    `bun:"gmaps_url,nullzero" json:"gMapsUrl,omitempty"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Hide        bool      `bun:"hide,notnull,default:false" json:"hide"`
	Thumbnail   string    `bun:"thumbnail,nullzero" json:"thumbnail,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Events []Event `bun:"rel:has-many,join:id=venue_id" json:"events,omitempty"`
}
