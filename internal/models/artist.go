package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ArtistProfile holds the bio and media links shown on an artist page.
// YoutubeURLs keeps display order.
type ArtistProfile struct {
	bun.BaseModel `bun:"table:artist_profiles,alias:artist"`

	ID              string    `bun:"id,pk" json:"id"`
	Name            string    `bun:"name,notnull,unique" json:"name"`
	Website         string    `bun:"website,nullzero" json:"website,omitempty"`
	Instagram       string    `bun:"instagram,nullzero" json:"instagram,omitempty"`
	Biography       string    `bun:"biography,nullzero" json:"biography,omitempty"`
	YoutubeURLs     []string  `bun:"youtube_urls,notnull" json:"youtubeUrls"`
	SpotifyTopTrack string    `bun:"spotify_top_track,nullzero" json:"spotifyTopTrack,omitempty"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Events []Event `bun:"rel:has-many,join:id=artist_id" json:"events,omitempty"`
}
