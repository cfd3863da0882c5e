package ingest

import "fmt"

// Stats counts what one pass did. Event and artist passes fill different
// fields.
type Stats struct {
	Kind string `json:"kind"`

	Pages             int    `json:"pages,omitempty"`
	SkippedPages      int    `json:"skippedPages,omitempty"`
	DroppedDates      int    `json:"droppedDates,omitempty"`
	Venues            int    `json:"venues,omitempty"`
	Events            int    `json:"events,omitempty"`
	PerformerLinks    int    `json:"performerLinks,omitempty"`
	SkippedPerformers int    `json:"skippedPerformers,omitempty"`
	FirstDate         string `json:"firstDate,omitempty"`
	LastDate          string `json:"lastDate,omitempty"`

	Artists        int `json:"artists,omitempty"`
	SkippedArtists int `json:"skippedArtists,omitempty"`
	LinkedEvents   int `json:"linkedEvents,omitempty"`
}

func (s *Stats) String() string {
	switch s.Kind {
	case KindArtists:
		return fmt.Sprintf("artists=%d skipped=%d linked_events=%d",
			s.Artists, s.SkippedArtists, s.LinkedEvents)
	default:
		return fmt.Sprintf("pages=%d skipped_pages=%d dropped_dates=%d venues=%d events=%d performer_links=%d skipped_performers=%d",
			s.Pages, s.SkippedPages, s.DroppedDates, s.Venues, s.Events, s.PerformerLinks, s.SkippedPerformers)
	}
}
