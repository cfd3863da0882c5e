package models

import (
	"github.com/uptrace/bun"
)

// UnknownInstrument is stored when a scraped lineup does not say what the
// musician plays.
const UnknownInstrument = "unknown"

// Performer is a musician on a given instrument. The same person on two
// instruments is two performers.
type Performer struct {
	bun.BaseModel `bun:"table:performers,alias:performer"`

	ID         string `bun:"id,pk" json:"id"`
	Name       string `bun:"name,notnull,unique:performer_key" json:"name"`
	Instrument string `bun:"instrument,notnull,unique:performer_key" json:"instrument"`
}

// EventPerformer links a performer to an event lineup.
type EventPerformer struct {
	bun.BaseModel `bun:"table:event_performers,alias:ep"`

	EventID     string     `bun:"event_id,pk" json:"eventId"`
	Event       *Event     `bun:"rel:belongs-to,join:event_id=id" json:"-"`
	PerformerID string     `bun:"performer_id,pk" json:"performerId"`
	Performer   *Performer `bun:"rel:belongs-to,join:performer_id=id" json:"-"`
}
