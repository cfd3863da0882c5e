package store

import (
	"context"
	"database/sql"
	"fmt"

	"atrium-jazz/internal/models"
)

var errNoRows = sql.ErrNoRows

// CreateTables builds the schema straight from the bun models. Postgres
// deployments use the SQL migrations instead; this is for SQLite databases
// used in tests and local runs.
func (d *DB) CreateTables(ctx context.Context) error {
	tables := []interface{}{
		(*models.Venue)(nil),
		(*models.ArtistProfile)(nil),
		(*models.Event)(nil),
		(*models.Performer)(nil),
		(*models.EventPerformer)(nil),
	}
	for _, model := range tables {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// Counts reports row totals per table; used by run summaries and tests.
type Counts struct {
	Venues          int
	Events          int
	Performers      int
	EventPerformers int
	Artists         int
}

func (d *DB) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Venues, err = d.Bun.NewSelect().Model((*models.Venue)(nil)).Count(ctx); err != nil {
		return c, err
	}
	if c.Events, err = d.Bun.NewSelect().Model((*models.Event)(nil)).Count(ctx); err != nil {
		return c, err
	}
	if c.Performers, err = d.Bun.NewSelect().Model((*models.Performer)(nil)).Count(ctx); err != nil {
		return c, err
	}
	if c.EventPerformers, err = d.Bun.NewSelect().Model((*models.EventPerformer)(nil)).Count(ctx); err != nil {
		return c, err
	}
	if c.Artists, err = d.Bun.NewSelect().Model((*models.ArtistProfile)(nil)).Count(ctx); err != nil {
		return c, err
	}
	return c, nil
}
