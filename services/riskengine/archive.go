package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"neurogate/pkg/audit"
)

// eventArchive mirrors audit events into Postgres for retention beyond the
// in-memory ring. Inserts run on a single background worker; the ring stays
// the source of truth for the admin listing.
type eventArchive struct {
	db     *sql.DB
	events chan audit.Event
	done   chan struct{}
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS security_events (
	id TEXT PRIMARY KEY,
	occurred_at BIGINT NOT NULL,
	user_id TEXT NOT NULL,
	source_address TEXT NOT NULL,
	trust_score DOUBLE PRECISION NOT NULL,
	outcome TEXT NOT NULL,
	display_time TEXT NOT NULL
)`

func newEventArchive(databaseURL string) (*eventArchive, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive db: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	a := &eventArchive{
		db:     db,
		events: make(chan audit.Event, 256),
		done:   make(chan struct{}),
	}
	go a.run()
	return a, nil
}

// store enqueues an event; a full queue drops rather than blocking the
// request path.
func (a *eventArchive) store(e audit.Event) {
	select {
	case a.events <- e:
	default:
		log.Printf("[archive] queue full, dropping event %s", e.ID)
	}
}

func (a *eventArchive) run() {
	defer close(a.done)
	for e := range a.events {
		_, err := a.db.Exec(
			`INSERT INTO security_events (id, occurred_at, user_id, source_address, trust_score, outcome, display_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.OccurredAt, e.UserID, e.SourceAddress, e.TrustScore, string(e.Outcome), e.DisplayTime,
		)
		if err != nil {
			log.Printf("[archive] insert event %s: %v", e.ID, err)
		}
	}
}

func (a *eventArchive) close() error {
	close(a.events)
	<-a.done
	return a.db.Close()
}
