package model

import (
	"time"
)

// DBWatch represents a watched package record in the database
type DBWatch struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	URL       string    `db:"url"`
	Gem       string    `db:"gem"`
	LastPoll  time.Time `db:"last_poll"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DBRevision represents an observed revision record in the database
type DBRevision struct {
	ID         int64     `db:"id"`
	WatchID    int64     `db:"watch_id"`
	Revision   string    `db:"revision"`
	ObservedAt time.Time `db:"observed_at"`
}

// Schema contains the SQL schema for the database
const Schema = `
CREATE TABLE IF NOT EXISTS watches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL,
    gem TEXT NOT NULL,
    last_poll TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS revisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    watch_id INTEGER NOT NULL,
    revision TEXT NOT NULL,
    observed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (watch_id) REFERENCES watches(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_watches_name ON watches(name);
CREATE INDEX IF NOT EXISTS idx_revisions_watch_id ON revisions(watch_id);
`
