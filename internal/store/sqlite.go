package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ippclub/gem-poller/internal/model"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DBFile is the database file name inside the storage path
const DBFile = "gem-poller.db"

// SQLiteStore keeps the revision history of watched packages
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store, creating dataPath if needed
func NewSQLiteStore(dataPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, DBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(model.Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertWatch updates or inserts a watched package record
func (s *SQLiteStore) UpsertWatch(watch *model.DBWatch) error {
	query := `
		INSERT INTO watches (name, url, gem, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			gem = excluded.gem,
			updated_at = excluded.updated_at
		RETURNING id
	`

	watch.UpdatedAt = time.Now()
	err := s.db.QueryRow(
		query,
		watch.Name,
		watch.URL,
		watch.Gem,
		watch.UpdatedAt,
	).Scan(&watch.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert watch: %w", err)
	}

	return nil
}

// TouchWatch records the time of the last poll of a watched package
func (s *SQLiteStore) TouchWatch(watchID int64, polledAt time.Time) error {
	query := `UPDATE watches SET last_poll = ? WHERE id = ?`
	if _, err := s.db.Exec(query, polledAt, watchID); err != nil {
		return fmt.Errorf("failed to touch watch: %w", err)
	}
	return nil
}

// GetWatchByName gets a watched package by name, or nil if it is unknown
func (s *SQLiteStore) GetWatchByName(name string) (*model.DBWatch, error) {
	query := `SELECT id, name, url, gem, last_poll, created_at, updated_at FROM watches WHERE name = ?`
	watch, err := scanWatch(s.db.QueryRow(query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	return watch, nil
}

// GetAllWatches gets all watched packages
func (s *SQLiteStore) GetAllWatches() ([]*model.DBWatch, error) {
	query := `SELECT id, name, url, gem, last_poll, created_at, updated_at FROM watches ORDER BY name`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	var watches []*model.DBWatch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, watch)
	}

	return watches, rows.Err()
}

// AddRevision adds an observed revision record
func (s *SQLiteStore) AddRevision(revision *model.DBRevision) error {
	query := `
		INSERT INTO revisions (watch_id, revision, observed_at)
		VALUES (?, ?, ?)
		RETURNING id
	`

	err := s.db.QueryRow(
		query,
		revision.WatchID,
		revision.Revision,
		revision.ObservedAt,
	).Scan(&revision.ID)

	if err != nil {
		return fmt.Errorf("failed to add revision: %w", err)
	}

	return nil
}

// GetLatestRevision gets the most recently observed revision of a watched
// package, or nil if none was recorded
func (s *SQLiteStore) GetLatestRevision(watchID int64) (*model.DBRevision, error) {
	revisions, err := s.GetRevisionsByWatchID(watchID, 1)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, nil
	}
	return revisions[0], nil
}

// GetRevisionsByWatchID gets the revisions of a watched package, newest first
func (s *SQLiteStore) GetRevisionsByWatchID(watchID int64, limit int) ([]*model.DBRevision, error) {
	query := `SELECT id, watch_id, revision, observed_at FROM revisions WHERE watch_id = ? ORDER BY observed_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*model.DBRevision
	for rows.Next() {
		revision := &model.DBRevision{}
		err := rows.Scan(
			&revision.ID,
			&revision.WatchID,
			&revision.Revision,
			&revision.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, revision)
	}

	return revisions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWatch(row scanner) (*model.DBWatch, error) {
	watch := &model.DBWatch{}
	var lastPoll sql.NullTime
	err := row.Scan(
		&watch.ID,
		&watch.Name,
		&watch.URL,
		&watch.Gem,
		&lastPoll,
		&watch.CreatedAt,
		&watch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	watch.LastPoll = lastPoll.Time
	return watch, nil
}
