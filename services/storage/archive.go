package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sjsage522/vehiclecrawler/internal/crawler"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

//go:embed schema.sql
var schema string

// RunRecord describes one archived run
type RunRecord struct {
	ID         string
	SearchURL  string
	Pages      int
	Total      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Archive keeps the history of runs in SQLite
type Archive struct {
	db   *sql.DB
	path string
}

// NewArchive opens or creates the archive database at path
func NewArchive(path string) (*Archive, error) {
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, crawlerrors.NewPersistence(path, "failed to create archive directory", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, crawlerrors.NewPersistence(path, "failed to open archive", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, crawlerrors.NewPersistence(path, "failed to initialize archive schema", err)
	}

	return &Archive{db: db, path: path}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRun stores a run and its listings in one transaction
func (a *Archive) SaveRun(ctx context.Context, run RunRecord, listings []crawler.Listing) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlerrors.NewPersistence(a.path, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, search_url, pages, total, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.SearchURL, run.Pages, len(listings), run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return crawlerrors.NewPersistence(a.path, fmt.Sprintf("failed to insert run %s", run.ID), err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (run_id, position, title, price, date, location, mileage_km, link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return crawlerrors.NewPersistence(a.path, "failed to prepare listing insert", err)
	}
	defer stmt.Close()

	for i, l := range listings {
		if _, err := stmt.ExecContext(ctx, run.ID, i, l.Title, l.Price, l.Date, l.Location, l.MileageKm, l.Link); err != nil {
			return crawlerrors.NewPersistence(a.path, fmt.Sprintf("failed to insert listing %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return crawlerrors.NewPersistence(a.path, "failed to commit run", err)
	}
	return nil
}

// GetRun returns the archived run with id
func (a *Archive) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	run := &RunRecord{}
	err := a.db.QueryRowContext(ctx, `
		SELECT id, search_url, pages, total, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.SearchURL, &run.Pages, &run.Total, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, crawlerrors.NewPersistence(a.path, fmt.Sprintf("failed to get run %s", id), err)
	}
	return run, nil
}

// ListingsForRun returns the listings of a run in their original order
func (a *Archive) ListingsForRun(ctx context.Context, runID string) ([]crawler.Listing, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT title, price, date, location, mileage_km, link
		FROM listings WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, crawlerrors.NewPersistence(a.path, "failed to query listings", err)
	}
	defer rows.Close()

	listings := []crawler.Listing{}
	for rows.Next() {
		var (
			l        crawler.Listing
			price    sql.NullInt64
			location sql.NullString
			mileage  sql.NullInt64
		)
		if err := rows.Scan(&l.Title, &price, &l.Date, &location, &mileage, &l.Link); err != nil {
			return nil, crawlerrors.NewPersistence(a.path, "failed to scan listing", err)
		}
		if price.Valid {
			v := int(price.Int64)
			l.Price = &v
		}
		if location.Valid {
			v := location.String
			l.Location = &v
		}
		if mileage.Valid {
			v := int(mileage.Int64)
			l.MileageKm = &v
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, crawlerrors.NewPersistence(a.path, "failed to read listings", err)
	}
	return listings, nil
}

// LatestPrices returns the most recent archived price for each link seen in previous runs
func (a *Archive) LatestPrices(ctx context.Context) (map[string]int, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT l.link, l.price
		FROM listings l
		JOIN runs r ON r.id = l.run_id
		WHERE l.price IS NOT NULL
		ORDER BY r.finished_at ASC, l.position ASC
	`)
	if err != nil {
		return nil, crawlerrors.NewPersistence(a.path, "failed to query prices", err)
	}
	defer rows.Close()

	prices := make(map[string]int)
	for rows.Next() {
		var (
			link  string
			price int
		)
		if err := rows.Scan(&link, &price); err != nil {
			return nil, crawlerrors.NewPersistence(a.path, "failed to scan price", err)
		}
		prices[link] = price
	}
	return prices, rows.Err()
}
