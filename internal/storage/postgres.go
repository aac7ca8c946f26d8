// Package storage persists event, decision and trade history in
// PostgreSQL. The engine runs without it when no DSN is configured.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"btcdesk/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection from a DSN and prepares the
// schema.
func New(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ema_events (
			id TEXT PRIMARY KEY,
			ema_kind TEXT NOT NULL,
			kind TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			ema_value DOUBLE PRECISION NOT NULL,
			recommendation TEXT,
			confidence INT,
			analysis TEXT,
			enrich_failed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ai_decisions (
			id SERIAL PRIMARY KEY,
			action TEXT NOT NULL,
			confidence INT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			leverage DOUBLE PRECISION NOT NULL,
			reasoning TEXT,
			executed BOOLEAN NOT NULL,
			reject_reason TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS closed_positions (
			id TEXT PRIMARY KEY,
			side TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			leverage DOUBLE PRECISION NOT NULL,
			ai_managed BOOLEAN NOT NULL,
			status TEXT NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			opened_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// SaveEvent stores an enriched EMA event.
func (db *DB) SaveEvent(ev models.EMAEvent) error {
	_, err := db.Exec(`
		INSERT INTO ema_events (
			id, ema_kind, kind, price, ema_value, recommendation, confidence, analysis, enrich_failed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.EMAKind, ev.Kind, ev.Price, ev.EMAValue,
		ev.Recommendation, ev.Confidence, ev.Analysis, ev.EnrichFailed, ev.Timestamp)
	return err
}

// SaveDecision records an AI decision and whether it executed.
func (db *DB) SaveDecision(dec models.Decision, executed bool, rejectReason string) error {
	_, err := db.Exec(`
		INSERT INTO ai_decisions (
			action, confidence, amount, leverage, reasoning, executed, reject_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, dec.Action, dec.Confidence, dec.Amount, dec.Leverage, dec.Reasoning, executed, rejectReason, time.Now())
	return err
}

// SavePosition records a closed or liquidated position.
func (db *DB) SavePosition(p models.Position) error {
	_, err := db.Exec(`
		INSERT INTO closed_positions (
			id, side, amount, entry_price, leverage, ai_managed, status, pnl, opened_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Side, p.Amount, p.EntryPrice, p.Leverage, p.AIManaged, p.Status, p.PnL, p.OpenedAt, time.Now())
	return err
}

// RecentEvents returns the latest stored events, newest first.
func (db *DB) RecentEvents(limit int) ([]models.EMAEvent, error) {
	rows, err := db.Query(`
		SELECT id, ema_kind, kind, price, ema_value, recommendation, confidence, analysis, enrich_failed, created_at
		FROM ema_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.EMAEvent
	for rows.Next() {
		var ev models.EMAEvent
		var recommendation, analysis sql.NullString
		var confidence sql.NullInt64
		if err := rows.Scan(&ev.ID, &ev.EMAKind, &ev.Kind, &ev.Price, &ev.EMAValue,
			&recommendation, &confidence, &analysis, &ev.EnrichFailed, &ev.Timestamp); err != nil {
			return nil, err
		}
		if recommendation.Valid {
			ev.Recommendation = recommendation.String
		}
		if analysis.Valid {
			ev.Analysis = analysis.String
		}
		if confidence.Valid {
			ev.Confidence = int(confidence.Int64)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
