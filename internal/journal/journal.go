// Package journal records simulation events to SQLite for observers.
// It is append-only and is never read back into a running simulation.
package journal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/gridcity/internal/engine"
)

// DB wraps a SQLite connection for the activity journal.
type DB struct {
	conn *sqlx.DB
}

// Entry is one journaled event as stored.
type Entry struct {
	ID          int64     `db:"id" json:"id"`
	AtMillis    int64     `db:"at" json:"-"`
	Time        time.Time `db:"-" json:"time"`
	Kind        string    `db:"kind" json:"kind"`
	Description string    `db:"description" json:"description"`
	Amount      int       `db:"amount" json:"amount"`
	BuildingID  string    `db:"building_id" json:"building_id,omitempty"`
	Money       int       `db:"money" json:"money"`
	Population  int       `db:"population" json:"population"`
}

// Totals aggregates the journal.
type Totals struct {
	Placements   int `db:"placements" json:"placements"`
	Payouts      int `db:"payouts" json:"payouts"`
	IncomeEarned int `db:"income_earned" json:"income_earned"`
	Spent        int `db:"spent" json:"spent"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL, -- unix milliseconds
		kind TEXT NOT NULL,
		description TEXT NOT NULL,
		amount INTEGER NOT NULL,
		building_id TEXT NOT NULL DEFAULT '',
		money INTEGER NOT NULL,
		population INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Append writes events in order within one transaction.
func (db *DB) Append(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(at, kind, description, amount, building_id, money, population)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(e.Time.UnixMilli(), string(e.Kind), e.Description, e.Amount, e.BuildingID, e.Money, e.Population)
		if err != nil {
			return fmt.Errorf("insert %s event: %w", e.Kind, err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recent limit entries, newest first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	var entries []Entry
	err := db.conn.Select(&entries,
		`SELECT id, at, kind, description, amount, building_id, money, population
		 FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Time = time.UnixMilli(entries[i].AtMillis).UTC()
	}
	return entries, nil
}

// Totals sums placements, payouts and money flows across the whole journal.
func (db *DB) Totals() (Totals, error) {
	var t Totals
	err := db.conn.Get(&t, `SELECT
		COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0) AS placements,
		COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0) AS payouts,
		COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE 0 END), 0) AS income_earned,
		COALESCE(SUM(CASE WHEN kind = ? THEN -amount ELSE 0 END), 0) AS spent
		FROM events`,
		string(engine.EventPlacement), string(engine.EventPayout),
		string(engine.EventPayout), string(engine.EventPlacement),
	)
	return t, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// Record is an engine.OnEvents-compatible sink that appends events and logs failures.
func (db *DB) Record(events []engine.Event, _ engine.Snapshot) {
	if err := db.Append(events); err != nil {
		slog.Error("journal append failed", "events", len(events), "error", err)
	}
}
