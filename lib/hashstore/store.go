// Package hashstore remembers the last-seen structural fingerprint of
// every source. A reshaped page often parses to zero events without a
// single error; comparing fingerprints across passes is how an
// operator notices that before the silence does.
package hashstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"onon-backend/lib/timezone"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type Config struct {
	// Url is a file path for the embedded driver or a libsql/turso url
	Url string `json:"url"`
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Open connects, creates the schema and applies the single-writer
// setup the embedded driver needs.
func Open(cfg Config) (Store, error) {
	driver := "sqlite"
	if strings.HasPrefix(cfg.Url, "libsql://") ||
		strings.HasPrefix(cfg.Url, "wss://") ||
		strings.HasPrefix(cfg.Url, "https://") {
		driver = "libsql"
	}

	database, err := sql.Open(driver, cfg.Url)
	if err != nil {
		return Store{}, err
	}
	if driver == "sqlite" {
		database.SetMaxOpenConns(1)
		if _, err := database.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			database.Close()
			return Store{}, err
		}
	}
	if _, err := database.Exec(Schema); err != nil {
		database.Close()
		return Store{}, err
	}
	return NewStore(database), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// Observe records a fingerprint for a source and reports whether it
// differs from the previous one. The first observation of a source is
// not a change. Empty fingerprints (API sources have no markup to
// fingerprint) are ignored.
func (s Store) Observe(ctx context.Context, source, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}

	var last string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash FROM observations WHERE source = ? ORDER BY time DESC, id DESC LIMIT 1`,
		source,
	).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	if err == nil && last == hash {
		return false, nil
	}

	_, insertErr := s.db.ExecContext(ctx,
		`INSERT INTO observations (source, hash, time) VALUES (?, ?, ?)`,
		source, hash, timezone.Now().Unix(),
	)
	if insertErr != nil {
		return false, insertErr
	}
	return err == nil, nil
}

type Observation struct {
	Hash string
	Time time.Time
}

// History returns a source's distinct fingerprints, oldest first.
func (s Store) History(ctx context.Context, source string) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, time FROM observations WHERE source = ? ORDER BY time ASC, id ASC`,
		source,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var hash string
		var unix int64
		if err := rows.Scan(&hash, &unix); err != nil {
			return nil, err
		}
		out = append(out, Observation{
			Hash: hash,
			Time: time.Unix(unix, 0).In(timezone.Location),
		})
	}
	return out, rows.Err()
}
