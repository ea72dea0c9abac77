// Package probedb implements an optional sqlite3 archival sink for appended
// samples, supplementing the mandatory binary sample log (see
// SPEC_FULL.md §C.4). It follows the teacher's db/atlasdb WAL-mode sqlx
// connection pattern.
package probedb

import (
	"net/url"

	"github.com/jmoiron/sqlx"

	"github.com/jordanbertasso/stabping-go/internal/probe"
)

// DB archives appended probe samples into a sqlite3 database for ad hoc SQL
// querying. It implements probe.ArchivalSink.
type DB struct {
	x *sqlx.DB
}

var _ probe.ArchivalSink = (*DB)(nil)

// Open opens (creating if necessary) a DB backed by the sqlite3 file at
// name, in WAL mode for fast concurrent writes alongside the raw sample
// log.
func Open(name string) (*DB, error) {
	x, err := sqlx.Connect("sqlite3", (&url.URL{
		Path: name,
		RawQuery: (url.Values{
			"_journal":      {"WAL"},
			"_cache_size":   {"-32000"},
			"_busy_timeout": {"6000"},
		}).Encode(),
	}).String())
	if err != nil {
		return nil, err
	}
	db := &DB{x: x}
	if err := db.migrate(); err != nil {
		x.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.x.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			kind    TEXT    NOT NULL,
			time_s  INTEGER NOT NULL,
			addr_id INTEGER NOT NULL,
			value   REAL,
			sd      REAL
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.x.Exec(`CREATE INDEX IF NOT EXISTS samples_kind_time_idx ON samples(kind, time_s)`)
	return err
}

// InsertPackage inserts every entry of pkg as one row each, in a single
// transaction. It implements probe.ArchivalSink; the Dispatcher logs and
// ignores any error this returns, so archival failures never affect the
// mandatory binary sample log (spec §C.4).
func (db *DB) InsertPackage(pkg probe.TimePackage) error {
	tx, err := db.x.Beginx()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareNamed(`
		INSERT INTO samples (kind, time_s, addr_id, value, sd)
		VALUES (:kind, :time_s, :addr_id, :value, :sd)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range pkg.Entries {
		if _, err := stmt.Exec(map[string]any{
			"kind":    pkg.Kind.Name(),
			"time_s":  pkg.TimeS,
			"addr_id": uint32(e.AddrID),
			"value":   float64(e.Value),
			"sd":      float64(e.SD),
		}); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.x.Close()
}
