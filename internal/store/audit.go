// Package store persists build-audit records to an embedded sqlite
// database: one row per build plus per-code interval counts, including the
// per-country tier-3 tallies that the artifact itself erases.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geotable-cli/internal/geolite"
	"github.com/sells-group/geotable-cli/internal/tier"
)

// AuditStore records build runs in sqlite.
type AuditStore struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at the given path and
// configures WAL mode.
func Open(dsn string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &AuditStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS builds (
	id          TEXT PRIMARY KEY,
	generated   TEXT NOT NULL,
	rows_read   INTEGER NOT NULL,
	entries     INTEGER NOT NULL,
	overlaps    INTEGER NOT NULL,
	skip_report TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS build_codes (
	build_id TEXT NOT NULL REFERENCES builds(id),
	code     TEXT NOT NULL,
	tier     INTEGER NOT NULL,
	raw      INTEGER NOT NULL,
	merged   INTEGER NOT NULL,
	PRIMARY KEY (build_id, code, tier)
);

CREATE TABLE IF NOT EXISTS build_tier3_tally (
	build_id TEXT NOT NULL REFERENCES builds(id),
	code     TEXT NOT NULL,
	records  INTEGER NOT NULL,
	PRIMARY KEY (build_id, code)
);

CREATE INDEX IF NOT EXISTS idx_build_codes_build_id ON build_codes(build_id);
CREATE INDEX IF NOT EXISTS idx_build_tier3_build_id ON build_tier3_tally(build_id);
`

// Migrate creates the audit schema.
func (s *AuditStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// BuildRecord is one build run's audit data.
type BuildRecord struct {
	ID         string
	Generated  time.Time
	RowsRead   int64
	Entries    int
	Overlaps   int
	Skips      geolite.SkipReport
	Stats      []tier.CodeStat
	Tier3Tally map[string]int
}

// RecordBuild persists a build record in one transaction. A missing ID is
// assigned. Returns the stored ID.
func (s *AuditStore) RecordBuild(ctx context.Context, rec BuildRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	skips, err := json.Marshal(rec.Skips)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal skip report")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "store: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, generated, rows_read, entries, overlaps, skip_report)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Generated.UTC().Format(time.RFC3339), rec.RowsRead,
		rec.Entries, rec.Overlaps, string(skips),
	)
	if err != nil {
		return "", eris.Wrap(err, "store: insert build")
	}

	for _, st := range rec.Stats {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO build_codes (build_id, code, tier, raw, merged) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, st.Code, int(st.Tier), st.Raw, st.Merged,
		)
		if err != nil {
			return "", eris.Wrapf(err, "store: insert code stat %s", st.Code)
		}
	}

	for code, n := range rec.Tier3Tally {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO build_tier3_tally (build_id, code, records) VALUES (?, ?, ?)`,
			rec.ID, code, n,
		)
		if err != nil {
			return "", eris.Wrapf(err, "store: insert tier-3 tally %s", code)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "store: commit")
	}

	return rec.ID, nil
}

// LastBuild returns the most recent build record, or nil if none exist.
func (s *AuditStore) LastBuild(ctx context.Context) (*BuildRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, generated, rows_read, entries, overlaps, skip_report
		 FROM builds ORDER BY created_at DESC, id DESC LIMIT 1`)

	var rec BuildRecord
	var generated, skips string
	err := row.Scan(&rec.ID, &generated, &rec.RowsRead, &rec.Entries, &rec.Overlaps, &skips)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: query last build")
	}

	if rec.Generated, err = time.Parse(time.RFC3339, generated); err != nil {
		return nil, eris.Wrap(err, "store: parse generated timestamp")
	}
	if err := json.Unmarshal([]byte(skips), &rec.Skips); err != nil {
		return nil, eris.Wrap(err, "store: decode skip report")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, tier, raw, merged FROM build_codes WHERE build_id = ? ORDER BY tier, code`, rec.ID)
	if err != nil {
		return nil, eris.Wrap(err, "store: query code stats")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var st tier.CodeStat
		var t int
		if err := rows.Scan(&st.Code, &t, &st.Raw, &st.Merged); err != nil {
			return nil, eris.Wrap(err, "store: scan code stat")
		}
		st.Tier = tier.Tier(t)
		rec.Stats = append(rec.Stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate code stats")
	}

	tallyRows, err := s.db.QueryContext(ctx,
		`SELECT code, records FROM build_tier3_tally WHERE build_id = ?`, rec.ID)
	if err != nil {
		return nil, eris.Wrap(err, "store: query tier-3 tally")
	}
	defer tallyRows.Close() //nolint:errcheck

	for tallyRows.Next() {
		var code string
		var n int
		if err := tallyRows.Scan(&code, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan tier-3 tally")
		}
		if rec.Tier3Tally == nil {
			rec.Tier3Tally = make(map[string]int)
		}
		rec.Tier3Tally[code] = n
	}
	if err := tallyRows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate tier-3 tally")
	}

	return &rec, nil
}
