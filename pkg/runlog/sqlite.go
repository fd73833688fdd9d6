package runlog

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started     TIMESTAMP NOT NULL,
	command     TEXT NOT NULL,
	method      TEXT,
	input       TEXT,
	w_o         INTEGER,
	w_i         INTEGER,
	w_a         INTEGER,
	group_size  INTEGER,
	groups      INTEGER,
	distinct_keys INTEGER,
	seed        INTEGER,
	outcome     TEXT NOT NULL,
	error       TEXT,
	tries       INTEGER,
	score       INTEGER,
	cpu_seconds REAL,
	signature   TEXT,
	hash        TEXT
)`

// DB stores records in a SQLite database.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the history database at path.
func OpenDB(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening results db %s", path)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "creating results schema in %s", path)
	}
	return &DB{db: db}, nil
}

func (d *DB) Write(r *Record) error {
	// signature is stored as text since SQLite integers are signed
	_, err := d.db.Exec(`INSERT INTO runs (id, started, command, method, input, w_o, w_i, w_a,
		group_size, groups, distinct_keys, seed, outcome, error, tries, score, cpu_seconds, signature, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Started, r.Command, r.Method, r.Input, r.WO, r.WI, r.WA,
		r.GroupSize, r.Groups, r.Distinct, r.Seed, string(r.Outcome), r.Error, r.Tries, r.Score,
		r.CPUSeconds, formatSignature(r.Signature), r.Hash)
	return errors.Wrap(err, "inserting run")
}

// Recent returns up to limit records, newest first.
func (d *DB) Recent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, started, command, method, input, w_o, w_i, w_a,
		group_size, groups, distinct_keys, seed, outcome, error, tries, score, cpu_seconds, signature, hash
		FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			r       Record
			id, sig string
			started time.Time
			outcome string
		)
		err := rows.Scan(&id, &started, &r.Command, &r.Method, &r.Input, &r.WO, &r.WI, &r.WA,
			&r.GroupSize, &r.Groups, &r.Distinct, &r.Seed, &outcome, &r.Error, &r.Tries, &r.Score,
			&r.CPUSeconds, &sig, &r.Hash)
		if err != nil {
			return nil, errors.Wrap(err, "reading run")
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "run id %q", id)
		}
		if r.Signature, err = parseSignature(sig); err != nil {
			return nil, errors.Wrapf(err, "signature of run %s", id)
		}
		r.Started = started.UTC()
		r.Outcome = Outcome(outcome)
		out = append(out, &r)
	}
	return out, errors.Wrap(rows.Err(), "reading runs")
}

func (d *DB) Close() error {
	return d.db.Close()
}

func formatSignature(s uint64) string {
	return strconv.FormatUint(s, 16)
}

func parseSignature(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, 64)
}
