/*
Package history records the outcome of palette searches in a SQLite
database.

Each run is keyed by the SHA-1 of the source image along with the settings
that change what the compressed size means: the bitplane layout, the
compressor and the set of locked indices. The best stored order for a key can
be used as the starting point for another search.
*/
package history

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
)

// Key identifies runs whose sizes are comparable.
type Key struct {
	SHA1       string
	Layout     string
	Compressor string
	Locked     []int
}

func (k Key) locked() string {
	l := append([]int(nil), k.Locked...)
	sort.Ints(l)
	s := make([]string, len(l))
	for i, v := range l {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

// Run is a single recorded search.
type Run struct {
	ID int64
	Key
	Strategy    string
	Seed        int64
	InitialSize int
	Size        int
	Order       []byte
	Created     time.Time
}

// DB is the run history database.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database in file.
func Open(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS run (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, layout TEXT NOT NULL, compressor TEXT NOT NULL, locked TEXT NOT NULL, strategy TEXT NOT NULL, seed INTEGER NOT NULL, initial_size INTEGER NOT NULL, size INTEGER NOT NULL, palette_order BLOB NOT NULL, created INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS run_key ON run (sha1, layout, compressor, locked, size)"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

// Record stores r and returns its id.
func (db *DB) Record(r Run) (int64, error) {
	if r.Created.IsZero() {
		r.Created = time.Now()
	}
	result, err := db.db.Exec("INSERT INTO run (sha1, layout, compressor, locked, strategy, seed, initial_size, size, palette_order, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", r.SHA1, r.Layout, r.Compressor, r.Key.locked(), r.Strategy, r.Seed, r.InitialSize, r.Size, r.Order, r.Created.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const columns = "id, sha1, layout, compressor, locked, strategy, seed, initial_size, size, palette_order, created"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var locked string
	var created int64
	if err := s.Scan(&r.ID, &r.SHA1, &r.Layout, &r.Compressor, &locked, &r.Strategy, &r.Seed, &r.InitialSize, &r.Size, &r.Order, &created); err != nil {
		return nil, err
	}
	if locked != "" {
		for _, f := range strings.Split(locked, ",") {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, err
			}
			r.Locked = append(r.Locked, v)
		}
	}
	r.Created = time.Unix(created, 0)
	return &r, nil
}

// Best returns the smallest run recorded for k, or nil if there are none.
// Ties go to the earliest run.
func (db *DB) Best(k Key) (*Run, error) {
	row := db.db.QueryRow("SELECT "+columns+" FROM run WHERE sha1 = ? AND layout = ? AND compressor = ? AND locked = ? ORDER BY size, id LIMIT 1", k.SHA1, k.Layout, k.Compressor, k.locked())
	switch r, err := scanRun(row); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return r, nil
	default:
		return nil, err
	}
}

// List returns every run, oldest first. If sha1 is not empty only runs for
// that image are returned.
func (db *DB) List(sha1 string) ([]Run, error) {
	var rows *sql.Rows
	var err error
	if sha1 == "" {
		rows, err = db.db.Query("SELECT " + columns + " FROM run ORDER BY id")
	} else {
		rows, err = db.db.Query("SELECT "+columns+" FROM run WHERE sha1 = ? ORDER BY id", sha1)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
