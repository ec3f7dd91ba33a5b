package savegame

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a save slot does not exist.
var ErrNotFound = errors.New("savegame: slot not found")

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Summary describes a save slot without its payload.
type Summary struct {
	Slot    string    `json:"slot"`
	Title   string    `json:"title"`
	Chapter string    `json:"chapter"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists save games in a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the save database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open save db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping save db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply save schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes d under slot, replacing any previous save there. An empty slot
// gets a fresh identifier. SavedAt is stamped when zero. Returns the slot used.
func (s *Store) Put(ctx context.Context, slot string, d *Data) (string, error) {
	if slot == "" {
		slot = uuid.NewString()
	}
	if d.SavedAt.IsZero() {
		d.SavedAt = s.now()
	}
	d.SavedAt = d.SavedAt.UTC()

	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode save %q: %w", slot, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saves (slot, title, chapter, data, saved_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
		     title = excluded.title,
		     chapter = excluded.chapter,
		     data = excluded.data,
		     saved_at = excluded.saved_at`,
		slot, d.Title, d.Chapter, string(raw), d.SavedAt.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("write save %q: %w", slot, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return slot, nil
}

// Get reads the save stored under slot.
func (s *Store) Get(ctx context.Context, slot string) (*Data, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM saves WHERE slot = ?`, slot).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("read save %q: %w", slot, err)
	}
	var d Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode save %q: %w", slot, err)
	}
	return &d, nil
}

// List returns every save, most recent first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, title, chapter, saved_at FROM saves ORDER BY saved_at DESC, slot`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var savedAt string
		if err := rows.Scan(&sum.Slot, &sum.Title, &sum.Chapter, &savedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		if sum.SavedAt, err = time.Parse(timeLayout, savedAt); err != nil {
			return nil, fmt.Errorf("parse saved_at for %q: %w", sum.Slot, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the save stored under slot.
func (s *Store) Delete(ctx context.Context, slot string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("delete save %q: %w", slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete save %q: %w", slot, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}
