// Package journal keeps an append-only, sequenced log of every knowledge
// record written to the vector store.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/testkb/internal/db"
	"github.com/ziadkadry99/testkb/internal/knowledge"
)

// Kind describes how a record entered the store.
type Kind string

const (
	KindStored Kind = "stored"
	KindSeeded Kind = "seeded"
)

// Entry is a single journal record. Seq is assigned by the database and is
// strictly increasing in insertion order.
type Entry struct {
	Seq        int64     `json:"seq"`
	RecordID   string    `json:"record_id"`
	Collection string    `json:"collection"`
	Kind       Kind      `json:"kind"`
	Summary    string    `json:"summary"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("journal entry not found")

// maxSummary bounds the stored summary length in runes.
const maxSummary = 200

// Store reads and writes journal entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append inserts entry and returns its sequence number. CreatedAt defaults
// to now.
func (s *Store) Append(ctx context.Context, entry Entry) (int64, error) {
	if entry.Kind == "" {
		entry.Kind = KindStored
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (record_id, collection, kind, summary, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RecordID,
		entry.Collection,
		string(entry.Kind),
		truncate(entry.Summary, maxSummary),
		entry.Label,
		entry.CreatedAt.UTC().Format(knowledge.TimestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting journal entry: %w", err)
	}
	return res.LastInsertId()
}

// GetByRecordID returns the entry for a vector store record ID.
func (s *Store) GetByRecordID(ctx context.Context, recordID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, record_id, collection, kind, summary, label, created_at
		FROM journal_entries WHERE record_id = ?`, recordID)

	e, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, recordID)
	}
	return e, err
}

// Filter controls which entries Query returns.
type Filter struct {
	Collection string
	Kind       Kind
	Since      *time.Time
	AfterSeq   int64
	Limit      int
}

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Collection != "" {
		clauses = append(clauses, "collection = ?")
		args = append(args, filter.Collection)
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Since != nil {
		// created_at is fixed width, so text order is time order.
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(knowledge.TimestampLayout))
	}
	if filter.AfterSeq > 0 {
		clauses = append(clauses, "seq > ?")
		args = append(args, filter.AfterSeq)
	}

	query := "SELECT seq, record_id, collection, kind, summary, label, created_at FROM journal_entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// LastSeq returns the highest sequence number, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM journal_entries").Scan(&seq); err != nil {
		return 0, fmt.Errorf("reading last journal seq: %w", err)
	}
	return seq.Int64, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e    Entry
		kind string
		ts   string
	)
	if err := sc.Scan(&e.Seq, &e.RecordID, &e.Collection, &kind, &e.Summary, &e.Label, &ts); err != nil {
		return nil, err
	}
	e.Kind = Kind(kind)
	t, err := time.Parse(knowledge.TimestampLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parsing journal timestamp %q: %w", ts, err)
	}
	e.CreatedAt = t
	return &e, nil
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
