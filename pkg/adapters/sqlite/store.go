package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id             TEXT PRIMARY KEY,
	created_at     INTEGER NOT NULL,
	spread         TEXT NOT NULL,
	runes          TEXT NOT NULL,
	interpretation TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS readings_created_at ON readings (created_at);
`

// Store implements ports.HistoryStore on a SQLite database.
// created_at is stored as Unix microseconds; nested values as JSON text.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used to report unreadable rows.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns every record, newest first.
func (s *Store) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, spread, runes, interpretation
		 FROM readings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	records := []domain.ReadingRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			s.logger.Warn("skipping unreadable reading row", "err", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return records, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, spread, runes, interpretation FROM readings WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReadingRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("get reading: %w", err)
	}
	return rec, nil
}

// Append inserts the record, replacing any record with the same ID.
func (s *Store) Append(ctx context.Context, record domain.ReadingRecord) error {
	spread, err := json.Marshal(record.Spread)
	if err != nil {
		return fmt.Errorf("marshal spread: %w", err)
	}
	runes, err := json.Marshal(record.Runes)
	if err != nil {
		return fmt.Errorf("marshal runes: %w", err)
	}
	interp, err := json.Marshal(record.Interpretation)
	if err != nil {
		return fmt.Errorf("marshal interpretation: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO readings (id, created_at, spread, runes, interpretation)
		 VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.CreatedAt.UnixMicro(), string(spread), string(runes), string(interp))
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Delete removes a record by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Prune deletes every record created before cutoff in one transaction.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE created_at < ?`, cutoff.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.ReadingRecord, error) {
	var (
		rec                   domain.ReadingRecord
		createdAt             int64
		spread, runes, interp string
	)
	if err := row.Scan(&rec.ID, &createdAt, &spread, &runes, &interp); err != nil {
		return domain.ReadingRecord{}, err
	}
	rec.CreatedAt = time.UnixMicro(createdAt).UTC()
	if err := json.Unmarshal([]byte(spread), &rec.Spread); err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("decode spread of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(runes), &rec.Runes); err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("decode runes of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(interp), &rec.Interpretation); err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("decode interpretation of %s: %w", rec.ID, err)
	}
	return rec, nil
}
