package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
)

// DefaultFileName is the journal file created inside the data directory.
const DefaultFileName = "runecast_readings.json"

// Store implements ports.HistoryStore as a single JSON journal on disk.
// Every write rewrites the whole file atomically (temp file, fsync, rename).
type Store struct {
	Path string

	logger *slog.Logger
	mu     sync.Mutex
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used to report unreadable journals.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store writing to path. An empty path defaults to
// ".runecast/runecast_readings.json"; a directory gets DefaultFileName appended.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = filepath.Join(".runecast", DefaultFileName)
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	s := &Store{Path: path, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every record, newest first. A missing or corrupt journal
// yields an empty list.
func (s *Store) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return domain.ReadingRecord{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ReadingRecord{}, domain.ErrRecordNotFound
}

// Append adds a record at the head of the journal.
func (s *Store) Append(ctx context.Context, record domain.ReadingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records = slices.DeleteFunc(records, func(r domain.ReadingRecord) bool { return r.ID == record.ID })
	return s.write(append([]domain.ReadingRecord{record}, records...))
}

// Delete removes a record by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(records, func(r domain.ReadingRecord) bool { return r.ID == id })
	if len(kept) == len(records) {
		return domain.ErrRecordNotFound
	}
	return s.write(kept)
}

// Prune rewrites the journal without records older than cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return 0, err
	}
	before := len(records)
	kept := slices.DeleteFunc(records, func(r domain.ReadingRecord) bool { return r.CreatedAt.Before(cutoff) })
	removed := before - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) read() ([]domain.ReadingRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.ReadingRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return []domain.ReadingRecord{}, nil
	}

	var records []domain.ReadingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("history file is unreadable, treating as empty", "path", s.Path, "err", err)
		return []domain.ReadingRecord{}, nil
	}
	domain.SortNewestFirst(records)
	return records, nil
}

// write persists the journal atomically. The temp file lives in the same
// directory so the rename never crosses filesystems.
func (s *Store) write(records []domain.ReadingRecord) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure history directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows os.Rename fails if the destination exists.
	if _, err := os.Stat(s.Path); err == nil {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove existing history file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}
