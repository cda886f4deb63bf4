package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
	dgbadger "github.com/dgraph-io/badger/v4"
)

const readingPrefix = "reading/"

// Config selects where the database lives.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in RAM; used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal messages. Nil silences them.
	Logger *slog.Logger
}

// Store implements ports.HistoryStore on an embedded BadgerDB.
type Store struct {
	db     *dgbadger.DB
	logger *slog.Logger
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = dgbadger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = logging.NewNop()
	}

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id string) []byte {
	return []byte(readingPrefix + id)
}

// List returns every record, newest first. Undecodable values are skipped.
func (s *Store) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	records := []domain.ReadingRecord{}
	err := s.db.View(func(txn *dgbadger.Txn) error {
		return s.scan(txn, func(_ []byte, rec domain.ReadingRecord) error {
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	domain.SortNewestFirst(records)
	return records, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	var rec domain.ReadingRecord
	err := s.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return domain.ReadingRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("get reading: %w", err)
	}
	return rec, nil
}

// Append stores the record, replacing any record with the same ID.
func (s *Store) Append(ctx context.Context, record domain.ReadingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.db.Update(func(txn *dgbadger.Txn) error {
		return txn.Set(key(record.ID), data)
	}); err != nil {
		return fmt.Errorf("append reading: %w", err)
	}
	return nil
}

// Delete removes a record by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *dgbadger.Txn) error {
		if _, err := txn.Get(key(id)); err != nil {
			return err
		}
		return txn.Delete(key(id))
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return domain.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	return nil
}

// Prune deletes every record created before cutoff in a single update
// transaction.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(txn *dgbadger.Txn) error {
		removed = 0
		var stale [][]byte
		if err := s.scan(txn, func(k []byte, rec domain.ReadingRecord) error {
			if rec.CreatedAt.Before(cutoff) {
				stale = append(stale, k)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	return removed, nil
}

// scan visits every decodable record under readingPrefix. Keys passed to fn
// are copies and stay valid after the iterator moves.
func (s *Store) scan(txn *dgbadger.Txn, fn func(k []byte, rec domain.ReadingRecord) error) error {
	opts := dgbadger.DefaultIteratorOptions
	opts.Prefix = []byte(readingPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var rec domain.ReadingRecord
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
		if err != nil {
			s.logger.Warn("skipping unreadable reading", "key", string(item.Key()), "err", err)
			continue
		}
		if err := fn(item.KeyCopy(nil), rec); err != nil {
			return err
		}
	}
	return nil
}
