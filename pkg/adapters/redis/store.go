package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "runecast:"

// pruneAttempts bounds optimistic retries when the index changes mid-prune.
const pruneAttempts = 5

// Store implements ports.HistoryStore using Redis.
// Records are JSON strings; a sorted set indexes them by creation time.
type Store struct {
	client *backend.Client
	prefix string
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger used to report unreadable entries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(id string) string {
	return s.prefix + "reading:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "readings"
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// List returns every record, newest first. Entries that vanished or can't be
// decoded are skipped.
func (s *Store) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history index: %w", err)
	}
	if len(ids) == 0 {
		return []domain.ReadingRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]domain.ReadingRecord, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("history index points to a missing record", "id", ids[i])
			continue
		}
		var rec domain.ReadingRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("skipping unreadable record", "id", ids[i], "err", err)
			continue
		}
		records = append(records, rec)
	}
	domain.SortNewestFirst(records)
	return records, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.ReadingRecord{}, domain.ErrRecordNotFound
		}
		return domain.ReadingRecord{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var rec domain.ReadingRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return domain.ReadingRecord{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// Append writes the record and its index entry in one transaction.
func (s *Store) Append(ctx context.Context, record domain.ReadingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(record.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{
			Score:  score(record.CreatedAt),
			Member: record.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes the record and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	var del *backend.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Prune removes every record created before cutoff in a MULTI/EXEC block.
// The index is watched, so a concurrent write aborts and retries the prune.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	max := "(" + strconv.FormatFloat(score(cutoff), 'f', -1, 64)
	removed := 0

	txf := func(tx *backend.Tx) error {
		removed = 0
		ids, err := tx.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{Min: "-inf", Max: max}).Result()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		keys := make([]string, len(ids))
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			keys[i] = s.key(id)
			members[i] = id
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Del(ctx, keys...)
			pipe.ZRem(ctx, s.indexKey(), members...)
			return nil
		})
		if err == nil {
			removed = len(ids)
		}
		return err
	}

	for attempt := 0; attempt < pruneAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, s.indexKey())
		if err == nil {
			return removed, nil
		}
		if !errors.Is(err, backend.TxFailedErr) {
			return 0, fmt.Errorf("failed to prune history: %w", err)
		}
	}
	return 0, fmt.Errorf("failed to prune history: %w", backend.TxFailedErr)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
