package ports

import (
	"context"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
)

// HistoryStore defines the interface for persisting completed readings.
// Implementations must tolerate an empty or corrupt backing store by listing
// no records instead of failing.
type HistoryStore interface {
	// List returns every record, newest first.
	List(ctx context.Context) ([]domain.ReadingRecord, error)

	// Get retrieves a record by ID.
	// Returns domain.ErrRecordNotFound if the record does not exist.
	Get(ctx context.Context, id string) (domain.ReadingRecord, error)

	// Append persists a new record.
	Append(ctx context.Context, record domain.ReadingRecord) error

	// Delete removes a record by ID.
	// Returns domain.ErrRecordNotFound if the record does not exist.
	Delete(ctx context.Context, id string) error

	// Prune removes every record created before cutoff and reports how many
	// were removed. It must be atomic: readers never observe a partial list.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
