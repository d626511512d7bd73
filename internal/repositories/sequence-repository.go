package repositories

import (
	"context"
	"fmt"
	"time"
)

const requestNumberKeyPrefix = "entry_request_seq:"

// SequenceRepositoryInterface hands out human-readable entry request numbers.
type SequenceRepositoryInterface interface {
	NextRequestNumber(ctx context.Context, day time.Time) (string, error)
}

type sequenceRepository struct {
	cache CacheRepositoryInterface
}

func NewSequenceRepository(cache CacheRepositoryInterface) SequenceRepositoryInterface {
	return &sequenceRepository{cache: cache}
}

// NextRequestNumber yields ER-YYYYMMDD-NNNN using a per-day counter. The
// counter key outlives its day by a margin so late requests on a day
// boundary still see it.
func (r *sequenceRepository) NextRequestNumber(ctx context.Context, day time.Time) (string, error) {
	stamp := day.Format("20060102")
	key := requestNumberKeyPrefix + stamp

	n, err := r.cache.Incr(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to increment request number sequence: %w", err)
	}
	if n == 1 {
		if _, err := r.cache.Expire(ctx, key, 48*time.Hour); err != nil {
			return "", fmt.Errorf("failed to set sequence expiry: %w", err)
		}
	}
	return FormatRequestNumber(stamp, n), nil
}

func FormatRequestNumber(stamp string, n int64) string {
	return fmt.Sprintf("ER-%s-%04d", stamp, n)
}
