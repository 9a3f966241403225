package recent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "recent:"
	maxEntries = 10
	entryTTL   = 30 * 24 * time.Hour
)

// Service keeps a per-user most-recent-first list of viewed product ids
// in Redis.
type Service struct {
	client *redis.Client
}

func NewService(client *redis.Client) *Service {
	return &Service{client: client}
}

func key(userID string) string {
	return keyPrefix + userID
}

// Record moves the product to the front of the user's list, dropping an
// earlier occurrence and trimming to the cap.
func (s *Service) Record(ctx context.Context, userID string, productID int64) error {
	id := strconv.FormatInt(productID, 10)
	k := key(userID)

	pipe := s.client.TxPipeline()
	pipe.LRem(ctx, k, 0, id)
	pipe.LPush(ctx, k, id)
	pipe.LTrim(ctx, k, 0, maxEntries-1)
	pipe.Expire(ctx, k, entryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record recently viewed: %w", err)
	}
	return nil
}

// List returns the user's recently viewed product ids, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]int64, error) {
	values, err := s.client.LRange(ctx, key(userID), 0, maxEntries-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list recently viewed: %w", err)
	}

	ids := make([]int64, 0, len(values))
	for _, value := range values {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			// Corrupt entry, skip it; the pruner will drop it.
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// remove drops raw list members from a user's list.
func (s *Service) remove(ctx context.Context, userID string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, value := range values {
		pipe.LRem(ctx, key(userID), 0, value)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove recently viewed: %w", err)
	}
	return nil
}
