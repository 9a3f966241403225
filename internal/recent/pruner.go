package recent

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/catalog"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const pruneBatchSize = 5

// Pruner periodically walks every recently-viewed list and removes
// product ids that no longer resolve in the catalog (deleted or
// delisted products). A lookup failure counts as unresolvable: the item
// is dropped, never retried.
type Pruner struct {
	client   *redis.Client
	catalog  catalog.Repository
	service  *Service
	interval time.Duration
}

func NewPruner(client *redis.Client, cat catalog.Repository, service *Service) *Pruner {
	return &Pruner{
		client:   client,
		catalog:  cat,
		service:  service,
		interval: time.Hour,
	}
}

func (p *Pruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.pruneAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pruner) pruneAll(ctx context.Context) {
	iter := p.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		userID := strings.TrimPrefix(iter.Val(), keyPrefix)
		if err := p.pruneUser(ctx, userID); err != nil {
			log.Printf("failed to prune recently viewed for %s: %v", userID, err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("failed to scan recently viewed keys: %v", err)
	}
}

// pruneUser resolves the list's product ids in concurrent batches and
// removes every id that did not resolve cleanly.
func (p *Pruner) pruneUser(ctx context.Context, userID string) error {
	values, err := p.client.LRange(ctx, key(userID), 0, -1).Result()
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	var mu sync.Mutex
	var dead []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pruneBatchSize)
	for _, value := range values {
		value := value
		g.Go(func() error {
			id, parseErr := strconv.ParseInt(value, 10, 64)
			if parseErr != nil {
				mu.Lock()
				dead = append(dead, value)
				mu.Unlock()
				return nil
			}

			_, lookupErr := p.catalog.GetProduct(gctx, id)
			if lookupErr != nil {
				if !errors.Is(lookupErr, catalog.ErrProductNotFound) {
					log.Printf("lookup failed for product %d, dropping from recently viewed: %v", id, lookupErr)
				}
				mu.Lock()
				dead = append(dead, value)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return p.service.remove(ctx, userID, dead)
}
