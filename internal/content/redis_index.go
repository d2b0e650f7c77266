package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/errors"
)

// RedisIndex is a read-through cache in front of another Client. Item payloads
// are cached with a TTL; projections always go to the source, since they
// depend on caller input rather than stored documents.
type RedisIndex struct {
	client redis.UniversalClient
	source Client
	ttl    time.Duration
}

// RedisIndexConfig holds configuration for the index.
type RedisIndexConfig struct {
	Client redis.UniversalClient
	Source Client
	TTL    time.Duration // default 1 hour
}

// NewRedisIndex creates a RedisIndex. Client and Source are required.
func NewRedisIndex(cfg *RedisIndexConfig) *RedisIndex {
	if cfg == nil {
		panic("RedisIndexConfig cannot be nil")
	}
	if cfg.Client == nil {
		panic("redis client cannot be nil")
	}
	if cfg.Source == nil {
		panic("source content client cannot be nil")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}

	return &RedisIndex{client: cfg.Client, source: cfg.Source, ttl: ttl}
}

func (i *RedisIndex) itemKey(ref string) string {
	return fmt.Sprintf("content:item:%s", ref)
}

func (i *RedisIndex) categoryKey(category compendium.Category) string {
	return fmt.Sprintf("content:category:%s", category)
}

// GetItem returns the cached item, falling back to the source and caching the
// result. Cache failures degrade to source reads rather than erroring.
func (i *RedisIndex) GetItem(ctx context.Context, ref string) (*compendium.Item, error) {
	if ref == "" {
		return nil, errors.InvalidArgument("item ref is required")
	}

	payload, err := i.client.Get(ctx, i.itemKey(ref)).Result()
	if err == nil {
		var item compendium.Item
		if unmarshalErr := json.Unmarshal([]byte(payload), &item); unmarshalErr == nil {
			return &item, nil
		}
		slog.Warn("discarding corrupt cached item", "ref", ref)
	} else if err != redis.Nil {
		slog.Warn("content cache read failed", "ref", ref, "error", err)
	}

	item, err := i.source.GetItem(ctx, ref)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(item); marshalErr == nil {
		if setErr := i.client.Set(ctx, i.itemKey(ref), data, i.ttl).Err(); setErr != nil {
			slog.Warn("content cache write failed", "ref", ref, "error", setErr)
		}
	}
	return item, nil
}

// ListCategory caches the unfiltered listing per category and applies filters
// locally, so distinct filter combinations share one cache entry.
func (i *RedisIndex) ListCategory(ctx context.Context, category compendium.Category, filters *Filters) ([]compendium.ItemSummary, error) {
	var summaries []compendium.ItemSummary

	payload, err := i.client.Get(ctx, i.categoryKey(category)).Result()
	if err == nil {
		if unmarshalErr := json.Unmarshal([]byte(payload), &summaries); unmarshalErr != nil {
			slog.Warn("discarding corrupt cached category", "category", category)
			summaries = nil
		}
	} else if err != redis.Nil {
		slog.Warn("content cache read failed", "category", category, "error", err)
	}

	if summaries == nil {
		summaries, err = i.source.ListCategory(ctx, category, nil)
		if err != nil {
			return nil, err
		}
		if data, marshalErr := json.Marshal(summaries); marshalErr == nil {
			if setErr := i.client.Set(ctx, i.categoryKey(category), data, i.ttl).Err(); setErr != nil {
				slog.Warn("content cache write failed", "category", category, "error", setErr)
			}
		}
	}

	return applyFilters(summaries, filters), nil
}

// ProjectCharacter passes through to the source.
func (i *RedisIndex) ProjectCharacter(ctx context.Context, input *compendium.ProjectionInput) (*compendium.DerivedFields, error) {
	return i.source.ProjectCharacter(ctx, input)
}

// Invalidate drops the cached entries for the given refs and categories.
func (i *RedisIndex) Invalidate(ctx context.Context, refs []string, categories []compendium.Category) error {
	keys := make([]string, 0, len(refs)+len(categories))
	for _, ref := range refs {
		keys = append(keys, i.itemKey(ref))
	}
	for _, category := range categories {
		keys = append(keys, i.categoryKey(category))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := i.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "failed to invalidate content cache")
	}
	return nil
}

func applyFilters(summaries []compendium.ItemSummary, filters *Filters) []compendium.ItemSummary {
	if filters == nil {
		return summaries
	}

	wanted := map[string]bool{}
	for _, ref := range filters.Refs {
		wanted[ref] = true
	}

	out := make([]compendium.ItemSummary, 0, len(summaries))
	for _, s := range summaries {
		if len(wanted) > 0 && !wanted[s.Ref] {
			continue
		}
		if filters.MaxCostUnits > 0 && s.CostUnits > filters.MaxCostUnits {
			continue
		}
		out = append(out, s)
	}
	return out
}
