package content

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/emberfell/character-builder/internal/domain/compendium"
	"github.com/emberfell/character-builder/internal/errors"
)

// resolveConcurrency caps parallel document fetches against the host store.
const resolveConcurrency = 8

// ResolveAll fetches every ref concurrently, preserving input order.
// Unresolved refs are soft failures: logged, skipped, and absent from the
// result rather than replaced with placeholders that would pollute counts.
// Any other lookup error aborts the whole resolve.
func ResolveAll(ctx context.Context, client Client, refs []string) ([]*compendium.Item, error) {
	resolved := make([]*compendium.Item, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			item, err := client.GetItem(ctx, ref)
			if errors.IsNotFound(err) {
				slog.Warn("skipping unresolved item", "ref", ref)
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "failed to resolve item '%s'", ref)
			}
			resolved[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]*compendium.Item, 0, len(refs))
	for _, item := range resolved {
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}
