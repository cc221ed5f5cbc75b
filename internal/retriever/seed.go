package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/testkb/internal/journal"
	"github.com/ziadkadry99/testkb/internal/knowledge"
	"github.com/ziadkadry99/testkb/internal/progress"
)

// Seed loads records into every collection that is still empty and
// returns how many records were loaded per collection. Collections that
// already hold data are left alone, so seeding twice is a no-op.
// Collections load concurrently; records within one collection keep their
// order.
func (r *Retriever) Seed(ctx context.Context, records map[knowledge.Collection][]knowledge.Record, rep progress.Reporter) (map[knowledge.Collection]int, error) {
	if rep == nil {
		rep = progress.Nop{}
	}

	var (
		pending []knowledge.Collection
		total   int
	)
	for _, c := range knowledge.Collections() {
		recs := records[c]
		if len(recs) == 0 {
			continue
		}
		n, err := r.store.Count(ctx, string(c))
		if err != nil {
			return nil, fmt.Errorf("%w: counting %s: %w", ErrUnavailable, c, err)
		}
		if n > 0 {
			r.logger.Info("collection already populated, skipping seed",
				zap.String("collection", string(c)), zap.Int("count", n))
			continue
		}
		pending = append(pending, c)
		total += len(recs)
	}

	loaded := make(map[knowledge.Collection]int, len(pending))
	if total == 0 {
		return loaded, nil
	}

	rep.Start(total)
	defer rep.Finish()

	counts := make([]int, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range pending {
		g.Go(func() error {
			for _, rec := range records[c] {
				if rec.Collection() != c {
					return fmt.Errorf("seed record for %s filed under %s", rec.Collection(), c)
				}
				if _, err := r.add(gctx, rec, journal.KindSeeded); err != nil {
					return fmt.Errorf("seeding %s: %w", c, err)
				}
				counts[i]++
				rep.Increment(string(c))
			}
			return nil
		})
	}
	err := g.Wait()
	for i, c := range pending {
		if counts[i] > 0 {
			loaded[c] = counts[i]
		}
	}
	if err != nil {
		return loaded, err
	}

	r.logger.Info("seeded knowledge base", zap.Int("records", total))
	return loaded, nil
}
