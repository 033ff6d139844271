package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// broadenSuffixes are the administrative tokens appended to an
// under-returning query. One supplementary lookup per suffix, concurrently.
var broadenSuffixes = []string{"시", "군", "구", "동", "읍", "면"}

// broaden fans out supplementary queries and joins them deterministically.
// A failed branch contributes an empty list; broadening never fails the
// search. Returns the merged branch results and the number of upstream calls
// the branches made.
func (p *Pipeline) broaden(ctx context.Context, query string) ([]domain.AddressResult, int) {
	branches := make([][]domain.AddressResult, len(broadenSuffixes))
	calls := make([]int, len(broadenSuffixes))

	var g errgroup.Group
	for i, suffix := range broadenSuffixes {
		g.Go(func() error {
			res, err := p.client.Lookup(ctx, query+suffix, maxResults)
			if err != nil {
				// A failed branch still spent an upstream call.
				calls[i] = 1
				p.logger.Debug("broadening branch failed",
					"query", query+suffix, "error", err)
				return nil
			}
			if !res.CacheHit {
				calls[i] = 1
			}
			branches[i] = res.Addresses
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	merged := make([]domain.AddressResult, 0)
	for i, branch := range branches {
		merged = append(merged, branch...)
		total += calls[i]
	}
	return merged, total
}

// mergeResults appends extras to primary, de-duplicating by FormattedName in
// first-seen order and capping at limit.
func mergeResults(primary, extras []domain.AddressResult, limit int) []domain.AddressResult {
	seen := make(map[string]struct{}, len(primary)+len(extras))
	out := make([]domain.AddressResult, 0, limit)

	for _, r := range append(primary, extras...) {
		if _, dup := seen[r.FormattedName]; dup {
			continue
		}
		seen[r.FormattedName] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}
