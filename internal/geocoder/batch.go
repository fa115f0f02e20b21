package geocoder

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"foodmap-api/internal/models"
)

// progressInterval is how often the batch reports completions, in addition
// to the final one.
const progressInterval = 100

// Geocoder is the single-address dependency of a batch run.
type Geocoder interface {
	GeocodeOne(ctx context.Context, address string) *models.LatLon
}

// ProgressFunc receives (done, total). done is strictly monotonically
// increasing across calls within one run.
type ProgressFunc func(done, total int)

// Batch geocodes a unique address set strictly sequentially behind a
// token-bucket limiter with burst 1, so the provider never sees two requests
// closer together than 1/rps. Wall-clock time scales linearly with the
// unique-address count; the limiter is the sole pacing discipline toward the
// provider and must not be bypassed by concurrent callers.
type Batch struct {
	client   Geocoder
	limiter  *rate.Limiter
	progress ProgressFunc
}

// DefaultRPS is the requests-per-second ceiling used when none is configured.
const DefaultRPS = 2

// NewBatch builds a batch runner at the given requests-per-second ceiling.
// progress may be nil.
func NewBatch(client Geocoder, rps float64, progress ProgressFunc) *Batch {
	if rps <= 0 {
		rps = DefaultRPS
	}
	return &Batch{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		progress: progress,
	}
}

// Run resolves every key of counts to a coordinate or nil. A nil result for
// one address never aborts the batch. Addresses are visited in sorted key
// order for deterministic progress; callers must not assume output order
// reflects CSV row order. Only context cancellation stops a run early.
func (b *Batch) Run(ctx context.Context, counts models.AddressCount) (map[string]*models.LatLon, error) {
	addresses := make([]string, 0, len(counts))
	for a := range counts {
		addresses = append(addresses, a)
	}
	sort.Strings(addresses)

	total := len(addresses)
	out := make(map[string]*models.LatLon, total)
	for i, addr := range addresses {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("geocoder: batch aborted: %w", err)
		}
		out[addr] = b.client.GeocodeOne(ctx, addr)

		done := i + 1
		if done%progressInterval == 0 || done == total {
			if b.progress != nil {
				b.progress(done, total)
			}
			// Counts only. Addresses are PII and never logged.
			log.Info().Int("done", done).Int("total", total).Msg("geocode batch progress")
		}
	}
	return out, nil
}
