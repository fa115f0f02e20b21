package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"foodmap-api/internal/models"
	"foodmap-api/internal/pipeline"
)

// BatchGeocoder resolves a unique address set to coordinates at a paced rate.
type BatchGeocoder interface {
	Run(ctx context.Context, counts models.AddressCount) (map[string]*models.LatLon, error)
}

// BatchGeocoderFactory builds a fresh rate-limited batch geocoder for one
// run. It fails when the provider credential is missing, which aborts the
// run before any per-address processing.
type BatchGeocoderFactory func(rps float64) (BatchGeocoder, error)

// ArtifactStore persists the run's FeatureCollection.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, art models.Artifact) error
}

// PipelineService owns the request-scoped CSV-to-heatmap flow:
// parse -> filter -> aggregate -> geocode -> bin -> emit -> persist.
// Runs are independent and share no mutable state.
type PipelineService struct {
	filter     *pipeline.AddressFilter
	newBatch   BatchGeocoderFactory
	store      ArtifactStore
	defaultRPS float64
}

// NewPipelineService creates a new pipeline service.
func NewPipelineService(filter *pipeline.AddressFilter, newBatch BatchGeocoderFactory, store ArtifactStore, defaultRPS float64) *PipelineService {
	return &PipelineService{
		filter:     filter,
		newBatch:   newBatch,
		store:      store,
		defaultRPS: defaultRPS,
	}
}

// Run executes the full pipeline over one uploaded CSV and persists the
// resulting FeatureCollection. Row-level rejections and per-address geocode
// failures are absorbed as counts; only configuration and persistence
// failures surface as errors, and partial results are never persisted.
func (s *PipelineService) Run(ctx context.Context, filename, csvText string, opts models.RunOptions) (models.PipelineResult, error) {
	logger := log.With().Str("run_id", uuid.NewString()).Logger()

	rps := opts.RPS
	if rps <= 0 {
		rps = s.defaultRPS
	}

	// The credential check happens here, before any per-address work.
	batch, err := s.newBatch(rps)
	if err != nil {
		return models.PipelineResult{}, err
	}

	rows := pipeline.ParseRows(csvText)

	kept := make([]string, 0, len(rows))
	for _, row := range rows {
		if res := s.filter.FilterAndFormat(row); res.OK {
			kept = append(kept, res.Address)
		}
	}

	counts := pipeline.BuildAddressCounts(kept, opts.CapPerAddress)
	unique := len(counts)

	resolved, err := batch.Run(ctx, counts)
	if err != nil {
		return models.PipelineResult{}, err
	}

	merged := make([]models.Geocoded, 0, unique)
	for addr, count := range counts {
		ll := resolved[addr]
		if ll == nil {
			continue
		}
		merged = append(merged, models.Geocoded{Lat: ll.Lat, Lon: ll.Lon, Count: count})
	}
	// Drop the address-bearing maps as soon as the anonymous point list
	// exists; nothing past this line sees a raw address.
	clear(counts)
	clear(resolved)

	bins := pipeline.BinByRounded(merged, opts.KAnonymity)
	fc := pipeline.ToFeatureCollection(bins)

	now := time.Now().UTC()
	name := artifactName(now, opts.KAnonymity, rps, opts.CapPerAddress)
	err = s.store.SaveArtifact(ctx, models.Artifact{
		Name:          name,
		KAnonymity:    opts.KAnonymity,
		RPS:           rps,
		CapPerAddress: opts.CapPerAddress,
		Body:          fc,
		CreatedAt:     now,
	})
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("service: persisting artifact: %w", err)
	}

	logger.Info().
		Int("rows", len(rows)).
		Int("kept", len(kept)).
		Int("unique", unique).
		Int("geocoded", len(merged)).
		Int("bins", len(bins)).
		Str("artifact", name).
		Msg("pipeline run complete")

	var kOut *int
	if opts.KAnonymity > 0 {
		k := opts.KAnonymity
		kOut = &k
	}
	return models.PipelineResult{
		OK:              true,
		Filename:        filename,
		UniqueAddresses: unique,
		Geocoded:        len(merged),
		Bins:            len(bins),
		KAnonymity:      kOut,
		GeoJSONURL:      "/data/" + name,
	}, nil
}

// DryRun stops after aggregation and reports the projected geocode volume,
// without ever touching the provider. No credential is required.
func (s *PipelineService) DryRun(filename, csvText string) models.DryRunResult {
	rows := pipeline.ParseRows(csvText)

	var kept []string
	dropped := 0
	for _, row := range rows {
		if res := s.filter.FilterAndFormat(row); res.OK {
			kept = append(kept, res.Address)
		} else {
			dropped++
		}
	}

	counts := pipeline.BuildAddressCounts(kept, false)
	return models.DryRunResult{
		OK:            true,
		Filename:      filename,
		TotalRows:     len(rows),
		KeptRows:      len(kept),
		DroppedRows:   dropped,
		DuplicateRows: len(kept) - len(counts),
		UniqueToSend:  len(counts),
		Sample:        topSample(counts, 100),
	}
}

// topSample returns up to limit highest-frequency addresses, sorted by count
// descending then address ascending on ties.
func topSample(counts models.AddressCount, limit int) []models.AddressSample {
	sample := make([]models.AddressSample, 0, len(counts))
	for addr, count := range counts {
		sample = append(sample, models.AddressSample{Address: addr, Count: count})
	}
	sort.Slice(sample, func(i, j int) bool {
		if sample[i].Count != sample[j].Count {
			return sample[i].Count > sample[j].Count
		}
		return sample[i].Address < sample[j].Address
	})
	if len(sample) > limit {
		sample = sample[:limit]
	}
	return sample
}

var stampSanitizer = strings.NewReplacer(":", "-", ".", "-")

// artifactName encodes the run's configuration into the persisted file name,
// e.g. heatmap-2025-10-12T04-04-48-925Z-k5-r2-cap1.geojson.
func artifactName(ts time.Time, k int, rps float64, capPerAddress bool) string {
	stamp := stampSanitizer.Replace(ts.UTC().Format("2006-01-02T15:04:05.000Z"))
	capFlag := 0
	if capPerAddress {
		capFlag = 1
	}
	return fmt.Sprintf("heatmap-%s-k%d-r%s-cap%d.geojson",
		stamp, k, strconv.FormatFloat(rps, 'f', -1, 64), capFlag)
}
