package service

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"foodmap-api/internal/boundary"
	"foodmap-api/internal/models"
)

// BoundaryIndex resolves county and ZIP selections to polygon boundaries.
type BoundaryIndex interface {
	County(name string) (orb.MultiPolygon, error)
	Zip(county, zip string) (orb.MultiPolygon, error)
}

// PlaceStore provides the point datasets counted against boundaries.
type PlaceStore interface {
	GetArtifact(ctx context.Context, name string) (*geojson.FeatureCollection, error)
	LatestArtifactName(ctx context.Context) (string, error)
	ListSchools(ctx context.Context) ([]models.SchoolRecord, error)
	ListLibraries(ctx context.Context) ([]models.LibraryRecord, error)
}

// StatsService counts household, school, and library points within a
// selected county or ZIP boundary. One boundary fetch feeds all three
// counts. An unresolvable boundary is an error ("unknown"); an unloadable
// point dataset degrades that one count to nil instead of failing the whole
// response.
type StatsService struct {
	boundaries BoundaryIndex
	store      PlaceStore
}

// NewStatsService creates a new stats service.
func NewStatsService(boundaries BoundaryIndex, store PlaceStore) *StatsService {
	return &StatsService{boundaries: boundaries, store: store}
}

// BoundaryStats resolves the selection to a boundary and counts points
// inside it. boundary.ErrNotFound and boundary.ErrBadGeometry pass through
// so callers can distinguish "unknown" from zero.
func (s *StatsService) BoundaryStats(ctx context.Context, q models.StatsQuery) (models.BoundaryStats, error) {
	var (
		geom orb.MultiPolygon
		err  error
	)
	if q.Zip != "" {
		geom, err = s.boundaries.Zip(q.County, q.Zip)
	} else {
		geom, err = s.boundaries.County(q.County)
	}
	if err != nil {
		return models.BoundaryStats{}, err
	}

	return models.BoundaryStats{
		OK:         true,
		County:     q.County,
		Zip:        q.Zip,
		Households: s.countHouseholds(ctx, q, geom),
		Schools:    s.countSchools(ctx, geom),
		Libraries:  s.countLibraries(ctx, geom),
	}, nil
}

// Artifact loads a persisted heatmap FeatureCollection by name.
func (s *StatsService) Artifact(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	return s.store.GetArtifact(ctx, name)
}

// countHouseholds counts heatmap points inside the boundary, reading the
// named artifact or the latest one. With q.K > 1, counts below the
// disclosure floor are reported as zero.
func (s *StatsService) countHouseholds(ctx context.Context, q models.StatsQuery, geom orb.MultiPolygon) *int {
	name := q.Artifact
	if name == "" {
		latest, err := s.store.LatestArtifactName(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("household count unavailable")
			return nil
		}
		name = latest
	}

	fc, err := s.store.GetArtifact(ctx, name)
	if err != nil {
		log.Warn().Err(err).Msg("household count unavailable")
		return nil
	}

	points := make([]orb.Point, 0, len(fc.Features))
	for _, f := range fc.Features {
		if pt, ok := f.Geometry.(orb.Point); ok {
			points = append(points, pt)
		}
	}

	count := boundary.NewPointSet(points).CountInside(geom)
	if q.K > 1 && count < q.K {
		count = 0
	}
	return &count
}

func (s *StatsService) countSchools(ctx context.Context, geom orb.MultiPolygon) *models.SchoolsBreakdown {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("school count unavailable")
		return nil
	}

	acc := &models.SchoolsBreakdown{}
	for _, sc := range schools {
		if !boundary.Contains(geom, orb.Point{sc.Lon, sc.Lat}) {
			continue
		}
		acc.Total++
		level := sc.Level
		if level == "" {
			level = models.ClassifySchoolLevel(sc.Name)
		}
		switch level {
		case "elementary":
			acc.Elementary++
		case "middle":
			acc.Middle++
		case "high":
			acc.High++
		default:
			acc.Other++
		}
	}
	return acc
}

func (s *StatsService) countLibraries(ctx context.Context, geom orb.MultiPolygon) *int {
	libraries, err := s.store.ListLibraries(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("library count unavailable")
		return nil
	}

	count := 0
	for _, lib := range libraries {
		if boundary.Contains(geom, orb.Point{lib.Lon, lib.Lat}) {
			count++
		}
	}
	return &count
}
