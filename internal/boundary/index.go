package boundary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound means no boundary matched the selection. Callers must
	// surface this as "unknown", never as a zero count.
	ErrNotFound = errors.New("boundary: not found")
	// ErrBadGeometry means the matched feature is not a Polygon or
	// MultiPolygon. Also reported as "unknown" to callers.
	ErrBadGeometry = errors.New("boundary: geometry is not a polygon")
)

// Index resolves county and ZIP selections to polygon boundaries. It is
// built once at startup from a data directory and read-only afterwards:
// county geometries come from <dir>/<region>-counties.geojson keyed by the
// NAME property, ZCTA geometries from <dir>/zips/<region>-zips-<slug>.geojson
// keyed by the zcta property.
type Index struct {
	counties map[string]orb.Geometry            // lowercased NAME
	zipSets  map[string]map[string]orb.Geometry // county slug -> padded ZCTA
}

// Load reads every boundary file under dataDir for the given region code.
func Load(dataDir, regionCode string) (*Index, error) {
	prefix := strings.ToLower(strings.TrimSpace(regionCode))

	countiesPath := filepath.Join(dataDir, prefix+"-counties.geojson")
	fc, err := readFeatureCollection(countiesPath)
	if err != nil {
		return nil, fmt.Errorf("boundary: loading counties: %w", err)
	}

	idx := &Index{
		counties: make(map[string]orb.Geometry, len(fc.Features)),
		zipSets:  make(map[string]map[string]orb.Geometry),
	}
	for _, f := range fc.Features {
		name := strings.TrimSpace(propString(f.Properties, "NAME"))
		if name == "" || f.Geometry == nil {
			continue
		}
		idx.counties[strings.ToLower(name)] = f.Geometry
	}

	zipFiles, err := filepath.Glob(filepath.Join(dataDir, "zips", prefix+"-zips-*.geojson"))
	if err != nil {
		return nil, fmt.Errorf("boundary: scanning zip files: %w", err)
	}
	for _, path := range zipFiles {
		slug := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix+"-zips-"), ".geojson")
		zfc, err := readFeatureCollection(path)
		if err != nil {
			return nil, fmt.Errorf("boundary: loading zips for %q: %w", slug, err)
		}
		set := make(map[string]orb.Geometry, len(zfc.Features))
		for _, f := range zfc.Features {
			zcta := padZip(propString(f.Properties, "zcta"))
			if zcta == "" || f.Geometry == nil {
				continue
			}
			set[zcta] = f.Geometry
		}
		idx.zipSets[slug] = set
	}

	log.Info().
		Int("counties", len(idx.counties)).
		Int("zip_files", len(idx.zipSets)).
		Msg("boundary index loaded")
	return idx, nil
}

// County returns the boundary for a county, matched by exact
// case-insensitive name equality.
func (idx *Index) County(name string) (orb.MultiPolygon, error) {
	geom, ok := idx.counties[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: county %q", ErrNotFound, name)
	}
	return asMultiPolygon(geom)
}

// Zip returns the boundary for a ZCTA within a county. Both sides of the
// comparison are zero-padded to 5 digits.
func (idx *Index) Zip(county, zip string) (orb.MultiPolygon, error) {
	set, ok := idx.zipSets[Slugify(county)]
	if !ok {
		return nil, fmt.Errorf("%w: zip boundaries for county %q", ErrNotFound, county)
	}
	geom, ok := set[padZip(zip)]
	if !ok {
		return nil, fmt.Errorf("%w: zcta %q in county %q", ErrNotFound, zip, county)
	}
	return asMultiPolygon(geom)
}

func readFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(raw)
}

func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}, nil
	case orb.MultiPolygon:
		return geom, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrBadGeometry, g.GeoJSONType())
	}
}

// propString reads a property that sources store as either a string or a
// number (ZCTA codes in particular arrive both ways).
func propString(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func padZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return ""
	}
	for len(zip) < 5 {
		zip = "0" + zip
	}
	return zip
}
