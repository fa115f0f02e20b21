package pipeline

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"foodmap-api/internal/models"
)

// ToFeatureCollection converts bins into a Point FeatureCollection with the
// bin weight under properties.weight. Coordinates follow GeoJSON's mandated
// [lon, lat] axis order. Pure and total; no filtering happens here.
func ToFeatureCollection(bins []models.Bin) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range bins {
		f := geojson.NewFeature(orb.Point{b.Lon, b.Lat})
		f.Properties = geojson.Properties{"weight": b.Weight}
		fc.Append(f)
	}
	return fc
}
