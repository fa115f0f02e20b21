package pipeline

import (
	"math"

	"foodmap-api/internal/models"
)

// BuildAddressCounts deduplicates cleaned address strings into a count map.
// With capPerAddressToOne set, repeat occurrences of an address record
// presence only, so a single case worker's duplicate entries for one
// household do not inflate its weight.
func BuildAddressCounts(addresses []string, capPerAddressToOne bool) models.AddressCount {
	counts := make(models.AddressCount, len(addresses))
	for _, a := range addresses {
		if a == "" {
			continue
		}
		if capPerAddressToOne {
			counts[a] = 1
		} else {
			counts[a]++
		}
	}
	return counts
}

// Round3 rounds to 3 decimal places (~100m cell size), half away from zero.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

type binKey struct {
	lon, lat float64
}

// BinByRounded groups geocoded points into rounded cells and sums their
// weights. Cell coordinates are fixed at first insertion and never
// re-averaged. With requireK > 1, cells whose final weight is below the
// k-anonymity floor are dropped after all merging is complete.
func BinByRounded(geocoded []models.Geocoded, requireK int) []models.Bin {
	weights := make(map[binKey]int, len(geocoded))
	var order []binKey
	for _, g := range geocoded {
		key := binKey{lon: Round3(g.Lon), lat: Round3(g.Lat)}
		if _, seen := weights[key]; !seen {
			order = append(order, key)
		}
		weights[key] += g.Count
	}

	bins := make([]models.Bin, 0, len(order))
	for _, key := range order {
		w := weights[key]
		if requireK > 1 && w < requireK {
			continue
		}
		bins = append(bins, models.Bin{Lat: key.lat, Lon: key.lon, Weight: w})
	}
	return bins
}
