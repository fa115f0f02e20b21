package models

// RawRow is one parsed CSV row, keyed by trimmed header name. Values are
// trimmed strings; absent cells are simply missing keys. Rows are ephemeral
// and never persisted.
type RawRow map[string]string

// AddressParts holds the address-related fields extracted from a RawRow via
// fuzzy header matching. State is captured but never validated or used; the
// pipeline emits a configured region code instead.
type AddressParts struct {
	StreetAddress string
	City          string
	State         string
	Zip           string
}

// AddressResult is the filter stage's tagged output: exactly one of a
// canonical "street, city, REGION zip" address (OK true) or one or more
// human-readable rejection reasons (OK false).
type AddressResult struct {
	OK      bool
	Address string
	Errors  []string
}

// AddressCount maps a canonical address string to its positive occurrence
// count. It is the last structure to hold a free-text address and is cleared
// as soon as the anonymous Geocoded list is built.
type AddressCount map[string]int

// LatLon is a resolved geocode. A nil *LatLon represents a geocode failure.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoded carries a resolved coordinate and its originating frequency
// weight. The address string is deliberately discarded before this struct is
// built; no raw address survives past the aggregator/geocoder join.
type Geocoded struct {
	Lat   float64
	Lon   float64
	Count int
}

// Bin is one rounded ~100m cell. Lat and Lon are rounded to 3 decimal
// places; Weight is the summed count of all points rounding to the cell.
type Bin struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight int     `json:"weight"`
}

// RunOptions are the per-request knobs of the full pipeline.
type RunOptions struct {
	// CapPerAddress caps each address's weight to 1 regardless of repeats.
	CapPerAddress bool
	// RPS is the geocoding requests-per-second ceiling. Zero means the
	// configured default.
	RPS float64
	// KAnonymity drops bins with weight below this floor when > 1.
	KAnonymity int
}

// AddressSample is one dry-run sample entry.
type AddressSample struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

// PipelineResult is the success response of a full pipeline run.
type PipelineResult struct {
	OK              bool   `json:"ok"`
	Filename        string `json:"filename"`
	UniqueAddresses int    `json:"uniqueAddresses"`
	Geocoded        int    `json:"geocoded"`
	Bins            int    `json:"bins"`
	KAnonymity      *int   `json:"kAnonymity"`
	GeoJSONURL      string `json:"geojsonUrl"`
}

// DryRunResult reports what a run would send to the geocoding provider
// without ever calling it.
type DryRunResult struct {
	OK            bool            `json:"ok"`
	Filename      string          `json:"filename"`
	TotalRows     int             `json:"totalRows"`
	KeptRows      int             `json:"keptRows"`
	DroppedRows   int             `json:"droppedRows"`
	DuplicateRows int             `json:"duplicateRows"`
	UniqueToSend  int             `json:"uniqueToSend"`
	Sample        []AddressSample `json:"sample"`
}
