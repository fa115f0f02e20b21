package models

import (
	"regexp"
	"time"

	"github.com/paulmach/orb/geojson"
)

// SchoolRecord is one school point from the public school dataset.
type SchoolRecord struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Level string  `json:"level"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// LibraryRecord is one library point from the public library dataset.
type LibraryRecord struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Artifact is a persisted heatmap FeatureCollection together with the run
// configuration encoded in its name.
type Artifact struct {
	Name          string
	KAnonymity    int
	RPS           float64
	CapPerAddress bool
	Body          *geojson.FeatureCollection
	CreatedAt     time.Time
}

// SchoolsBreakdown describes school counts by category within a boundary.
type SchoolsBreakdown struct {
	Total      int `json:"total"`
	Elementary int `json:"elementary"`
	Middle     int `json:"middle"`
	High       int `json:"high"`
	Other      int `json:"other"`
}

// StatsQuery selects a boundary and the point dataset to count against.
type StatsQuery struct {
	County   string
	Zip      string // empty selects the whole county
	Artifact string // empty selects the latest artifact
	K        int    // optional disclosure floor for the household count
}

// BoundaryStats is the per-boundary counting response. Nil sub-counts mean
// the underlying dataset could not be loaded, which is distinct from zero.
type BoundaryStats struct {
	OK         bool              `json:"ok"`
	County     string            `json:"county"`
	Zip        string            `json:"zip,omitempty"`
	Households *int              `json:"households"`
	Schools    *SchoolsBreakdown `json:"schools"`
	Libraries  *int              `json:"libraries"`
}

var (
	elementaryRe = regexp.MustCompile(`(?i)elementary`)
	middleRe     = regexp.MustCompile(`(?i)middle`)
	highRe       = regexp.MustCompile(`(?i)\bhs\b|\bhigh\b`)
)

// ClassifySchoolLevel infers a school's level from its name, for source
// records that carry no explicit level field.
func ClassifySchoolLevel(name string) string {
	switch {
	case elementaryRe.MatchString(name):
		return "elementary"
	case middleRe.MatchString(name):
		return "middle"
	case highRe.MatchString(name):
		return "high"
	default:
		return "other"
	}
}
