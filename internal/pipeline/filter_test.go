package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodmap-api/internal/models"
)

func gaFilter() *AddressFilter {
	return NewAddressFilter("GA", "Georgia")
}

func TestFilterAndFormat_KnownGoodInput(t *testing.T) {
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address": "123 Main St",
		"City":    "Atlanta",
		"Zip":     "30303",
	})
	require.True(t, res.OK)
	assert.Equal(t, "123 Main St, Atlanta, GA 30303", res.Address)
	assert.Empty(t, res.Errors)
}

func TestFilterAndFormat_MissingFields(t *testing.T) {
	tests := []struct {
		name     string
		row      models.RawRow
		expected []string
	}{
		{
			name:     "all missing",
			row:      models.RawRow{"note": "x"},
			expected: []string{"streetAddress: missing", "city: missing", "zip: missing"},
		},
		{
			name:     "missing zip",
			row:      models.RawRow{"Address": "123 Main St", "City": "Atlanta"},
			expected: []string{"zip: missing"},
		},
		{
			name:     "missing city and zip",
			row:      models.RawRow{"Address": "123 Main St"},
			expected: []string{"city: missing", "zip: missing"},
		},
		{
			name:     "empty value counts as missing",
			row:      models.RawRow{"Address": "123 Main St", "City": "", "Zip": "30303"},
			expected: []string{"city: missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gaFilter().FilterAndFormat(tt.row)
			assert.False(t, res.OK)
			assert.ElementsMatch(t, tt.expected, res.Errors)
		})
	}
}

func TestFilterAndFormat_HeaderSynonyms(t *testing.T) {
	tests := []struct {
		name string
		row  models.RawRow
	}{
		{"canonical", models.RawRow{"streetaddress": "123 Main St", "city": "Atlanta", "zip": "30303"}},
		{"spaced and cased", models.RawRow{"Street Address": "123 Main St", "City": "Atlanta", "Zip Code": "30303"}},
		{"underscored", models.RawRow{"home_address": "123 Main St", "city": "Atlanta", "postal_code": "30303"}},
		{"dotted", models.RawRow{"street.address": "123 Main St", "city": "Atlanta", "zip.code": "30303"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gaFilter().FilterAndFormat(tt.row)
			require.True(t, res.OK, "errors: %v", res.Errors)
			assert.Equal(t, "123 Main St, Atlanta, GA 30303", res.Address)
		})
	}
}

func TestFilterAndFormat_UnmatchedHeadersIgnored(t *testing.T) {
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address":   "123 Main St",
		"City":      "Atlanta",
		"Zip":       "30303",
		"Caseload":  "heavy",
		"Counselor": "someone",
	})
	require.True(t, res.OK)
}

func TestFilterAndFormat_StateCapturedButNeverUsed(t *testing.T) {
	// A disagreeing state column must not change the hardcoded region.
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address": "123 Main St",
		"City":    "Atlanta",
		"State":   "TX",
		"Zip":     "30303",
	})
	require.True(t, res.OK)
	assert.Equal(t, "123 Main St, Atlanta, GA 30303", res.Address)
}

func TestFilterAndFormat_ConfigurableRegion(t *testing.T) {
	f := NewAddressFilter("NC", "North Carolina")
	res := f.FilterAndFormat(models.RawRow{
		"Address": "123 Main St",
		"City":    "Raleigh",
		"Zip":     "27601",
	})
	require.True(t, res.OK)
	assert.Equal(t, "123 Main St, Raleigh, NC 27601", res.Address)

	rejected := f.FilterAndFormat(models.RawRow{
		"Address": "123 North Carolina Ave",
		"City":    "Raleigh",
		"Zip":     "27601",
	})
	assert.False(t, rejected.OK)
	assert.Contains(t, rejected.Errors, "street: contains state text")
}

func TestFilterAndFormat_FieldCleaning(t *testing.T) {
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address": `"123   Main    St"`,
		"City":    "  Atlanta  ",
		"Zip":     "30303",
	})
	require.True(t, res.OK)
	assert.Equal(t, "123 Main St, Atlanta, GA 30303", res.Address)
}

func TestFilterAndFormat_ZipAndCityRules(t *testing.T) {
	tests := []struct {
		name     string
		row      models.RawRow
		expected string
	}{
		{
			name:     "zip too short",
			row:      models.RawRow{"Address": "123 Main St", "City": "Atlanta", "Zip": "3030"},
			expected: "zip: must be exactly 5 digits",
		},
		{
			name:     "zip with letters",
			row:      models.RawRow{"Address": "123 Main St", "City": "Atlanta", "Zip": "3O3O3"},
			expected: "zip: must be exactly 5 digits",
		},
		{
			name:     "zip+4 rejected",
			row:      models.RawRow{"Address": "123 Main St", "City": "Atlanta", "Zip": "30303-1234"},
			expected: "zip: must be exactly 5 digits",
		},
		{
			name:     "city with digits",
			row:      models.RawRow{"Address": "123 Main St", "City": "Atlanta 2", "Zip": "30303"},
			expected: "city: invalid characters or format",
		},
		{
			name:     "city starting with apostrophe",
			row:      models.RawRow{"Address": "123 Main St", "City": "'Atlanta", "Zip": "30303"},
			expected: "city: invalid characters or format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := gaFilter().FilterAndFormat(tt.row)
			assert.False(t, res.OK)
			assert.Contains(t, res.Errors, tt.expected)
		})
	}
}

func TestFilterAndFormat_CityAllowsHyphensAndApostrophes(t *testing.T) {
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address": "123 Main St",
		"City":    "Winston-Salem O'Town",
		"Zip":     "30303",
	})
	require.True(t, res.OK)
}

func TestFilterAndFormat_StreetRules(t *testing.T) {
	tests := []struct {
		name     string
		street   string
		expected string
	}{
		{"comma", "123 Main St, Apt 4", "street: contains comma"},
		{"po box dotted", "P.O. Box 12", "street: PO Box not allowed"},
		{"po box plain", "PO BOX 12", "street: PO Box not allowed"},
		{"rural route", "Rural Route 4", "street: rural route not allowed"},
		{"rr shorthand", "RR 2", "street: rural route not allowed"},
		{"unknown", "UNKNOWN", "street: unknown/NA"},
		{"na slash", "n/a", "street: unknown/NA"},
		{"na plain", "na", "street: unknown/NA"},
		{"state abbreviation", "123 Main St GA", "street: contains state text"},
		{"state full name", "123 Georgia Ave", "street: contains state text"},
		{"no leading number", "Main St", "street: must start with number, space, then letters"},
		{"mashed number", "123Main St", "street: number and letters are mashed; need space"},
		{"letters then digits", "123 Broadway22", "street: letters followed by numbers in name"},
	}

	f := gaFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.FilterAndFormat(models.RawRow{
				"Address": tt.street,
				"City":    "Atlanta",
				"Zip":     "30303",
			})
			assert.False(t, res.OK)
			assert.Contains(t, res.Errors, tt.expected)
		})
	}
}

func TestFilterAndFormat_CollectsAllFailures(t *testing.T) {
	// Validation must not short-circuit; every triggered reason is reported.
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address": "PO Box 12, GA",
		"City":    "Atlanta2",
		"Zip":     "303",
	})
	assert.False(t, res.OK)
	assert.Contains(t, res.Errors, "zip: must be exactly 5 digits")
	assert.Contains(t, res.Errors, "city: invalid characters or format")
	assert.Contains(t, res.Errors, "street: contains comma")
	assert.Contains(t, res.Errors, "street: PO Box not allowed")
	assert.Contains(t, res.Errors, "street: contains state text")
}

func TestFilterAndFormat_GAEmbeddedInWordAllowed(t *testing.T) {
	// "GA" only matches on word boundaries; "Gable" must pass.
	res := gaFilter().FilterAndFormat(models.RawRow{
		"Address": "123 Gable St",
		"City":    "Atlanta",
		"Zip":     "30303",
	})
	require.True(t, res.OK, "errors: %v", res.Errors)
}
