package pipeline

import (
	"regexp"
	"strings"

	"foodmap-api/internal/models"
)

// headerSynonyms maps normalized header spellings to address fields. State is
// retained in the map but never required nor validated.
var headerSynonyms = map[string]string{
	"streetaddress": "street",
	"address":       "street",
	"street":        "street",
	"homeaddress":   "street",
	"city":          "city",
	"state":         "state",
	"zipcode":       "zip",
	"zip":           "zip",
	"postalcode":    "zip",
}

var (
	headerStripRe   = regexp.MustCompile(`[\s_\-./#]+`)
	spacesRe        = regexp.MustCompile(`\s+`)
	quotedRe        = regexp.MustCompile(`^"(.*)"$`)
	zipRe           = regexp.MustCompile(`^\d{5}$`)
	cityRe          = regexp.MustCompile(`^[A-Za-z][A-Za-z\s'-]*$`)
	poBoxRe         = regexp.MustCompile(`(?i)P\.?\s*O\.?\s*BOX`)
	ruralRouteRe    = regexp.MustCompile(`(?i)RURAL\s*ROUTE|RR\s*\d*`)
	leadingNumberRe = regexp.MustCompile(`^\d+\s+[A-Za-z]`)
	mashedNumberRe  = regexp.MustCompile(`^\d+[A-Za-z]`)
	letterNumberRe  = regexp.MustCompile(`[A-Za-z]+\d+`)
)

// AddressFilter applies the rule-based validity gate to raw rows and formats
// accepted rows into the canonical geocoding string. The region code is fixed
// per deployment; a state column in the source data is ignored even when it
// disagrees with it.
type AddressFilter struct {
	regionCode string
	stateRe    *regexp.Regexp
}

// NewAddressFilter builds a filter emitting regionCode (e.g. "GA") and
// rejecting streets that embed either the code or regionName (e.g. "Georgia").
func NewAddressFilter(regionCode, regionName string) *AddressFilter {
	code := strings.ToUpper(strings.TrimSpace(regionCode))
	name := strings.TrimSpace(regionName)
	return &AddressFilter{
		regionCode: code,
		stateRe: regexp.MustCompile(
			`(?i)\b` + regexp.QuoteMeta(code) + `\b|` + regexp.QuoteMeta(name)),
	}
}

func normalizeHeader(key string) string {
	return headerStripRe.ReplaceAllString(strings.ToLower(key), "")
}

func pickAddressParts(row models.RawRow) models.AddressParts {
	var parts models.AddressParts
	for k, v := range row {
		if k == "" {
			continue
		}
		switch headerSynonyms[normalizeHeader(k)] {
		case "street":
			parts.StreetAddress = strings.TrimSpace(v)
		case "city":
			parts.City = strings.TrimSpace(v)
		case "state":
			parts.State = strings.TrimSpace(v)
		case "zip":
			parts.Zip = strings.TrimSpace(v)
		}
	}
	return parts
}

// cleanField collapses internal whitespace runs and strips one layer of
// surrounding quotes.
func cleanField(s string) string {
	s = spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")
	if m := quotedRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return s
}

func validateZip(zip string) []string {
	if !zipRe.MatchString(zip) {
		return []string{"zip: must be exactly 5 digits"}
	}
	return nil
}

func validateCity(city string) []string {
	if !cityRe.MatchString(city) {
		return []string{"city: invalid characters or format"}
	}
	return nil
}

// validateStreet runs every street check and collects all failures; it never
// short-circuits so rejections stay observable in aggregate.
func (f *AddressFilter) validateStreet(street string) []string {
	upper := strings.ToUpper(street)
	var errs []string

	if strings.Contains(upper, ",") {
		errs = append(errs, "street: contains comma")
	}
	if poBoxRe.MatchString(street) {
		errs = append(errs, "street: PO Box not allowed")
	}
	if ruralRouteRe.MatchString(street) {
		errs = append(errs, "street: rural route not allowed")
	}
	switch strings.TrimSpace(upper) {
	case "UNKNOWN", "N/A", "NA":
		errs = append(errs, "street: unknown/NA")
	}
	if f.stateRe.MatchString(street) {
		errs = append(errs, "street: contains state text")
	}
	if !leadingNumberRe.MatchString(street) {
		errs = append(errs, "street: must start with number, space, then letters")
	}
	if mashedNumberRe.MatchString(street) {
		errs = append(errs, "street: number and letters are mashed; need space")
	}
	if letterNumberRe.MatchString(street) {
		errs = append(errs, "street: letters followed by numbers in name")
	}
	return errs
}

// FilterAndFormat turns one raw row into either the canonical
// "street, city, REGION zip" string or the full list of rejection reasons.
func (f *AddressFilter) FilterAndFormat(row models.RawRow) models.AddressResult {
	parts := pickAddressParts(row)

	var missing []string
	if parts.StreetAddress == "" {
		missing = append(missing, "streetAddress: missing")
	}
	if parts.City == "" {
		missing = append(missing, "city: missing")
	}
	if parts.Zip == "" {
		missing = append(missing, "zip: missing")
	}
	if len(missing) > 0 {
		return models.AddressResult{Errors: missing}
	}

	street := cleanField(parts.StreetAddress)
	city := cleanField(parts.City)
	zip := cleanField(parts.Zip)

	var errs []string
	errs = append(errs, validateZip(zip)...)
	errs = append(errs, validateCity(city)...)
	errs = append(errs, f.validateStreet(street)...)
	if len(errs) > 0 {
		return models.AddressResult{Errors: errs}
	}

	return models.AddressResult{
		OK:      true,
		Address: street + ", " + city + ", " + f.regionCode + " " + zip,
	}
}
