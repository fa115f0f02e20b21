package boundary

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	edgeDashRe   = regexp.MustCompile(`^-+|-+$`)
	combiningRe  = regexp.MustCompile("[̀-ͯ]")
	asciiFoldMap = strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u",
	)
)

// Slugify converts a county name to the kebab-case form used in ZIP boundary
// file names, e.g. "Ben Hill" -> "ben-hill". All slugification rules live
// here so the selection value and the file naming can never drift apart.
func Slugify(name string) string {
	s := asciiFoldMap.Replace(strings.ToLower(name))
	s = combiningRe.ReplaceAllString(s, "")
	s = nonAlnumRe.ReplaceAllString(s, "-")
	return edgeDashRe.ReplaceAllString(s, "")
}
