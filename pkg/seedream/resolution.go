package seedream

import (
	"regexp"
	"strings"
)

var explicitSizeRegex = regexp.MustCompile(`^\d{3,5}x\d{3,5}$`)

// MapResolution maps a user supplied resolution onto the sizes the images endpoint
// accepts: an explicit WIDTHxHEIGHT, "1K", "2K" or "4K". Unknown input maps to "2K".
func MapResolution(resolution string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(resolution), ""))

	if explicitSizeRegex.MatchString(normalized) {
		return normalized
	}

	switch normalized {
	case "1k", "1024":
		return "1K"
	case "2k", "2048":
		return "2K"
	case "4k", "4096":
		return "4K"
	}
	return "2K"
}
