package heuristics

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:[.,][0-9]+)?)\s*([kmgtp]?)(i?)(b?)\s*$`)

// ParseSizeMB converts a human size ("1.5GB", "700 MB", "1.4 GiB") to
// megabytes using binary multiples, so 1GB is 1024MB. Anything unparsable,
// including the UNKNOWN sentinel, is 0.
func ParseSizeMB(size string) float64 {
	m := sizePattern.FindStringSubmatch(size)
	if m == nil {
		return 0
	}
	number := strings.Replace(m[1], ",", ".", 1)
	prefix := strings.ToUpper(m[2])
	if prefix == "" && m[3] != "" {
		return 0
	}

	unit := "B"
	if prefix != "" {
		unit = prefix + "iB"
	}
	bytes, err := humanize.ParseBytes(number + " " + unit)
	if err != nil {
		return 0
	}
	return float64(bytes) / float64(humanize.MiByte)
}

// FormatSize renders a byte count the way variants store it.
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}
