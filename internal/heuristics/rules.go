package heuristics

import (
	"regexp"
	"strings"
)

type platformRule struct {
	label   string
	aliases []string
	re      *regexp.Regexp
}

// platformRules is evaluated in order; the first rule with a matching alias wins.
var platformRules = compilePlatformRules([]platformRule{
	{label: "Max", aliases: []string{"max", "hbomax", "hbo", "blutv"}},
	{label: "Tabii", aliases: []string{"tabii", "tabİİ"}},
	{label: "Netflix", aliases: []string{"nf", "netflix"}},
	{label: "Disney", aliases: []string{"dsnp", "disney", "disney+"}},
	{label: "Tod", aliases: []string{"tod"}},
	{label: "Tv+", aliases: []string{"tv+", "atvp"}},
	{label: "Exxen", aliases: []string{"exxen"}},
	{label: "Gain", aliases: []string{"gain"}},
	{label: "Amazon", aliases: []string{"amzn", "amazon"}},
})

// Platforms lists every platform label in rule order.
func Platforms() []string {
	out := make([]string, 0, len(platformRules))
	for _, r := range platformRules {
		out = append(out, r.label)
	}
	return out
}

func compilePlatformRules(rules []platformRule) []platformRule {
	for i := range rules {
		quoted := make([]string, 0, len(rules[i].aliases))
		for _, a := range rules[i].aliases {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(a)))
		}
		// A token is delimited by anything that is not a letter or digit.
		rules[i].re = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}\p{N}+]|$)`)
	}
	return rules
}

// DetectPlatform finds the platform tag in a filename and, when given, the
// parser's release group.
func DetectPlatform(filename, group string) (string, bool) {
	name := strings.ToLower(filename)
	grp := strings.ToLower(strings.TrimSpace(group))
	for _, r := range platformRules {
		if r.re.MatchString(name) || (grp != "" && r.re.MatchString(grp)) {
			return r.label, true
		}
	}
	return "", false
}

// DetectPlatforms returns the distinct platforms found across names, in rule order.
func DetectPlatforms(names ...string) []string {
	found := make(map[string]bool)
	for _, n := range names {
		if label, ok := DetectPlatform(n, ""); ok {
			found[label] = true
		}
	}
	out := make([]string, 0, len(found))
	for _, r := range platformRules {
		if found[r.label] {
			out = append(out, r.label)
		}
	}
	return out
}

// NormalizePlatform maps a user supplied platform name (any case, any alias)
// to its label.
func NormalizePlatform(s string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, r := range platformRules {
		if strings.ToLower(r.label) == v {
			return r.label, true
		}
		for _, a := range r.aliases {
			if a == v {
				return r.label, true
			}
		}
	}
	return "", false
}

// UnknownResolution ranks below every recognized resolution.
const UnknownResolution = 1

var resolutionRules = []struct {
	priority int
	tokens   []string
}{
	{2160, []string{"2160p", "4k", "uhd"}},
	{1080, []string{"1080p", "fhd"}},
	{720, []string{"720p", "hd"}},
	{480, []string{"480p", "sd"}},
	{360, []string{"360p"}},
}

// ResolutionPriority ranks a resolution label by case-insensitive substring.
func ResolutionPriority(label string) int {
	l := strings.ToLower(label)
	for _, r := range resolutionRules {
		for _, t := range r.tokens {
			if strings.Contains(l, t) {
				return r.priority
			}
		}
	}
	return UnknownResolution
}

func resolutionName(priority int) string {
	for _, r := range resolutionRules {
		if r.priority == priority {
			return r.tokens[0]
		}
	}
	return ""
}

var genreAliases = map[string]string{
	"action":             "Aksiyon",
	"adventure":          "Macera",
	"animation":          "Animasyon",
	"comedy":             "Komedi",
	"crime":              "Suç",
	"documentary":        "Belgesel",
	"drama":              "Dram",
	"family":             "Aile",
	"fantasy":            "Fantastik",
	"history":            "Tarih",
	"horror":             "Korku",
	"music":              "Müzik",
	"mystery":            "Gizem",
	"romance":            "Romantik",
	"science fiction":    "Bilim Kurgu",
	"thriller":           "Gerilim",
	"war":                "Savaş",
	"western":            "Vahşi Batı",
	"action & adventure": "Aksiyon",
	"sci-fi & fantasy":   "Bilim Kurgu",
	"war & politics":     "Savaş",
	"kids":               "Çocuklar",
}

// Genres are the catalog genre filter options.
var Genres = []string{
	"Aile", "Aksiyon", "Animasyon", "Belgesel", "Bilim Kurgu",
	"Biyografi", "Çocuklar", "Dram", "Fantastik", "Gerilim",
	"Gizem", "Komedi", "Korku", "Macera", "Müzik", "Romantik",
	"Savaş", "Spor", "Suç", "Tarih",
}

// NormalizeGenres translates metadata genres to catalog genres, dropping
// duplicates and keeping unknown names unchanged.
func NormalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if tr, ok := genreAliases[strings.ToLower(g)]; ok {
			g = tr
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}
