// Package editop defines the closed catalog of deterministic draft
// transformations the assistant can request, plus the normalization that maps
// free-text operation names onto it.
package editop

import (
	"regexp"
	"strings"
)

// Op identifies one transformation in the catalog.
type Op int

const (
	Unknown Op = iota
	Shorten
	Lengthen
	TightenHook
	AddCTA
	Casual
	Professional
	Upbeat
)

var opNames = map[Op]string{
	Unknown:      "unknown",
	Shorten:      "shorten",
	Lengthen:     "lengthen",
	TightenHook:  "tighten_hook",
	AddCTA:       "add_cta",
	Casual:       "casual",
	Professional: "professional",
	Upbeat:       "upbeat",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

// Transformation markers. Fixed strings are part of the contract: repeated
// applications keep appending, which is intentional.
const (
	shortenThreshold = 240
	shortenCut       = 220

	EllipsisMarker  = "…"
	LengthenSuffix  = "\n\nLearn more at our page!"
	CTASuffix       = "\n\nWhat do you think? Tell us in the comments!"
	AttentionMarker = "🔥 "
	UpbeatMarker    = " 🎉"
)

var leadingNonWord = regexp.MustCompile(`^[^\p{L}\p{N}]+`)

// casualPairs maps formal phrasing to informal contractions. Professional
// applies the inverse direction. Matching is case-insensitive; replacements
// are literal.
var casualPairs = [][2]string{
	{"do not", "don't"},
	{"cannot", "can't"},
	{"we are", "we're"},
	{"it is", "it's"},
	{"you are", "you're"},
}

// Apply runs the named transformation over source. It is pure and total:
// Unknown (and any unmapped value) returns source unchanged.
func Apply(op Op, source string) string {
	switch op {
	case Shorten:
		r := []rune(source)
		if len(r) > shortenThreshold {
			return string(r[:shortenCut]) + EllipsisMarker
		}
		return source
	case Lengthen:
		return source + LengthenSuffix
	case TightenHook:
		first, rest, split := strings.Cut(source, "\n")
		first = AttentionMarker + leadingNonWord.ReplaceAllString(first, "")
		if split {
			return first + "\n" + rest
		}
		return first
	case AddCTA:
		return source + CTASuffix
	case Casual:
		return substitute(source, false)
	case Professional:
		return substitute(source, true)
	case Upbeat:
		return source + UpbeatMarker
	default:
		return source
	}
}

func substitute(s string, toFormal bool) string {
	for _, p := range casualPairs {
		from, to := p[0], p[1]
		if toFormal {
			from, to = to, from
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(from))
		s = re.ReplaceAllLiteralString(s, to)
	}
	return s
}

// Normalize maps a free-text operation name from the assistant onto the
// catalog. Unrecognized phrasing yields Unknown, which Apply treats as a
// no-op rather than an error.
func Normalize(name string) Op {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", " ", "_", " ").Replace(n)
	switch {
	case strings.Contains(n, "short"):
		return Shorten
	case strings.Contains(n, "length"), strings.Contains(n, "longer"), strings.Contains(n, "expand"):
		return Lengthen
	case strings.Contains(n, "hook"):
		return TightenHook
	case strings.Contains(n, "cta"), strings.Contains(n, "call to action"):
		return AddCTA
	case strings.Contains(n, "casual"), strings.Contains(n, "informal"):
		return Casual
	case strings.Contains(n, "professional"), strings.Contains(n, "formal"):
		return Professional
	case strings.Contains(n, "upbeat"), strings.Contains(n, "positive"), strings.Contains(n, "energetic"):
		return Upbeat
	default:
		return Unknown
	}
}
