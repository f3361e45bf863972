package search

import (
	"regexp"
	"strconv"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold lowercases s and strips combining marks, so "Château" and "chateau"
// compare equal. Casers and transformers are stateful, so both are built
// per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// tokens is the normalized view of a text field: word tokens plus any
// four-digit vintage found in it.
type tokens struct {
	words []string
	year  int
}

// tokenize folds s and splits it into word tokens. Plausible vintages are
// pulled out into year and do not take part in text similarity.
func tokenize(s string) tokens {
	var out tokens
	for _, w := range tokenRE.FindAllString(fold(s), -1) {
		if y, ok := parseYear(w); ok {
			if out.year == 0 {
				out.year = y
			}
			continue
		}
		out.words = append(out.words, w)
	}
	return out
}

func parseYear(w string) (int, bool) {
	if len(w) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(w)
	if err != nil || y < 1900 || y > 2099 {
		return 0, false
	}
	return y, true
}
