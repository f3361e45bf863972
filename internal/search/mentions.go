package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	quotedPhraseRE = regexp.MustCompile(`"([^"]+)"|‘([^’]+)’|“([^”]+)”|«([^»]+)»`)
	mentionWordRE  = regexp.MustCompile(`[\p{L}\p{N}'’]+`)
)

// mentionStop are sentence words that are often capitalized but never part
// of a wine name.
var mentionStop = map[string]struct{}{
	"i": {}, "we": {}, "you": {}, "do": {}, "does": {}, "is": {}, "are": {}, "have": {}, "has": {},
	"what": {}, "which": {}, "how": {}, "can": {}, "could": {}, "would": {}, "should": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "any": {}, "some": {},
	"please": {}, "recommend": {}, "tell": {}, "me": {}, "about": {}, "hi": {}, "hello": {},
	"with": {}, "for": {}, "like": {}, "similar": {}, "to": {}, "wine": {}, "wines": {},
}

// ExtractMentions pulls candidate wine descriptors out of a chat message:
// quoted phrases first, then runs of capitalized words (with vintages
// attached). When neither is found the whole message is returned so the
// matcher can still try it. Results are de-duplicated and in message order.
func ExtractMentions(message string) []string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			return
		}
		k := fold(s)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}

	for _, m := range quotedPhraseRE.FindAllStringSubmatch(msg, -1) {
		for i := 1; i < len(m); i++ {
			if m[i] != "" {
				add(m[i])
			}
		}
	}

	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		if len(run) > 1 || utf8.RuneCountInString(run[0]) >= 4 {
			add(strings.Join(run, " "))
		}
		run = run[:0]
	}
	for _, w := range mentionWordRE.FindAllString(msg, -1) {
		if _, stop := mentionStop[strings.ToLower(w)]; stop {
			flush()
			continue
		}
		if isCapitalized(w) {
			run = append(run, w)
			continue
		}
		if _, ok := parseYear(w); ok && len(run) > 0 {
			run = append(run, w)
			flush()
			continue
		}
		flush()
	}
	flush()

	if len(out) == 0 {
		add(msg)
	}
	return out
}

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
