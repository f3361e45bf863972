// Package search reconciles free-text wine descriptors against a venue's
// inventory and loads inventory seed files.
//
// Matching is deterministic for identical input:
//
//   - Text is case-folded and stripped of diacritics before comparison
//   - Token similarity comes from a pluggable Scorer (Jaro-Winkler default)
//   - Field scores are weighted name > producer > grape/region, plus vintage
//   - Ties break on raw name similarity, then name, then ID
//
// A Matcher holds no mutable state and is safe for concurrent use.
package search

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tbourn/go-wine-scanner/internal/domain"
)

// Weights control how much each field contributes to a match score.
type Weights struct {
	Name     float64
	Producer float64
	Detail   float64 // best of grape and region
	Vintage  float64
}

// DefaultWeights ranks name above producer above grape/region.
var DefaultWeights = Weights{Name: 0.50, Producer: 0.25, Detail: 0.15, Vintage: 0.10}

// Option configures a Matcher.
type Option func(*config)

type config struct {
	minScore   float64
	limit      int
	tokenFloor float64
	weights    Weights
	scorer     Scorer
}

func defaultConfig() config {
	return config{
		minScore:   0.35,
		limit:      0,
		tokenFloor: 0.8,
		weights:    DefaultWeights,
		scorer:     JaroWinkler(),
	}
}

// WithMinScore drops candidates scoring below s.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 && s <= 1 {
			c.minScore = s
		}
	}
}

// WithLimit caps the number of returned matches. Zero means no cap.
func WithLimit(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.limit = n
		}
	}
}

// WithTokenFloor sets the token similarity below which two tokens are
// considered unrelated.
func WithTokenFloor(f float64) Option {
	return func(c *config) {
		if f >= 0 && f <= 1 {
			c.tokenFloor = f
		}
	}
}

// WithWeights replaces the field weights. Non-positive name weight is ignored.
func WithWeights(w Weights) Option {
	return func(c *config) {
		if w.Name > 0 && w.Producer >= 0 && w.Detail >= 0 && w.Vintage >= 0 {
			c.weights = w
		}
	}
}

// WithScorer swaps the token similarity algorithm.
func WithScorer(s Scorer) Option {
	return func(c *config) {
		if s != nil {
			c.scorer = s
		}
	}
}

// Matcher ranks inventory entries against a descriptor.
type Matcher struct {
	cfg config
}

// NewMatcher returns a matcher with defaults overridden by opts.
func NewMatcher(opts ...Option) *Matcher {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Matcher{cfg: cfg}
}

// MinScore returns the configured threshold.
func (m *Matcher) MinScore() float64 { return m.cfg.minScore }

type candidate struct {
	match   domain.WineMatch
	nameSim float64
	name    string
}

// Match scores every entry against descriptor and returns those at or above
// the minimum score, best first. An empty inventory or a descriptor without
// usable tokens yields an empty, non-nil slice.
func (m *Matcher) Match(descriptor string, inventory []domain.WineWithRatings) []domain.WineMatch {
	q := tokenize(descriptor)
	if len(inventory) == 0 || len(q.words) == 0 {
		return []domain.WineMatch{}
	}

	cands := make([]candidate, 0, len(inventory))
	for _, e := range inventory {
		c := m.score(q, e)
		if c.match.Score < m.cfg.minScore {
			continue
		}
		cands = append(cands, c)
	}
	return m.rank(cands)
}

// MatchAll matches every descriptor and merges the results, keeping the best
// match per wine. Ordering and limit follow Match.
func (m *Matcher) MatchAll(descriptors []string, inventory []domain.WineWithRatings) []domain.WineMatch {
	if len(inventory) == 0 {
		return []domain.WineMatch{}
	}
	best := make(map[string]candidate, len(inventory))
	for _, d := range descriptors {
		q := tokenize(d)
		if len(q.words) == 0 {
			continue
		}
		for _, e := range inventory {
			c := m.score(q, e)
			if c.match.Score < m.cfg.minScore {
				continue
			}
			key := e.ID
			if key == "" {
				key = c.name
			}
			if prev, ok := best[key]; !ok || ranksBefore(c, prev) {
				best[key] = c
			}
		}
	}
	cands := make([]candidate, 0, len(best))
	for _, c := range best {
		cands = append(cands, c)
	}
	return m.rank(cands)
}

// ranksBefore orders by score, then raw name similarity, then folded name.
func ranksBefore(ca, cb candidate) bool {
	if ca.match.Score != cb.match.Score {
		return ca.match.Score > cb.match.Score
	}
	if ca.nameSim != cb.nameSim {
		return ca.nameSim > cb.nameSim
	}
	if ca.name != cb.name {
		return ca.name < cb.name
	}
	return ca.match.Wine.ID < cb.match.Wine.ID
}

func (m *Matcher) rank(cands []candidate) []domain.WineMatch {
	sort.SliceStable(cands, func(a, b int) bool { return ranksBefore(cands[a], cands[b]) })
	if m.cfg.limit > 0 && len(cands) > m.cfg.limit {
		cands = cands[:m.cfg.limit]
	}
	out := make([]domain.WineMatch, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.match)
	}
	return out
}

// score computes the weighted composite for one entry.
//
// Name always takes part and is compared with the whole descriptor.
// Producer and grape/region are compared with the descriptor words the
// fields before them leave unexplained. A field the entry carries takes part,
// matched or not, as soon as such words remain, so a descriptor that never
// goes beyond the name is not penalized for a producer it does not mention.
// Vintage takes part when both sides carry a year. The composite is
// normalized by the weights that took part and capped at 1.
func (m *Matcher) score(q tokens, e domain.WineWithRatings) candidate {
	w := m.cfg.weights
	name := tokenize(e.Name)
	bd := domain.MatchBreakdown{Name: m.fieldSim(q.words, name.words), Producer: -1, Detail: -1, Vintage: -1}

	sum := w.Name * bd.Name
	total := w.Name

	rest := m.unexplained(q.words, name.words)
	if p := tokenize(e.Producer); len(p.words) > 0 && len(rest) > 0 {
		bd.Producer = m.fieldSim(rest, p.words)
		sum += w.Producer * bd.Producer
		total += w.Producer
		rest = m.unexplained(rest, p.words)
	}

	if len(rest) > 0 {
		for _, f := range []string{e.Grape, e.Region} {
			if t := tokenize(f); len(t.words) > 0 {
				bd.Detail = math.Max(bd.Detail, m.fieldSim(rest, t.words))
			}
		}
		if bd.Detail >= 0 {
			sum += w.Detail * bd.Detail
			total += w.Detail
		}
	}

	year := name.year
	if e.Vintage != nil {
		year = *e.Vintage
	}
	if q.year != 0 && year != 0 {
		bd.Vintage = 0
		if q.year == year {
			bd.Vintage = 1
		}
		sum += w.Vintage * bd.Vintage
		total += w.Vintage
	}

	score := 0.0
	if total > 0 {
		score = math.Min(1, sum/total)
	}
	return candidate{
		match:   domain.WineMatch{Wine: e, Score: round4(score), Breakdown: roundBreakdown(bd)},
		nameSim: bd.Name,
		name:    fold(e.Name),
	}
}

// unexplained returns the query words with no counterpart in field at or
// above the token floor.
func (m *Matcher) unexplained(query, field []string) []string {
	out := make([]string, 0, len(query))
	for _, a := range query {
		found := false
		for _, b := range field {
			if m.cfg.scorer.Similarity(a, b) >= m.cfg.tokenFloor {
				found = true
				break
			}
		}
		if !found {
			out = append(out, a)
		}
	}
	return out
}

// fieldSim averages two coverages: how much of the field is found in the
// query, and how much of the query is found in the field. Token pairs below
// the floor count as zero.
func (m *Matcher) fieldSim(query, field []string) float64 {
	if len(query) == 0 || len(field) == 0 {
		return 0
	}
	return 0.5*m.coverage(field, query) + 0.5*m.coverage(query, field)
}

func (m *Matcher) coverage(from, in []string) float64 {
	total := 0.0
	for _, a := range from {
		best := 0.0
		for _, b := range in {
			s := m.cfg.scorer.Similarity(a, b)
			if s > best {
				best = s
			}
		}
		if best >= m.cfg.tokenFloor {
			total += best
		}
	}
	return total / float64(len(from))
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}

func roundBreakdown(b domain.MatchBreakdown) domain.MatchBreakdown {
	r := func(f float64) float64 {
		if f < 0 {
			return -1
		}
		return round4(f)
	}
	return domain.MatchBreakdown{Name: r(b.Name), Producer: r(b.Producer), Detail: r(b.Detail), Vintage: r(b.Vintage)}
}

// DescribeMatch renders a short label for logs and CLI output.
func DescribeMatch(m domain.WineMatch) string {
	var b strings.Builder
	b.WriteString(m.Wine.Name)
	if m.Wine.Producer != "" {
		b.WriteString(" (" + m.Wine.Producer + ")")
	}
	b.WriteString(" score=" + strconv.FormatFloat(m.Score, 'f', 3, 64))
	return b.String()
}
