package search

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Scorer compares two already-normalized tokens and returns a similarity in
// [0,1]. Implementations must be deterministic and safe for concurrent use.
type Scorer interface {
	Similarity(a, b string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b string) float64

func (f ScorerFunc) Similarity(a, b string) float64 { return f(a, b) }

type metricScorer struct {
	metric strutil.StringMetric
}

func (m metricScorer) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return strutil.Similarity(a, b, m.metric)
}

// JaroWinkler favours shared prefixes, which suits OCR noise near the end
// of a word. It is the default.
func JaroWinkler() Scorer {
	return metricScorer{metric: metrics.NewJaroWinkler()}
}

// Levenshtein scores by normalized edit distance.
func Levenshtein() Scorer {
	return metricScorer{metric: metrics.NewLevenshtein()}
}
