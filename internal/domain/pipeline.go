package domain

import (
	"strconv"
	"strings"
)

// RelevanceVerdict is the classifier's opinion on whether a photo shows
// something wine related.
type RelevanceVerdict struct {
	IsRelated  bool    `json:"is_related"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// LabelFields are the fields read off a label. Every field is optional.
type LabelFields struct {
	Name     string `json:"name,omitempty"`
	Producer string `json:"producer,omitempty"`
	Vintage  int    `json:"vintage,omitempty"`
	Region   string `json:"region,omitempty"`
	Grape    string `json:"grape,omitempty"`
}

// Descriptor renders the fields as free text for inventory matching.
func (f LabelFields) Descriptor() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{f.Name, f.Producer, f.Grape, f.Region} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if f.Vintage > 0 {
		parts = append(parts, strconv.Itoa(f.Vintage))
	}
	return strings.Join(parts, " ")
}

// ScanResult is produced once per scan attempt and not modified afterwards.
type ScanResult struct {
	Fields     LabelFields `json:"fields"`
	RawText    string      `json:"raw_text,omitempty"`
	Confidence float64     `json:"confidence"`
}

// WineAnalysis is the enriched description of a scanned wine. Any field may
// be empty when the model could not infer it.
type WineAnalysis struct {
	LabelFields
	Country      string   `json:"country,omitempty"`
	Type         string   `json:"type,omitempty"`
	Style        string   `json:"style,omitempty"`
	Body         string   `json:"body,omitempty"`
	TastingNotes []string `json:"tasting_notes,omitempty"`
	FoodPairings []string `json:"food_pairings,omitempty"`
	ServingTemp  string   `json:"serving_temperature,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// MatchBreakdown holds the per-field similarity that fed a match score.
// A negative value means the field did not take part.
type MatchBreakdown struct {
	Name     float64 `json:"name"`
	Producer float64 `json:"producer"`
	Detail   float64 `json:"detail"`
	Vintage  float64 `json:"vintage"`
}

// WineMatch is one ranked inventory candidate. Score is in [0,1].
type WineMatch struct {
	Wine      WineWithRatings `json:"wine"`
	Score     float64         `json:"score"`
	Breakdown MatchBreakdown  `json:"breakdown"`
}
