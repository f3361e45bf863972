package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/imaging"
)

// Gate thresholds. Both comparisons are fixed policy, not configuration.
const (
	// RelevanceRejectConfidence: a "not related" verdict only rejects when
	// the classifier is more confident than this.
	RelevanceRejectConfidence = 0.7

	// ScanMinConfidence: scans below this never reach the analyzer.
	ScanMinConfidence = 0.3
)

// Stage names used in logs, metrics and errors.
const (
	StageValidate  = "validate"
	StageVenue     = "venue"
	StageClassify  = "classify"
	StageScan      = "scan"
	StageAnalyze   = "analyze"
	StageReconcile = "reconcile"
	StageChat      = "chat"
)

// classifyThumbSide bounds the image sent to the classifier.
const classifyThumbSide = 768

// RejectForRelevance reports whether v should stop the pipeline. Uncertain
// verdicts pass so the scan confidence gate can decide.
func RejectForRelevance(v domain.RelevanceVerdict) bool {
	return !v.IsRelated && v.Confidence > RelevanceRejectConfidence
}

// PassesConfidenceGate reports whether a scan is good enough to analyze.
func PassesConfidenceGate(confidence float64) bool {
	return confidence >= ScanMinConfidence
}

// RelevanceClassifier asks a model whether an image is wine related.
type RelevanceClassifier struct {
	AI     ai.Client
	Model  string
	Policy CallPolicy
}

// Classify returns the clamped verdict for img.
func (c *RelevanceClassifier) Classify(ctx context.Context, img *imaging.Image) (domain.RelevanceVerdict, error) {
	ctx, span := otel.Tracer("services/pipeline").Start(ctx, "Classify",
		trace.WithAttributes(attribute.String("ai.model", c.Model)))
	defer span.End()

	small, err := imaging.Thumbnail(img, classifyThumbSide)
	if err != nil {
		small = img
	}
	req := ai.Request{
		Model:  c.Model,
		System: classifySystem,
		Prompt: classifyPrompt,
		Image:  &ai.Image{Data: small.Bytes, MIMEType: small.MediaType},
		JSON:   true,
	}
	v, err := callStage(ctx, c.Policy, StageClassify, generateJSON[domain.RelevanceVerdict](c.AI, req))
	if err != nil {
		span.RecordError(err)
		return domain.RelevanceVerdict{}, err
	}
	v.Confidence = clamp01(v.Confidence)
	v.Reason = strings.TrimSpace(v.Reason)
	span.SetAttributes(
		attribute.Bool("verdict.related", v.IsRelated),
		attribute.Float64("verdict.confidence", v.Confidence),
	)
	return v, nil
}

// LabelScanner extracts label fields with a confidence score.
type LabelScanner struct {
	AI     ai.Client
	Model  string
	Policy CallPolicy
}

type scanReply struct {
	Name       string  `json:"name"`
	Producer   string  `json:"producer"`
	Vintage    flexInt `json:"vintage"`
	Region     string  `json:"region"`
	Grape      string  `json:"grape"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

// Scan reads the label in img.
func (s *LabelScanner) Scan(ctx context.Context, img *imaging.Image) (domain.ScanResult, error) {
	ctx, span := otel.Tracer("services/pipeline").Start(ctx, "Scan",
		trace.WithAttributes(attribute.String("ai.model", s.Model)))
	defer span.End()

	req := ai.Request{
		Model:  s.Model,
		System: scanSystem,
		Prompt: scanPrompt,
		Image:  &ai.Image{Data: img.Bytes, MIMEType: img.MediaType},
		JSON:   true,
	}
	r, err := callStage(ctx, s.Policy, StageScan, generateJSON[scanReply](s.AI, req))
	if err != nil {
		span.RecordError(err)
		return domain.ScanResult{}, err
	}
	res := domain.ScanResult{
		Fields: domain.LabelFields{
			Name:     strings.TrimSpace(r.Name),
			Producer: strings.TrimSpace(r.Producer),
			Vintage:  validVintage(int(r.Vintage)),
			Region:   strings.TrimSpace(r.Region),
			Grape:    strings.TrimSpace(r.Grape),
		},
		RawText:    strings.TrimSpace(r.RawText),
		Confidence: clamp01(r.Confidence),
	}
	span.SetAttributes(attribute.Float64("scan.confidence", res.Confidence))
	return res, nil
}

// WineAnalyzer enriches a scan into a full profile.
type WineAnalyzer struct {
	AI     ai.Client
	Model  string
	Policy CallPolicy
}

type analyzeReply struct {
	Name         string   `json:"name"`
	Producer     string   `json:"producer"`
	Vintage      flexInt  `json:"vintage"`
	Region       string   `json:"region"`
	Grape        string   `json:"grape"`
	Country      string   `json:"country"`
	Type         string   `json:"type"`
	Style        string   `json:"style"`
	Body         string   `json:"body"`
	TastingNotes []string `json:"tasting_notes"`
	FoodPairings []string `json:"food_pairings"`
	ServingTemp  string   `json:"serving_temperature"`
	Summary      string   `json:"summary"`
}

// Analyze enriches scan. It refuses scans below the confidence gate. Fields
// the model leaves empty fall back to what the scan read.
func (a *WineAnalyzer) Analyze(ctx context.Context, scan domain.ScanResult) (domain.WineAnalysis, error) {
	if !PassesConfidenceGate(scan.Confidence) {
		return domain.WineAnalysis{}, fmt.Errorf("analyze: scan confidence %.2f below %.2f", scan.Confidence, ScanMinConfidence)
	}
	ctx, span := otel.Tracer("services/pipeline").Start(ctx, "Analyze",
		trace.WithAttributes(attribute.String("ai.model", a.Model)))
	defer span.End()

	fields, _ := json.Marshal(scan.Fields)
	req := ai.Request{
		Model:       a.Model,
		System:      analyzeSystem,
		Prompt:      analyzePrompt(string(fields), orDash(scan.RawText)),
		JSON:        true,
		Temperature: 0.4,
	}
	r, err := callStage(ctx, a.Policy, StageAnalyze, generateJSON[analyzeReply](a.AI, req))
	if err != nil {
		span.RecordError(err)
		return domain.WineAnalysis{}, err
	}

	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)
	out := domain.WineAnalysis{
		LabelFields: domain.LabelFields{
			Name:     firstNonEmpty(r.Name, scan.Fields.Name),
			Producer: firstNonEmpty(r.Producer, scan.Fields.Producer),
			Vintage:  validVintage(int(r.Vintage)),
			Region:   firstNonEmpty(r.Region, scan.Fields.Region),
			Grape:    firstNonEmpty(r.Grape, scan.Fields.Grape),
		},
		Country:      title.String(strings.TrimSpace(r.Country)),
		Type:         lower.String(strings.TrimSpace(r.Type)),
		Style:        strings.TrimSpace(r.Style),
		Body:         lower.String(strings.TrimSpace(r.Body)),
		TastingNotes: compact(r.TastingNotes),
		FoodPairings: compact(r.FoodPairings),
		ServingTemp:  strings.TrimSpace(r.ServingTemp),
		Summary:      strings.TrimSpace(r.Summary),
	}
	if out.Vintage == 0 {
		out.Vintage = scan.Fields.Vintage
	}
	return out, nil
}

// flexInt accepts a JSON number or a numeric string; anything else is 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	*f = 0
	return nil
}

func validVintage(y int) int {
	if y < 1800 || y > 2100 {
		return 0
	}
	return y
}

func clamp01(f float64) float64 {
	switch {
	case f != f, f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
