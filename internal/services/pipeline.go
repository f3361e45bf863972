package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/imaging"
)

// UnreadableMessage is returned with a scan that did not pass the
// confidence gate.
const UnreadableMessage = "We couldn't read that label. Try again with the whole label in frame, in good light and without glare."

// ScanRequest is one scan-and-analyze call.
type ScanRequest struct {
	Image   imaging.Payload
	VenueID string
}

// ScanOutcome is the result of a pipeline run that did not fail. Success is
// false for an unreadable label, with Message carrying guidance.
type ScanOutcome struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message,omitempty"`
	Verdict  domain.RelevanceVerdict `json:"verdict"`
	Scan     *domain.ScanResult      `json:"scan,omitempty"`
	Analysis *domain.WineAnalysis    `json:"analysis,omitempty"`
	Matches  []domain.WineMatch      `json:"matches,omitempty"`
}

// scanState is the value threaded through the stages of one run.
type scanState struct {
	req       ScanRequest
	image     *imaging.Image
	inventory []domain.WineWithRatings
	outcome   ScanOutcome
}

// verdict is what a stage decided.
type verdict int

const (
	proceed verdict = iota // run the next stage
	finish                 // stop; outcome is complete
)

// stage is one step of the chain. A stage either returns proceed, finish,
// or an error that ends the run.
type stage struct {
	name string
	run  func(ctx context.Context, st *scanState) (verdict, error)
}

// ScanPipeline sequences validation, classification, scanning and analysis,
// with optional reconciliation against a venue inventory.
type ScanPipeline struct {
	Validator  *imaging.Validator
	Classifier *RelevanceClassifier
	Scanner    *LabelScanner
	Analyzer   *WineAnalyzer
	// Matches is optional; without it venue IDs are ignored.
	Matches *MatchService
	// Deadline bounds a whole run, retries included. Zero means none.
	Deadline time.Duration

	stages []stage
}

// NewScanPipeline wires the stage chain.
func NewScanPipeline(v *imaging.Validator, c *RelevanceClassifier, s *LabelScanner, a *WineAnalyzer, m *MatchService) *ScanPipeline {
	p := &ScanPipeline{Validator: v, Classifier: c, Scanner: s, Analyzer: a, Matches: m}
	p.stages = []stage{
		{StageValidate, p.validate},
		{StageVenue, p.loadVenue},
		{StageClassify, p.classify},
		{StageScan, p.scan},
		{StageAnalyze, p.analyze},
		{StageReconcile, p.reconcile},
	}
	return p
}

// Run executes the chain. Errors are ErrCanceled, ErrDeadline,
// *imaging.ValidationError, *ContentMismatchError, *UpstreamError,
// ErrVenueNotFound or a storage error. Nothing is cached between runs.
func (p *ScanPipeline) Run(parent context.Context, req ScanRequest) (*ScanOutcome, error) {
	ctx, cancel := withDeadline(parent, p.Deadline)
	defer cancel()
	ctx, span := otel.Tracer("services/pipeline").Start(ctx, "ScanPipeline.Run")
	defer span.End()

	log := zerolog.Ctx(ctx)
	st := &scanState{req: req}
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			err = deadlineError(parent, ctx, fmt.Errorf("%w: %w", ErrCanceled, err))
			stageOutcomes.WithLabelValues(s.name, outcomeLabel(err)).Inc()
			return nil, err
		}

		start := time.Now()
		v, err := s.run(ctx, st)
		if err != nil {
			err = deadlineError(parent, ctx, err)
			stageOutcomes.WithLabelValues(s.name, outcomeLabel(err)).Inc()
			span.RecordError(err)
			span.SetAttributes(attribute.String("pipeline.stopped_at", s.name))
			log.Debug().Str("stage", s.name).Err(err).Msg("scan pipeline stopped")
			return nil, err
		}
		if v == finish {
			stageOutcomes.WithLabelValues(s.name, "low_confidence").Inc()
			span.SetAttributes(attribute.String("pipeline.stopped_at", s.name))
			log.Debug().Str("stage", s.name).Dur("took", time.Since(start)).Msg("scan pipeline finished early")
			return &st.outcome, nil
		}
		stageOutcomes.WithLabelValues(s.name, "continue").Inc()
	}
	st.outcome.Success = true
	return &st.outcome, nil
}

func outcomeLabel(err error) string {
	var mismatch *ContentMismatchError
	switch {
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrDeadline):
		return "deadline"
	case errors.As(err, &mismatch):
		return "rejected"
	}
	var verr *imaging.ValidationError
	if errors.As(err, &verr) {
		return "rejected"
	}
	return "error"
}

func (p *ScanPipeline) validate(_ context.Context, st *scanState) (verdict, error) {
	img, err := p.Validator.Validate(st.req.Image)
	if err != nil {
		return finish, err
	}
	st.image = img
	return proceed, nil
}

// loadVenue resolves the inventory before any model call so an unknown
// venue fails without spending one.
func (p *ScanPipeline) loadVenue(ctx context.Context, st *scanState) (verdict, error) {
	if st.req.VenueID == "" || p.Matches == nil {
		return proceed, nil
	}
	_, inv, err := p.Matches.Inventory(ctx, st.req.VenueID)
	if err != nil {
		return finish, err
	}
	st.inventory = inv
	return proceed, nil
}

func (p *ScanPipeline) classify(ctx context.Context, st *scanState) (verdict, error) {
	v, err := p.Classifier.Classify(ctx, st.image)
	if err != nil {
		return finish, err
	}
	st.outcome.Verdict = v
	if RejectForRelevance(v) {
		return finish, &ContentMismatchError{Verdict: v}
	}
	return proceed, nil
}

func (p *ScanPipeline) scan(ctx context.Context, st *scanState) (verdict, error) {
	res, err := p.Scanner.Scan(ctx, st.image)
	if err != nil {
		return finish, err
	}
	st.outcome.Scan = &res
	if !PassesConfidenceGate(res.Confidence) {
		st.outcome.Message = UnreadableMessage
		return finish, nil
	}
	return proceed, nil
}

func (p *ScanPipeline) analyze(ctx context.Context, st *scanState) (verdict, error) {
	a, err := p.Analyzer.Analyze(ctx, *st.outcome.Scan)
	if err != nil {
		return finish, err
	}
	st.outcome.Analysis = &a
	return proceed, nil
}

func (p *ScanPipeline) reconcile(_ context.Context, st *scanState) (verdict, error) {
	if st.req.VenueID == "" || p.Matches == nil {
		return proceed, nil
	}
	a := st.outcome.Analysis
	desc := domain.LabelFields{Name: a.Name, Producer: a.Producer, Vintage: a.Vintage}.Descriptor()
	st.outcome.Matches = p.Matches.MatchInventory(desc, st.inventory)
	return proceed, nil
}
