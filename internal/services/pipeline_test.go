package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/imaging"
)

func TestScanPipeline_LowConfidenceSkipsAnalyzer(t *testing.T) {
	f := newFakeAI().
		text(modelClassify, verdictJSON(true, 0.95)).
		text(modelScan, scanJSON("", 0.2)).
		text(modelAnalyze, analysisJSON)
	base := testutil.ToFloat64(stageOutcomes.WithLabelValues(StageScan, "low_confidence"))

	out, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Success || out.Message != UnreadableMessage {
		t.Fatalf("want unreadable outcome, got %+v", out)
	}
	if out.Analysis != nil {
		t.Fatalf("analysis must be empty, got %+v", out.Analysis)
	}
	if n := f.count(modelAnalyze); n != 0 {
		t.Fatalf("analyzer called %d times", n)
	}
	if got := testutil.ToFloat64(stageOutcomes.WithLabelValues(StageScan, "low_confidence")); got != base+1 {
		t.Fatalf("low_confidence counter = %v, want %v", got, base+1)
	}
}

func TestScanPipeline_ConfidenceGateBoundaries(t *testing.T) {
	cases := []struct {
		conf     float64
		analyzed int
	}{
		{0, 0},
		{0.29, 0},
		{0.3, 1},
		{0.31, 1},
		{0.85, 1},
		{1, 1},
		{1.7, 1}, // clamped to 1
		{-2, 0},  // clamped to 0
	}
	for _, tc := range cases {
		f := newFakeAI().
			text(modelClassify, verdictJSON(true, 0.9)).
			text(modelScan, scanJSON("Barolo Riserva", tc.conf)).
			text(modelAnalyze, analysisJSON)

		out, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
		if err != nil {
			t.Fatalf("conf=%v: %v", tc.conf, err)
		}
		if got := f.count(modelAnalyze); got != tc.analyzed {
			t.Fatalf("conf=%v: analyzer calls = %d, want %d", tc.conf, got, tc.analyzed)
		}
		if out.Success != (tc.analyzed == 1) {
			t.Fatalf("conf=%v: success = %v", tc.conf, out.Success)
		}
	}
}

func TestScanPipeline_RelevanceIsAsymmetric(t *testing.T) {
	cases := []struct {
		related bool
		conf    float64
		reject  bool
	}{
		{false, 0.5, false},
		{false, 0.7, false},
		{false, 0.71, true},
		{false, 0.9, true},
		{true, 0.99, false},
		{true, 0.1, false},
	}
	for _, tc := range cases {
		f := newFakeAI().
			text(modelClassify, verdictJSON(tc.related, tc.conf)).
			text(modelScan, scanJSON("Barolo Riserva", 0.8)).
			text(modelAnalyze, analysisJSON)

		out, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
		if tc.reject {
			var mm *ContentMismatchError
			if !errors.As(err, &mm) || !errors.Is(err, ErrContentMismatch) {
				t.Fatalf("%v/%v: want content mismatch, got %v", tc.related, tc.conf, err)
			}
			if mm.Verdict.Confidence != tc.conf {
				t.Fatalf("verdict not carried: %+v", mm.Verdict)
			}
			if f.count(modelScan) != 0 {
				t.Fatalf("%v/%v: scanner must not run after rejection", tc.related, tc.conf)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%v/%v: %v", tc.related, tc.conf, err)
		}
		if f.count(modelScan) != 1 || !out.Success {
			t.Fatalf("%v/%v: expected scan to proceed, out=%+v", tc.related, tc.conf, out)
		}
	}
}

func TestScanPipeline_SuccessAnalysisAndReconcile(t *testing.T) {
	f := newFakeAI().
		text(modelClassify, verdictJSON(true, 0.97)).
		text(modelScan, scanJSON("Barolo Riserva", 0.85)).
		text(modelAnalyze, analysisJSON)

	out, err := newTestPipeline(f, newMatchService(venueRepo())).
		Run(context.Background(), ScanRequest{Image: testPayload(t), VenueID: "v1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Success || out.Analysis == nil {
		t.Fatalf("want success, got %+v", out)
	}
	a := out.Analysis
	if a.Name != "Barolo Riserva" || a.Vintage != 2018 || a.Country != "Italy" || a.Type != "red" || a.Body != "full" {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if len(a.TastingNotes) != 2 || a.TastingNotes[1] != "roses" {
		t.Fatalf("tasting notes not compacted: %q", a.TastingNotes)
	}
	if out.Scan == nil || out.Scan.Fields.Vintage != 2018 {
		t.Fatalf("string vintage not parsed: %+v", out.Scan)
	}
	if len(out.Matches) != 2 {
		t.Fatalf("want 2 matches, got %d", len(out.Matches))
	}
	if out.Matches[0].Wine.ID != "w1" || out.Matches[0].Score <= out.Matches[1].Score {
		t.Fatalf("Barolo Riserva must rank first and higher: %+v", out.Matches)
	}
	if f.count(modelAnalyze) != 1 {
		t.Fatalf("analyzer calls = %d, want 1", f.count(modelAnalyze))
	}
}

func TestScanPipeline_AnalyzerToleratesMissingFields(t *testing.T) {
	f := newFakeAI().
		text(modelClassify, verdictJSON(true, 0.9)).
		text(modelScan, `{"name": "Tignanello", "confidence": 0.6}`).
		text(modelAnalyze, `{"summary": "A Super Tuscan."}`)

	out, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Analysis.Name != "Tignanello" || out.Analysis.Summary != "A Super Tuscan." {
		t.Fatalf("scan fields should back-fill the analysis: %+v", out.Analysis)
	}
}

func TestScanPipeline_UnknownVenueFailsBeforeModelCalls(t *testing.T) {
	f := newFakeAI()
	_, err := newTestPipeline(f, newMatchService(venueRepo())).
		Run(context.Background(), ScanRequest{Image: testPayload(t), VenueID: "nope"})
	if !errors.Is(err, ErrVenueNotFound) {
		t.Fatalf("want ErrVenueNotFound, got %v", err)
	}
	if f.count(modelClassify) != 0 {
		t.Fatalf("classifier must not run")
	}
}

func TestScanPipeline_ValidationErrorStopsEarly(t *testing.T) {
	f := newFakeAI()
	_, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: imaging.Payload{Data: "%%%", MediaType: "image/png"}})
	var ve *imaging.ValidationError
	if !errors.As(err, &ve) || ve.Reason != imaging.ReasonMalformed {
		t.Fatalf("want malformed validation error, got %v", err)
	}
	if f.count(modelClassify) != 0 {
		t.Fatalf("classifier must not run")
	}
}

func TestScanPipeline_RetriesOnceThenSucceeds(t *testing.T) {
	f := newFakeAI().
		on(modelClassify, func(_ context.Context, n int, _ ai.Request) (*ai.Response, error) {
			if n == 1 {
				return nil, &ai.StatusError{Provider: "fake", Code: http.StatusServiceUnavailable}
			}
			return &ai.Response{Text: verdictJSON(true, 0.9)}, nil
		}).
		on(modelScan, func(_ context.Context, n int, _ ai.Request) (*ai.Response, error) {
			if n == 1 {
				return &ai.Response{Text: "sorry, I cannot help"}, nil
			}
			return &ai.Response{Text: scanJSON("Barolo", 0.9)}, nil
		}).
		text(modelAnalyze, analysisJSON)

	out, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
	if err != nil || !out.Success {
		t.Fatalf("want success after retry, got %v / %+v", err, out)
	}
	if f.count(modelClassify) != 2 || f.count(modelScan) != 2 {
		t.Fatalf("calls: classify=%d scan=%d", f.count(modelClassify), f.count(modelScan))
	}
}

func TestScanPipeline_RetryIsBounded(t *testing.T) {
	f := newFakeAI().on(modelClassify, func(context.Context, int, ai.Request) (*ai.Response, error) {
		return nil, &ai.StatusError{Provider: "fake", Code: http.StatusBadGateway}
	})

	_, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
	var ue *UpstreamError
	if !errors.As(err, &ue) || !errors.Is(err, ErrUpstream) {
		t.Fatalf("want UpstreamError, got %v", err)
	}
	if ue.Stage != StageClassify || ue.Attempts != 2 {
		t.Fatalf("unexpected upstream error: %+v", ue)
	}
	if f.count(modelClassify) != 2 {
		t.Fatalf("classifier calls = %d, want 2", f.count(modelClassify))
	}
}

func TestScanPipeline_PermanentErrorNotRetried(t *testing.T) {
	f := newFakeAI().
		text(modelClassify, verdictJSON(true, 0.9)).
		text(modelScan, scanJSON("Barolo", 0.9)).
		on(modelAnalyze, func(context.Context, int, ai.Request) (*ai.Response, error) {
			return nil, &ai.StatusError{Provider: "fake", Code: http.StatusUnauthorized}
		})

	_, err := newTestPipeline(f, nil).Run(context.Background(), ScanRequest{Image: testPayload(t)})
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Stage != StageAnalyze || ue.Attempts != 1 {
		t.Fatalf("want single-attempt analyze failure, got %v", err)
	}
	var se *ai.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("status error not unwrapped: %v", err)
	}
}

func TestScanPipeline_PerAttemptDeadline(t *testing.T) {
	f := newFakeAI().on(modelClassify, func(ctx context.Context, _ int, _ ai.Request) (*ai.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := newTestPipeline(f, nil)
	p.Classifier.Policy = CallPolicy{Timeout: 20 * time.Millisecond, Retries: 1}

	_, err := p.Run(context.Background(), ScanRequest{Image: testPayload(t)})
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Attempts != 2 {
		t.Fatalf("want UpstreamError after 2 attempts, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline cause lost: %v", err)
	}
	if errors.Is(err, ErrCanceled) {
		t.Fatalf("attempt deadline is not a cancellation")
	}
}

func TestScanPipeline_RequestDeadlineCapsRetries(t *testing.T) {
	f := newFakeAI().on(modelClassify, func(ctx context.Context, _ int, _ ai.Request) (*ai.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := newTestPipeline(f, nil)
	p.Classifier.Policy = CallPolicy{Timeout: 5 * time.Second, Retries: 1}
	p.Deadline = 30 * time.Millisecond
	base := testutil.ToFloat64(stageOutcomes.WithLabelValues(StageClassify, "deadline"))

	start := time.Now()
	_, err := p.Run(context.Background(), ScanRequest{Image: testPayload(t)})
	if !errors.Is(err, ErrDeadline) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want ErrDeadline, got %v", err)
	}
	if errors.Is(err, ErrCanceled) {
		t.Fatalf("the caller did not cancel: %v", err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("run outlived its deadline: %v", took)
	}
	if f.count(modelClassify) != 1 || f.count(modelScan) != 0 {
		t.Fatalf("calls after deadline: classify=%d scan=%d", f.count(modelClassify), f.count(modelScan))
	}
	if got := testutil.ToFloat64(stageOutcomes.WithLabelValues(StageClassify, "deadline")); got != base+1 {
		t.Fatalf("deadline outcome = %v, want %v", got, base+1)
	}
}

func TestScanPipeline_CancellationAbandonsWithoutRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFakeAI().on(modelClassify, func(ctx context.Context, _ int, _ ai.Request) (*ai.Response, error) {
		cancel()
		return nil, ctx.Err()
	})

	_, err := newTestPipeline(f, nil).Run(ctx, ScanRequest{Image: testPayload(t)})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("want ErrCanceled, got %v", err)
	}
	if f.count(modelClassify) != 1 || f.count(modelScan) != 0 {
		t.Fatalf("calls after cancel: classify=%d scan=%d", f.count(modelClassify), f.count(modelScan))
	}
}

func TestScanPipeline_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFakeAI()
	if _, err := newTestPipeline(f, nil).Run(ctx, ScanRequest{Image: testPayload(t)}); !errors.Is(err, ErrCanceled) {
		t.Fatalf("want ErrCanceled, got %v", err)
	}
}

func TestCallStage_LogsTokenUsagePerStage(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	f := newFakeAI().on(modelClassify, func(context.Context, int, ai.Request) (*ai.Response, error) {
		return &ai.Response{Text: verdictJSON(true, 0.9), Usage: ai.Usage{InputTokens: 812, OutputTokens: 23}}, nil
	})
	c := &RelevanceClassifier{AI: f, Model: modelClassify, Policy: testPolicy}

	img, err := imaging.NewValidator(1<<20, []string{"image/png"}).Validate(testPayload(t))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := c.Classify(ctx, img); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	line := buf.String()
	for _, want := range []string{`"stage":"classify"`, `"model":"m-classify"`, `"input_tokens":812`, `"output_tokens":23`, `"provider":"fake"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("usage log missing %s: %s", want, line)
		}
	}
}

func TestAnalyzer_RefusesBelowGate(t *testing.T) {
	f := newFakeAI().text(modelAnalyze, analysisJSON)
	a := &WineAnalyzer{AI: f, Model: modelAnalyze, Policy: testPolicy}
	if _, err := a.Analyze(context.Background(), scanResult(0.1)); err == nil {
		t.Fatalf("expected error")
	}
	if f.count(modelAnalyze) != 0 {
		t.Fatalf("model must not be called")
	}
}

func TestGates(t *testing.T) {
	if !PassesConfidenceGate(0.3) || PassesConfidenceGate(0.2999) {
		t.Fatalf("confidence gate boundary wrong")
	}
	if RejectForRelevance(notRelated(0.7)) || !RejectForRelevance(notRelated(0.7001)) {
		t.Fatalf("relevance boundary wrong")
	}
}

func TestClassifier_SendsImageAndDecodesVerdict(t *testing.T) {
	f := newFakeAI().text(modelClassify, "Here you go: "+verdictJSON(false, 0.4))
	c := &RelevanceClassifier{AI: f, Model: modelClassify, Policy: testPolicy}

	img, err := imaging.NewValidator(1<<20, []string{"image/png"}).Validate(testPayload(t))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	v, err := c.Classify(context.Background(), img)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if v.IsRelated || v.Confidence != 0.4 || v.Reason != "test" {
		t.Fatalf("unexpected verdict %+v", v)
	}
	req := f.last[modelClassify]
	if req.Image == nil || req.Image.MIMEType != "image/png" || !req.JSON || !contains(req.System, "JSON") {
		t.Fatalf("unexpected request %+v", req)
	}
}
