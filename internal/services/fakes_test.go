package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/imaging"
	"github.com/tbourn/go-wine-scanner/internal/search"
)

const (
	modelClassify = "m-classify"
	modelScan     = "m-scan"
	modelAnalyze  = "m-analyze"
	modelChat     = "m-chat"
)

// replyFunc answers the n-th call (1-based) to one model.
type replyFunc func(ctx context.Context, n int, req ai.Request) (*ai.Response, error)

type fakeAI struct {
	mu      sync.Mutex
	calls   map[string]int
	last    map[string]ai.Request
	replies map[string]replyFunc
}

func newFakeAI() *fakeAI {
	return &fakeAI{calls: map[string]int{}, last: map[string]ai.Request{}, replies: map[string]replyFunc{}}
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	f.mu.Lock()
	f.calls[req.Model]++
	n := f.calls[req.Model]
	f.last[req.Model] = req
	fn := f.replies[req.Model]
	f.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("unexpected model %q", req.Model)
	}
	return fn(ctx, n, req)
}

func (f *fakeAI) count(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[model]
}

func (f *fakeAI) on(model string, fn replyFunc) *fakeAI {
	f.replies[model] = fn
	return f
}

func (f *fakeAI) text(model, body string) *fakeAI {
	return f.on(model, func(context.Context, int, ai.Request) (*ai.Response, error) {
		return &ai.Response{Text: body}, nil
	})
}

func verdictJSON(related bool, conf float64) string {
	return fmt.Sprintf(`{"is_related": %t, "confidence": %g, "reason": "test"}`, related, conf)
}

func scanJSON(name string, conf float64) string {
	return fmt.Sprintf("```json\n{\"name\": %q, \"producer\": \"\", \"vintage\": \"2018\", \"confidence\": %g}\n```", name, conf)
}

const analysisJSON = `{"name": "Barolo Riserva", "producer": "", "vintage": 2018, "country": "italy",
  "type": "Red", "body": "Full", "tasting_notes": ["tar", " roses ", ""], "food_pairings": ["truffle risotto"]}`

var testPolicy = CallPolicy{Timeout: time.Second, Retries: 1, Backoff: 0}

func testPayload(t *testing.T) imaging.Payload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 90, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return imaging.Payload{Data: base64.StdEncoding.EncodeToString(buf.Bytes()), MediaType: "image/png"}
}

func newTestPipeline(f *fakeAI, m *MatchService) *ScanPipeline {
	return NewScanPipeline(
		imaging.NewValidator(1<<20, []string{"image/png", "image/jpeg"}),
		&RelevanceClassifier{AI: f, Model: modelClassify, Policy: testPolicy},
		&LabelScanner{AI: f, Model: modelScan, Policy: testPolicy},
		&WineAnalyzer{AI: f, Model: modelAnalyze, Policy: testPolicy},
		m,
	)
}

// memRepo is an in-memory InventoryRepo.
type memRepo struct {
	venues map[string]domain.Venue
	wines  map[string][]domain.WineWithRatings
	err    error
}

func (r *memRepo) GetVenue(_ context.Context, _ *gorm.DB, id string) (*domain.Venue, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.venues[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r *memRepo) VenueInventory(_ context.Context, _ *gorm.DB, venueID string) ([]domain.WineWithRatings, error) {
	return r.wines[venueID], nil
}

func (r *memRepo) CountVenueWines(_ context.Context, _ *gorm.DB, venueID string) (int64, error) {
	return int64(len(r.wines[venueID])), nil
}

func (r *memRepo) ListVenueWinesPage(_ context.Context, _ *gorm.DB, venueID string, offset, limit int) ([]domain.WineWithRatings, error) {
	ws := r.wines[venueID]
	if offset >= len(ws) {
		return []domain.WineWithRatings{}, nil
	}
	return ws[offset:min(offset+limit, len(ws))], nil
}

func venueRepo() *memRepo {
	y18, y20 := 2018, 2020
	return &memRepo{
		venues: map[string]domain.Venue{"v1": {ID: "v1", Name: "Enoteca"}},
		wines: map[string][]domain.WineWithRatings{"v1": {
			{Wine: domain.Wine{ID: "w1", VenueID: "v1", Name: "Barolo Riserva", Vintage: &y18, Producer: "Giacomo Conterno", Price: 180}, AvgRating: 4.5, RatingCount: 2},
			{Wine: domain.Wine{ID: "w2", VenueID: "v1", Name: "Barolo Normale", Vintage: &y20, Price: 70}},
			{Wine: domain.Wine{ID: "w3", VenueID: "v1", Name: "Chianti Classico DOCG 2019", Grape: "Sangiovese", Price: 35}},
		}},
	}
}

func newMatchService(r InventoryRepo) *MatchService {
	return NewMatchService(nil, r, search.NewMatcher(search.WithLimit(5)))
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func scanResult(conf float64) domain.ScanResult {
	return domain.ScanResult{Fields: domain.LabelFields{Name: "Barolo"}, Confidence: conf}
}

func notRelated(conf float64) domain.RelevanceVerdict {
	return domain.RelevanceVerdict{IsRelated: false, Confidence: conf}
}
