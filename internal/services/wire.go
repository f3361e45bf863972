package services

import (
	"gorm.io/gorm"

	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/config"
	"github.com/tbourn/go-wine-scanner/internal/imaging"
	"github.com/tbourn/go-wine-scanner/internal/search"
)

// Set is the service graph shared by the HTTP server and the CLI.
type Set struct {
	Matches  *MatchService
	Pipeline *ScanPipeline
	Chat     *ChatService
}

// PolicyFrom maps AI settings onto a CallPolicy.
func PolicyFrom(cfg config.AIConfig) CallPolicy {
	return CallPolicy{Timeout: cfg.CallTimeout, Retries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
}

// Wire builds every service from configuration. client backs the scan
// stages and chat; inventory operations never touch it.
func Wire(db *gorm.DB, r InventoryRepo, client ai.Client, cfg config.Config) *Set {
	policy := PolicyFrom(cfg.AI)
	matches := NewMatchService(db, r, search.NewMatcher(
		search.WithMinScore(cfg.Match.MinScore),
		search.WithLimit(cfg.Match.Limit),
	))
	pipeline := NewScanPipeline(
		imaging.NewValidator(cfg.Image.MaxBytes, cfg.Image.AllowedTypes, imaging.WithMaxPixels(cfg.Image.MaxPixels)),
		&RelevanceClassifier{AI: client, Model: cfg.AI.ModelClassify, Policy: policy},
		&LabelScanner{AI: client, Model: cfg.AI.ModelScan, Policy: policy},
		&WineAnalyzer{AI: client, Model: cfg.AI.ModelAnalyze, Policy: policy},
		matches,
	)
	pipeline.Deadline = cfg.AI.RequestTimeout
	chat := NewChatService(matches, client, cfg.AI.ModelChat, policy)
	chat.Deadline = cfg.AI.RequestTimeout
	return &Set{
		Matches:  matches,
		Pipeline: pipeline,
		Chat:     chat,
	}
}
