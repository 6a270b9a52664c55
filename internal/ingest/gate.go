package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/pipeline"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

// Result is the outcome of one Ingest call. AlertID is uuid.Nil when the
// post was a duplicate with no alert recorded.
type Result struct {
	PostID    uuid.UUID `json:"post_id"`
	AlertID   uuid.UUID `json:"alert_id"`
	Duplicate bool      `json:"duplicate"`
}

// Gate deduplicates incoming posts by content hash and runs the detection
// pipeline on new content. Ingestion is idempotent per unique
// (source, url, text).
type Gate struct {
	store    Store
	analyzer *pipeline.Analyzer
	logger   *zap.Logger
}

// NewGate creates a Gate.
func NewGate(store Store, analyzer *pipeline.Analyzer, logger *zap.Logger) *Gate {
	return &Gate{store: store, analyzer: analyzer, logger: logger}
}

// Ingest accepts a raw post. Duplicate content returns the existing post id
// and its most recent alert id without re-running the pipeline. New content
// is persisted, analyzed, and its alert stored, all through the single write
// path. A losing concurrent writer is reported as a duplicate, not an error.
func (g *Gate) Ingest(ctx context.Context, rp RawPost, feats *vulnrisk.Features) (Result, error) {
	if rp.Source == "" || rp.URL == "" || rp.Text == "" {
		return Result{}, fmt.Errorf("source, url, and text are required")
	}

	hash := ContentHash(rp.Source, rp.URL, rp.Text)

	existing, err := g.store.GetPostByHash(ctx, hash)
	if err == nil {
		return g.duplicateResult(ctx, existing)
	}
	if !errors.Is(err, ErrNotFound) {
		return Result{}, fmt.Errorf("dedup lookup: %w", err)
	}

	post := &Post{
		ID:         uuid.New(),
		Source:     rp.Source,
		URL:        rp.URL,
		Title:      rp.Title,
		Author:     rp.Author,
		CreatedAt:  rp.CreatedAt,
		Text:       rp.Text,
		Hash:       hash,
		IngestedAt: time.Now().UTC(),
	}
	if err := g.store.CreatePost(ctx, post); err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			// Lost the check-then-insert race; the store's uniqueness
			// constraint kept the content single. Recover as duplicate.
			winner, getErr := g.store.GetPostByHash(ctx, hash)
			if getErr != nil {
				return Result{}, fmt.Errorf("duplicate recovery: %w", getErr)
			}
			return g.duplicateResult(ctx, winner)
		}
		return Result{}, fmt.Errorf("persist post: %w", err)
	}

	alert, err := g.analyzer.Analyze(ctx, pipeline.PostMeta{
		Source:    rp.Source,
		URL:       rp.URL,
		Title:     rp.Title,
		Author:    rp.Author,
		CreatedAt: rp.CreatedAt,
		Text:      rp.Text,
	}, feats)
	if err != nil {
		return Result{}, fmt.Errorf("analyze post %s: %w", post.ID, err)
	}

	record := toAlertRecord(post.ID, alert)
	findings := make([]FindingRecord, 0, len(alert.Findings))
	for _, f := range alert.Findings {
		findings = append(findings, FindingRecord{
			ID:          uuid.New(),
			PostID:      post.ID,
			Type:        f.Type,
			Confidence:  f.Confidence,
			Evidence:    f.Evidence,
			MaskedValue: f.MaskedValue,
		})
	}
	entities := make([]EntityRecord, 0, len(alert.Entities))
	for _, e := range alert.Entities {
		entities = append(entities, EntityRecord{
			ID:     uuid.New(),
			PostID: post.ID,
			Kind:   e.Kind,
			Value:  e.Value,
		})
	}

	if err := g.store.SaveAnalysis(ctx, record, findings, entities); err != nil {
		return Result{}, fmt.Errorf("persist analysis: %w", err)
	}

	g.logger.Info("post ingested",
		zap.String("post_id", post.ID.String()),
		zap.String("alert_id", record.ID.String()),
		zap.String("category", record.Category),
		zap.Float64("score", record.Score),
	)

	return Result{PostID: post.ID, AlertID: record.ID}, nil
}

// duplicateResult resolves the most recent alert for an already-ingested
// post. A post without any alert yields the uuid.Nil sentinel.
func (g *Gate) duplicateResult(ctx context.Context, post *Post) (Result, error) {
	alert, err := g.store.LatestAlertForPost(ctx, post.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{PostID: post.ID, AlertID: uuid.Nil, Duplicate: true}, nil
		}
		return Result{}, fmt.Errorf("latest alert lookup: %w", err)
	}
	return Result{PostID: post.ID, AlertID: alert.ID, Duplicate: true}, nil
}

// toAlertRecord flattens a pipeline Alert into its persisted form.
func toAlertRecord(postID uuid.UUID, a *pipeline.Alert) *AlertRecord {
	rec := &AlertRecord{
		ID:               uuid.New(),
		PostID:           postID,
		Category:         a.Category,
		Sector:           a.Sector,
		Intent:           a.Intent.Label,
		IntentConfidence: a.Intent.Confidence,
		Score:            a.Score,
		ScoreReasons:     a.ScoreReasons,
		Status:           "open",
		CreatedAt:        time.Now().UTC(),
	}
	if a.VulnRisk != nil {
		score := a.VulnRisk.Score
		method := a.VulnRisk.Method
		rec.VulnRiskScore = &score
		rec.VulnRiskMethod = &method
	}
	return rec
}
