// Package ingest is the system's only write path into alert state. The Gate
// deduplicates raw posts by content hash, runs the detection pipeline on new
// content, and persists the resulting post, findings, entities, and alert
// through a Store.
package ingest

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a post or alert lookup finds no record.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateContent is returned by Store.CreatePost when another post with
// the same content hash already exists. Under concurrent ingestion this is
// how a losing writer learns it lost; the Gate treats it as "already
// ingested", not as a failure.
var ErrDuplicateContent = errors.New("content already ingested")

// RawPost is the external collectors' input to ingestion. Text is the sole
// signal-bearing field; Source, URL, and Text together form the dedup key.
type RawPost struct {
	Source    string     `json:"source"`
	URL       string     `json:"url"`
	Title     string     `json:"title,omitempty"`
	Author    string     `json:"author,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Text      string     `json:"text"`
}

// Post is the persisted form of an accepted RawPost.
type Post struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	URL        string     `json:"url"`
	Title      string     `json:"title,omitempty"`
	Author     string     `json:"author,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	Text       string     `json:"text"`
	Hash       string     `json:"hash"`
	IngestedAt time.Time  `json:"ingested_at"`
}

// AlertRecord is the flat, store-facing projection of a pipeline Alert.
// Status starts "open" and is owned by the store afterwards.
type AlertRecord struct {
	ID               uuid.UUID `json:"id"`
	PostID           uuid.UUID `json:"post_id"`
	Category         string    `json:"category"`
	Sector           string    `json:"sector"`
	Intent           string    `json:"intent"`
	IntentConfidence float64   `json:"intent_confidence"`
	Score            float64   `json:"score"`
	ScoreReasons     []string  `json:"score_reasons"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	VulnRiskScore    *float64  `json:"vuln_risk_score,omitempty"`
	VulnRiskMethod   *string   `json:"vuln_risk_method,omitempty"`
}

// FindingRecord is a persisted leak finding attached to a post.
type FindingRecord struct {
	ID          uuid.UUID `json:"id"`
	PostID      uuid.UUID `json:"post_id"`
	Type        string    `json:"type"`
	Confidence  float64   `json:"confidence"`
	Evidence    string    `json:"evidence"`
	MaskedValue string    `json:"masked_value"`
}

// EntityRecord is a persisted extracted entity attached to a post.
type EntityRecord struct {
	ID     uuid.UUID `json:"id"`
	PostID uuid.UUID `json:"post_id"`
	Kind   string    `json:"kind"`
	Value  string    `json:"value"`
}
