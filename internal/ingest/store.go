package ingest

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence collaborator for the ingestion gate. Both
// MemoryStore and PostgresStore implement it.
//
// Correct dedup under concurrent ingestion depends on CreatePost being an
// atomic insert-if-absent on the content hash: a losing concurrent writer
// must get ErrDuplicateContent, never a silent second copy.
type Store interface {
	// GetPostByHash returns the post with the given content hash, or
	// ErrNotFound.
	GetPostByHash(ctx context.Context, hash string) (*Post, error)

	// CreatePost inserts a new post. Returns ErrDuplicateContent when a post
	// with the same content hash already exists.
	CreatePost(ctx context.Context, p *Post) error

	// LatestAlertForPost returns the most recent alert for the post, or
	// ErrNotFound when the post has no alert recorded.
	LatestAlertForPost(ctx context.Context, postID uuid.UUID) (*AlertRecord, error)

	// SaveAnalysis persists the alert together with its findings and
	// entities.
	SaveAnalysis(ctx context.Context, alert *AlertRecord, findings []FindingRecord, entities []EntityRecord) error

	// GetAlert returns one alert by id, or ErrNotFound.
	GetAlert(ctx context.Context, id uuid.UUID) (*AlertRecord, error)

	// ListAlerts returns up to limit alerts, newest first.
	ListAlerts(ctx context.Context, limit int) ([]*AlertRecord, error)
}
