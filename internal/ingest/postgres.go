package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable Store implementation. The posts table carries
// a UNIQUE constraint on hash, so concurrent ingestion of identical content
// resolves at the database: the losing writer gets a unique violation, which
// surfaces as ErrDuplicateContent.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetPostByHash implements Store.
func (s *PostgresStore) GetPostByHash(ctx context.Context, hash string) (*Post, error) {
	q := `
		SELECT id, source, url, title, author, created_at, text, hash, ingested_at
		FROM posts WHERE hash = $1`
	var p Post
	err := s.db.QueryRow(ctx, q, hash).Scan(
		&p.ID, &p.Source, &p.URL, &p.Title, &p.Author, &p.CreatedAt,
		&p.Text, &p.Hash, &p.IngestedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post by hash: %w", err)
	}
	return &p, nil
}

// CreatePost implements Store.
func (s *PostgresStore) CreatePost(ctx context.Context, p *Post) error {
	q := `
		INSERT INTO posts (id, source, url, title, author, created_at, text, hash, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.Exec(ctx, q,
		p.ID, p.Source, p.URL, p.Title, p.Author, p.CreatedAt,
		p.Text, p.Hash, p.IngestedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateContent
		}
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// LatestAlertForPost implements Store.
func (s *PostgresStore) LatestAlertForPost(ctx context.Context, postID uuid.UUID) (*AlertRecord, error) {
	q := alertSelect + ` WHERE post_id = $1 ORDER BY created_at DESC LIMIT 1`
	return s.scanAlert(s.db.QueryRow(ctx, q, postID))
}

// SaveAnalysis implements Store. Alert, findings, and entities are written in
// one transaction so a crash never leaves an alert without its evidence.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, alert *AlertRecord, findings []FindingRecord, entities []EntityRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := `
		INSERT INTO alerts (id, post_id, category, sector, intent, intent_confidence,
			score, score_reasons, status, created_at, vuln_risk_score, vuln_risk_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := tx.Exec(ctx, q,
		alert.ID, alert.PostID, alert.Category, alert.Sector, alert.Intent,
		alert.IntentConfidence, alert.Score, alert.ScoreReasons, alert.Status,
		alert.CreatedAt, alert.VulnRiskScore, alert.VulnRiskMethod,
	); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	for _, f := range findings {
		if _, err := tx.Exec(ctx, `
			INSERT INTO findings (id, post_id, type, confidence, evidence, masked_value)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, f.PostID, f.Type, f.Confidence, f.Evidence, f.MaskedValue,
		); err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	for _, e := range entities {
		if _, err := tx.Exec(ctx, `
			INSERT INTO entities (id, post_id, kind, value)
			VALUES ($1, $2, $3, $4)`,
			e.ID, e.PostID, e.Kind, e.Value,
		); err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetAlert implements Store.
func (s *PostgresStore) GetAlert(ctx context.Context, id uuid.UUID) (*AlertRecord, error) {
	q := alertSelect + ` WHERE id = $1`
	return s.scanAlert(s.db.QueryRow(ctx, q, id))
}

// ListAlerts implements Store.
func (s *PostgresStore) ListAlerts(ctx context.Context, limit int) ([]*AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := alertSelect + ` ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []*AlertRecord
	for rows.Next() {
		a, err := s.scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const alertSelect = `
	SELECT id, post_id, category, sector, intent, intent_confidence,
		score, score_reasons, status, created_at, vuln_risk_score, vuln_risk_method
	FROM alerts`

func (s *PostgresStore) scanAlert(row pgx.Row) (*AlertRecord, error) {
	var a AlertRecord
	err := row.Scan(
		&a.ID, &a.PostID, &a.Category, &a.Sector, &a.Intent, &a.IntentConfidence,
		&a.Score, &a.ScoreReasons, &a.Status, &a.CreatedAt,
		&a.VulnRiskScore, &a.VulnRiskMethod,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return &a, nil
}
