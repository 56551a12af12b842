package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ResultStore persists analysis results keyed by (query, date_from, date_to).
type ResultStore interface {
	// Put upserts r under its key.
	Put(ctx context.Context, r *AnalysisResult) error
	// Get returns the exact result when both dates are given, otherwise
	// the most recently created result for query.
	Get(ctx context.Context, query, dateFrom, dateTo string) (*AnalysisResult, error)
}

// NormalizeQuery is applied to every query before it is used as a key.
func NormalizeQuery(q string) string {
	return strings.TrimSpace(q)
}

// pgxQuerier is the subset of *pgxpool.Pool the result service needs.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResultService stores analysis results in PostgreSQL.
type ResultService struct {
	pool pgxQuerier
}

func NewResultService(pool pgxQuerier) *ResultService {
	return &ResultService{pool: pool}
}

const resultColumns = `query, date_from, date_to, article_count,
		positive, negative, neutral, errors, total, articles, created_at`

func (s *ResultService) Put(ctx context.Context, r *AnalysisResult) error {
	if r == nil {
		return fmt.Errorf("%w: nil result", ErrInvalidInput)
	}

	articlesJSON, err := json.Marshal(r.Articles)
	if err != nil {
		return fmt.Errorf("failed to marshal articles: %w", err)
	}

	query := `
		INSERT INTO analysis_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (query, date_from, date_to) DO UPDATE SET
			article_count = EXCLUDED.article_count,
			positive = EXCLUDED.positive,
			negative = EXCLUDED.negative,
			neutral = EXCLUDED.neutral,
			errors = EXCLUDED.errors,
			total = EXCLUDED.total,
			articles = EXCLUDED.articles,
			created_at = EXCLUDED.created_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err = s.pool.Exec(ctx, query,
		NormalizeQuery(r.Query),
		r.DateFrom,
		r.DateTo,
		r.ArticleCount,
		r.Sentiment.Positive,
		r.Sentiment.Negative,
		r.Sentiment.Neutral,
		r.Sentiment.Errors,
		r.Sentiment.Total,
		articlesJSON,
		r.CreatedAt,
	)
	if err != nil {
		return postgresError("failed to save result", err)
	}

	return nil
}

func (s *ResultService) Get(ctx context.Context, query, dateFrom, dateTo string) (*AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	query = NormalizeQuery(query)

	var row pgx.Row
	if dateFrom != "" && dateTo != "" {
		row = s.pool.QueryRow(ctx, `
			SELECT `+resultColumns+`
			FROM analysis_results
			WHERE query = $1 AND date_from = $2 AND date_to = $3
		`, query, dateFrom, dateTo)
	} else {
		row = s.pool.QueryRow(ctx, `
			SELECT `+resultColumns+`
			FROM analysis_results
			WHERE query = $1
			ORDER BY created_at DESC
			LIMIT 1
		`, query)
	}

	result := &AnalysisResult{}
	var articlesJSON []byte
	err := row.Scan(
		&result.Query,
		&result.DateFrom,
		&result.DateTo,
		&result.ArticleCount,
		&result.Sentiment.Positive,
		&result.Sentiment.Negative,
		&result.Sentiment.Neutral,
		&result.Sentiment.Errors,
		&result.Sentiment.Total,
		&articlesJSON,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, postgresError("failed to load result", err)
	}

	if len(articlesJSON) > 0 {
		if err := json.Unmarshal(articlesJSON, &result.Articles); err != nil {
			return nil, fmt.Errorf("failed to decode stored articles: %w", err)
		}
	}

	return result, nil
}

func postgresError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		msg += ": analysis_results table is missing, run migrations"
	}
	return &UpstreamError{Service: "postgres", Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}
