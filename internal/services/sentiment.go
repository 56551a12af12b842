package services

import (
	"context"
	"errors"
	"strings"
	"time"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/metrics"
	"github.com/rahul4469/socialear/internal/models"
)

// AnalyzeRequest is the raw user input of one analysis.
type AnalyzeRequest struct {
	Query    string
	DateFrom string
	DateTo   string
}

// SentimentService runs the full pipeline: normalize the dates, fetch the
// articles, classify them and persist the summary.
type SentimentService struct {
	source     ArticleSource
	aggregator *Aggregator
	store      models.ResultStore
	now        func() time.Time
}

// NewSentimentService wires the pipeline. store may be nil, in which case
// results are not persisted.
func NewSentimentService(source ArticleSource, aggregator *Aggregator, store models.ResultStore) *SentimentService {
	return &SentimentService{
		source:     source,
		aggregator: aggregator,
		store:      store,
		now:        time.Now,
	}
}

// Analyze runs one analysis. Retrieval failures and a cancelled context
// abort the request; classifier failures are absorbed per article and a
// failed save is only logged.
func (s *SentimentService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	logger := localcontext.Logger(ctx)

	query := strings.TrimSpace(req.Query)
	if len([]rune(query)) < models.MinQueryLength {
		metrics.AnalysesTotal.WithLabelValues("invalid_input").Inc()
		return nil, models.ErrQueryTooShort
	}

	dateRange, notes, err := models.NormalizeDateRange(req.DateFrom, req.DateTo, s.now())
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	for _, note := range notes {
		logger.Warn("date range adjusted", "query", query, "note", note)
	}

	logger.Info("analysis started", "query", query, "date_from", dateRange.FromString(), "date_to", dateRange.ToString())

	articles, err := s.source.Search(ctx, query, dateRange)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("fetch_failed").Inc()
		return nil, err
	}
	logger.Info("articles fetched", "query", query, "count", len(articles))

	scored, counts := s.aggregator.Aggregate(ctx, articles)
	if err := ctx.Err(); err != nil {
		// Articles left unclassified would be miscounted as errors.
		metrics.AnalysesTotal.WithLabelValues("cancelled").Inc()
		logger.Warn("analysis cancelled", "query", query, "error", err)
		return nil, &models.UpstreamError{
			Service: "classifier",
			Message: "request cancelled before all articles were classified",
			Err:     err,
		}
	}

	result := &models.AnalysisResult{
		Query:        query,
		DateFrom:     dateRange.FromString(),
		DateTo:       dateRange.ToString(),
		ArticleCount: len(articles),
		Sentiment:    counts,
		Articles:     scored,
		CreatedAt:    s.now().UTC(),
	}

	if s.store != nil {
		err := s.store.Put(ctx, result)
		metrics.RecordStore("put", err == nil)
		if err != nil {
			logger.Error("failed to save result", "query", query, "error", err)
		}
	}

	metrics.AnalysesTotal.WithLabelValues("completed").Inc()
	logger.Info("analysis completed",
		"query", query,
		"positive", counts.Positive,
		"negative", counts.Negative,
		"neutral", counts.Neutral,
		"errors", counts.Errors,
		"total", counts.Total,
	)

	return result, nil
}

// Latest returns a stored result: the exact one when both dates are given,
// otherwise the newest for query.
func (s *SentimentService) Latest(ctx context.Context, query, dateFrom, dateTo string) (*models.AnalysisResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < models.MinQueryLength {
		return nil, models.ErrQueryTooShort
	}

	if (dateFrom == "") != (dateTo == "") {
		// A single date cannot address a key; fall back to the latest result.
		dateFrom, dateTo = "", ""
	}
	if dateFrom != "" {
		if _, err := models.ParseDate(dateFrom); err != nil {
			return nil, err
		}
		if _, err := models.ParseDate(dateTo); err != nil {
			return nil, err
		}
	}

	if s.store == nil {
		return nil, models.ErrResultNotFound
	}

	result, err := s.store.Get(ctx, query, dateFrom, dateTo)
	metrics.RecordStore("get", err == nil || isNotFound(err))
	return result, err
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
