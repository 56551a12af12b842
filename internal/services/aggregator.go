package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/metrics"
	"github.com/rahul4469/socialear/internal/models"
)

const (
	// MaxTextBytes is the largest text submitted to the classifier as is.
	// Longer texts are cut to their first MaxTextBytes/2 characters.
	MaxTextBytes = 8000

	DefaultWorkers = 4
)

var errEmptyText = errors.New("article has no title or description")

// Aggregator classifies articles on a bounded worker pool and buckets the
// resulting labels.
type Aggregator struct {
	classifier Classifier
	workers    int
}

func NewAggregator(classifier Classifier, workers int) *Aggregator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Aggregator{classifier: classifier, workers: workers}
}

// Aggregate classifies every article. A failure on one article is recorded
// as an error entry and never stops the others. The returned slice is in
// input order.
func (a *Aggregator) Aggregate(ctx context.Context, articles []models.Article) ([]models.ArticleSentiment, models.SentimentCounts) {
	results := make([]models.ArticleSentiment, len(articles))

	var g errgroup.Group
	g.SetLimit(a.workers)

	for i, article := range articles {
		g.Go(func() error {
			results[i] = a.classifyArticle(ctx, i, article)
			return nil
		})
	}
	_ = g.Wait()

	return results, models.CountLabels(results)
}

func (a *Aggregator) classifyArticle(ctx context.Context, idx int, article models.Article) (out models.ArticleSentiment) {
	logger := localcontext.Logger(ctx)

	out = models.ArticleSentiment{
		Title:       article.Title,
		URL:         article.URL,
		Source:      article.Source,
		PublishedAt: article.PublishedAt,
		Label:       models.LabelError,
	}

	defer func() {
		if p := recover(); p != nil {
			out.Label = models.LabelError
			out.Stars = 0
			out.Confidence = 0
			out.Error = fmt.Sprintf("classifier panic: %v", p)
			logger.Error("classifier panicked", "index", idx, "panic", p)
		}
		metrics.ArticlesClassified.WithLabelValues(string(out.Label)).Inc()
	}()

	text := TruncateText(article.Text())
	if text == "" {
		out.Error = errEmptyText.Error()
		logger.Warn("article skipped", "index", idx, "url", article.URL, "error", errEmptyText)
		return out
	}

	rating, err := a.classifier.Classify(ctx, text)
	if err != nil {
		out.Error = err.Error()
		logger.Warn("article classification failed", "index", idx, "url", article.URL, "error", err)
		return out
	}

	out.Label = rating.Label()
	out.Stars = rating.Stars
	out.Confidence = rating.Confidence
	logger.Debug("article classified",
		"index", idx, "text_bytes", len(text), "stars", rating.Stars, "confidence", rating.Confidence, "label", out.Label)
	return out
}

// TruncateText keeps text under the classifier budget. Text longer than
// MaxTextBytes bytes is cut to its first MaxTextBytes/2 characters.
func TruncateText(text string) string {
	if len(text) <= MaxTextBytes {
		return text
	}

	limit := MaxTextBytes / 2
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
