package models

import (
	"strings"
	"time"
)

// SentimentLabel is the three-way bucket an article falls into, plus the
// error sentinel for articles the classifier could not rate.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNegative SentimentLabel = "negative"
	LabelNeutral  SentimentLabel = "neutral"
	LabelError    SentimentLabel = "error"
)

// Rating is a classifier verdict on a 1-5 star scale.
type Rating struct {
	Stars      int     `json:"stars"`
	Confidence float64 `json:"confidence"`
}

// Label maps a star rating onto a SentimentLabel: 4-5 positive,
// 1-2 negative, 3 neutral.
func (r Rating) Label() SentimentLabel {
	return LabelForStars(r.Stars)
}

// LabelForStars maps a 1-5 rating onto a label.
func LabelForStars(stars int) SentimentLabel {
	switch {
	case stars >= 4:
		return LabelPositive
	case stars <= 2:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Article is a news item returned by an article source.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// Text is the string submitted to the classifier.
func (a Article) Text() string {
	return strings.TrimSpace(a.Title + " " + a.Description)
}

// ArticleSentiment is the per-article outcome of an analysis.
type ArticleSentiment struct {
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	PublishedAt time.Time      `json:"published_at"`
	Label       SentimentLabel `json:"label"`
	Stars       int            `json:"stars,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// SentimentCounts is the bucketed summary of an analysis. Total counts
// every article that went through the classifier, error entries included.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Errors   int `json:"errors"`
	Total    int `json:"total"`
}

// Add records one label.
func (c *SentimentCounts) Add(label SentimentLabel) {
	switch label {
	case LabelPositive:
		c.Positive++
	case LabelNegative:
		c.Negative++
	case LabelNeutral:
		c.Neutral++
	default:
		c.Errors++
	}
	c.Total++
}

// CountLabels sums the labels of a batch of per-article results.
func CountLabels(items []ArticleSentiment) SentimentCounts {
	var c SentimentCounts
	for _, item := range items {
		c.Add(item.Label)
	}
	return c
}

// AnalysisResult is the outcome of one analyze request. It is built once
// and not modified afterwards.
type AnalysisResult struct {
	Query        string             `json:"query"`
	DateFrom     string             `json:"date_from"`
	DateTo       string             `json:"date_to"`
	ArticleCount int                `json:"article_count"`
	Sentiment    SentimentCounts    `json:"sentiment"`
	Articles     []ArticleSentiment `json:"articles,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Dominant returns the label with the most articles, or neutral on a tie
// or an empty result.
func (r *AnalysisResult) Dominant() SentimentLabel {
	c := r.Sentiment
	switch {
	case c.Positive > c.Negative && c.Positive > c.Neutral:
		return LabelPositive
	case c.Negative > c.Positive && c.Negative > c.Neutral:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Percent returns the share of label among all classified articles.
func (r *AnalysisResult) Percent(label SentimentLabel) float64 {
	if r.Sentiment.Total == 0 {
		return 0
	}
	var n int
	switch label {
	case LabelPositive:
		n = r.Sentiment.Positive
	case LabelNegative:
		n = r.Sentiment.Negative
	case LabelNeutral:
		n = r.Sentiment.Neutral
	case LabelError:
		n = r.Sentiment.Errors
	}
	return float64(n) * 100 / float64(r.Sentiment.Total)
}
