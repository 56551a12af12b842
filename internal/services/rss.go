package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/metrics"
	"github.com/rahul4469/socialear/internal/models"
)

// RSSConfig holds settings for the RSS search source.
type RSSConfig struct {
	// SearchURL is an RSS search endpoint taking q, hl, gl and ceid
	// parameters, Google News style.
	SearchURL string
	Language  string
	Country   string
	Timeout   time.Duration
}

// RSSService finds articles through an RSS search feed. It is the
// key-less alternative to NewsAPIService.
type RSSService struct {
	cfg    RSSConfig
	parser *gofeed.Parser
	strip  *bluemonday.Policy
}

func NewRSSService(cfg RSSConfig) *RSSService {
	if cfg.SearchURL == "" {
		cfg.SearchURL = "https://news.google.com/rss/search"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}

	return &RSSService{
		cfg:    cfg,
		parser: parser,
		strip:  bluemonday.StrictPolicy(),
	}
}

// Search parses the feed for query and keeps the items published inside r.
func (s *RSSService) Search(ctx context.Context, query string, r models.DateRange) ([]models.Article, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < models.MinQueryLength {
		return nil, models.ErrQueryTooShort
	}

	start := time.Now()
	feed, err := s.parser.ParseURLWithContext(s.searchURL(query, r), ctx)
	if err != nil {
		metrics.RecordUpstream("rss", false, time.Since(start).Seconds())
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &models.UpstreamError{Service: "rss", StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, &models.UpstreamError{Service: "rss", Message: "failed to parse feed", Err: err}
	}
	metrics.RecordUpstream("rss", true, time.Since(start).Seconds())

	var articles []models.Article
	for _, item := range feed.Items {
		if item.PublishedParsed == nil || !r.Contains(*item.PublishedParsed) {
			continue
		}

		title, source := splitSource(item.Title)
		if source == "" {
			source = feed.Title
		}

		articles = append(articles, models.Article{
			Title:       title,
			Description: s.plainText(item.Description),
			URL:         item.Link,
			PublishedAt: *item.PublishedParsed,
			Source:      source,
		})
	}

	localcontext.Logger(ctx).Debug("rss feed parsed",
		"query", query, "items", len(feed.Items), "in_range", len(articles))

	if len(articles) == 0 {
		return nil, models.ErrNoArticlesFound
	}
	return articles, nil
}

func (s *RSSService) searchURL(query string, r models.DateRange) string {
	// before: is exclusive, so search up to the day after r.To.
	q := fmt.Sprintf("%s after:%s before:%s",
		query, r.FromString(), r.To.AddDate(0, 0, 1).Format(models.DateLayout))

	params := url.Values{}
	params.Set("q", q)
	params.Set("hl", s.cfg.Language+"-"+s.cfg.Country)
	params.Set("gl", s.cfg.Country)
	params.Set("ceid", s.cfg.Country+":"+s.cfg.Language)
	return s.cfg.SearchURL + "?" + params.Encode()
}

// plainText removes markup from an RSS description.
func (s *RSSService) plainText(description string) string {
	text := html.UnescapeString(s.strip.Sanitize(description))
	return strings.Join(strings.Fields(text), " ")
}

// splitSource splits a "Headline - Publisher" title.
func splitSource(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}
