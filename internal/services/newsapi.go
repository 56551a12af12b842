package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	localcontext "github.com/rahul4469/socialear/context"
	"github.com/rahul4469/socialear/internal/metrics"
	"github.com/rahul4469/socialear/internal/models"
)

// ArticleSource finds news articles for a query inside a date range.
type ArticleSource interface {
	Search(ctx context.Context, query string, r models.DateRange) ([]models.Article, error)
}

// removedTitle marks articles NewsAPI has withdrawn but still lists.
const removedTitle = "[Removed]"

// NewsAPIConfig holds settings for the NewsAPI client.
type NewsAPIConfig struct {
	APIKey   string
	BaseURL  string
	Language string
	PageSize int
	MaxPages int
	// RatePerSecond paces requests to the provider; zero disables pacing.
	RatePerSecond float64
	Timeout       time.Duration
}

// NewsAPIService searches articles through the newsapi.org /everything
// endpoint.
type NewsAPIService struct {
	cfg        NewsAPIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewNewsAPIService(cfg NewsAPIConfig) *NewsAPIService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org/v2"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &NewsAPIService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
	}
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

// Search fetches up to MaxPages pages of articles, newest first.
func (s *NewsAPIService) Search(ctx context.Context, query string, r models.DateRange) ([]models.Article, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < models.MinQueryLength {
		return nil, models.ErrQueryTooShort
	}

	logger := localcontext.Logger(ctx)
	var articles []models.Article

	for page := 1; page <= s.cfg.MaxPages; page++ {
		resp, err := s.fetchPage(ctx, query, r, page)
		if err != nil {
			return nil, err
		}

		for _, a := range resp.Articles {
			if a.Title == "" || a.Title == removedTitle {
				continue
			}
			articles = append(articles, models.Article{
				Title:       a.Title,
				Description: a.Description,
				URL:         a.URL,
				PublishedAt: a.PublishedAt,
				Source:      a.Source.Name,
			})
		}

		logger.Debug("newsapi page fetched",
			"query", query, "page", page, "articles", len(resp.Articles), "total_results", resp.TotalResults)

		if len(resp.Articles) < s.cfg.PageSize || page*s.cfg.PageSize >= resp.TotalResults {
			break
		}
	}

	if len(articles) == 0 {
		return nil, models.ErrNoArticlesFound
	}

	return articles, nil
}

func (s *NewsAPIService) fetchPage(ctx context.Context, query string, r models.DateRange, page int) (*newsAPIResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &models.UpstreamError{Service: "newsapi", Message: "rate limiter", Err: err}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("from", r.FromString())
	params.Set("to", r.ToString())
	params.Set("language", s.cfg.Language)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(s.cfg.PageSize))
	params.Set("page", strconv.Itoa(page))

	endpoint := s.cfg.BaseURL + "/everything?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("newsapi", false, time.Since(start).Seconds())
		return nil, &models.UpstreamError{Service: "newsapi", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstream("newsapi", false, time.Since(start).Seconds())
		return nil, &models.UpstreamError{Service: "newsapi", StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	var parsed newsAPIResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK || parsed.Status == "error" {
		metrics.RecordUpstream("newsapi", false, time.Since(start).Seconds())
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &models.UpstreamError{Service: "newsapi", StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		metrics.RecordUpstream("newsapi", false, time.Since(start).Seconds())
		return nil, &models.UpstreamError{Service: "newsapi", StatusCode: resp.StatusCode, Message: "failed to decode response", Err: decodeErr}
	}

	metrics.RecordUpstream("newsapi", true, time.Since(start).Seconds())
	return &parsed, nil
}
