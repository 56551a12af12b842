package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rahul4469/socialear/internal/metrics"
	"github.com/rahul4469/socialear/internal/models"
)

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// OllamaClassifier asks a local LLM for a 1-5 rating. Ollama does not
// report a probability, so Confidence is always zero.
type OllamaClassifier struct {
	cfg        OllamaConfig
	httpClient *http.Client
}

func NewOllamaClassifier(cfg OllamaConfig) *OllamaClassifier {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = "mistral"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	return &OllamaClassifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const ollamaPrompt = `Rate the sentiment of the following news text on a scale of 1 to 5,
where 1 is very negative, 3 is neutral and 5 is very positive.
Answer with a single digit and nothing else.

Text:
`

func (c *OllamaClassifier) Classify(ctx context.Context, text string) (models.Rating, error) {
	reply, err := c.generate(ctx, ollamaPrompt+text)
	if err != nil {
		return models.Rating{}, &models.ClassificationError{Model: c.cfg.Model, Err: err}
	}

	stars, err := firstRating(reply)
	if err != nil {
		return models.Rating{}, &models.ClassificationError{Model: c.cfg.Model, Err: err}
	}
	return models.Rating{Stars: stars}, nil
}

func (c *OllamaClassifier) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("ollama", false, time.Since(start).Seconds())
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstream("ollama", false, time.Since(start).Seconds())
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RecordUpstream("ollama", false, time.Since(start).Seconds())
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		metrics.RecordUpstream("ollama", false, time.Since(start).Seconds())
		return "", fmt.Errorf("ollama unexpected response: %s", string(raw))
	}
	metrics.RecordUpstream("ollama", true, time.Since(start).Seconds())

	return strings.TrimSpace(parsed.Response), nil
}

// firstRating returns the first digit 1-5 in reply.
func firstRating(reply string) (int, error) {
	for _, r := range reply {
		if r >= '1' && r <= '5' {
			return int(r - '0'), nil
		}
	}
	return 0, fmt.Errorf("no rating in reply %q", reply)
}
