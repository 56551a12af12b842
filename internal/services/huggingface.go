package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rahul4469/socialear/internal/metrics"
	"github.com/rahul4469/socialear/internal/models"
)

// Classifier rates a piece of text on a 1-5 star scale.
type Classifier interface {
	Classify(ctx context.Context, text string) (models.Rating, error)
}

// DefaultSentimentModel is a multilingual review-style model whose labels
// are "1 star" through "5 stars".
const DefaultSentimentModel = "nlptown/bert-base-multilingual-uncased-sentiment"

// HuggingFaceConfig holds settings for the Hugging Face Inference API.
type HuggingFaceConfig struct {
	APIToken string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// HuggingFaceClassifier calls a hosted text-classification model.
type HuggingFaceClassifier struct {
	cfg        HuggingFaceConfig
	httpClient *http.Client
}

func NewHuggingFaceClassifier(cfg HuggingFaceConfig) *HuggingFaceClassifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co/models"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultSentimentModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HuggingFaceClassifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

// hfParameters are passed to the model pipeline. Truncation keeps inputs
// within the model's 512 token window.
type hfParameters struct {
	Truncation bool `json:"truncation"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type hfError struct {
	Error string `json:"error"`
}

func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string) (models.Rating, error) {
	rating, err := c.classify(ctx, text)
	if err != nil {
		return models.Rating{}, &models.ClassificationError{Model: c.cfg.Model, Err: err}
	}
	return rating, nil
}

func (c *HuggingFaceClassifier) classify(ctx context.Context, text string) (models.Rating, error) {
	jsonBody, err := json.Marshal(hfRequest{
		Inputs:     text,
		Parameters: hfParameters{Truncation: true},
		Options:    hfOptions{WaitForModel: true},
	})
	if err != nil {
		return models.Rating{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+c.cfg.Model, bytes.NewReader(jsonBody))
	if err != nil {
		return models.Rating{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("huggingface", false, time.Since(start).Seconds())
		return models.Rating{}, fmt.Errorf("failed to call inference API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstream("huggingface", false, time.Since(start).Seconds())
		return models.Rating{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RecordUpstream("huggingface", false, time.Since(start).Seconds())
		var apiErr hfError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return models.Rating{}, fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return models.Rating{}, fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	metrics.RecordUpstream("huggingface", true, time.Since(start).Seconds())

	labels, err := decodeLabels(body)
	if err != nil {
		return models.Rating{}, err
	}
	return bestRating(labels)
}

// decodeLabels accepts both the nested [[{label, score}]] shape returned
// for a single input and the flat [{label, score}] shape.
func decodeLabels(body []byte) ([]hfLabel, error) {
	var nested [][]hfLabel
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, errors.New("empty classification response")
		}
		return nested[0], nil
	}

	var flat []hfLabel
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return flat, nil
}

// bestRating picks the highest scoring label and parses its star count.
func bestRating(labels []hfLabel) (models.Rating, error) {
	if len(labels) == 0 {
		return models.Rating{}, errors.New("no labels in classification response")
	}

	best := labels[0]
	for _, l := range labels[1:] {
		if l.Score > best.Score {
			best = l
		}
	}

	stars, err := parseStars(best.Label)
	if err != nil {
		return models.Rating{}, err
	}
	return models.Rating{Stars: stars, Confidence: best.Score}, nil
}

// parseStars reads the leading integer of labels such as "4 stars".
func parseStars(label string) (int, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty label")
	}
	stars, err := strconv.Atoi(fields[0])
	if err != nil || stars < 1 || stars > 5 {
		return 0, fmt.Errorf("unexpected label %q", label)
	}
	return stars, nil
}
