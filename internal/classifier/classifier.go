// Package classifier wraps the external toxicity scoring endpoint.
package classifier

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/toxbot/toxbot/internal/setup/config"
	"go.uber.org/zap"
)

// request is the scoring request body.
type request struct {
	Instances [][]string `json:"instances"`
}

// response is the scoring response body.
type response struct {
	Predictions [][]float64 `json:"predictions"`
}

// Client scores text against the external toxicity model. Calls are
// stateless and independent; there is no retry, caching, or rate limiting.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// New creates a scoring client. The request timeout bounds each call so a
// hung scoring service cannot stall the moderation pipeline indefinitely.
func New(cfg *config.ClassifierConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Millisecond,
		},
		logger: logger.Named("classifier"),
	}
}

// Classify returns the toxicity score for text as a value in [0, 1].
// Every failure mode - network error, non-200 status, malformed body,
// missing predictions - is logged and collapsed to 0.0; the method never
// returns an error. A zero score therefore also means "score unknown".
func (c *Client) Classify(ctx context.Context, text string) float64 {
	body, err := sonic.Marshal(request{Instances: [][]string{{text}}})
	if err != nil {
		c.logger.Error("Failed to encode scoring request", zap.Error(err))
		return 0.0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Failed to build scoring request", zap.Error(err))
		return 0.0
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Scoring request failed", zap.Error(err))
		return 0.0
	}
	defer resp.Body.Close()

	// Accept-Encoding is set by hand, so the transport does not decompress
	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Error("Failed to decompress scoring response", zap.Error(err))
			return 0.0
		}
		defer gz.Close()

		reader = gz
	}

	respBody, err := io.ReadAll(reader)
	if err != nil {
		c.logger.Error("Failed to read scoring response", zap.Error(err))
		return 0.0
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Scoring service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return 0.0
	}

	var result response
	if err := sonic.Unmarshal(respBody, &result); err != nil {
		c.logger.Error("Failed to decode scoring response",
			zap.Error(err),
			zap.ByteString("body", respBody))
		return 0.0
	}

	if len(result.Predictions) == 0 || len(result.Predictions[0]) == 0 {
		c.logger.Error("Scoring response is missing predictions",
			zap.ByteString("body", respBody))
		return 0.0
	}

	score := result.Predictions[0][0]
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return score
}
