package api

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

// HealthCheck calls the backend liveness endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.execute(ctx, http.MethodGet, EndpointHealth, nil)
	return err
}

// DetectBullying classifies a single text.
func (c *Client) DetectBullying(ctx context.Context, text string, threshold float64, includeDetails bool) (*model.DetectionResult, error) {
	result, status, err := c.detect(ctx, text, threshold, includeDetails)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, common.NewAPIError(status, "response missing data")
	}
	return result, nil
}

// detect validates the input and performs the detect call, consulting the
// result cache first. A nil result with a nil error means the backend
// reported success without a payload; status is the HTTP status it used.
func (c *Client) detect(ctx context.Context, text string, threshold float64, includeDetails bool) (*model.DetectionResult, int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, common.InvalidInput("text must not be empty")
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, 0, err
	}

	snap := c.snapshot()
	key := cacheKey(text, threshold, includeDetails)
	if cached, ok := snap.cache.get(key); ok {
		c.logger.Debug("cache hit for detection", "text_length", len(text))
		return cached, http.StatusOK, nil
	}

	resp, err := c.execute(ctx, http.MethodPost, EndpointDetect, model.DetectRequest{
		Text:                text,
		ConfidenceThreshold: &threshold,
		IncludeDetails:      &includeDetails,
	})
	if err != nil {
		return nil, 0, err
	}
	if !hasData(resp.Data) {
		return nil, resp.StatusCode, nil
	}

	result, err := decodeData[model.DetectionResult](resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	snap.cache.set(key, resp.Data)
	return result, resp.StatusCode, nil
}

// BatchDetectBullying classifies several texts in one call. Per-item failures
// are reported in the item's Error field; only a failure of the call as a
// whole is returned as an error.
func (c *Client) BatchDetectBullying(ctx context.Context, texts []string, threshold float64, includeDetails bool) (*model.BatchDetectionResponse, error) {
	if len(texts) == 0 {
		return nil, common.InvalidInput("texts must not be empty")
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	resp, err := c.execute(ctx, http.MethodPost, EndpointBatchDetect, model.BatchDetectRequest{
		Texts:               texts,
		ConfidenceThreshold: &threshold,
		IncludeDetails:      &includeDetails,
	})
	if err != nil {
		return nil, err
	}

	batch, err := decodeData[model.BatchDetectionResponse](resp)
	if err != nil {
		return nil, err
	}
	orderBatch(batch, len(texts), c.logger)
	return batch, nil
}

// GetStats returns the backend's detection counters.
func (c *Client) GetStats(ctx context.Context) (*model.DetectionStats, error) {
	resp, err := c.execute(ctx, http.MethodGet, EndpointStats, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[model.DetectionStats](resp)
}

// AddBullyingWords extends the backend word list.
func (c *Client) AddBullyingWords(ctx context.Context, words []string) (*model.AddWordsResponse, error) {
	if len(words) == 0 {
		return nil, common.InvalidInput("words must not be empty")
	}
	for i, word := range words {
		if strings.TrimSpace(word) == "" {
			return nil, common.InvalidInput("word at index %d must not be empty", i)
		}
	}

	resp, err := c.execute(ctx, http.MethodPost, EndpointAddWords, model.AddWordsRequest{Words: words})
	if err != nil {
		return nil, err
	}
	return decodeData[model.AddWordsResponse](resp)
}

func validateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return common.InvalidInput("confidence threshold must be within [0, 1], got %v", threshold)
	}
	return nil
}
