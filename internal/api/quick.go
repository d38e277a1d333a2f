package api

import (
	"context"

	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

// QuickResult is the failure-absorbing outcome of QuickDetect.
// At most one of Result and Error is set; both are empty when the backend
// succeeded without returning a payload.
type QuickResult struct {
	Result *model.DetectionResult
	Error  string
}

// Analysis summarizes the outcome for display.
func (r QuickResult) Analysis() model.Analysis {
	if r.Error != "" {
		return model.Analysis{Error: r.Error}
	}
	return model.Summarize(r.Result)
}

// QuickDetect classifies text with details enabled and never returns an
// error: any failure is folded into QuickResult.Error so interactive callers
// degrade to "unanalyzed" instead of failing.
func (c *Client) QuickDetect(ctx context.Context, text string, threshold float64) QuickResult {
	result, _, err := c.detect(ctx, text, threshold, true)
	if err != nil {
		c.logger.Error("Quick detect failed", "error", err)
		message := "Detection failed"
		if apiErr, ok := common.AsAPIError(err); ok && apiErr.Message != "" {
			message = apiErr.Message
		}
		return QuickResult{Error: message}
	}
	return QuickResult{Result: result}
}

// CheckAvailability reports whether the backend answered its health check.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	return c.HealthCheck(ctx) == nil
}
