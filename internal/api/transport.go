package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Veraticus/chatguard/internal/common"
)

// execute performs one logical call: it marshals body, then runs attempts
// under the retry policy until one succeeds or the failure is terminal.
// Every non-nil error is a *common.APIError.
func (c *Client) execute(ctx context.Context, method, endpoint string, body any) (*Response[json.RawMessage], error) {
	snap := c.snapshot()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, common.InvalidInput("failed to marshal request: %v", err)
		}
	}

	policy := common.RetryPolicy{
		MaxRetries: snap.config.MaxRetries,
		Backoff:    c.backoff,
		Sleep:      c.sleep,
		Logger:     c.logger.With("endpoint", endpoint),
		OnRetry: func(state common.RetryState, _ time.Duration) {
			c.observer.ObserveRetry(endpoint, state.LastErr.Status)
		},
	}

	resp, apiErr := common.Retry(ctx, policy, func(ctx context.Context, attempt int) (*Response[json.RawMessage], *common.APIError) {
		resp, apiErr := c.attempt(ctx, snap, method, endpoint, payload)
		if apiErr != nil {
			c.logger.Warn("API request failed",
				"endpoint", endpoint,
				"attempt", attempt,
				"status", apiErr.Status,
				"error", apiErr.Message)
		}
		return resp, apiErr
	})
	if apiErr != nil {
		return nil, apiErr
	}
	return resp, nil
}

// attempt issues a single HTTP request bounded by the configured timeout.
func (c *Client) attempt(ctx context.Context, snap snapshot, method, endpoint string, payload []byte) (resp *Response[json.RawMessage], apiErr *common.APIError) {
	start := time.Now()
	defer func() {
		status := http.StatusOK
		switch {
		case apiErr != nil:
			status = apiErr.Status
		case resp != nil:
			status = resp.StatusCode
		}
		c.observer.ObserveAttempt(endpoint, status, time.Since(start))
	}()

	if snap.limiter != nil {
		if err := snap.limiter.Wait(ctx); err != nil {
			return nil, canceledError(err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, snap.config.Timeout)
	defer cancel()

	body := io.Reader(http.NoBody)
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, snap.config.BaseURL+endpoint, body)
	if err != nil {
		return nil, common.InvalidInput("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, attemptCtx, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(ctx, attemptCtx, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, common.NewAPIError(httpResp.StatusCode,
			fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, http.StatusText(httpResp.StatusCode)))
	}

	var envelope Response[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		invalid := common.NewAPIError(httpResp.StatusCode, fmt.Sprintf("invalid response body: %v", err))
		invalid.Err = err
		return nil, invalid
	}
	envelope.StatusCode = httpResp.StatusCode

	if !envelope.Success && envelope.Error != "" {
		appErr := common.NewAPIError(httpResp.StatusCode, envelope.Error)
		if envelope.Timestamp != "" {
			appErr.Timestamp = envelope.Timestamp
		}
		return nil, appErr
	}

	return &envelope, nil
}

// transportError classifies a failure that produced no usable response.
func transportError(parent, attemptCtx context.Context, err error) *common.APIError {
	if parent.Err() != nil {
		return canceledError(parent.Err())
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		timeout := common.NewAPIError(common.StatusTimeout, "Request timeout")
		timeout.Err = err
		return timeout
	}
	networkErr := common.NewAPIError(common.StatusNetworkError, err.Error())
	networkErr.Err = err
	return networkErr
}

// canceledError reports a failure caused by the caller's context. It keeps
// status 0 but is never retried.
func canceledError(err error) *common.APIError {
	canceled := common.NewAPIError(common.StatusNetworkError, "request canceled")
	canceled.Err = err
	canceled.Final = true
	return canceled
}
