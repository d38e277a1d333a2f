package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

// decodeData maps the raw payload of a successful envelope onto T.
func decodeData[T any](resp *Response[json.RawMessage]) (*T, error) {
	if !hasData(resp.Data) {
		return nil, common.NewAPIError(resp.StatusCode, "response missing data")
	}

	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		apiErr := common.NewAPIError(resp.StatusCode, fmt.Sprintf("invalid response data: %v", err))
		apiErr.Err = err
		return nil, apiErr
	}
	return &out, nil
}

// orderBatch sorts batch results by Index. Items whose index is out of range
// or repeated cannot be correlated and are dropped, so results may be shorter
// than the request: callers correlate through Index, never by position.
func orderBatch(batch *model.BatchDetectionResponse, requested int, logger *slog.Logger) {
	seen := make(map[int]bool, len(batch.Results))
	kept := batch.Results[:0]
	for _, item := range batch.Results {
		if item.Index < 0 || item.Index >= requested {
			logger.Warn("Dropping batch result with out-of-range index",
				"index", item.Index,
				"requested", requested)
			continue
		}
		if seen[item.Index] {
			logger.Warn("Dropping duplicate batch result", "index", item.Index)
			continue
		}
		seen[item.Index] = true
		kept = append(kept, item)
	}

	slices.SortStableFunc(kept, func(a, b model.BatchDetectionResult) int {
		return a.Index - b.Index
	})
	batch.Results = kept

	if len(kept) != batch.TotalProcessed {
		logger.Warn("Batch result count does not match total processed",
			"results", len(kept),
			"total_processed", batch.TotalProcessed)
	}
}
