package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, Analysis{}, Summarize(nil))

	a := Summarize(&DetectionResult{
		IsBullying:     true,
		Confidence:     0.8,
		Severity:       SeverityMedium,
		RiskIndicators: []string{"threat"},
		Explanation:    "not carried over",
	})
	assert.Equal(t, Analysis{
		IsFlagged:      true,
		Confidence:     0.8,
		Severity:       SeverityMedium,
		RiskIndicators: []string{"threat"},
	}, a)
	assert.False(t, a.Failed())
}

func TestChatMessage_HasError(t *testing.T) {
	assert.False(t, ChatMessage{}.HasError())
	assert.True(t, ChatMessage{Analysis: Analysis{Error: "Request timeout"}}.HasError())
}

func TestBatchDetectionResult_Decode(t *testing.T) {
	var results []BatchDetectionResult
	err := json.Unmarshal([]byte(`[
		{"index": 0, "is_bullying": true, "confidence": 0.9, "severity": "high"},
		{"index": 1, "error": "text too long"}
	]`), &results)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].Index)
	assert.True(t, results[0].IsBullying)
	assert.Equal(t, SeverityHigh, results[0].Severity)
	assert.False(t, results[0].Failed())

	assert.True(t, results[1].Failed())
	assert.Equal(t, "text too long", results[1].Error)
}

func TestDetectRequest_OmitsUnsetOptions(t *testing.T) {
	data, err := json.Marshal(DetectRequest{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(data))

	threshold := 0.5
	details := true
	data, err = json.Marshal(DetectRequest{Text: "hi", ConfidenceThreshold: &threshold, IncludeDetails: &details})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi","confidence_threshold":0.5,"include_details":true}`, string(data))
}
