// Package model defines the core domain models used throughout the application.
package model

// Severity levels reported by the detection backend.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Detection categories reported by the detection backend.
const (
	CategoryHarassment       = "harassment"
	CategoryThreat           = "threat"
	CategoryHateSpeech       = "hate_speech"
	CategorySexualHarassment = "sexual_harassment"
	CategoryDoxxing          = "doxxing"
	CategoryExclusion        = "exclusion"
)

// DefaultConfidenceThreshold is the threshold used when the caller has no preference.
const DefaultConfidenceThreshold = 0.7

// DetectedCategory is a single category match inside a detection result.
type DetectedCategory struct {
	Category string   `json:"category"`
	Severity string   `json:"severity"`
	Items    []string `json:"items"`
	Score    float64  `json:"score"`
}

// ContextAnalysis carries the backend's contextual scoring of a message.
type ContextAnalysis struct {
	DetailedAnalysis map[string]any `json:"detailed_analysis,omitempty"`
	Indicators       []string       `json:"indicators"`
	Score            float64        `json:"score"`
}

// DetectionResult is the outcome of classifying one text.
// Optional fields are left absent when the backend omits them; pointer fields
// distinguish "not reported" from a zero value.
type DetectionResult struct {
	ContextAnalysis      *ContextAnalysis   `json:"context_analysis,omitempty"`
	SentimentAnalysis    map[string]float64 `json:"sentiment_analysis,omitempty"`
	IntentClassification map[string]float64 `json:"intent_classification,omitempty"`
	ProcessingTime       *float64           `json:"processing_time,omitempty"`
	OpenAIUsed           *bool              `json:"openai_used,omitempty"`
	LocalMatch           *bool              `json:"local_match,omitempty"`
	Severity             string             `json:"severity,omitempty"`
	DetectionMethod      string             `json:"detection_method,omitempty"`
	Explanation          string             `json:"explanation,omitempty"`
	DetectedCategories   []DetectedCategory `json:"detected_categories,omitempty"`
	RiskIndicators       []string           `json:"risk_indicators,omitempty"`
	DetectedLanguages    []string           `json:"detected_languages,omitempty"`
	DetectedItems        []any              `json:"detected_items,omitempty"`
	FlaggedWords         []string           `json:"flagged_words,omitempty"`
	Confidence           float64            `json:"confidence"`
	IsBullying           bool               `json:"is_bullying"`
}

// BatchDetectionResult is one item of a batch response. Error is set when the
// backend could not classify this particular text.
type BatchDetectionResult struct {
	Error string `json:"error,omitempty"`
	DetectionResult
	Index int `json:"index"`
}

// Failed reports whether the backend returned a per-item error.
func (r BatchDetectionResult) Failed() bool {
	return r.Error != ""
}

// BatchDetectionResponse is the payload of a batch detection call.
type BatchDetectionResponse struct {
	Results          []BatchDetectionResult `json:"results"`
	TotalProcessed   int                    `json:"total_processed"`
	BullyingDetected int                    `json:"bullying_detected"`
}

// WordCount is a word frequency entry in the statistics snapshot.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// DailyStat is the number of detections on a single day.
type DailyStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DetectionStats is a read-only snapshot of backend counters.
type DetectionStats struct {
	MostCommonWords   []WordCount `json:"most_common_words"`
	DailyStats        []DailyStat `json:"daily_stats,omitempty"`
	TotalRequests     int         `json:"total_requests"`
	BullyingDetected  int         `json:"bullying_detected"`
	OpenAIRequests    int         `json:"openai_requests"`
	LocalMatches      int         `json:"local_matches"`
	AverageConfidence float64     `json:"average_confidence"`
}

// AddWordsResponse reports the outcome of extending the backend word list.
type AddWordsResponse struct {
	WordsAdded int `json:"words_added"`
	TotalWords int `json:"total_words"`
}

// DetectRequest is the body of POST /api/detect.
type DetectRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	IncludeDetails      *bool    `json:"include_details,omitempty"`
	Text                string   `json:"text"`
}

// BatchDetectRequest is the body of POST /api/batch-detect.
type BatchDetectRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	IncludeDetails      *bool    `json:"include_details,omitempty"`
	Texts               []string `json:"texts"`
}

// AddWordsRequest is the body of POST /api/add-words.
type AddWordsRequest struct {
	Words []string `json:"words"`
}
