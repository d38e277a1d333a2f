package model

// Analysis is the display-facing summary of a detection attempt.
// A failed attempt is never flagged and carries the failure text in Error.
type Analysis struct {
	Severity       string
	Error          string
	RiskIndicators []string
	Confidence     float64
	IsFlagged      bool
}

// Summarize reduces a detection result to the fields a chat surface shows.
// A nil result yields an unflagged analysis with zero confidence.
func Summarize(result *DetectionResult) Analysis {
	if result == nil {
		return Analysis{}
	}
	return Analysis{
		IsFlagged:      result.IsBullying,
		Confidence:     result.Confidence,
		Severity:       result.Severity,
		RiskIndicators: result.RiskIndicators,
	}
}

// Failed reports whether the analysis could not be completed.
func (a Analysis) Failed() bool {
	return a.Error != ""
}
