package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/chatguard/internal/availability"
	"github.com/Veraticus/chatguard/internal/model"
)

// Percent renders a confidence in [0, 1] as a whole percentage.
func Percent(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(confidence*100)))
}

// FormatVerdict renders a one-line verdict for a detection result.
func FormatVerdict(result *model.DetectionResult) string {
	if result == nil {
		return SubtleStyle.Render("no analysis returned")
	}
	if result.IsBullying {
		verdict := "flagged (" + Percent(result.Confidence) + " confidence"
		if result.Severity != "" {
			verdict += ", " + result.Severity + " severity"
		}
		return FormatWarning(verdict + ")")
	}
	return FormatSuccess("cleared (" + Percent(result.Confidence) + " confidence)")
}

// FormatDetails renders the explanatory fields of a detection result, one per
// line. Fields the backend left out are skipped.
func FormatDetails(result *model.DetectionResult) string {
	if result == nil {
		return ""
	}
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, SubtleStyle.Render(label+":")+" "+value)
		}
	}

	add("Method", result.DetectionMethod)
	if len(result.DetectedCategories) > 0 {
		categories := make([]string, 0, len(result.DetectedCategories))
		for _, c := range result.DetectedCategories {
			categories = append(categories, fmt.Sprintf("%s (%s)", c.Category, Percent(c.Score)))
		}
		add("Categories", strings.Join(categories, ", "))
	}
	add("Risk indicators", strings.Join(result.RiskIndicators, ", "))
	add("Flagged words", strings.Join(result.FlaggedWords, ", "))
	add("Languages", strings.Join(result.DetectedLanguages, ", "))
	add("Explanation", result.Explanation)
	if result.ProcessingTime != nil {
		add("Processing time", fmt.Sprintf("%.3fs", *result.ProcessingTime))
	}
	return strings.Join(lines, "\n")
}

// FormatStatus renders the backend status line with the time of the last
// completed check. The time is omitted while checking.
func FormatStatus(snap availability.Snapshot) string {
	var line string
	switch snap.State {
	case availability.StateOnline:
		line = SuccessStyle.Render("● Backend online")
	case availability.StateOffline:
		line = ErrorStyle.Render("● Backend offline")
	default:
		return SubtleStyle.Render("○ Checking backend...")
	}
	if snap.Checked() {
		line += SubtleStyle.Render(" · " + snap.LastCheckedAt.Local().Format("15:04"))
	}
	return line
}

// FormatChatMessage renders a transcript entry.
func FormatChatMessage(msg model.ChatMessage) string {
	stamp := SubtleStyle.Render(msg.Timestamp.Local().Format(time.TimeOnly))
	name := BoldStyle.Render(msg.Username)
	text := msg.Text
	switch {
	case msg.IsUser:
	case msg.HasError():
		text = ErrorStyle.Render(text)
	case msg.Analysis.IsFlagged:
		text = WarningStyle.Render(text)
	}
	return fmt.Sprintf("%s %s: %s", stamp, name, text)
}

// FormatTable renders rows under a header line, padding every column to its
// widest cell.
func FormatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, TableHeaderStyle.Render(tableRow(headers, widths)))
	for _, row := range rows {
		lines = append(lines, tableRow(row, widths))
	}
	return strings.Join(lines, "\n")
}

func tableRow(cells []string, widths []int) string {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", w-lipgloss.Width(cell))
		b.WriteString(TableCellStyle.Render(cell + pad))
	}
	return b.String()
}
