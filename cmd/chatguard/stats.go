package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/chatguard/internal/cli"
	"github.com/Veraticus/chatguard/internal/model"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show detection statistics from the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			stats, err := client.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.ChartIcon+" Detection Statistics", formatStats(stats)))
			return nil
		},
	}
}

func formatStats(stats *model.DetectionStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  • Total requests: %d\n", stats.TotalRequests)
	fmt.Fprintf(&b, "  • Bullying detected: %d\n", stats.BullyingDetected)
	fmt.Fprintf(&b, "  • OpenAI requests: %d\n", stats.OpenAIRequests)
	fmt.Fprintf(&b, "  • Local matches: %d\n", stats.LocalMatches)
	fmt.Fprintf(&b, "  • Average confidence: %s", cli.Percent(stats.AverageConfidence))

	if len(stats.MostCommonWords) > 0 {
		rows := make([][]string, 0, len(stats.MostCommonWords))
		for _, w := range stats.MostCommonWords {
			rows = append(rows, []string{w.Word, strconv.Itoa(w.Count)})
		}
		b.WriteString("\n\n" + cli.BoldStyle.Render("Most common words") + "\n")
		b.WriteString(cli.FormatTable([]string{"Word", "Count"}, rows))
	}
	if len(stats.DailyStats) > 0 {
		rows := make([][]string, 0, len(stats.DailyStats))
		for _, d := range stats.DailyStats {
			rows = append(rows, []string{d.Date, strconv.Itoa(d.Count)})
		}
		b.WriteString("\n\n" + cli.BoldStyle.Render("Daily detections") + "\n")
		b.WriteString(cli.FormatTable([]string{"Date", "Detections"}, rows))
	}
	return b.String()
}

func addWordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-words <word>...",
		Short: "Add words to the service's bullying word list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.AddBullyingWords(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Added %d words (%d total)", resp.WordsAdded, resp.TotalWords)))
			return nil
		},
	}
}
