package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/chatguard/internal/cli"
	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

const defaultScanChunk = 25

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the detection service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			out := cmd.OutOrStdout()
			if err := client.HealthCheck(cmd.Context()); err != nil {
				fmt.Fprintln(out, cli.FormatError("Backend offline: "+err.Error()))
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess("Backend online"))
			return nil
		},
	}
}

func detectCmd() *cobra.Command {
	var (
		threshold float64
		details   bool
	)

	cmd := &cobra.Command{
		Use:   "detect <text>",
		Short: "Classify a single message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := thresholdFlag(threshold, cmd.Flags().Changed("threshold"))
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			result, err := client.DetectBullying(cmd.Context(), strings.Join(args, " "), threshold, details)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatVerdict(result))
			if d := cli.FormatDetails(result); d != "" {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", model.DefaultConfidenceThreshold, "confidence threshold in [0, 1]")
	cmd.Flags().BoolVar(&details, "details", false, "request the extended analysis")
	return cmd
}

func batchCmd() *cobra.Command {
	var (
		threshold float64
		details   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <text>...",
		Short: "Classify several messages in one request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := thresholdFlag(threshold, cmd.Flags().Changed("threshold"))
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			batch, err := client.BatchDetectBullying(cmd.Context(), args, threshold, details)
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), args, batch.Results, 0, false)
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%d processed, %d flagged", batch.TotalProcessed, batch.BullyingDetected)))
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", model.DefaultConfidenceThreshold, "confidence threshold in [0, 1]")
	cmd.Flags().BoolVar(&details, "details", false, "request the extended analysis")
	return cmd
}

func scanCmd() *cobra.Command {
	var (
		threshold float64
		chunk     int
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Classify every line of a file in batches",
		Long: `Reads one message per line ("-" reads stdin), skips blank lines, and sends
them to the batch endpoint in chunks. Only flagged and failed lines are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chunk <= 0 {
				return fmt.Errorf("%w: --chunk must be positive", common.ErrInvalidInput)
			}
			threshold, err := thresholdFlag(threshold, cmd.Flags().Changed("threshold"))
			if err != nil {
				return err
			}

			texts, err := readScanInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing to scan"))
				return nil
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			out := cmd.OutOrStdout()
			bar := io.Discard
			if !quiet {
				bar = cmd.ErrOrStderr()
			}
			progress := newScanProgress(bar, len(texts))

			var flagged, failed int
			for _, c := range chunkTexts(texts, chunk) {
				resp, err := client.BatchDetectBullying(cmd.Context(), c.Texts, threshold, false)
				if err != nil {
					return fmt.Errorf("lines %d-%d: %w", c.Offset+1, c.Offset+len(c.Texts), err)
				}
				for _, r := range resp.Results {
					switch {
					case r.Failed():
						failed++
					case r.IsBullying:
						flagged++
					}
				}
				printBatch(out, c.Texts, resp.Results, c.Offset, true)
				if err := progress.Add(len(c.Texts)); err != nil {
					slog.Warn("Failed to update progress bar", "error", err)
				}
			}

			summary := fmt.Sprintf("  • Lines scanned: %d\n  • Flagged: %d\n  • Failed: %d", len(texts), flagged, failed)
			fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Scan Complete", summary))
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", model.DefaultConfidenceThreshold, "confidence threshold in [0, 1]")
	cmd.Flags().IntVar(&chunk, "chunk", defaultScanChunk, "messages per batch request")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

func newScanProgress(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scanning messages...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// readScanInput returns the non-blank lines of path, or of stdin for "-".
func readScanInput(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // user-provided input file
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var texts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return texts, nil
}

// textChunk is a run of consecutive input lines starting at Offset.
type textChunk struct {
	Texts  []string
	Offset int
}

// chunkTexts splits texts into consecutive groups of at most size.
func chunkTexts(texts []string, size int) []textChunk {
	chunks := make([]textChunk, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		chunks = append(chunks, textChunk{Offset: start, Texts: texts[start:end]})
	}
	return chunks
}

// printBatch prints one line per result, numbered from offset. With
// issuesOnly set, cleared results are skipped.
func printBatch(w io.Writer, texts []string, results []model.BatchDetectionResult, offset int, issuesOnly bool) {
	for _, r := range results {
		if issuesOnly && !r.Failed() && !r.IsBullying {
			continue
		}
		text := ""
		if r.Index >= 0 && r.Index < len(texts) {
			text = texts[r.Index]
		}
		prefix := fmt.Sprintf("#%d %q: ", offset+r.Index+1, text)
		if r.Failed() {
			fmt.Fprintln(w, prefix+cli.FormatError(r.Error))
			continue
		}
		fmt.Fprintln(w, prefix+cli.FormatVerdict(&r.DetectionResult))
	}
}
