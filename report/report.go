// Package report renders validation results as Markdown text, JSON or HTML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/datar-psa/genaivalidator/api"
)

// Format names accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"
)

// Text renders result as a Markdown report. Metrics follow result.Metrics order, then any
// other scored metrics sorted by name.
func Text(result *api.ValidationResult) string {
	var b strings.Builder
	b.WriteString("# Model Validation Report\n\n")

	if result.OriginalModel != "" || result.ChallengerModel != "" {
		if result.TaskType != "" {
			fmt.Fprintf(&b, "- Task: %s\n", result.TaskType)
		}
		fmt.Fprintf(&b, "- Original: %s\n", result.OriginalModel)
		fmt.Fprintf(&b, "- Challenger: %s\n", result.ChallengerModel)
		if result.Benchmark != nil {
			fmt.Fprintf(&b, "- Benchmark: %s (%s)\n", result.Benchmark.BenchmarkName, result.Benchmark.BenchmarkScore)
		}
		fmt.Fprintf(&b, "- Test items: %d\n\n", len(result.TestData))
	}

	names := metricOrder(result)

	b.WriteString("## Original Model Metrics\n")
	writeScores(&b, names, result.OriginalMetrics)

	b.WriteString("\n## Challenger Model Metrics\n")
	writeScores(&b, names, result.ChallengerMetrics)

	b.WriteString("\n## Comparison Analysis\n")
	for _, name := range names {
		entry, ok := result.Comparison[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n", name)
		fmt.Fprintf(&b, "- Difference: %.4f\n", entry.Difference)
		if entry.ZeroBaseline {
			b.WriteString("- Relative Improvement: n/a (zero baseline)\n")
		} else {
			fmt.Fprintf(&b, "- Relative Improvement: %.2f%%\n", entry.RelativeImprovement*100)
		}
	}

	if flagged := flaggedItems(result.TestData); len(flagged) > 0 {
		b.WriteString("\n## Moderation\n")
		for _, line := range flagged {
			b.WriteString(line)
		}
	}
	return b.String()
}

// JSON renders result as indented JSON.
func JSON(result *api.ValidationResult) ([]byte, error) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return out, nil
}

// HTML renders the Markdown report as an HTML fragment.
func HTML(result *api.ValidationResult) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(Text(result)), &buf); err != nil {
		return "", fmt.Errorf("render html report: %w", err)
	}
	return buf.String(), nil
}

// Render dispatches on format. An empty format means text.
func Render(result *api.ValidationResult, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return []byte(Text(result)), nil
	case FormatJSON:
		return JSON(result)
	case FormatHTML:
		out, err := HTML(result)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want %s, %s or %s)", format, FormatText, FormatJSON, FormatHTML)
	}
}

func metricOrder(result *api.ValidationResult) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range result.Metrics {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	var extra []string
	for _, scores := range []api.MetricScores{result.OriginalMetrics, result.ChallengerMetrics} {
		for name := range scores {
			if !seen[name] {
				seen[name] = true
				extra = append(extra, name)
			}
		}
	}
	for name := range result.Comparison {
		if !seen[name] {
			seen[name] = true
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func writeScores(b *strings.Builder, names []string, scores api.MetricScores) {
	for _, name := range names {
		if v, ok := scores[name]; ok {
			fmt.Fprintf(b, "- %s: %.4f\n", name, v)
		}
	}
}

func flaggedItems(items []api.TestDataItem) []string {
	var lines []string
	for i, item := range items {
		if len(item.Flagged) > 0 {
			lines = append(lines, fmt.Sprintf("- item %d: %s\n", i, strings.Join(item.Flagged, ", ")))
		}
	}
	return lines
}
