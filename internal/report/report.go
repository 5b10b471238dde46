// Package report renders a saved result file as a terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"llmsweep/internal/logger"
	"llmsweep/pkg/sweeptypes"
)

// DefaultWidth is the word-wrap width used when the caller passes 0.
const DefaultWidth = 100

const cellSnippetLen = 60

// Load reads a result file written by the sink.
func Load(path string) (*sweeptypes.ExperimentResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	var result sweeptypes.ExperimentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result file %s: %w", path, err)
	}
	return &result, nil
}

// Markdown builds the summary document for result.
func Markdown(result *sweeptypes.ExperimentResult, source string) string {
	cfg := result.Config
	total, failed := result.CallCount()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s on %s\n\n", cfg.Model, cfg.Provider)
	if source != "" {
		fmt.Fprintf(&b, "- **File**: `%s`\n", source)
	}
	fmt.Fprintf(&b, "- **Timestamp**: %s\n", result.Timestamp.Format(time.RFC3339))
	if cfg.SystemPrompt != "" {
		fmt.Fprintf(&b, "- **System prompt**: %s\n", cell(cfg.SystemPrompt))
	}
	fmt.Fprintf(&b, "- **Prompt**: %s\n", cell(cfg.Prompt()))
	fmt.Fprintf(&b, "- **Calls**: %d (%d failed)\n", total, failed)
	if cfg.ExcelFile != "" {
		fmt.Fprintf(&b, "- **Export**: `%s`\n", cfg.ExcelFile)
	}

	b.WriteString("\n## Temperatures\n\n")
	b.WriteString("| Temperature | Iterations | Failed | First response |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, entry := range result.Experiments {
		errs := 0
		first := ""
		for _, it := range entry.Iterations {
			if it.Failed() {
				errs++
				continue
			}
			if first == "" {
				first = it.Text
			}
		}
		fmt.Fprintf(&b, "| %.4g | %d | %d | %s |\n", entry.Temperature, len(entry.Iterations), errs, cell(first))
	}

	if failed > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, entry := range result.Experiments {
			for _, it := range entry.Iterations {
				if it.Failed() {
					fmt.Fprintf(&b, "- T=%.4g #%d: %s\n", entry.Temperature, it.Iteration, cell(it.Error.Message))
				}
			}
		}
	}

	return b.String()
}

// cell flattens text so it fits in one markdown table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return sweeptypes.Snippet(s, cellSnippetLen)
}

// Renderer turns markdown into ANSI terminal output with glamour.
type Renderer struct {
	renderer *glamour.TermRenderer
}

// NewRenderer creates a renderer. An empty style picks one from the terminal
// background; otherwise style is a glamour style name or JSON style path.
func NewRenderer(style string, width int) (*Renderer, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStylePath(style)
	}

	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	logger.Debug("Markdown renderer ready", "style", style, "width", width)
	return &Renderer{renderer: renderer}, nil
}

// Render renders markdown to terminal output.
func (r *Renderer) Render(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown content cannot be empty")
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return rendered, nil
}
