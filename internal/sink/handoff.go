package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"llmsweep/pkg/sweeptypes"
)

// ErrNoExporter is reported when a result names an export target but no
// exporter command is configured.
var ErrNoExporter = errors.New("no exporter command configured")

// ExportError is a failed hand-off. It is logged, never returned to callers:
// the primary result is already on disk when it happens.
type ExportError struct {
	ExcelFile string
	Command   string
	Output    string
	Err       error
}

func (e *ExportError) Error() string {
	msg := fmt.Sprintf("export to %s failed", e.ExcelFile)
	if e.Command != "" {
		msg += fmt.Sprintf(" (%s)", e.Command)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += ": " + sweeptypes.Snippet(e.Output, 500)
	}
	return msg
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Handoff is the payload an exporter receives.
type Handoff struct {
	ExcelFile string   `json:"excel_file"`
	Prompt    string   `json:"prompt"`
	Model     string   `json:"model"`
	Timestamp string   `json:"timestamp"`
	Responses []string `json:"responses"`
	Format    string   `json:"format,omitempty"`
}

// NewHandoff flattens result into the exporter payload, in generation order.
func NewHandoff(result *sweeptypes.ExperimentResult) Handoff {
	return Handoff{
		ExcelFile: result.Config.ExcelFile,
		Prompt:    result.Config.Prompt(),
		Model:     result.Config.Model,
		Timestamp: result.Timestamp.Format(time.RFC3339),
		Responses: result.Responses(),
		Format:    result.Config.ExportFormat,
	}
}

// Wait blocks until every started exporter has exited and its hand-off file is gone.
func (s *Sink) Wait() {
	s.handoffs.Wait()
}

// handOff starts the exporter for result without waiting for it.
func (s *Sink) handOff(result *sweeptypes.ExperimentResult) {
	cfg := result.Config
	if cfg.ExcelFile == "" {
		if cfg.ExportFormat != "" {
			s.log.Warn("Export format set without excel_file, skipping export", "format", cfg.ExportFormat)
		}
		return
	}
	if len(s.exporter) == 0 {
		s.log.Error("Export skipped", "error", &ExportError{ExcelFile: cfg.ExcelFile, Err: ErrNoExporter})
		return
	}

	path, err := s.writeHandoff(NewHandoff(result))
	if err != nil {
		s.log.Error("Export skipped", "error", &ExportError{ExcelFile: cfg.ExcelFile, Err: err})
		return
	}

	command := strings.Join(s.exporter, " ")
	args := append(append([]string{}, s.exporter[1:]...), path)
	cmd := exec.Command(s.exporter[0], args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		s.removeHandoff(path)
		s.log.Error("Export failed to start", "error", &ExportError{ExcelFile: cfg.ExcelFile, Command: command, Err: err})
		return
	}
	s.log.Info("Export started", "excel_file", cfg.ExcelFile, "pid", cmd.Process.Pid)

	s.handoffs.Add(1)
	go func() {
		defer s.handoffs.Done()
		defer s.removeHandoff(path)

		err := cmd.Wait()
		out := strings.TrimSpace(output.String())
		if err != nil {
			s.log.Error("Export failed", "error", &ExportError{ExcelFile: cfg.ExcelFile, Command: command, Output: out, Err: err})
			return
		}
		s.log.Info("Export finished", "excel_file", cfg.ExcelFile, "output", out)
	}()
}

// writeHandoff writes the payload to a fresh file in the output directory.
func (s *Sink) writeHandoff(h Handoff) (string, error) {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode hand-off: %w", err)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(s.outputDir, fmt.Sprintf("handoff_%s.json", uuid.NewString()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create hand-off file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write hand-off file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close hand-off file: %w", err)
	}
	return path, nil
}

func (s *Sink) removeHandoff(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("Could not remove hand-off file", "path", path, "error", err)
	}
}
