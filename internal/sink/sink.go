// Package sink persists experiment results without overwriting earlier runs and
// hands them off to an optional external exporter.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	shellquote "github.com/kballard/go-shellquote"

	"llmsweep/internal/logger"
	"llmsweep/pkg/sweeptypes"
)

// maxProbes bounds the suffix search so a broken filesystem cannot spin forever.
const maxProbes = 100000

// Sink writes result files under one output directory.
type Sink struct {
	outputDir string
	exporter  []string
	now       func() time.Time
	log       *log.Logger

	handoffs sync.WaitGroup
}

// Option configures a Sink.
type Option func(*Sink) error

// WithExporter sets the external exporter command. The string is split like a
// shell would; the hand-off file path is appended as the final argument.
func WithExporter(command string) Option {
	return func(s *Sink) error {
		if strings.TrimSpace(command) == "" {
			s.exporter = nil
			return nil
		}
		argv, err := shellquote.Split(command)
		if err != nil {
			return fmt.Errorf("parse exporter command: %w", err)
		}
		s.exporter = argv
		return nil
	}
}

// WithClock overrides the clock used for default file names.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) error {
		s.now = now
		return nil
	}
}

// New creates a sink rooted at outputDir.
func New(outputDir string, opts ...Option) (*Sink, error) {
	s := &Sink{
		outputDir: outputDir,
		now:       time.Now,
		log:       logger.NewStyledLogger("sink"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// OutputDir returns the directory results are written to.
func (s *Sink) OutputDir() string {
	return s.outputDir
}

// Persist writes result as indented JSON and returns the path actually used.
// An existing file at the target is never overwritten; a numeric suffix is
// probed instead. The exporter hand-off, if any, starts after the write and is
// not awaited.
func (s *Sink) Persist(result *sweeptypes.ExperimentResult, requested string) (string, error) {
	if result == nil {
		return "", errors.New("persist: nil result")
	}

	target := s.resolvePath(requested)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	path, err := writeUnique(target, data)
	if err != nil {
		return "", err
	}
	if path != target {
		s.log.Warn("Output exists, writing alongside", "requested", target, "path", path)
	}
	s.log.Info("Results saved", "path", path)

	s.handOff(result)
	return path, nil
}

// resolvePath picks the target for requested, relative to the output directory.
func (s *Sink) resolvePath(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		name = fmt.Sprintf("logprobs_%d.json", s.now().UnixMilli())
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(s.outputDir, name)
}

// UniquePath returns path itself, or the first name_N.ext (N from 1) that does
// not exist yet. It does not reserve the name.
func UniquePath(path string) (string, error) {
	for i := 0; i < maxProbes; i++ {
		candidate := suffixed(path, i)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", path, maxProbes)
}

// writeUnique creates the first free candidate exclusively and writes data to it.
func writeUnique(path string, data []byte) (string, error) {
	for i := 0; i < maxProbes; i++ {
		candidate := suffixed(path, i)
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("write %s: %w", candidate, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("close %s: %w", candidate, cerr)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", path, maxProbes)
}

// suffixed returns path for n == 0, else base_n.ext.
func suffixed(path string, n int) string {
	if n == 0 {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
