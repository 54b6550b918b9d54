// Package testenv provides ephemeral test infrastructure using testcontainers.
package testenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// InstrumentedService is a report server built with -cover.
//
// On graceful shutdown the process writes coverage data to CoverageDir.
// TestEnv starts one instead of a plain Service when E2E_COVERAGE_DIR is set.
type InstrumentedService struct {
	*Service

	// CoverageDir is the directory where coverage data is written on shutdown.
	CoverageDir string

	// BinaryPath is the path to the instrumented binary.
	BinaryPath string
}

// InstrumentedConfig holds configuration for the instrumented service.
type InstrumentedConfig struct {
	ServiceConfig

	// CoverageDir is the directory for coverage data output.
	// Defaults to coverage/e2e-service in project root.
	CoverageDir string

	// RebuildBinary forces rebuilding even if BinaryPath is set.
	RebuildBinary bool
}

// DefaultInstrumentedConfig returns default instrumented service configuration.
func DefaultInstrumentedConfig() InstrumentedConfig {
	return InstrumentedConfig{
		ServiceConfig: DefaultServiceConfig(),
	}
}

// StartInstrumentedService starts a coverage-instrumented server subprocess.
// TestEnv converts the data to ProfilePath once the cleanup has stopped it.
func StartInstrumentedService(ctx context.Context, cfg InstrumentedConfig) (*InstrumentedService, func(), error) {
	workDir, err := resolveWorkDir(cfg.WorkingDir)
	if err != nil {
		return nil, nil, err
	}

	coverageDir := cfg.CoverageDir
	if coverageDir == "" {
		coverageDir = filepath.Join(workDir, "coverage", "e2e-service")
	}
	if !filepath.IsAbs(coverageDir) {
		coverageDir = filepath.Join(workDir, coverageDir)
	}

	// Coverage from a previous run would be merged into this one.
	if err := os.RemoveAll(coverageDir); err != nil {
		return nil, nil, fmt.Errorf("failed to clean coverage dir: %w", err)
	}
	if err := os.MkdirAll(coverageDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create coverage dir: %w", err)
	}

	binaryPath := cfg.BinaryPath
	if binaryPath == "" || cfg.RebuildBinary {
		binaryPath, err = buildService(ctx, workDir, "e2e-server-instrumented", "-cover")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build instrumented service: %w", err)
		}
	}

	svc, err := launch(ctx, cfg.ServiceConfig, workDir, binaryPath, "GOCOVERDIR="+coverageDir)
	if err != nil {
		return nil, nil, err
	}

	isvc := &InstrumentedService{
		Service:     svc,
		CoverageDir: coverageDir,
		BinaryPath:  binaryPath,
	}
	return isvc, func() { _ = isvc.Stop() }, nil
}

// Stop gracefully stops the service. SIGKILL after the timeout loses the
// coverage data, so the wait is longer than for a plain Service.
func (s *InstrumentedService) Stop() error {
	if err := s.stop(10 * time.Second); err != nil {
		return fmt.Errorf("%w, coverage may be incomplete", err)
	}
	return nil
}

// CoverageFiles returns the list of coverage data files in CoverageDir.
func (s *InstrumentedService) CoverageFiles() ([]string, error) {
	entries, err := os.ReadDir(s.CoverageDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(s.CoverageDir, entry.Name()))
		}
	}
	return files, nil
}

// HasCoverageData returns true if coverage data files exist.
func (s *InstrumentedService) HasCoverageData() bool {
	files, err := s.CoverageFiles()
	return err == nil && len(files) > 0
}

// ProfilePath is the text profile written next to CoverageDir, e.g.
// coverage/e2e-service.out for coverage/e2e-service.
func (s *InstrumentedService) ProfilePath() string {
	return filepath.Clean(s.CoverageDir) + ".out"
}

// ConvertCoverageData converts binary coverage data to text format.
// Call it after the service has stopped.
func (s *InstrumentedService) ConvertCoverageData(outputFile string) error {
	if !s.HasCoverageData() {
		return fmt.Errorf("no coverage data found in %s", s.CoverageDir)
	}

	cmd := exec.Command("go", "tool", "covdata", "textfmt",
		"-i="+s.CoverageDir,
		"-o="+outputFile,
	)
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to convert coverage data: %w\nOutput: %s", err, output)
	}

	return nil
}
