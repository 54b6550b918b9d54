// Package testenv provides ephemeral test infrastructure using testcontainers.
package testenv

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// Service represents a running instance of the report server.
type Service struct {
	// URL is the base URL of the running service.
	URL string

	// Port is the port the service is listening on.
	Port int

	// Process is the underlying OS process.
	Process *os.Process

	// cmd is the exec.Cmd (kept for cleanup).
	cmd *exec.Cmd
}

// ServiceConfig holds configuration for starting the service.
type ServiceConfig struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// APIKey is the API key for POST /api/healings.
	APIKey string

	// LogLevel is passed through as LOG_LEVEL (default: warn).
	LogLevel string

	// Port is the port to listen on (0 for random available port).
	Port int

	// BinaryPath is the path to the compiled server binary.
	// If empty, the service will be built automatically.
	BinaryPath string

	// WorkingDir is the working directory for the service.
	// Defaults to the project root.
	WorkingDir string
}

// DefaultServiceConfig returns default service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		APIKey:   "test-api-key",
		LogLevel: "warn",
		Port:     0, // Random port
	}
}

// environ returns the process environment for a server listening on port.
func (cfg ServiceConfig) environ(port int, extra ...string) []string {
	env := append(os.Environ(),
		fmt.Sprintf("DATABASE_URL=%s", cfg.DatabaseURL),
		fmt.Sprintf("API_KEY=%s", cfg.APIKey),
		fmt.Sprintf("PORT=%d", port),
		fmt.Sprintf("LOG_LEVEL=%s", cfg.LogLevel),
		"LOG_FORMAT=console",
	)
	return append(env, extra...)
}

// StartService starts the report server as a subprocess.
//
// It waits for GET /health to answer before returning. Always call the
// returned cleanup when done:
//
//	svc, cleanup, err := StartService(ctx, cfg)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer cleanup()
func StartService(ctx context.Context, cfg ServiceConfig) (*Service, func(), error) {
	workDir, err := resolveWorkDir(cfg.WorkingDir)
	if err != nil {
		return nil, nil, err
	}

	binaryPath := cfg.BinaryPath
	if binaryPath == "" {
		binaryPath, err = buildService(ctx, workDir, "e2e-server")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build service: %w", err)
		}
	}

	svc, err := launch(ctx, cfg, workDir, binaryPath)
	if err != nil {
		return nil, nil, err
	}

	return svc, func() { _ = svc.Stop() }, nil
}

// launch starts binaryPath and waits until it is healthy.
func launch(ctx context.Context, cfg ServiceConfig, workDir, binaryPath string, extraEnv ...string) (*Service, error) {
	port := cfg.Port
	if port == 0 {
		var err error
		port, err = findAvailablePort()
		if err != nil {
			return nil, fmt.Errorf("failed to find available port: %w", err)
		}
	}

	// Not bound to ctx: the server outlives the setup context and is
	// stopped through Stop.
	cmd := exec.Command(binaryPath)
	cmd.Dir = workDir
	cmd.Env = cfg.environ(port, extraEnv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Set process group for clean termination
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}

	svc := &Service{
		URL:     fmt.Sprintf("http://localhost:%d", port),
		Port:    port,
		Process: cmd.Process,
		cmd:     cmd,
	}

	if err := waitForService(ctx, svc.URL, 30*time.Second); err != nil {
		_ = svc.Stop()
		return nil, fmt.Errorf("service failed to become ready: %w", err)
	}

	return svc, nil
}

// stop sends SIGTERM and waits up to timeout for the process to exit,
// killing it afterwards.
func (s *Service) stop(timeout time.Duration) error {
	if s.Process == nil {
		return nil
	}

	if err := s.Process.Signal(syscall.SIGTERM); err != nil {
		_ = s.Process.Kill()
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Process.Wait()
		done <- err
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		_ = s.Process.Kill()
		return fmt.Errorf("service did not exit within %v", timeout)
	}
}

// Stop gracefully stops the service.
func (s *Service) Stop() error {
	return s.stop(5 * time.Second)
}

// HealthCheck verifies the service is responding.
func (s *Service) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/health", nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	return nil
}

// findAvailablePort finds a random available TCP port.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

func resolveWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	root, err := findProjectRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	return root, nil
}

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// buildService compiles ./cmd/server into tmp/<name>, passing extra build flags.
func buildService(ctx context.Context, workDir, name string, flags ...string) (string, error) {
	binaryPath := filepath.Join(workDir, "tmp", name)

	if err := os.MkdirAll(filepath.Join(workDir, "tmp"), 0755); err != nil {
		return "", fmt.Errorf("failed to create tmp dir: %w", err)
	}

	args := append([]string{"build"}, flags...)
	args = append(args, "-o", binaryPath, "./cmd/server")

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = workDir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to build: %w\nOutput: %s", err, output)
	}

	return binaryPath, nil
}

// waitForService polls GET /health until it answers 200 or timeout elapses.
func waitForService(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not respond within %v: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
