// Command xray-upload imports a JUnit results file into Xray cloud.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gti/selfheal-e2e/internal/config"
	"github.com/gti/selfheal-e2e/internal/logging"
	"github.com/gti/selfheal-e2e/internal/xray"
)

var errMissingCredentials = errors.New("set XRAY_CLIENT_ID and XRAY_CLIENT_SECRET environment variables")

func main() {
	cfg, err := config.LoadXray()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(cfg).Execute(); err != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// newRootCmd builds the command with flag defaults taken from cfg.
func newRootCmd(cfg *config.XrayConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xray-upload",
		Short: "Upload JUnit test results to Xray",
		Long: `xray-upload authenticates against the Xray cloud API with XRAY_CLIENT_ID
and XRAY_CLIENT_SECRET and imports a JUnit XML report as a test execution.

Pass --test-exec to attach the results to an existing test execution
instead of creating a new one.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.JUnitPath, "junit", cfg.JUnitPath, "path to the JUnit XML report (env JUNIT_PATH)")
	cmd.Flags().StringVar(&cfg.TestExecKey, "test-exec", cfg.TestExecKey, "existing test execution key, e.g. PROJ-123 (env XRAY_TEST_EXEC)")
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Xray API base URL (env XRAY_BASE_URL)")

	return cmd
}

func run(cmd *cobra.Command, cfg *config.XrayConfig) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return errMissingCredentials
	}

	info, err := os.Stat(cfg.JUnitPath)
	if err != nil {
		return fmt.Errorf("junit file not found: %s", cfg.JUnitPath)
	}
	if info.IsDir() {
		return fmt.Errorf("junit path is a directory: %s", cfg.JUnitPath)
	}

	ctx := cmd.Context()
	client := xray.NewClient(cfg.BaseURL)

	token, err := client.Authenticate(ctx, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	result, err := client.ImportJUnit(ctx, token, cfg.JUnitPath, cfg.TestExecKey)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Upload result: %s\n", result.Raw)
	return nil
}
