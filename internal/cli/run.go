package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quizpractice/pkge2e/pkg/browser"
	"github.com/quizpractice/pkge2e/pkg/pricepackage"
	"github.com/quizpractice/pkge2e/pkg/scenario"
)

// launchBrowser is replaced in tests
var launchBrowser = browser.Launch

var (
	runReport string
	runEngine string
	runHeaded bool
)

var runCmd = &cobra.Command{
	Use:   "run [scenario IDs...]",
	Short: "Run the price package scenarios",
	Long: `Run the price package scenarios in order, reseeding the [Package] table
before each one. With no arguments every scenario runs; otherwise only the
named IDs (TC0..TC9) run, in catalog order. A failed scenario skips the rest.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runReport, "report", "", "write the JSON report to this file (default: runner.report_file)")
	runCmd.Flags().StringVar(&runEngine, "engine", "", "browser engine override (rod, playwright)")
	runCmd.Flags().BoolVar(&runHeaded, "headed", false, "show the browser window")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if runEngine != "" {
		e.cfg.Browser.Engine = runEngine
	}
	if runHeaded {
		e.cfg.Browser.Headless = false
	}
	reportFile := e.cfg.Runner.ReportFile
	if runReport != "" {
		reportFile = runReport
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.serveMetrics()

	report, err := runSuite(ctx, e, args)
	if err != nil {
		return err
	}

	if reportFile != "" {
		if err := writeReport(reportFile, report); err != nil {
			return err
		}
		e.logger.Info().Str("file", reportFile).Msg("Report written")
	}
	e.notify(ctx, report, reportFile)

	printSummary(cmd.OutOrStdout(), report)

	if report.Failed() {
		_, failed, _ := report.Counts()
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

// runSuite executes the selected scenarios once against a fresh browser
func runSuite(ctx context.Context, e *env, ids []string) (*scenario.Report, error) {
	fixtures, err := loadFixtures(e.cfg.Runner.FixturesFile)
	if err != nil {
		return nil, err
	}

	suite, err := pricepackage.Suite(e.cfg.Target, e.reseeder().Reset).Filter(ids...)
	if err != nil {
		return nil, err
	}

	b, err := launchBrowser(ctx, e.cfg.Browser, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	runner := scenario.NewRunner(b, fixtures, e.logger,
		scenario.WithTimeout(e.cfg.Runner.Timeout),
		scenario.WithExpectTimeout(e.cfg.Runner.ExpectTimeout),
		scenario.WithPollInterval(e.cfg.Runner.PollInterval),
		scenario.WithArtifactsDir(e.cfg.Runner.ArtifactsDir),
		scenario.WithMetrics(e.metrics),
	)
	return runner.Run(ctx, suite)
}

func loadFixtures(path string) (scenario.Fixtures, error) {
	if path == "" {
		return pricepackage.Fixtures()
	}
	return scenario.LoadFixturesFile(path)
}

func writeReport(path string, report *scenario.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

func printSummary(w io.Writer, report *scenario.Report) {
	for _, res := range report.Results {
		line := fmt.Sprintf("%-7s %-4s %s", res.Status, res.ID, res.Name)
		if res.Error != "" {
			line += "\n        " + res.Error
		}
		fmt.Fprintln(w, line)
	}
	passed, failed, skipped := report.Counts()
	fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped in %s (run %s)\n",
		passed, failed, skipped, report.Duration.Round(1e6), report.RunID)
}
