package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quizpractice/pkge2e/internal/schedule"
)

var (
	scheduleExpr string
	scheduleTZ   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [scenario IDs...]",
	Short: "Run the scenarios on a cron schedule",
	Long: `Run the selected scenarios every time the cron expression fires until
interrupted. An activation is skipped while the previous run is still going.
Each report is written to the artifacts directory.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleExpr, "cron", "", "5-field cron expression (default: schedule.expr)")
	scheduleCmd.Flags().StringVar(&scheduleTZ, "tz", "", "timezone of the expression (default: schedule.tz)")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	spec := schedule.Spec{Expr: e.cfg.Schedule.Expr, TZ: e.cfg.Schedule.TZ}
	if scheduleExpr != "" {
		spec.Expr = scheduleExpr
	}
	if scheduleTZ != "" {
		spec.TZ = scheduleTZ
	}

	ids := args
	s, err := schedule.New(spec, func(ctx context.Context) error {
		report, err := runSuite(ctx, e, ids)
		if err != nil {
			return err
		}
		file := filepath.Join(e.cfg.Runner.ArtifactsDir, fmt.Sprintf("report-%s.json", report.RunID))
		if err := writeReport(file, report); err != nil {
			return err
		}
		e.notify(ctx, report, file)
		if report.Failed() {
			_, failed, _ := report.Counts()
			return fmt.Errorf("%d scenario(s) failed, see %s", failed, file)
		}
		return nil
	}, e.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.serveMetrics()

	return s.Run(ctx)
}
