package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quizpractice/pkge2e/pkg/fixture"
)

var (
	snapshotSubject int
	snapshotFormat  string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the backing store",
}

var dbSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the stored packages of a subject",
	Args:  cobra.NoArgs,
	RunE:  runDBSnapshot,
}

func init() {
	dbSnapshotCmd.Flags().IntVar(&snapshotSubject, "subject", 0, "subject ID (default: target.subject_id)")
	dbSnapshotCmd.Flags().StringVarP(&snapshotFormat, "output", "o", "text", "output format (text, json, yaml)")
	dbCmd.AddCommand(dbSnapshotCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBSnapshot(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	subject := e.cfg.Target.SubjectID
	if snapshotSubject > 0 {
		subject = snapshotSubject
	}

	sess, err := e.sessions().Acquire(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()

	packages, err := fixture.LoadPackages(cmd.Context(), sess, subject)
	if err != nil {
		return err
	}

	return printValue(cmd, snapshotFormat, packages, formatPackages(packages))
}

func formatPackages(packages []fixture.PricePackage) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDURATION\tLIST\tSALE\tACTIVE")
	for _, p := range packages {
		fmt.Fprintf(w, "%d\t%s\t%d\t%g\t%g\t%t\n", p.ID, p.Name, p.Duration, p.ListPrice, p.SalePrice, p.Active)
	}
	w.Flush()
	return sb.String()
}
