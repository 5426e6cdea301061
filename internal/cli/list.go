package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quizpractice/pkge2e/pkg/pricepackage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenario catalog",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	suite := pricepackage.Suite(pricepackage.DefaultTarget(), nil)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, sc := range suite.Scenarios {
		fmt.Fprintf(w, "%s\t%s\n", sc.ID, sc.Name)
	}
	return w.Flush()
}
