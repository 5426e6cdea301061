package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quizpractice/pkge2e/pkg/pricepackage"
	"github.com/quizpractice/pkge2e/pkg/tablescrape"
)

var (
	extractFile    string
	extractTableID string
	extractHeaders string
	extractFormat  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract table rows from a saved HTML page",
	Long: `Extract the named columns from a table in a saved HTML page, in the
same shape the scenarios compare against. Useful for writing fixture files.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "saved HTML page (required)")
	extractCmd.Flags().StringVar(&extractTableID, "table-id", "", "id attribute of the table (default: first table)")
	extractCmd.Flags().StringVar(&extractHeaders, "headers", strings.Join(pricepackage.Headers, ","), "comma-separated columns to extract, in order")
	extractCmd.Flags().StringVarP(&extractFormat, "output", "o", "text", "output format (text, json, yaml)")
	_ = extractCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	f, err := os.Open(extractFile)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	table, err := tablescrape.ParseHTML(f, extractTableID)
	if err != nil {
		return err
	}

	rows, err := tablescrape.Extract(cmd.Context(), table, splitList(extractHeaders))
	if err != nil {
		return err
	}

	return printValue(cmd, extractFormat, rows, rows.String())
}

// printValue writes v in the requested format; text prints the given rendering
func printValue(cmd *cobra.Command, format string, v interface{}, text string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "text", "":
		_, err := fmt.Fprint(out, text)
		return err
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (must be text, json or yaml)", format)
	}
}

// splitList splits a comma-separated flag value, dropping empty items
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
