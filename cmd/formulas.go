package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/radreport/internal/formula"
)

var formulasCmd = &cobra.Command{
	Use:   "formulas",
	Short: "List the formulas in the compiled registry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatFormulas(os.Stdout, formula.Default())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formulasCmd)
}

// formatFormulas writes one row per formula. Formulas without a calculator
// function are shown as unwired.
func formatFormulas(out io.Writer, reg *formula.Registry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Registry version:\t%s\n\n", reg.Version())
	_, _ = fmt.Fprintln(w, "ID\tFAMILY\tFUNCTION\tREQUIRED INPUTS")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t---------------")
	for _, f := range reg.Formulas() {
		fn := f.Function
		if fn == "" {
			fn = "(unwired)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.ID, f.Family, fn, strings.Join(reg.RequiredKeys(f.ID), ", "))
	}
	_ = w.Flush()
}
