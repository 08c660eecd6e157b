package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "painel",
		Short:         "Painel CLI for inspecting, filtering and comparing spreadsheet data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newInferCmd(),
		newSummarizeCmd(),
		newCompareCmd(),
		newExportCmd(),
	)
	return rootCmd
}

// hintFlags are the role hint flags shared by every command that reads a file.
type hintFlags struct {
	currency  []string
	text      []string
	hintsFile string
}

func (h *hintFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&h.currency, "currency", nil, "Column holding BRL currency values (repeatable)")
	cmd.Flags().StringSliceVar(&h.text, "text", nil, "Column kept as free text (repeatable)")
	cmd.Flags().StringVar(&h.hintsFile, "hints", "", "YAML file with currency and text column lists")
}

func newInferCmd() *cobra.Command {
	var hints hintFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "infer FILE",
		Short: "Classify the columns of a CSV or XLSX file",
		Long: `Read a spreadsheet and report the role inferred for each column.

Example: painel infer vendas.csv --currency valor --text observacao`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd.Context(), cmd.OutOrStdout(), args[0], hints, asJSON)
		},
	}

	hints.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newSummarizeCmd() *cobra.Command {
	var hints hintFlags
	var metricNames []string
	var specFile string

	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Summarize metrics over a filtered view",
		Long: `Apply an optional filter spec and print total, mean and count per metric.

Example: painel summarize vendas.csv --currency valor --metric valor --spec sul.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd.Context(), cmd.OutOrStdout(), args[0], hints, metricNames, specFile)
		},
	}

	hints.register(cmd)
	cmd.Flags().StringSliceVar(&metricNames, "metric", nil, "Metric column, or row_count (repeatable)")
	cmd.Flags().StringVar(&specFile, "spec", "", "YAML filter spec; omitted means the whole table")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var hints hintFlags
	var metricNames []string
	var baseFile, comparisonFile string

	cmd := &cobra.Command{
		Use:   "compare FILE",
		Short: "Compare metrics between a base and a comparison view",
		Long: `Apply two filter specs to the same file and print the variance per metric.

Example: painel compare vendas.csv --currency valor --metric valor --base jan.yaml --comparison fev.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd.OutOrStdout(), args[0], hints, metricNames, baseFile, comparisonFile)
		},
	}

	hints.register(cmd)
	cmd.Flags().StringSliceVar(&metricNames, "metric", nil, "Metric column, or row_count (repeatable)")
	cmd.Flags().StringVar(&baseFile, "base", "", "YAML filter spec for the base view")
	cmd.Flags().StringVar(&comparisonFile, "comparison", "", "YAML filter spec for the comparison view")
	cmd.MarkFlagRequired("base")
	cmd.MarkFlagRequired("comparison")
	return cmd
}

func newExportCmd() *cobra.Command {
	var hints hintFlags
	var specFile, out string

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write a filtered view to CSV or XLSX",
		Long: `Apply a filter spec and write the matching rows. The output format follows
the extension of --out.

Example: painel export vendas.csv --spec sul.yaml --out sul.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], hints, specFile, out)
		},
	}

	hints.register(cmd)
	cmd.Flags().StringVar(&specFile, "spec", "", "YAML filter spec; omitted means the whole table")
	cmd.Flags().StringVar(&out, "out", "", "Output file, .csv or .xlsx")
	cmd.MarkFlagRequired("out")
	return cmd
}
