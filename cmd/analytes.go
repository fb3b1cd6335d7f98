package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/water-unifier/internal/record"
)

var analytesCmd = &cobra.Command{
	Use:   "analytes",
	Short: "Unify water-quality results",
	Long:  "Fetches water-quality results for one parameter from every provider that reports it.",
	Example: `  water-unifier analytes --analyte Nitrate --bbox -107,33,-106,34
  water-unifier analytes --analyte TDS --summary --format sqlite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnify(cmd, record.Analyte)
	},
}

func init() {
	addUnifyFlags(analytesCmd, record.Analyte)
	rootCmd.AddCommand(analytesCmd)
}
