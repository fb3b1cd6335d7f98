package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/water-unifier/internal/record"
)

var waterLevelsCmd = &cobra.Command{
	Use:   "waterlevels",
	Short: "Unify depth-to-water observations",
	Long:  "Fetches depth-to-water measurements for every well, either as the full history, the latest reading or a per-well summary.",
	Example: `  water-unifier waterlevels --sources ST2/PVACD --latest
  water-unifier waterlevels --summary --format xlsx -o levels`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnify(cmd, record.WaterLevel)
	},
}

func init() {
	addUnifyFlags(waterLevelsCmd, record.WaterLevel)
	rootCmd.AddCommand(waterLevelsCmd)
}
