package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/water-unifier/internal/record"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Unify monitoring wells",
	Long:  "Fetches well locations from every provider, reprojects them to the output datum and writes one site table.",
	Example: `  water-unifier sites --bbox -105.5,32.5,-104.5,33.5 --format geojson -o wells
  water-unifier sites --sources AMPAPI,WQP --elevation-unit m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnify(cmd, record.Site)
	},
}

func init() {
	addUnifyFlags(sitesCmd, record.Site)
	rootCmd.AddCommand(sitesCmd)
}
