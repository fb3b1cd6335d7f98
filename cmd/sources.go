package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/water-unifier/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered providers",
	Long:  "Lists the providers enabled by the current configuration and the record kinds each one supplies.",
	RunE: func(cmd *cobra.Command, args []string) error {
		printSources(cmd.OutOrStdout(), newRegistry(cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func printSources(w io.Writer, reg *source.Registry) {
	for _, s := range reg.All() {
		kinds := make([]string, 0, len(s.Kinds()))
		for _, k := range s.Kinds() {
			kinds = append(kinds, k.Name)
		}
		fmt.Fprintf(w, "%-12s %s\n", s.Name(), strings.Join(kinds, ", "))
	}
}
