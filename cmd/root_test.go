package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"sites", "waterlevels", "analytes", "sources"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "water-unifier", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestUnifyCommands_CommonFlags(t *testing.T) {
	common := []string{"bbox", "wkt", "sources", "output", "format", "datum", "elevation-unit", "well-depth-unit", "concurrency"}
	for _, name := range common {
		assert.NotNil(t, sitesCmd.Flags().Lookup(name), "sites should have --%s", name)
		assert.NotNil(t, waterLevelsCmd.Flags().Lookup(name), "waterlevels should have --%s", name)
		assert.NotNil(t, analytesCmd.Flags().Lookup(name), "analytes should have --%s", name)
	}

	flag := sitesCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "csv", flag.DefValue)
}

func TestUnifyCommands_KindFlags(t *testing.T) {
	assert.Nil(t, sitesCmd.Flags().Lookup("summary"), "sites has no summary mode")
	assert.Nil(t, sitesCmd.Flags().Lookup("latest"))
	assert.Nil(t, sitesCmd.Flags().Lookup("analyte"))

	for _, name := range []string{"summary", "latest"} {
		assert.NotNil(t, waterLevelsCmd.Flags().Lookup(name), "waterlevels should have --%s", name)
		assert.NotNil(t, analytesCmd.Flags().Lookup(name), "analytes should have --%s", name)
	}
	assert.Nil(t, waterLevelsCmd.Flags().Lookup("analyte"))
	assert.NotNil(t, analytesCmd.Flags().Lookup("analyte"))
}
