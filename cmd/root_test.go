package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "check", "batch", "registry", "cache"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "servicearea", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCheckCommand_Flags(t *testing.T) {
	for _, name := range []string{"street", "city", "state", "house", "output"} {
		assert.NotNil(t, checkCmd.Flags().Lookup(name), "check command should have --%s flag", name)
	}
	assert.Equal(t, "json", checkCmd.Flags().Lookup("output").DefValue)
	assert.Equal(t, "o", checkCmd.Flags().Lookup("output").Shorthand)
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("column")
	require.NotNil(t, flag)
	assert.Equal(t, "address", flag.DefValue)
	assert.NotNil(t, batchCmd.Flags().Lookup("out"))
}

func TestRegistryCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range registryCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["inspect"])
	assert.True(t, names["validate"])
	assert.NotNil(t, registryInspectCmd.Flags().Lookup("keys"))
}

func TestCacheCommand_HasPurge(t *testing.T) {
	require.Len(t, cacheCmd.Commands(), 1)
	assert.Equal(t, "purge", cacheCmd.Commands()[0].Name())
}
