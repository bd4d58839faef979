package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "sync-commands"}, names)

	sync, _, err := root.Find([]string{"sync-commands"})
	require.NoError(t, err)
	assert.NotNil(t, sync.Flags().Lookup("guild"))
}

func TestRunServeRejectsInvalidConfig(t *testing.T) {
	prev := env.Env
	env.Env = map[string]string{"PUBLIC_DOMAIN": "https://pay.example.com"}
	t.Cleanup(func() { env.Env = prev })

	err := runServe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunSyncCommandsNeedsToken(t *testing.T) {
	assert.Error(t, runSyncCommands("", ""))
}
