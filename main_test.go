package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"board", "relay", "export"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	export, _, err := root.Find([]string{"export"})
	require.NoError(t, err)
	require.NoError(t, export.ParseFlags([]string{"-o", "out.pdf", "--wait", "500ms"}))
	assert.Equal(t, "out.pdf", export.Flag("output").Value.String())
	assert.Equal(t, "500ms", export.Flag("wait").Value.String())
	assert.NotNil(t, export.Flag("config"))
}

func TestUnknownCommandFails(t *testing.T) {
	assert.Error(t, mainInner([]string{"paint"}))
}
