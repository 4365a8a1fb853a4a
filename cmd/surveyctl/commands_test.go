package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`title: Team pulse
questions:
  - type: rating-scale
    text: How was this week?
    scale: {min: 1, max: 5}
`), 0o600))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"title": "", "questions": []}`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	rootCmd.SetArgs([]string{"validate", good})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Team pulse: valid (1 questions)")

	rootCmd.SetArgs([]string{"validate", bad})
	assert.Error(t, rootCmd.Execute())
}
