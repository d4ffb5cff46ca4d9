package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edmo-facs/emotion"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPatternsCmd_PrintsDefaults(t *testing.T) {
	out, err := execute(t, "patterns")
	require.NoError(t, err)

	set, err := emotion.LoadPatterns(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, emotion.Canonical, set.Emotions())
}

func TestProcessCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(in, []byte("Time,Expression,Weight\n10:00:00.100 AM,CheekRaiserL,0.8\n10:00:00.200 AM,LipCornerPullerR,0.6\n"), 0o644))

	out, err := execute(t, "process", in, "--output-dir", filepath.Join(dir, "results"), "--threshold", "0.3", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "export\t")
	assert.Contains(t, out, "export_final.csv")
}

func TestProcessCmd_RejectsThreshold(t *testing.T) {
	_, err := execute(t, "process", "x.csv", "--threshold", "1.5")
	assert.ErrorIs(t, err, emotion.ErrInvalidThreshold)
}

func TestProcessCmd_RequiresFile(t *testing.T) {
	_, err := execute(t, "process")
	assert.Error(t, err)
}
