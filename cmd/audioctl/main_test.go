package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*CLI, func() error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{Globals: Globals{Out: &out}}
	parser, err := newParser(cli)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, func() error { return ctx.Run(&cli.Globals) }
}

func TestNameCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "default pattern",
			args: []string{"name", "Journal du soir.wav", "--at", "2025-03-07T21:05:00Z"},
			want: "Journal_du_soir_07-03_21h05.mp3",
		},
		{
			name: "custom pattern and format",
			args: []string{"name", "a.b.mp3", "--pattern", "%annee%_%text%", "--format", "FLAC", "--at", "2024-12-31T23:59:00Z"},
			want: "2024_a_b.flac",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, run := parse(t, tt.args...)
			require.NoError(t, run())
			assert.Equal(t, tt.want+"\n", cli.Out.(*bytes.Buffer).String())
		})
	}
}

func TestNameCmd_BadTimestamp(t *testing.T) {
	_, run := parse(t, "name", "a.mp3", "--at", "yesterday")
	assert.Error(t, run())
}

func TestTokensCmd(t *testing.T) {
	cli, run := parse(t, "tokens")
	require.NoError(t, run())

	out := cli.Out.(*bytes.Buffer).String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 7)
	assert.Contains(t, out, "%textNonObligatoire%")
	assert.Contains(t, out, "%minutes%")
}

func TestAnalyzeCmd_Parse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	cli, _ := parse(t, "analyze", path, "--format", "WAV", "--min-silence", "1.5", "--offline")
	assert.Equal(t, path, cli.Analyze.File)
	assert.Equal(t, "WAV", cli.Analyze.Format)
	assert.InDelta(t, 1.5, cli.Analyze.MinSilence, 1e-9)
	assert.True(t, cli.Analyze.Offline)
}
