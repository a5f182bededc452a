// Package main provides audioctl, a command-line front end to the analysis
// pipeline and the naming engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/yassiners/audio-nuit-dinfo/internal/bootstrap"
	"github.com/yassiners/audio-nuit-dinfo/internal/config"
	"github.com/yassiners/audio-nuit-dinfo/internal/naming"
	"github.com/yassiners/audio-nuit-dinfo/internal/pipeline"
)

var version = "dev"

// Globals are shared by every command.
type Globals struct {
	Out     io.Writer        `kong:"-"`
	Verbose bool             `short:"V" help:"Log pipeline progress to stderr"`
	Version kong.VersionFlag `short:"v" help:"Show version information"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Analyze AnalyzeCmd `cmd:"" help:"Analyze a recording and print the unified analysis as JSON"`
	Name    NameCmd    `cmd:"" help:"Preview the archive name generated for a file"`
	Tokens  TokensCmd  `cmd:"" help:"List naming pattern placeholders"`
}

// AnalyzeCmd runs the pipeline on a local file.
type AnalyzeCmd struct {
	File       string        `arg:"" type:"existingfile" help:"Audio file (WAV, MP3 or FLAC)"`
	Format     string        `enum:"MP3,WAV,FLAC" default:"MP3" help:"Output format used for naming"`
	Pattern    string        `help:"Naming pattern" default:"${pattern}"`
	Threshold  float64       `help:"Silence amplitude threshold" default:"0.01"`
	MinSilence float64       `name:"min-silence" help:"Minimum silence length in seconds" default:"2"`
	Timeout    time.Duration `help:"Model call timeout" default:"2m"`
	Offline    bool          `help:"Skip the model call even when GEMINI_API_KEY is set"`
}

// Run implements the analyze command.
func (c *AnalyzeCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.SilenceThreshold = c.Threshold
	cfg.MinSilenceSec = c.MinSilence
	cfg.SemanticTimeout = c.Timeout
	if c.Offline {
		cfg.GeminiAPIKey = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if g.Verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()
	p, _, err := bootstrap.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pipeline.Request{
		Name: filepath.Base(c.File),
		Data: data,
		Config: pipeline.ProcessingConfig{
			Format:        pipeline.Format(c.Format),
			NamingPattern: c.Pattern,
		},
		Progress: func(stage pipeline.Stage) {
			logger.Info(stage.Label(), slog.Int("progress", stage.Progress()))
		},
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(g.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*pipeline.Result
		Alert pipeline.AlertState `json:"alert"`
	}{res, res.Analysis.Alert()})
}

// NameCmd previews a generated archive name.
type NameCmd struct {
	Original string `arg:"" help:"Original file name"`
	Pattern  string `help:"Naming pattern" default:"${pattern}"`
	Format   string `enum:"MP3,WAV,FLAC" default:"MP3" help:"Output format"`
	At       string `help:"Timestamp to use (RFC 3339); defaults to now"`
}

// Run implements the name command.
func (c *NameCmd) Run(g *Globals) error {
	now := time.Now()
	if c.At != "" {
		t, err := time.Parse(time.RFC3339, c.At)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		now = t
	}
	_, err := fmt.Fprintln(g.Out, naming.Generate(c.Original, c.Pattern, c.Format, now))
	return err
}

// TokensCmd lists the naming placeholders.
type TokensCmd struct{}

// Run implements the tokens command.
func (c *TokensCmd) Run(g *Globals) error {
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ENGLISH\tFRENCH\tDESCRIPTION")
	for _, tok := range naming.Tokens() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", tok.English, tok.French, tok.Description)
	}
	return tw.Flush()
}

func newParser(cli *CLI) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("audioctl"),
		kong.Description("Broadcast recording analysis and naming"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
			"pattern": pipeline.DefaultNamingPattern,
		},
	)
}

func main() {
	cli := &CLI{Globals: Globals{Out: os.Stdout}}
	parser, err := newParser(cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
