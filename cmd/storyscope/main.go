// Package main is the entry point for the storyscope CLI.
package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"storyscope/internal/config"
	"storyscope/internal/ingest"
	"storyscope/internal/manuscript"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "storyscope",
	Short: "Deterministic narrative structure analysis for manuscripts",
	Long: `storyscope segments a manuscript into chapters and scenes, reads each
scene's structural elements, detects the working genre and tracks character
arcs. Every stage is deterministic and lexicon-driven: the same text and
configuration always produce the same report.

Stage subcommands (segment, scenes, genre, characters) print that stage's
JSON result. run executes the whole pipeline and can persist stage results
for later resumption; outline renders the combined result as a markdown
reverse outline.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./storyscope.yaml or ~/.config/storyscope/storyscope.yaml)")
	rootCmd.PersistentFlags().String("lexicons", "", "YAML lexicon override file")
	rootCmd.PersistentFlags().String("title", "", "manuscript title override")
	rootCmd.PersistentFlags().String("out", "", "write output to a file instead of stdout")
}

// loadConfig resolves file and environment configuration, then lets any
// flags set on the invoked command win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("title") {
		cfg.Title, _ = f.GetString("title")
	}
	if f.Changed("lexicons") {
		cfg.Lexicons, _ = f.GetString("lexicons")
	}
	if f.Changed("out") {
		cfg.Out, _ = f.GetString("out")
	}
	if f.Changed("db") {
		cfg.DB, _ = f.GetString("db")
	}
	if f.Changed("blank-line-run") {
		cfg.BlankLineRun, _ = f.GetInt("blank-line-run")
	}
	if f.Changed("sample-size") {
		cfg.SampleSize, _ = f.GetInt("sample-size")
	}
	if f.Changed("protagonist") {
		cfg.Protagonist, _ = f.GetString("protagonist")
	}
	if f.Changed("max-secondary") {
		cfg.MaxSecondary, _ = f.GetInt("max-secondary")
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	return cfg, nil
}

func loadManuscript(path string, cfg *config.Config) (*manuscript.Doc, error) {
	src, err := ingest.Load(path)
	if err != nil {
		return nil, err
	}
	title := cfg.Title
	if title == "" {
		title = src.Title
	}
	return manuscript.New(title, src.Text), nil
}

func writeOutput(out string, data []byte) error {
	if out != "" {
		return os.WriteFile(out, data, 0o644)
	}
	_, err := os.Stdout.Write(data)
	return err
}

func printJSON(cfg *config.Config, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cfg.Out, append(data, '\n'))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
