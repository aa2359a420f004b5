package main

import (
	"github.com/spf13/cobra"

	"storyscope/internal/lexicon"
	"storyscope/internal/segment"
	"storyscope/internal/structure"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes <manuscript>",
	Short: "Analyze scene structure",
	Long: `Scenes segments the manuscript and reads each scene's structural
elements: goal, conflict and disaster with lexical confidence, the disaster
type, sequel beats, the scene/sequel pacing ratio, a narrative function
label and any flagged issues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lex, err := lexicon.Load(cfg.Lexicons)
		if err != nil {
			return err
		}
		doc, err := loadManuscript(args[0], cfg)
		if err != nil {
			return err
		}
		seg, err := segment.Split(doc, segment.Options{BlankLineRun: cfg.BlankLineRun, Lexicons: lex})
		if err != nil {
			return err
		}
		rep, err := structure.Analyze(doc, seg, structure.Options{Workers: cfg.Workers, Lexicons: lex})
		if err != nil {
			return err
		}
		return printJSON(cfg, rep)
	},
}

func init() {
	scenesCmd.Flags().Int("blank-line-run", 0, "blank lines in a row that imply a scene break")
	scenesCmd.Flags().Int("workers", 0, "concurrent scene analyses (default one per CPU)")

	rootCmd.AddCommand(scenesCmd)
}
