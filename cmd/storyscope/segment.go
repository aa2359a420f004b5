package main

import (
	"github.com/spf13/cobra"

	"storyscope/internal/lexicon"
	"storyscope/internal/segment"
)

var segmentCmd = &cobra.Command{
	Use:   "segment <manuscript>",
	Short: "Split a manuscript into chapters and scenes",
	Long: `Segment detects chapter headings and scene breaks and prints the
chapter/scene tree with 1-based line offsets, word counts, opening previews
and a POV candidate guess per scene.`,
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
		return printJSON(cfg, seg)
	},
}

func init() {
	segmentCmd.Flags().Int("blank-line-run", 0, "blank lines in a row that imply a scene break")

	rootCmd.AddCommand(segmentCmd)
}
