package main

import (
	"github.com/spf13/cobra"

	"storyscope/internal/characters"
	"storyscope/internal/lexicon"
	"storyscope/internal/segment"
)

var charactersCmd = &cobra.Command{
	Use:   "characters <manuscript>",
	Short: "Track characters and their arcs",
	Long: `Characters ranks named characters by POV presence and mentions, elects
a protagonist, extracts arc components (lie, want, need, ghost, truth,
transformation) from the sentences that name each character, classifies the
protagonist's arc and prints the report with key scenes and a character
web.`,
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
		rep, err := characters.Track(doc, seg, characters.Options{
			Protagonist:  cfg.Protagonist,
			MaxSecondary: cfg.MaxSecondary,
			Lexicons:     lex,
		})
		if err != nil {
			return err
		}
		return printJSON(cfg, rep)
	},
}

func init() {
	charactersCmd.Flags().Int("blank-line-run", 0, "blank lines in a row that imply a scene break")
	charactersCmd.Flags().String("protagonist", "", "protagonist name override")
	charactersCmd.Flags().Int("max-secondary", 0, "maximum secondary characters reported (default 5)")

	rootCmd.AddCommand(charactersCmd)
}
