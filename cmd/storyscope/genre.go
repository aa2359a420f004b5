package main

import (
	"github.com/spf13/cobra"

	"storyscope/internal/genre"
	"storyscope/internal/lexicon"
)

var genreCmd = &cobra.Command{
	Use:   "genre <manuscript>",
	Short: "Detect the manuscript's working genre",
	Long: `Genre samples paragraphs from the opening, middle and end of the
manuscript, scores them against the fixed genre taxonomy and prints the
primary genre with confidence, secondary genres, keyword evidence and the
expected key moments of the winning genre.`,
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
		rep, err := genre.Detect(doc, genre.Options{SampleSize: cfg.SampleSize, Lexicons: lex})
		if err != nil {
			return err
		}
		return printJSON(cfg, rep)
	},
}

func init() {
	genreCmd.Flags().Int("sample-size", 0, "paragraphs sampled for scoring (default 30)")

	rootCmd.AddCommand(genreCmd)
}
