package main

import (
	"github.com/spf13/cobra"

	"storyscope/internal/config"
	"storyscope/internal/lexicon"
	"storyscope/internal/pipeline"
	"storyscope/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run <manuscript>",
	Short: "Execute the full analysis pipeline",
	Long: `Run executes segmentation, scene structure analysis, genre detection and
character tracking over one manuscript and prints the combined result with
its run log. With --db the stage results are persisted to SQLite; --resume
reuses the results recorded for the same source by an earlier run instead
of recomputing them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		resume, _ := cmd.Flags().GetBool("resume")
		res, err := executePipeline(cmd, args[0], cfg, resume)
		if err != nil {
			return err
		}
		return printJSON(cfg, res)
	},
}

func init() {
	addPipelineFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "SQLite database for run persistence")
	cmd.Flags().Bool("resume", false, "reuse stage results from the latest stored run of this source")
	cmd.Flags().Int("blank-line-run", 0, "blank lines in a row that imply a scene break")
	cmd.Flags().Int("sample-size", 0, "paragraphs sampled for genre detection (default 30)")
	cmd.Flags().String("protagonist", "", "protagonist name override")
	cmd.Flags().Int("max-secondary", 0, "maximum secondary characters reported (default 5)")
	cmd.Flags().Int("workers", 0, "concurrent scene analyses (default one per CPU)")
}

func executePipeline(cmd *cobra.Command, path string, cfg *config.Config, resume bool) (*pipeline.Result, error) {
	lex, err := lexicon.Load(cfg.Lexicons)
	if err != nil {
		return nil, err
	}
	doc, err := loadManuscript(path, cfg)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		SourcePath: path,
		Lexicons:   lex,
		Resume:     resume,
	}
	opts.Segment.BlankLineRun = cfg.BlankLineRun
	opts.Structure.Workers = cfg.Workers
	opts.Genre.SampleSize = cfg.SampleSize
	opts.Characters.Protagonist = cfg.Protagonist
	opts.Characters.MaxSecondary = cfg.MaxSecondary

	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		opts.Store = st
	}
	return pipeline.Run(cmd.Context(), doc, opts)
}
