package main

import (
	"github.com/spf13/cobra"

	"storyscope/internal/render"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <manuscript>",
	Short: "Render the markdown reverse outline",
	Long: `Outline executes the full pipeline and renders the combined result as a
markdown reverse outline: the chapter and scene tree with narrative
functions, pacing, issues and time cues, the genre reading with its
expected key moments, and the character arc findings.`,
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
		return writeOutput(cfg.Out, []byte(render.Outline(res)))
	},
}

func init() {
	addPipelineFlags(outlineCmd)
	rootCmd.AddCommand(outlineCmd)
}
