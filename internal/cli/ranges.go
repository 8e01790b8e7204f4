package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fraudscrape/internal/pipeline"
)

var rangesAll bool

var rangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "Print consolidated fraud ranges without archiving",
	Long: `Scan the fraud table and print the per-company ranges a run would use.

By default scraped rows are skipped, matching the fraud pipeline. Use --all
for the view used by the non-fraud pipeline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := commandContext()
		defer cancel()

		table, _, err := newTable(ctx, cfg, logger)
		if err != nil {
			return err
		}

		p := pipeline.NewPipeline(pipeline.Deps{Table: table}, cfg, logger)
		ranges, err := p.Ranges(ctx, !rangesAll)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ranges.Slice())
	},
}

func init() {
	rangesCmd.Flags().BoolVar(&rangesAll, "all", false, "include rows already scraped")
	rootCmd.AddCommand(rangesCmd)
}
