package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/pipeline"
)

var runTimeout time.Duration

var fraudCmd = &cobra.Command{
	Use:   "fraud",
	Short: "Archive 10-K sections of fraud companies",
	Long: `Scan the fraud table, consolidate each company's fraud span, and archive
the risk factor, MD&A and market risk sections of every annual report filed
during it under fraudulent/. Rows are flagged as scraped once archived, so
reruns pick up only new records.

Example:
  DYNAMO_TABLE=fraud S3_BUCKET=filings SEC_API_KEY=... fraudscrape fraud`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, false, (*pipeline.Pipeline).RunFraud)
	},
}

var nonfraudCmd = &cobra.Command{
	Use:   "nonfraud",
	Short: "Archive 10-K sections of comparable non-fraud companies",
	Long: `For each fraud company, find listed peers in the same industry ranked by
market capitalization, and archive the annual reports of the first peers
that filed during the fraud span under nonfraudulent/.

Example:
  FMP_API_KEY=... fraudscrape nonfraud --config ./fraudscrape.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, true, (*pipeline.Pipeline).RunNonFraud)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{fraudCmd, nonfraudCmd} {
		cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the run after this long (0 disables)")
		rootCmd.AddCommand(cmd)
	}
}

// commandContext is cancelled on SIGINT/SIGTERM and after runTimeout
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if runTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runPipeline(cmd *cobra.Command, withMatching bool, run func(*pipeline.Pipeline, context.Context) (*pipeline.RunSummary, error)) (err error) {
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

	p, closeStore, err := buildPipeline(ctx, cfg, withMatching, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil && err == nil {
			err = fmt.Errorf("close object store: %w", closeErr)
		}
	}()

	start := time.Now()
	summary, runErr := run(p, ctx)
	if summary != nil {
		logger.Info("run finished",
			zap.String("run_id", summary.RunID),
			zap.String("label", summary.Label),
			zap.Int("ranges", summary.Ranges),
			zap.Int("matched", summary.Matched),
			zap.Int("archived", summary.Archived),
			zap.Duration("elapsed", time.Since(start)))
		if werr := writeJSON(cmd.OutOrStdout(), summary); werr != nil && runErr == nil {
			return werr
		}
	}
	return runErr
}
