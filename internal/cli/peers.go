package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fraudscrape/internal/model"
)

type peersOutput struct {
	CIK   string   `json:"cik"`
	Found bool     `json:"found"`
	Peers []string `json:"peers"`
}

var peersCmd = &cobra.Command{
	Use:   "peers <cik>",
	Short: "Print ranked non-fraud peers of a company",
	Long: `Resolve a company by CIK and print the CIKs of its industry peers in
the order the non-fraud pipeline would try them. Known fraud companies are
not filtered out.

Example:
  fraudscrape peers 320193`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.SECAPI.APIKey == "" {
			return fmt.Errorf("%w: missing secapi.api_key (SEC_API_KEY)", model.ErrInvalidConfig)
		}
		if err := cfg.ValidateMatching(); err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		c, err := newClients(cfg, true)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		peers, found, err := newMatcher(cfg, c, logger).FindPeers(ctx, args[0])
		if err != nil {
			return err
		}
		if peers == nil {
			peers = []string{}
		}
		return writeJSON(cmd.OutOrStdout(), peersOutput{CIK: args[0], Found: found, Peers: peers})
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
}
