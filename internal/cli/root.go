package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/model"
)

// Version is the release printed by the version command
const Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fraudscrape",
	Short: "Fraudscrape - archive 10-K sections of fraud and peer companies",
	Long: `Fraudscrape builds a labelled corpus of annual report sections.

It reads suspected-fraud records from a DynamoDB table, looks up the 10-K
filings each company made during its fraud span, and stores the extracted
risk factor, MD&A and market risk sections under fraudulent/. A second pass
samples comparable non-fraud companies over the same years and stores their
sections under nonfraudulent/.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fraudscrape v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fraudscrape/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// legacyEnv maps config keys to the plain variable names used by existing
// deployments
var legacyEnv = map[string]string{
	"table.name":     "DYNAMO_TABLE",
	"storage.bucket": "S3_BUCKET",
	"secapi.api_key": "SEC_API_KEY",
	"fmp.api_key":    "FMP_API_KEY",
}

var envReplacer = strings.NewReplacer(".", "_")

// envName is the prefixed variable for a config key
func envName(key string) string {
	return "FRAUDSCRAPE_" + strings.ToUpper(envReplacer.Replace(key))
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.fraudscrape")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults(model.DefaultConfig())

	// FRAUDSCRAPE_SECAPI_API_KEY and friends
	viper.SetEnvPrefix("FRAUDSCRAPE")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	for key, env := range legacyEnv {
		_ = viper.BindEnv(key, envName(key), env)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(cfg *model.Config) {
	viper.SetDefault("table.name", cfg.Table.Name)
	viper.SetDefault("table.region", cfg.Table.Region)
	viper.SetDefault("storage.backend", cfg.Storage.Backend)
	viper.SetDefault("storage.bucket", cfg.Storage.Bucket)
	viper.SetDefault("storage.local_dir", cfg.Storage.LocalDir)
	viper.SetDefault("storage.encoding", cfg.Storage.Encoding)
	viper.SetDefault("storage.credentials_file", cfg.Storage.CredentialsFile)
	viper.SetDefault("secapi.api_key", cfg.SECAPI.APIKey)
	viper.SetDefault("secapi.base_url", cfg.SECAPI.BaseURL)
	viper.SetDefault("fmp.api_key", cfg.FMP.APIKey)
	viper.SetDefault("fmp.base_url", cfg.FMP.BaseURL)
	viper.SetDefault("fmp.requests_per_second", cfg.FMP.RequestsPerSecond)
	viper.SetDefault("http.timeout", cfg.HTTP.Timeout)
	viper.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	viper.SetDefault("http.max_body_bytes", cfg.HTTP.MaxBodyBytes)
	viper.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	viper.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.ttl", cfg.Cache.TTL)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("consolidate.widen_end_year", cfg.Consolidate.WidenEndYear)
	viper.SetDefault("match.closest_first", cfg.Match.ClosestFirst)
	viper.SetDefault("match.min_same_sic", cfg.Match.MinSameSIC)
	viper.SetDefault("pairing.peers_per_fraud", cfg.Pairing.PeersPerFraud)
	viper.SetDefault("archive.sections", cfg.Archive.Sections)
	viper.SetDefault("archive.workers", cfg.Archive.Workers)
	viper.SetDefault("archive.strip_html", cfg.Archive.StripHTML)
}

// loadConfig resolves defaults, config file and environment into a Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds a development logger with --verbose, production otherwise
func newLogger() (*zap.Logger, error) {
	if verbose || viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
