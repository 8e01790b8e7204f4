package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/archive"
	"github.com/ppiankov/fraudscrape/internal/cache"
	"github.com/ppiankov/fraudscrape/internal/fmp"
	"github.com/ppiankov/fraudscrape/internal/httpx"
	"github.com/ppiankov/fraudscrape/internal/match"
	"github.com/ppiankov/fraudscrape/internal/model"
	"github.com/ppiankov/fraudscrape/internal/pairing"
	"github.com/ppiankov/fraudscrape/internal/pipeline"
	"github.com/ppiankov/fraudscrape/internal/secapi"
	"github.com/ppiankov/fraudscrape/internal/store"
)

// clients holds the outbound API clients shared by every command
type clients struct {
	sec *secapi.Client
	fmp *fmp.Client
}

// newClients builds the sec-api client and, when withProfiles is set, the
// rate-limited FMP client
func newClients(cfg *model.Config, withProfiles bool) (*clients, error) {
	limiter := httpx.NewLimiter()
	if withProfiles {
		if err := limiter.SetURLRate(cfg.FMP.BaseURL, cfg.FMP.RequestsPerSecond, 1); err != nil {
			return nil, fmt.Errorf("%w: fmp.base_url: %v", model.ErrInvalidConfig, err)
		}
	}

	httpClient := httpx.NewClient(cfg.HTTP, limiter)
	c := &clients{
		sec: secapi.NewClient(httpClient, cfg.SECAPI.BaseURL, cfg.SECAPI.APIKey),
	}
	if withProfiles {
		c.fmp = fmp.NewClient(httpClient, cfg.FMP.BaseURL, cfg.FMP.APIKey, cache.New(cfg.Cache))
	}
	return c, nil
}

func newMatcher(cfg *model.Config, c *clients, logger *zap.Logger) *match.Matcher {
	return match.NewMatcher(c.sec, c.fmp, match.Options{
		ClosestFirst: cfg.Match.ClosestFirst,
		MinSameSIC:   cfg.Match.MinSameSIC,
	}, logger)
}

func loadAWS(ctx context.Context, cfg *model.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Table.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Table.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func newTable(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*store.Table, aws.Config, error) {
	if cfg.Table.Name == "" {
		return nil, aws.Config{}, fmt.Errorf("%w: missing table.name (DYNAMO_TABLE)", model.ErrInvalidConfig)
	}
	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return nil, aws.Config{}, err
	}
	return store.NewTable(dynamodb.NewFromConfig(awsCfg), cfg.Table.Name, logger), awsCfg, nil
}

// buildPipeline wires every capability a run needs. The returned close
// function releases the object store.
func buildPipeline(ctx context.Context, cfg *model.Config, withMatching bool, logger *zap.Logger) (*pipeline.Pipeline, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if withMatching {
		if err := cfg.ValidateMatching(); err != nil {
			return nil, nil, err
		}
	}

	c, err := newClients(cfg, withMatching)
	if err != nil {
		return nil, nil, err
	}

	table, awsCfg, err := newTable(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	objects, err := store.OpenObjectStore(ctx, cfg.Storage, awsCfg)
	if err != nil {
		return nil, nil, err
	}

	archiver, err := archive.NewArchiver(c.sec, objects, archive.Options{
		Encoding:  cfg.Storage.Encoding,
		Sections:  cfg.Archive.Sections,
		Workers:   cfg.Archive.Workers,
		StripHTML: cfg.Archive.StripHTML,
	}, logger)
	if err != nil {
		return nil, nil, errors.Join(err, objects.Close())
	}

	deps := pipeline.Deps{
		Table:    table,
		Searcher: c.sec,
		Archiver: archiver,
	}
	if withMatching {
		deps.Matcher = newMatcher(cfg, c, logger)
		deps.Pairer = pairing.NewPairer(c.sec, cfg.Pairing.PeersPerFraud, logger)
	}

	logger = logger.With(zap.String("run_id", archiver.RunID()))
	return pipeline.NewPipeline(deps, cfg, logger), objects.Close, nil
}
