// Package pipeline runs the fraud and non-fraud archiving passes over the
// fraud table.
package pipeline

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/consolidate"
	"github.com/ppiankov/fraudscrape/internal/match"
	"github.com/ppiankov/fraudscrape/internal/model"
	"github.com/ppiankov/fraudscrape/internal/pairing"
	"github.com/ppiankov/fraudscrape/internal/secapi"
)

// Table is the fraud record source
type Table interface {
	Records(ctx context.Context) iter.Seq2[model.FraudRecord, error]
	MarkScraped(ctx context.Context, rows []model.RowKey) (int, error)
}

// Searcher runs filing queries
type Searcher interface {
	SearchFilings(ctx context.Context, q secapi.FilingQuery) ([]secapi.Filing, error)
}

// PeerFinder ranks non-fraud peers for a fraud range
type PeerFinder interface {
	FindPeerSet(ctx context.Context, tr *model.TimeRange, known match.KnownSet) (*model.PeerSet, bool, error)
}

// Pairer picks the peer filings sampled for a fraud company
type Pairer interface {
	Pair(ctx context.Context, set *model.PeerSet, exclude pairing.KnownSet) ([]model.FilingReference, error)
}

// Archiver extracts and stores filings
type Archiver interface {
	ArchiveAll(ctx context.Context, refs []model.FilingReference, label model.Label) (int, error)
	RunID() string
}

// Deps are the capabilities a pipeline runs against. Matcher and Pairer are
// only needed by RunNonFraud.
type Deps struct {
	Table    Table
	Searcher Searcher
	Matcher  PeerFinder
	Pairer   Pairer
	Archiver Archiver
}

// RunSummary reports what a run did
type RunSummary struct {
	RunID      string   `json:"run_id"`
	Label      string   `json:"label"`
	Ranges     int      `json:"ranges"`
	Matched    int      `json:"matched"`
	References int      `json:"references"`
	Archived   int      `json:"archived"`
	NotFound   []string `json:"not_found,omitempty"`
}

// Pipeline orchestrates consolidation, lookup and archiving
type Pipeline struct {
	deps   Deps
	config *model.Config
	logger *zap.Logger
}

// NewPipeline creates a pipeline with the given capabilities
func NewPipeline(deps Deps, cfg *model.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		deps:   deps,
		config: cfg,
		logger: logger,
	}
}

// Ranges scans the table and consolidates it. skipScraped selects the fraud
// pipeline's view, which ignores rows already archived and keeps their table keys.
func (p *Pipeline) Ranges(ctx context.Context, skipScraped bool) (*consolidate.Ranges, error) {
	c := consolidate.NewConsolidator(consolidate.Options{
		SkipScraped:  skipScraped,
		TrackRows:    skipScraped,
		WidenEndYear: p.config.Consolidate.WidenEndYear,
	}, p.logger)

	ranges, err := c.ConsolidateSeq(p.deps.Table.Records(ctx))
	if err != nil {
		return nil, fmt.Errorf("read fraud table: %w", err)
	}

	p.logger.Info("consolidated fraud ranges",
		zap.Int("ranges", ranges.Len()),
		zap.Bool("skip_scraped", skipScraped))
	return ranges, nil
}

// RunFraud archives the annual reports each fraud company filed during its
// fraud span, then flags its table rows as scraped
func (p *Pipeline) RunFraud(ctx context.Context) (*RunSummary, error) {
	ranges, err := p.Ranges(ctx, true)
	if err != nil {
		return nil, err
	}

	summary := p.newSummary(model.LabelFraudulent, ranges.Len())

	for tr := range ranges.All() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		filings, err := p.deps.Searcher.SearchFilings(ctx, secapi.FilingQuery{
			CIK:       tr.CIK,
			StartYear: tr.StartYear,
			EndYear:   tr.EndYear,
			FormType:  secapi.FormAnnualReport,
		})
		if err != nil {
			return summary, fmt.Errorf("search filings of %s: %w", tr.CIK, err)
		}

		refs := pairing.AnnualReports(filings, tr.CIK, "")
		if len(refs) == 0 {
			p.logger.Warn("no annual reports found in fraud range",
				zap.String("cik", tr.CIK),
				zap.String("company", tr.CompanyName),
				zap.Int("start_year", tr.StartYear),
				zap.Int("end_year", tr.EndYear))
			summary.NotFound = append(summary.NotFound, tr.CIK)
			continue
		}
		summary.Matched++
		summary.References += len(refs)

		n, err := p.deps.Archiver.ArchiveAll(ctx, refs, model.LabelFraudulent)
		summary.Archived += n
		if err != nil {
			return summary, fmt.Errorf("archive filings of %s: %w", tr.CIK, err)
		}

		marked, err := p.deps.Table.MarkScraped(ctx, tr.Rows)
		if err != nil {
			return summary, err
		}
		p.logger.Info("fraud company scraped",
			zap.String("cik", tr.CIK),
			zap.String("company", tr.CompanyName),
			zap.Int("filings", n),
			zap.Int("rows_marked", marked))
	}

	return summary, nil
}

// RunNonFraud archives annual reports of comparable non-fraud companies,
// sampled over each fraud company's span
func (p *Pipeline) RunNonFraud(ctx context.Context) (*RunSummary, error) {
	if p.deps.Matcher == nil || p.deps.Pairer == nil {
		return nil, fmt.Errorf("%w: peer matching is not configured", model.ErrInvalidConfig)
	}

	ranges, err := p.Ranges(ctx, false)
	if err != nil {
		return nil, err
	}

	summary := p.newSummary(model.LabelNonFraudulent, ranges.Len())

	for tr := range ranges.All() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		set, found, err := p.deps.Matcher.FindPeerSet(ctx, tr, ranges)
		if err != nil {
			return summary, fmt.Errorf("find peers of %s: %w", tr.CIK, err)
		}
		if !found || len(set.Peers) == 0 {
			p.logger.Info("no peers for fraud company", zap.String("cik", tr.CIK))
			summary.NotFound = append(summary.NotFound, tr.CIK)
			continue
		}

		refs, err := p.deps.Pairer.Pair(ctx, set, ranges)
		if err != nil {
			return summary, fmt.Errorf("pair peers of %s: %w", tr.CIK, err)
		}
		if len(refs) == 0 {
			p.logger.Info("no peer filings in fraud range",
				zap.String("cik", tr.CIK),
				zap.Int("peers", len(set.Peers)))
			summary.NotFound = append(summary.NotFound, tr.CIK)
			continue
		}
		summary.Matched++
		summary.References += len(refs)

		n, err := p.deps.Archiver.ArchiveAll(ctx, refs, model.LabelNonFraudulent)
		summary.Archived += n
		if err != nil {
			return summary, fmt.Errorf("archive peer filings of %s: %w", tr.CIK, err)
		}
	}

	return summary, nil
}

func (p *Pipeline) newSummary(label model.Label, ranges int) *RunSummary {
	return &RunSummary{
		RunID:  p.deps.Archiver.RunID(),
		Label:  string(label),
		Ranges: ranges,
	}
}
