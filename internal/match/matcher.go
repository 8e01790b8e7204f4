// Package match finds comparable non-fraud companies for a fraud company by
// industry or SIC code and market capitalization.
package match

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/fmp"
	"github.com/ppiankov/fraudscrape/internal/model"
	"github.com/ppiankov/fraudscrape/internal/secapi"
)

// unlistedTicker marks mapping rows without a trading symbol
const unlistedTicker = "N/A"

// Mapper resolves companies through the sec-api mapping endpoints
type Mapper interface {
	ResolveCIK(ctx context.Context, cik string) ([]secapi.Company, error)
	ResolveIndustry(ctx context.Context, industry string) ([]secapi.Company, error)
	ListSIC(ctx context.Context, sic string) ([]secapi.Company, error)
}

// Profiler looks up company profiles (market capitalization and CIK)
type Profiler interface {
	Profile(ctx context.Context, ticker string) ([]fmp.Profile, error)
}

// KnownSet reports whether a CIK is a known fraud company
type KnownSet interface {
	Has(cik string) bool
}

// Options tunes peer selection
type Options struct {
	// ClosestFirst sorts by ascending capitalization difference. The default
	// is descending, so the least similar peers come first.
	ClosestFirst bool
	// MinSameSIC is the fewest same-SIC peers accepted before falling back
	// to every listed peer
	MinSameSIC int
}

// Matcher ranks industry peers of a company
type Matcher struct {
	mapper   Mapper
	profiler Profiler
	opts     Options
	logger   *zap.Logger
}

// NewMatcher creates a matcher
func NewMatcher(mapper Mapper, profiler Profiler, opts Options, logger *zap.Logger) *Matcher {
	if opts.MinSameSIC <= 0 {
		opts.MinSameSIC = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		mapper:   mapper,
		profiler: profiler,
		opts:     opts,
		logger:   logger,
	}
}

// FindPeers returns peer CIKs ranked by capitalization. found is false when
// the company has no ticker or no peers at all; an empty slice with found
// set means peers existed but none had a usable profile.
func (m *Matcher) FindPeers(ctx context.Context, cik string) (peers []string, found bool, err error) {
	rows, err := m.mapper.ResolveCIK(ctx, cik)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		m.logger.Info("company not found in mapping", zap.String("cik", cik))
		return nil, false, nil
	}

	subject := rows[0]
	if subject.Ticker == "" {
		return nil, false, nil
	}

	var candidates []secapi.Company
	if subject.Industry != "" {
		candidates, err = m.mapper.ResolveIndustry(ctx, subject.Industry)
	} else {
		candidates, err = m.mapper.ListSIC(ctx, subject.SIC)
	}
	if err != nil {
		return nil, false, err
	}

	if len(candidates) == 0 {
		m.logger.Warn("no similar companies were found", zap.String("ticker", subject.Ticker))
		return nil, false, nil
	}

	tickers := m.candidateTickers(candidates, subject.SIC)

	subjectProfiles, err := m.profiler.Profile(ctx, subject.Ticker)
	if err != nil {
		return nil, false, err
	}

	if len(subjectProfiles) > 0 {
		peers, err = m.rankByProximity(ctx, subjectProfiles[0].MktCap, tickers)
	} else {
		peers, err = m.rankBySize(ctx, tickers)
	}
	if err != nil {
		return nil, false, err
	}

	m.logger.Debug("ranked peers",
		zap.String("cik", cik),
		zap.String("ticker", subject.Ticker),
		zap.Int("candidates", len(candidates)),
		zap.Int("peers", len(peers)))
	return peers, true, nil
}

// FindPeerSet ranks peers for a fraud range, dropping any known fraud CIK
func (m *Matcher) FindPeerSet(ctx context.Context, tr *model.TimeRange, known KnownSet) (*model.PeerSet, bool, error) {
	peers, found, err := m.FindPeers(ctx, tr.CIK)
	if err != nil || !found {
		return nil, found, err
	}

	return &model.PeerSet{
		CIK:       tr.CIK,
		Peers:     lo.Reject(peers, func(cik string, _ int) bool { return known.Has(cik) }),
		StartYear: tr.StartYear,
		EndYear:   tr.EndYear,
	}, true, nil
}

// candidateTickers keeps listed companies in the same SIC, widening to every
// listed company when too few share the SIC
func (m *Matcher) candidateTickers(candidates []secapi.Company, sic string) []string {
	listed := lo.Filter(candidates, func(c secapi.Company, _ int) bool {
		return !c.IsDelisted
	})
	selected := lo.Filter(listed, func(c secapi.Company, _ int) bool {
		return c.SIC == sic
	})
	if len(selected) < m.opts.MinSameSIC {
		selected = listed
	}

	return lo.FilterMap(selected, func(c secapi.Company, _ int) (string, bool) {
		return c.Ticker, c.Ticker != "" && c.Ticker != unlistedTicker
	})
}

// scoredPeer ranks by whole dollars; fractional market caps that truncate
// to the same value tie and keep listing order
type scoredPeer struct {
	cik   string
	score decimal.Decimal
}

func (m *Matcher) rankByProximity(ctx context.Context, subjectCap decimal.Decimal, tickers []string) ([]string, error) {
	subjectCap = subjectCap.Truncate(0)
	scored, err := m.score(ctx, tickers, func(p fmp.Profile) decimal.Decimal {
		return subjectCap.Sub(p.MktCap.Truncate(0)).Abs()
	})
	if err != nil {
		return nil, err
	}
	return sortPeers(scored, !m.opts.ClosestFirst), nil
}

func (m *Matcher) rankBySize(ctx context.Context, tickers []string) ([]string, error) {
	scored, err := m.score(ctx, tickers, func(p fmp.Profile) decimal.Decimal {
		return p.MktCap.Truncate(0)
	})
	if err != nil {
		return nil, err
	}
	return sortPeers(scored, true), nil
}

// score looks up each ticker's profile, skipping tickers without a profile
// or with an unusable CIK
func (m *Matcher) score(ctx context.Context, tickers []string, scoreFn func(fmp.Profile) decimal.Decimal) ([]scoredPeer, error) {
	scored := make([]scoredPeer, 0, len(tickers))
	for _, ticker := range tickers {
		profiles, err := m.profiler.Profile(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if len(profiles) == 0 {
			continue
		}

		profile := profiles[0]
		cik, ok := NormalizeCIK(profile.CIK)
		if !ok {
			m.logger.Debug("skipping peer without usable cik", zap.String("ticker", ticker))
			continue
		}
		scored = append(scored, scoredPeer{cik: cik, score: scoreFn(profile)})
	}
	return scored, nil
}

func sortPeers(scored []scoredPeer, descending bool) []string {
	slices.SortStableFunc(scored, func(a, b scoredPeer) int {
		if descending {
			return b.score.Cmp(a.score)
		}
		return a.score.Cmp(b.score)
	})
	return lo.Map(scored, func(p scoredPeer, _ int) string { return p.cik })
}

// NormalizeCIK strips zero padding: "0000320193" becomes "320193". Missing,
// too short or non-numeric values are rejected.
func NormalizeCIK(raw *string) (string, bool) {
	if raw == nil || len(*raw) < 2 {
		return "", false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(*raw), 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}
