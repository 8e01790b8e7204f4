// Package pairing turns ranked peer companies into the annual report
// documents sampled alongside a fraud company.
package pairing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/model"
	"github.com/ppiankov/fraudscrape/internal/secapi"
)

// DefaultPeersPerFraud is how many peers contribute filings per fraud company
const DefaultPeersPerFraud = 2

// Searcher runs full-text filing queries
type Searcher interface {
	SearchFilings(ctx context.Context, q secapi.FilingQuery) ([]secapi.Filing, error)
}

// KnownSet reports whether a CIK is a known fraud company
type KnownSet interface {
	Has(cik string) bool
}

// Pairer selects peer filings for fraud ranges
type Pairer struct {
	searcher      Searcher
	peersPerFraud int
	logger        *zap.Logger
}

// NewPairer creates a pairer. A non-positive peersPerFraud uses
// DefaultPeersPerFraud.
func NewPairer(searcher Searcher, peersPerFraud int, logger *zap.Logger) *Pairer {
	if peersPerFraud <= 0 {
		peersPerFraud = DefaultPeersPerFraud
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pairer{
		searcher:      searcher,
		peersPerFraud: peersPerFraud,
		logger:        logger,
	}
}

// Pair walks the ranked peers in order and collects the annual reports each
// filed during the fraud span. Peers in exclude are skipped. It stops once
// enough peers contributed at least one document.
func (p *Pairer) Pair(ctx context.Context, set *model.PeerSet, exclude KnownSet) ([]model.FilingReference, error) {
	var refs []model.FilingReference
	matched := 0

	for _, peer := range set.Peers {
		if matched >= p.peersPerFraud {
			break
		}
		if exclude != nil && exclude.Has(peer) {
			continue
		}

		filings, err := p.searcher.SearchFilings(ctx, secapi.FilingQuery{
			CIK:       peer,
			StartYear: set.StartYear,
			EndYear:   set.EndYear,
			FormType:  secapi.FormAnnualReport,
		})
		if err != nil {
			return refs, fmt.Errorf("search filings of peer %s: %w", peer, err)
		}

		found := AnnualReports(filings, peer, set.CIK)
		if len(found) == 0 {
			p.logger.Debug("peer has no annual reports in range",
				zap.String("peer", peer),
				zap.Int("start_year", set.StartYear),
				zap.Int("end_year", set.EndYear))
			continue
		}

		refs = append(refs, found...)
		matched++
	}

	if matched < p.peersPerFraud {
		p.logger.Info("fewer peers with filings than requested",
			zap.String("cik", set.CIK),
			zap.Int("matched", matched),
			zap.Int("wanted", p.peersPerFraud))
	}
	return refs, nil
}

// AnnualReports takes the first 10-K document of every filing. cik is the
// company the documents belong to; pairedWith is empty for fraud filings.
func AnnualReports(filings []secapi.Filing, cik, pairedWith string) []model.FilingReference {
	var refs []model.FilingReference
	for _, f := range filings {
		doc, ok := f.FirstDocument(secapi.FormAnnualReport)
		if !ok || doc.DocumentURL == "" {
			continue
		}
		refs = append(refs, model.FilingReference{
			DocumentURL: doc.DocumentURL,
			CIK:         cik,
			Year:        f.Year(),
			PairedWith:  pairedWith,
		})
	}
	return refs
}
