// Package consolidate collapses per-incident fraud records into one
// suspected-fraud year range per company.
package consolidate

import (
	"iter"

	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/model"
)

// minSameYearMonths is the shortest same-year incident that still counts
const minSameYearMonths = 6

// Options selects the variant of consolidation a pipeline needs
type Options struct {
	SkipScraped  bool // Ignore records already flagged as scraped
	TrackRows    bool // Accumulate the table keys merged into each range
	WidenEndYear bool // Use max instead of min when merging end years
}

// Ranges maps CIK to its consolidated range, keeping first-seen order
type Ranges struct {
	byCIK map[string]*model.TimeRange
	order []string
}

func newRanges() *Ranges {
	return &Ranges{byCIK: make(map[string]*model.TimeRange)}
}

// Get returns the range for a CIK
func (r *Ranges) Get(cik string) (*model.TimeRange, bool) {
	tr, ok := r.byCIK[cik]
	return tr, ok
}

// Has reports whether the CIK has a consolidated range
func (r *Ranges) Has(cik string) bool {
	_, ok := r.byCIK[cik]
	return ok
}

// Len returns the number of companies with a range
func (r *Ranges) Len() int {
	return len(r.order)
}

// CIKs returns every CIK in first-seen order
func (r *Ranges) CIKs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All iterates ranges in first-seen order
func (r *Ranges) All() iter.Seq[*model.TimeRange] {
	return func(yield func(*model.TimeRange) bool) {
		for _, cik := range r.order {
			if !yield(r.byCIK[cik]) {
				return
			}
		}
	}
}

// Slice returns a copy of all ranges in first-seen order
func (r *Ranges) Slice() []model.TimeRange {
	out := make([]model.TimeRange, 0, len(r.order))
	for tr := range r.All() {
		out = append(out, *tr)
	}
	return out
}

// Consolidator builds Ranges from fraud records
type Consolidator struct {
	opts   Options
	logger *zap.Logger
}

// NewConsolidator creates a consolidator; a nil logger disables progress output
func NewConsolidator(opts Options, logger *zap.Logger) *Consolidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{opts: opts, logger: logger}
}

// Consolidate is shorthand for NewConsolidator(opts, nil).Consolidate(records)
func Consolidate(records []model.FraudRecord, opts Options) *Ranges {
	return NewConsolidator(opts, nil).Consolidate(records)
}

// Consolidate reduces records to one range per qualifying CIK
func (c *Consolidator) Consolidate(records []model.FraudRecord) *Ranges {
	ranges := newRanges()
	for _, rec := range records {
		c.add(ranges, rec)
	}
	return ranges
}

// ConsolidateSeq consumes a lazy record sequence, stopping at the first error
func (c *Consolidator) ConsolidateSeq(records iter.Seq2[model.FraudRecord, error]) (*Ranges, error) {
	ranges := newRanges()
	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		c.add(ranges, rec)
	}
	return ranges, nil
}

func (c *Consolidator) add(ranges *Ranges, rec model.FraudRecord) {
	if !c.qualifies(rec) {
		return
	}

	tr, seen := ranges.byCIK[rec.CIK]
	if !seen {
		tr = &model.TimeRange{
			CIK:         rec.CIK,
			StartYear:   rec.YearStart,
			EndYear:     rec.YearEnd,
			CompanyName: rec.CompanyName,
		}
		if c.opts.TrackRows {
			tr.Rows = []model.RowKey{rec.Key()}
		}
		ranges.byCIK[rec.CIK] = tr
		ranges.order = append(ranges.order, rec.CIK)
		return
	}

	if c.opts.TrackRows {
		tr.Rows = append(tr.Rows, rec.Key())
	}
	tr.StartYear = min(tr.StartYear, rec.YearStart)
	if c.opts.WidenEndYear {
		tr.EndYear = max(tr.EndYear, rec.YearEnd)
	} else {
		tr.EndYear = min(tr.EndYear, rec.YearEnd)
	}
}

func (c *Consolidator) qualifies(rec model.FraudRecord) bool {
	if c.opts.SkipScraped && rec.Scraped {
		return false
	}
	if rec.YearStart > rec.YearEnd || !rec.Contains21C {
		return false
	}
	if rec.YearStart == rec.YearEnd && rec.MonthEnd-rec.MonthStart < minSameYearMonths {
		c.logger.Debug("skipping company, fraudulent activity shorter than 6 months",
			zap.String("cik", rec.CIK),
			zap.String("company", rec.CompanyName),
			zap.Int("year", rec.YearStart))
		return false
	}
	return true
}
