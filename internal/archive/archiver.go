// Package archive extracts report sections from filing documents and writes
// them to the object store.
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/model"
	"github.com/ppiankov/fraudscrape/internal/worker"
)

// Extractor returns the text of one item of a filing document
type Extractor interface {
	Section(ctx context.Context, documentURL, item string) (string, error)
}

// Putter stores an object under a key
type Putter interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Options configures an Archiver
type Options struct {
	Encoding string
	Sections []string // Defaults to model.DefaultSections
	Workers  int      // Concurrent section extractions per filing
	RunID    string   // Generated when empty

	// StripHTML renders sections returned with markup as plain text
	StripHTML bool
}

// Archiver extracts and stores filings
type Archiver struct {
	extractor Extractor
	store     Putter
	encoder   Encoder
	sections  []string
	workers   int
	stripHTML bool
	runID     string
	now       func() time.Time
	logger    *zap.Logger
}

// NewArchiver creates an archiver
func NewArchiver(extractor Extractor, store Putter, opts Options, logger *zap.Logger) (*Archiver, error) {
	encoder, err := NewEncoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if len(opts.Sections) == 0 {
		opts.Sections = model.DefaultSections()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Archiver{
		extractor: extractor,
		store:     store,
		encoder:   encoder,
		sections:  opts.Sections,
		workers:   max(opts.Workers, 1),
		stripHTML: opts.StripHTML,
		runID:     opts.RunID,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// RunID identifies every filing written by this archiver
func (a *Archiver) RunID() string {
	return a.runID
}

// Archive extracts the configured sections of one document and stores the
// result. It returns the object key written.
func (a *Archiver) Archive(ctx context.Context, ref model.FilingReference, label model.Label) (string, error) {
	sections, err := a.extract(ctx, ref.DocumentURL)
	if err != nil {
		return "", err
	}

	filing := &model.ExtractedFiling{
		URL:        ref.DocumentURL,
		CIK:        ref.CIK,
		Year:       ref.Year,
		Label:      label,
		PairedWith: ref.PairedWith,
		Sections:   sections,
		RunID:      a.runID,
		ArchivedAt: a.now().UTC(),
	}

	body, err := a.encoder.Encode(filing)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", ref.DocumentURL, err)
	}

	key := model.ObjectKey(label, ref.CIK, ref.Year, a.encoder.Ext())
	if err := a.store.Put(ctx, key, body); err != nil {
		return "", err
	}

	a.logger.Info("archived filing",
		zap.String("key", key),
		zap.String("url", ref.DocumentURL),
		zap.Int("bytes", len(body)))
	return key, nil
}

// ArchiveAll archives refs in order and stops at the first failure. It
// returns the number of filings written.
func (a *Archiver) ArchiveAll(ctx context.Context, refs []model.FilingReference, label model.Label) (int, error) {
	for i, ref := range refs {
		if _, err := a.Archive(ctx, ref, label); err != nil {
			return i, err
		}
	}
	return len(refs), nil
}

func (a *Archiver) extract(ctx context.Context, documentURL string) (map[string]string, error) {
	var mu sync.Mutex
	sections := make(map[string]string, len(a.sections))

	tasks := make([]worker.Task, 0, len(a.sections))
	for _, item := range a.sections {
		tasks = append(tasks, func(ctx context.Context) error {
			text, err := a.extractor.Section(ctx, documentURL, item)
			if err != nil {
				return fmt.Errorf("extract item %s: %w", item, err)
			}
			if a.stripHTML {
				text = PlainText(text)
			}
			mu.Lock()
			sections[item] = text
			mu.Unlock()
			return nil
		})
	}

	if err := worker.Run(ctx, a.workers, tasks...); err != nil {
		return nil, err
	}
	return sections, nil
}
