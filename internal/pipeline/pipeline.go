package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/qbank/internal/cache"
	"github.com/ppiankov/qbank/internal/extract"
	"github.com/ppiankov/qbank/internal/logging"
	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/reconcile"
	"github.com/ppiankov/qbank/internal/report"
	"github.com/ppiankov/qbank/internal/rules"
	"github.com/ppiankov/qbank/internal/validate"
	"github.com/ppiankov/qbank/internal/worker"
	"golang.org/x/sync/errgroup"
)

// Pipeline orchestrates a run: the PDF path segments exported documents,
// the web path canonicalizes captured fragments, and both are reconciled,
// filtered and summarized.
type Pipeline struct {
	config     *model.Config
	table      *rules.Table
	forced     *rules.RuleSet // Rule set applied to every document, if configured
	segmenter  *extract.Segmenter
	canon      *extract.Canonicalizer
	reconciler *reconcile.Reconciler
	filter     *validate.Filter
	summarizer *report.Summarizer
	batch      *worker.BatchProcessor
	store      *cache.FragmentStore // Optional capture store read by the web path
	stdin      io.Reader
	log        *logging.Logger
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, log *logging.Logger) (*Pipeline, error) {
	table, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	var forced *rules.RuleSet
	if cfg.Rules.Subject != "" {
		forced = table.Lookup(cfg.Rules.Subject)
		if forced == nil {
			return nil, fmt.Errorf("unknown rule set %q (have %v)", cfg.Rules.Subject, table.Keys())
		}
	}

	return &Pipeline{
		config:     cfg,
		table:      table,
		forced:     forced,
		segmenter:  extract.NewSegmenter(cfg.Segmenter, table),
		canon:      extract.NewCanonicalizer(cfg.Canonicalizer),
		reconciler: reconcile.NewReconciler(),
		filter:     validate.NewFilter(validate.NewNormalizer(cfg.AnswerKeys)),
		summarizer: report.NewSummarizer(),
		batch:      worker.NewBatchProcessor(cfg.Concurrency.Workers),
		log:        logging.OrNop(log),
	}, nil
}

// WithStore makes the web path also read the fragments of a capture store
func (p *Pipeline) WithStore(store *cache.FragmentStore) *Pipeline {
	p.store = store
	return p
}

// WithStdin sets the reader used for the "-" document
func (p *Pipeline) WithStdin(r io.Reader) *Pipeline {
	p.stdin = r
	return p
}

// Table returns the loaded rule table
func (p *Pipeline) Table() *rules.Table {
	return p.table
}

// Input names the inputs of a run
type Input struct {
	Documents   []string // Exported notebooks, text or PDF, "-" for stdin
	FragmentDir string   // Directory of captured fragments, optional
}

// ProcessDocument reads and segments one document
func (p *Pipeline) ProcessDocument(ctx context.Context, doc model.Document) ([]model.QuestionRecord, error) {
	lines, err := readDocumentWithRetry(ctx, doc.Path, p.stdin)
	if err != nil {
		return nil, err
	}

	set := p.forced
	if set == nil && doc.Path != StdinPath {
		set = p.table.ForDocument(doc.Path)
	}

	records := p.segmenter.Segment(lines, set)
	for i := range records {
		records[i].SourceDocument = doc.Path
		if records[i].Subject == "" && doc.Subject != "" {
			records[i].Subject = doc.Subject
		}
	}
	return records, nil
}

// ProcessFragment canonicalizes one captured fragment into a web record. A
// fragment without a content container still yields a record tagged
// uncapturable when its identifier can be read.
func (p *Pipeline) ProcessFragment(ctx context.Context, name, fragment string) (model.QuestionRecord, error) {
	c, err := p.canon.Canonicalize(fragment)
	if errors.Is(err, extract.ErrUncapturable) && c != nil && c.ExternalID != "" {
		rec := extract.UncapturableRecord(c, p.config.Segmenter.OriginTemplate)
		rec.SourceDocument = name
		return rec, nil
	}
	if err != nil {
		return model.QuestionRecord{}, fmt.Errorf("fragment %s: %w", name, err)
	}
	if c.ExternalID == "" {
		return model.QuestionRecord{}, fmt.Errorf("fragment %s: %w", name, extract.ErrNoIdentifier)
	}

	set := p.forced
	if set == nil {
		set = p.table.Lookup(c.Subject)
	}

	rec := extract.WebRecord(c, p.segmenter.Splitter(set), p.config.Segmenter.OriginTemplate)
	rec.SourceDocument = name
	return rec, nil
}

// Segment runs the PDF path over documents concurrently. Documents that
// cannot be read are skipped with a warning and counted.
func (p *Pipeline) Segment(ctx context.Context, paths []string) ([]model.QuestionRecord, int) {
	docs := make([]model.Document, len(paths))
	for i, path := range paths {
		docs[i] = model.Document{Index: i, Path: path}
	}

	var (
		records []model.QuestionRecord
		skipped int
	)
	for _, res := range p.batch.ProcessDocuments(ctx, p, docs) {
		if res.Error != nil {
			p.log.Warn("skipping document", "path", res.Doc.Path, "error", res.Error)
			skipped++
			continue
		}
		p.log.Debug("segmented document", "path", res.Doc.Path, "records", len(res.Records))
		records = append(records, res.Records...)
	}
	return records, skipped
}

// Enrich runs the web path over fragments concurrently. Fragments without
// an identifier are skipped with a warning and counted.
func (p *Pipeline) Enrich(ctx context.Context, fragments []worker.FragmentJob) ([]model.QuestionRecord, int) {
	var (
		records []model.QuestionRecord
		skipped int
	)
	for _, res := range p.batch.ProcessFragments(ctx, p, fragments) {
		if res.Error != nil {
			p.log.Warn("skipping fragment", "name", res.Name, "error", res.Error)
			skipped++
			continue
		}
		if res.Record.HasStatus(model.StatusUncapturable) {
			p.log.Warn("uncapturable fragment", "name", res.Name, "id", res.Record.ExternalID)
		}
		records = append(records, res.Record)
	}
	return records, skipped
}

// Run executes both paths concurrently and joins them in the reconciler
func (p *Pipeline) Run(ctx context.Context, in Input) (*model.RunReport, error) {
	var (
		pdfRecords, webRecords []model.QuestionRecord
		pdfSkipped, webSkipped int
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pdfRecords, pdfSkipped = p.Segment(gctx, in.Documents)
		return gctx.Err()
	})

	g.Go(func() error {
		fragments, err := p.collectFragments(in.FragmentDir)
		if err != nil {
			return err
		}
		webRecords, webSkipped = p.Enrich(gctx, fragments)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := p.reconciler.Reconcile(pdfRecords, webRecords)
	for _, orphan := range merged.Orphans {
		p.log.Info("orphan fragment", "id", orphan.ExternalID, "source", orphan.SourceDocument)
	}

	part := p.filter.Apply(merged.Records)

	orphanIDs := make([]string, 0, len(merged.Orphans))
	for _, orphan := range merged.Orphans {
		orphanIDs = append(orphanIDs, orphan.ExternalID)
	}

	return &model.RunReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Documents:   in.Documents,
		FragmentDir: in.FragmentDir,
		Accepted:    part.Accepted,
		Excluded:    part.Excluded,
		Orphans:     orphanIDs,
		Summary: p.summarizer.Summarize(report.Input{
			Accepted:      part.Accepted,
			Excluded:      part.Excluded,
			Orphans:       len(merged.Orphans),
			Pending:       merged.Pending,
			SkippedInputs: pdfSkipped + webSkipped,
		}),
	}, nil
}

func (p *Pipeline) collectFragments(dir string) ([]worker.FragmentJob, error) {
	var fragments []worker.FragmentJob
	if dir != "" {
		jobs, err := LoadFragments(dir, p.config.Cache.DiskTTL)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, jobs...)
	}
	if p.store != nil {
		jobs, err := StoredFragments(p.store)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, jobs...)
	}
	return fragments, nil
}
