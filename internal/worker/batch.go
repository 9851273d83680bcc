package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/qbank/internal/model"
)

// DocumentProcessor segments one exported document into records
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc model.Document) ([]model.QuestionRecord, error)
}

// FragmentProcessor turns one captured fragment into a web record
type FragmentProcessor interface {
	ProcessFragment(ctx context.Context, name, fragment string) (model.QuestionRecord, error)
}

// DocumentJob represents the segmentation of one document
type DocumentJob struct {
	Doc       model.Document
	Processor DocumentProcessor
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	records, err := j.Processor.ProcessDocument(ctx, j.Doc)
	return &DocumentResult{Doc: j.Doc, Records: records, Error: err}
}

// DocumentResult is the outcome of a document job
type DocumentResult struct {
	Doc     model.Document
	Records []model.QuestionRecord
	Error   error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// FragmentJob represents the canonicalization of one captured fragment
type FragmentJob struct {
	Index     int
	Name      string
	Fragment  string
	Processor FragmentProcessor
}

// Execute executes the fragment job
func (j *FragmentJob) Execute(ctx context.Context) Result {
	rec, err := j.Processor.ProcessFragment(ctx, j.Name, j.Fragment)
	return &FragmentResult{Index: j.Index, Name: j.Name, Record: rec, Error: err}
}

// FragmentResult is the outcome of a fragment job
type FragmentResult struct {
	Index  int
	Name   string
	Record model.QuestionRecord
	Error  error
}

// GetError returns the error from the fragment result
func (r *FragmentResult) GetError() error {
	return r.Error
}

// BatchProcessor fans documents and fragments out over a worker pool
type BatchProcessor struct {
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(concurrency int) *BatchProcessor {
	return &BatchProcessor{concurrency: concurrency}
}

// ProcessDocuments segments documents concurrently. Results come back in
// document order regardless of completion order.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, p DocumentProcessor, docs []model.Document) []*DocumentResult {
	if len(docs) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()
	for _, doc := range docs {
		pool.Submit(&DocumentJob{Doc: doc, Processor: p})
	}

	results := pool.Wait()
	out := make([]*DocumentResult, 0, len(results))
	for _, result := range results {
		out = append(out, result.(*DocumentResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Doc.Index < out[j].Doc.Index })
	return out
}

// ProcessFragments canonicalizes fragments concurrently, in input order
func (b *BatchProcessor) ProcessFragments(ctx context.Context, p FragmentProcessor, jobs []FragmentJob) []*FragmentResult {
	if len(jobs) == 0 {
		return []*FragmentResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()
	for i := range jobs {
		job := jobs[i]
		job.Index = i
		job.Processor = p
		pool.Submit(&job)
	}

	results := pool.Wait()
	out := make([]*FragmentResult, 0, len(results))
	for _, result := range results {
		out = append(out, result.(*FragmentResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ReadListFile reads entries from a file (one per line), skipping blanks,
// comments and duplicates
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return entries, nil
}
