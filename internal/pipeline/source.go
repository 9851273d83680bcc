package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/qbank/internal/cache"
	"github.com/ppiankov/qbank/internal/pdftext"
	"github.com/ppiankov/qbank/internal/worker"
)

// StdinPath names standard input as a document
const StdinPath = "-"

const readAttempts = 3

// readSleepFunc is the sleep used between read attempts, replaced in tests
var readSleepFunc = time.Sleep

// readPDFFunc extracts the lines of a PDF, replaced in tests
var readPDFFunc = pdftext.ExtractLines

// ReadDocument returns the raw lines of a document: PDF text for .pdf
// files, standard input for "-", plain text otherwise
func ReadDocument(path string, stdin io.Reader) ([]string, error) {
	switch {
	case path == StdinPath:
		if stdin == nil {
			stdin = os.Stdin
		}
		return readLines(stdin)
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		return readPDFFunc(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return readLines(f)
}

// readDocumentWithRetry retries transient read failures with exponential
// backoff. Missing files and permission errors fail at once.
func readDocumentWithRetry(ctx context.Context, path string, stdin io.Reader) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if attempt > 0 {
			readSleepFunc(time.Duration(100<<uint(attempt-1)) * time.Millisecond)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines, err := ReadDocument(path, stdin)
		if err == nil {
			return lines, nil
		}
		lastErr = err

		if path == StdinPath || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			break
		}
	}
	return nil, fmt.Errorf("read %s: %w", path, lastErr)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return lines, nil
}

// LoadFragments collects the captured fragments of a directory: every
// *.html file, plus the *.cache entries a capture session wrote there.
// Fragments are ordered by name.
func LoadFragments(dir string, ttl time.Duration) ([]worker.FragmentJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fragment dir: %w", err)
	}

	var jobs []worker.FragmentJob
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read fragment %s: %w", e.Name(), err)
		}
		jobs = append(jobs, worker.FragmentJob{Name: e.Name(), Fragment: string(data)})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	stored, err := StoredFragments(cache.NewFragmentStore(cache.NewDiskCache(dir, ttl), ttl))
	if err != nil {
		return nil, err
	}
	return append(jobs, stored...), nil
}

// StoredFragments lists the fragments of a store in identifier order
func StoredFragments(store *cache.FragmentStore) ([]worker.FragmentJob, error) {
	ids, err := store.IDs()
	if err != nil {
		return nil, err
	}

	jobs := make([]worker.FragmentJob, 0, len(ids))
	for _, id := range ids {
		html, ok := store.Get(id)
		if !ok {
			continue
		}
		jobs = append(jobs, worker.FragmentJob{Name: cache.FragmentKey(id), Fragment: html})
	}
	return jobs, nil
}
