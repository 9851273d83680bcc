package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ppiankov/qbank/internal/cache"
	"github.com/ppiankov/qbank/internal/extract"
	"github.com/ppiankov/qbank/internal/logging"
	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/util"
	"github.com/ppiankov/qbank/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids the start URL
var ErrDisallowed = errors.New("start URL disallowed by robots.txt")

// Stats summarizes one capture session
type Stats struct {
	Pages    int      `json:"pages"`             // Pages visited
	Captured int      `json:"captured"`          // Fragments written to the store
	Skipped  int      `json:"skipped"`           // Pages already present in the store
	Unready  int      `json:"unready"`           // Pages seen without an identifier
	Missing  []string `json:"missing,omitempty"` // Target ids never reached
}

// Session walks a notebook page by page. Each page is polled until its
// question identifier appears and differs from the previous page's, which
// is how asynchronously rendered content is known to be stable.
type Session struct {
	src     PageSource
	canon   *extract.Canonicalizer
	store   *cache.FragmentStore
	limiter *worker.Limiter
	robots  *util.RobotsChecker
	log     *logging.Logger
	cfg     model.CaptureConfig
}

// NewSession creates a capture session. robots may be nil to skip the
// robots.txt pre-flight.
func NewSession(src PageSource, canon *extract.Canonicalizer, store *cache.FragmentStore, robots *util.RobotsChecker, cfg model.CaptureConfig, log *logging.Logger) *Session {
	if cfg.ReadyAttempts <= 0 {
		cfg.ReadyAttempts = 5
	}
	return &Session{
		src:     src,
		canon:   canon,
		store:   store,
		limiter: worker.NewLimiter(cfg.ReadyInterval, 1),
		robots:  robots,
		log:     logging.OrNop(log),
		cfg:     cfg,
	}
}

// Run captures pages until the notebook ends, MaxPages is reached, or every
// target id is in the store. Already-stored ids are skipped so an
// interrupted session can resume.
func (s *Session) Run(ctx context.Context, targets []string) (Stats, error) {
	var stats Stats

	if err := s.preflight(ctx); err != nil {
		return stats, err
	}
	if err := s.src.Open(ctx, s.cfg.StartURL); err != nil {
		return stats, err
	}

	pending := make(map[string]bool, len(targets))
	for _, id := range targets {
		if !s.store.Has(id) {
			pending[id] = true
		}
	}
	if len(targets) > 0 && len(pending) == 0 {
		return stats, nil
	}

	lastID := ""
	for s.cfg.MaxPages <= 0 || stats.Pages < s.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		id, html, err := s.waitReady(ctx, lastID)
		if err != nil {
			return stats, err
		}
		stats.Pages++

		switch {
		case id == "":
			stats.Unready++
			s.log.Warn("page never showed an identifier", "page", stats.Pages)
		case id == lastID:
			s.log.Info("page did not advance, stopping", "id", id)
			stats.Pages--
			return s.finish(stats, pending), nil
		case s.store.Has(id):
			stats.Skipped++
		default:
			if err := s.store.Put(id, html); err != nil {
				return stats, fmt.Errorf("store fragment %s: %w", id, err)
			}
			stats.Captured++
			s.log.Debug("captured", "id", id)
		}

		if id != "" {
			delete(pending, id)
			lastID = id
		}
		if len(targets) > 0 && len(pending) == 0 {
			break
		}

		if err := s.src.Next(ctx); err != nil {
			s.log.Info("no next page, stopping", "error", err)
			break
		}
	}

	return s.finish(stats, pending), nil
}

func (s *Session) finish(stats Stats, pending map[string]bool) Stats {
	for id := range pending {
		stats.Missing = append(stats.Missing, id)
	}
	cache.SortIDs(stats.Missing)
	return stats
}

// preflight checks robots.txt for the start URL and adopts its crawl delay
func (s *Session) preflight(ctx context.Context) error {
	if s.robots == nil || !s.cfg.RespectRobots || s.cfg.StartURL == "" {
		return nil
	}

	allowed, delay, err := s.robots.CanFetch(ctx, s.cfg.StartURL)
	if err != nil {
		s.log.Warn("robots.txt check failed, continuing", "url", s.cfg.StartURL, "error", err)
		return nil
	}
	if !allowed {
		return fmt.Errorf("%s: %w", s.cfg.StartURL, ErrDisallowed)
	}
	if delay > 0 {
		if u, err := url.Parse(s.cfg.StartURL); err == nil {
			s.limiter.SetHostInterval(u.Host, delay)
		}
	}
	return nil
}

// waitReady polls the page until it shows an identifier different from
// lastID, up to ReadyAttempts polls. It returns the last identifier and
// document seen, which may be empty or equal to lastID when the page never
// stabilized.
func (s *Session) waitReady(ctx context.Context, lastID string) (string, string, error) {
	var id, html string
	for attempt := 0; attempt < s.cfg.ReadyAttempts; attempt++ {
		if err := s.limiter.Wait(ctx, s.src.URL()); err != nil {
			return "", "", err
		}

		doc, err := s.src.HTML(ctx)
		if err != nil {
			s.log.Debug("read page failed", "attempt", attempt+1, "error", err)
			continue
		}
		html = doc

		found, _, _, err := s.canon.Identify(doc)
		if err != nil {
			id = ""
			continue
		}
		id = found
		if id != lastID {
			return id, html, nil
		}
	}
	return id, html, nil
}
