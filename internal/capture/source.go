// Package capture walks a question notebook in a real browser and stores
// each rendered question page in the fragment store for the web path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ppiankov/qbank/internal/model"
)

// ErrNoNext is returned by Next when the page has no way to advance
var ErrNoNext = errors.New("no next question control")

// PageSource is a browser tab positioned on a question page
type PageSource interface {
	Open(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Next(ctx context.Context) error
	URL() string
	Close() error
}

// RodSource drives a Chrome tab through rod. It either attaches to a
// running browser (ControlURL) or launches its own.
type RodSource struct {
	browser  *rod.Browser
	page     *rod.Page
	lnch     *launcher.Launcher
	selector string
	timeout  time.Duration
}

// NewRodSource connects to or launches a browser and selects a tab
func NewRodSource(ctx context.Context, cfg model.CaptureConfig) (*RodSource, error) {
	s := &RodSource{
		selector: cfg.NextSelector,
		timeout:  cfg.PageTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}

	wsURL := cfg.ControlURL
	if wsURL == "" {
		l := launcher.New().
			Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	if cfg.StartURL == "" && cfg.ControlURL != "" {
		pages, err := b.Pages()
		if err == nil && len(pages) > 0 {
			s.page = pages.First()
			return s, nil
		}
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	s.page = page
	return s, nil
}

// Open navigates the tab to url and waits for the load event. An empty url
// keeps the current page.
func (s *RodSource) Open(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	page := s.page.Context(ctx).Timeout(s.timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

// HTML returns the rendered document
func (s *RodSource) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).Timeout(s.timeout).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return html, nil
}

// Next clicks the control that advances to the next question
func (s *RodSource) Next(ctx context.Context) error {
	el, err := s.page.Context(ctx).Timeout(s.timeout).Element(s.selector)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoNext, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click next: %w", err)
	}
	return nil
}

// URL returns the current page URL, or an empty string if unknown
func (s *RodSource) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close closes a launched browser. An attached browser is left running.
func (s *RodSource) Close() error {
	var err error
	if s.lnch != nil && s.browser != nil {
		err = s.browser.Close()
	}
	s.cleanup()
	return err
}

func (s *RodSource) cleanup() {
	if s.lnch != nil {
		s.lnch.Cleanup()
	}
}
