package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// ErrRobotsUnavailable is returned when robots.txt could not be fetched or
// parsed; callers decide whether to proceed
var ErrRobotsUnavailable = errors.New("robots.txt unavailable")

const (
	robotsTTL      = time.Hour
	maxRobotsBytes = 512 << 10
)

// RobotsChecker answers whether a capture session may open a URL and at
// what pace. Parsed files are kept per host for robotsTTL.
type RobotsChecker struct {
	client *http.Client
	agent  string
	hosts  *gocache.Cache
}

// NewRobotsChecker creates a checker that identifies as userAgent and
// fetches through the given proxies, or the environment's when both are
// empty
func NewRobotsChecker(userAgent string, timeout time.Duration, httpProxy, httpsProxy string) *RobotsChecker {
	return &RobotsChecker{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: proxyFor(httpProxy, httpsProxy)},
		},
		agent: userAgent,
		hosts: gocache.New(robotsTTL, 0),
	}
}

// CanFetch reports whether rawURL is allowed for the checker's product
// token, and the crawl delay of the matching group. When robots.txt is
// unavailable it returns true with an error wrapping ErrRobotsUnavailable.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false, 0, fmt.Errorf("robots: invalid URL %q", rawURL)
	}

	data, err := r.rulesFor(ctx, u)
	if err != nil {
		return true, 0, err
	}

	token := productToken(r.agent)
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	var delay time.Duration
	if group := data.FindGroup(token); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, token), delay, nil
}

// rulesFor returns the parsed robots.txt of u's host. Status handling
// follows robotstxt: 4xx allows everything, 5xx disallows everything.
func (r *RobotsChecker) rulesFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	if cached, ok := r.hosts.Get(u.Host); ok {
		return cached.(*robotstxt.RobotsData), nil
	}

	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRobotsUnavailable, err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRobotsUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRobotsUnavailable, robotsURL, err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrRobotsUnavailable, robotsURL, err)
	}

	r.hosts.SetDefault(u.Host, data)
	return data, nil
}

// productToken reduces a User-Agent to the token robots.txt groups match
// against: "qbank/0.1 (+https://...)" becomes "qbank"
func productToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	token, _, _ := strings.Cut(fields[0], "/")
	return token
}

// proxyFor picks the explicit proxy for the request scheme, then the HTTP
// proxy for any scheme, then the environment
func proxyFor(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		switch {
		case req.URL.Scheme == "https" && httpsProxy != "":
			return url.Parse(httpsProxy)
		case httpProxy != "":
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
