package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ppiankov/qbank/internal/cache"
	"github.com/ppiankov/qbank/internal/capture"
	"github.com/ppiankov/qbank/internal/extract"
	"github.com/ppiankov/qbank/internal/util"
	"github.com/ppiankov/qbank/internal/worker"
	"github.com/spf13/cobra"
)

var (
	controlURL     string
	startURL       string
	targetsFile    string
	maxPages       int
	headless       bool
	noRobots       bool
	captureTimeout time.Duration
	captureUA      string
	httpProxy      string
	httpsProxy     string
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture rendered question pages from a notebook into the fragment store",
	Long: `Capture drives a browser tab through a question notebook:
- Attaches to a running browser (--control-url) or launches one
- Waits on every page until its question identifier appears
- Stores each new page in the fragment store, skipping ids already stored
- Stops when the notebook ends, --max-pages is reached, or every target id is stored

Re-running the same command resumes an interrupted session.

Example:
  qbank capture --control-url ws://127.0.0.1:9222/devtools/browser/<id>
  qbank capture --start-url https://www.tecconcursos.com.br/questoes/cadernos/86161349 --targets ids.txt`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVar(&controlURL, "control-url", "", "DevTools websocket URL of a running browser")
	captureCmd.Flags().StringVar(&startURL, "start-url", "", "notebook URL to open (default: current tab)")
	captureCmd.Flags().StringVar(&targetsFile, "targets", "", "file listing question ids to capture, one per line")
	captureCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0: no limit)")
	captureCmd.Flags().BoolVar(&headless, "headless", false, "launch the browser headless")
	captureCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip the robots.txt check")
	captureCmd.Flags().DurationVar(&captureTimeout, "timeout", 2*time.Hour, "total timeout for the session")
	captureCmd.Flags().StringVar(&captureUA, "ua", "", "User-Agent for the robots.txt check")
	captureCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	captureCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := &cfg.Capture
	if controlURL != "" {
		c.ControlURL = controlURL
	}
	if startURL != "" {
		c.StartURL = startURL
	}
	if maxPages > 0 {
		c.MaxPages = maxPages
	}
	if headless {
		c.Headless = true
	}
	if noRobots {
		c.RespectRobots = false
	}
	if captureUA != "" {
		c.UserAgent = captureUA
	}
	if httpProxy != "" {
		c.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		c.HTTPSProxy = httpsProxy
	}

	var targets []string
	if targetsFile != "" {
		targets, err = worker.ReadListFile(targetsFile)
		if err != nil {
			return fmt.Errorf("read targets: %w", err)
		}
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	banner("qbank Capture")
	fmt.Fprintf(os.Stderr, "  Browser:      %s\n", orLaunch(c.ControlURL))
	fmt.Fprintf(os.Stderr, "  Start URL:    %s\n", orCurrent(c.StartURL))
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Cache.Dir)
	fmt.Fprintf(os.Stderr, "  Targets:      %d\n", len(targets))
	fmt.Fprintf(os.Stderr, "\n")

	store := cache.NewFragmentStore(
		cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL),
		cfg.Cache.DiskTTL,
	)

	var robots *util.RobotsChecker
	if c.RespectRobots {
		robots = util.NewRobotsChecker(c.UserAgent, c.PageTimeout, c.HTTPProxy, c.HTTPSProxy)
	}

	src, err := capture.NewRodSource(ctx, *c)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	session := capture.NewSession(src, extract.NewCanonicalizer(cfg.Canonicalizer), store, robots, *c, log)

	fmt.Fprintf(os.Stderr, "⚙️  Capturing pages...\n")
	stats, err := session.Run(ctx, targets)
	if err != nil {
		return fmt.Errorf("capture failed after %d pages: %w", stats.Pages, err)
	}

	banner("Capture Complete")
	fmt.Fprintf(os.Stderr, "  Pages:     %d\n", stats.Pages)
	fmt.Fprintf(os.Stderr, "  Captured:  %d\n", stats.Captured)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d (already stored)\n", stats.Skipped)
	fmt.Fprintf(os.Stderr, "  Unready:   %d\n", stats.Unready)
	if len(stats.Missing) > 0 {
		fmt.Fprintf(os.Stderr, "  Missing:   %s\n", strings.Join(stats.Missing, ", "))
	}
	fmt.Fprintf(os.Stderr, "\n")

	if cfg.Output.Verbose {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
	return nil
}

func orLaunch(controlURL string) string {
	if controlURL == "" {
		return "(launch)"
	}
	return controlURL
}

func orCurrent(startURL string) string {
	if startURL == "" {
		return "(current tab)"
	}
	return startURL
}
