package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/qbank/internal/cache"
	"github.com/ppiankov/qbank/internal/extract"
	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/util"
)

// fakeSource serves a fixed sequence of pages. Each page shows a loading
// placeholder for its first `loading` reads.
type fakeSource struct {
	ids     []string
	loading int
	pos     int
	reads   int
	opened  string
	stuck   bool // Next succeeds without advancing
}

func (f *fakeSource) Open(ctx context.Context, url string) error {
	f.opened = url
	return nil
}

func (f *fakeSource) HTML(ctx context.Context) (string, error) {
	f.reads++
	if f.reads <= f.loading {
		return `<div class="loading">Carregando...</div>`, nil
	}
	id := f.ids[f.pos]
	return fmt.Sprintf(`<span class="id-questao">#%s</span><div class="questao-enunciado-texto"><p>Julgue o item a seguir. Frase %s.</p></div>`, id, id), nil
}

func (f *fakeSource) Next(ctx context.Context) error {
	if f.stuck {
		return nil
	}
	if f.pos+1 >= len(f.ids) {
		return ErrNoNext
	}
	f.pos++
	f.reads = 0
	return nil
}

func (f *fakeSource) URL() string { return "https://www.tecconcursos.com.br/questoes/cadernos/1" }

func (f *fakeSource) Close() error { return nil }

func testConfig() model.CaptureConfig {
	cfg := model.DefaultConfig().Capture
	cfg.ReadyInterval = time.Millisecond
	cfg.RespectRobots = false
	return cfg
}

func newStore() *cache.FragmentStore {
	return cache.NewFragmentStore(cache.NewMemoryCache(time.Hour, 0), time.Hour)
}

func newCanonicalizer() *extract.Canonicalizer {
	return extract.NewCanonicalizer(model.DefaultConfig().Canonicalizer)
}

func TestSession_CapturesUntilEnd(t *testing.T) {
	src := &fakeSource{ids: []string{"10", "11", "12"}, loading: 2}
	store := newStore()

	stats, err := NewSession(src, newCanonicalizer(), store, nil, testConfig(), nil).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Captured != 3 || stats.Pages != 3 || stats.Unready != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	for _, id := range src.ids {
		if !store.Has(id) {
			t.Errorf("Expected fragment %s in store", id)
		}
	}
}

func TestSession_SkipsStoredAndStopsAtTargets(t *testing.T) {
	src := &fakeSource{ids: []string{"1", "2", "3", "4", "5"}}
	store := newStore()
	if err := store.Put("2", "<p>old</p>"); err != nil {
		t.Fatal(err)
	}

	stats, err := NewSession(src, newCanonicalizer(), store, nil, testConfig(), nil).Run(context.Background(), []string{"2", "3"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Captured != 2 || stats.Skipped != 1 {
		t.Errorf("Expected 1 and 3 captured and 2 skipped, got %+v", stats)
	}
	if store.Has("4") {
		t.Error("Expected session to stop once targets were captured")
	}
	if got, _ := store.Get("2"); got != "<p>old</p>" {
		t.Errorf("Expected stored fragment to be kept, got %q", got)
	}
}

func TestSession_ReportsMissingTargets(t *testing.T) {
	src := &fakeSource{ids: []string{"1", "2"}}

	stats, err := NewSession(src, newCanonicalizer(), newStore(), nil, testConfig(), nil).Run(context.Background(), []string{"99", "2", "50"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(stats.Missing) != 2 || stats.Missing[0] != "50" || stats.Missing[1] != "99" {
		t.Errorf("Expected missing [50 99], got %v", stats.Missing)
	}
}

func TestSession_StopsWhenPageDoesNotAdvance(t *testing.T) {
	src := &fakeSource{ids: []string{"7", "8"}, stuck: true}

	stats, err := NewSession(src, newCanonicalizer(), newStore(), nil, testConfig(), nil).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Captured != 1 || stats.Pages != 1 {
		t.Errorf("Expected a single captured page, got %+v", stats)
	}
}

func TestSession_MaxPages(t *testing.T) {
	src := &fakeSource{ids: []string{"1", "2", "3"}}
	cfg := testConfig()
	cfg.MaxPages = 2

	stats, err := NewSession(src, newCanonicalizer(), newStore(), nil, cfg, nil).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Pages != 2 {
		t.Errorf("Expected 2 pages, got %d", stats.Pages)
	}
}

func TestSession_UnreadyPage(t *testing.T) {
	src := &fakeSource{ids: []string{"1"}, loading: 100}
	cfg := testConfig()
	cfg.ReadyAttempts = 3

	stats, err := NewSession(src, newCanonicalizer(), newStore(), nil, cfg, nil).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Unready != 1 || stats.Captured != 0 {
		t.Errorf("Expected one unready page, got %+v", stats)
	}
	if src.reads != 3 {
		t.Errorf("Expected 3 readiness polls, got %d", src.reads)
	}
}

func TestSession_RobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /questoes/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.RespectRobots = true
	cfg.StartURL = server.URL + "/questoes/cadernos/1"

	robots := util.NewRobotsChecker(cfg.UserAgent, 5*time.Second, "", "")
	src := &fakeSource{ids: []string{"1"}}

	_, err := NewSession(src, newCanonicalizer(), newStore(), robots, cfg, nil).Run(context.Background(), nil)
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
	if src.opened != "" {
		t.Error("Expected the start URL not to be opened")
	}
}

func TestSession_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSession(&fakeSource{ids: []string{"1"}}, newCanonicalizer(), newStore(), nil, testConfig(), nil).Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
