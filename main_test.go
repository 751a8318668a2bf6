package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/lexandro/missile/config"
	"github.com/lexandro/missile/gitrepo"
	"github.com/lexandro/missile/ignore"
	"github.com/lexandro/missile/index"
	"github.com/lexandro/missile/journal"
	"github.com/lexandro/missile/resolver"
	"github.com/lexandro/missile/store"
	"github.com/lexandro/missile/syncer"
	"github.com/lexandro/missile/transport"
)

// createTestProject creates a checkout layout in a temp directory.
func createTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"app/views.py":            "def index(): pass\n",
		"app/templates/base.html": "<html></html>\n",
		"README.md":               "# app\n",
		".git/config":             "[core]\n",
		"node_modules/x/index.js": "module.exports = 1\n",
		"build/out.bin":           "built\n",
		"app/.views.py.swp":       "swap\n",
		".gitignore":              "build/\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relativeAll(t *testing.T, root string, files []string) []string {
	t.Helper()
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return rels
}

func Test_CollectFiles_WalksAndIgnores(t *testing.T) {
	root := createTestProject(t)
	matcher := ignore.NewMatcher(ignore.MatcherOptions{RootDir: root})

	files, err := collectFiles([]string{root}, matcher)
	if err != nil {
		t.Fatalf("collectFiles() error: %v", err)
	}

	got := strings.Join(relativeAll(t, root, files), ",")
	want := ".gitignore,README.md,app/templates/base.html,app/views.py"
	if got != want {
		t.Errorf("collectFiles() = %s, want %s", got, want)
	}
}

func Test_CollectFiles_ExplicitFileKept(t *testing.T) {
	root := createTestProject(t)
	matcher := ignore.NewMatcher(ignore.MatcherOptions{RootDir: root})

	explicit := filepath.Join(root, "build", "out.bin")
	files, err := collectFiles([]string{explicit}, matcher)
	if err != nil {
		t.Fatalf("collectFiles() error: %v", err)
	}
	if len(files) != 1 || files[0] != explicit {
		t.Errorf("explicit file dropped: %v", files)
	}
}

func Test_CollectFiles_SizeLimitAndCustomPatterns(t *testing.T) {
	root := createTestProject(t)
	if err := os.WriteFile(filepath.Join(root, "app", "dump.sql"), bytes.Repeat([]byte("x"), 2048), 0644); err != nil {
		t.Fatal(err)
	}
	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          root,
		CustomPatterns:   []string{"*.html"},
		MaxFileSizeBytes: 1024,
	})

	files, err := collectFiles([]string{filepath.Join(root, "app")}, matcher)
	if err != nil {
		t.Fatalf("collectFiles() error: %v", err)
	}
	if got := strings.Join(relativeAll(t, root, files), ","); got != "app/views.py" {
		t.Errorf("collectFiles() = %s, want app/views.py", got)
	}
}

func Test_CollectFiles_MissingPath(t *testing.T) {
	matcher := ignore.NewMatcher(ignore.MatcherOptions{RootDir: t.TempDir()})
	if _, err := collectFiles([]string{filepath.Join(t.TempDir(), "nope")}, matcher); err == nil {
		t.Error("expected error for missing path")
	}
}

// countingSyncer records every path and fails the ones listed in failures.
type countingSyncer struct {
	mu       sync.Mutex
	paths    []string
	failures map[string]error
}

func (s *countingSyncer) Sync(ctx context.Context, absolutePath string) (syncer.Result, error) {
	s.mu.Lock()
	s.paths = append(s.paths, absolutePath)
	s.mu.Unlock()
	if err := s.failures[absolutePath]; err != nil {
		return syncer.Result{Outcome: journal.OutcomeError}, err
	}
	return syncer.Result{
		Outcome: journal.OutcomeSynced,
		Resolution: resolver.Resolution{
			File:       resolver.ChangedFile{RelativePath: filepath.Base(absolutePath)},
			RemotePath: "/srv/" + filepath.Base(absolutePath),
			Strategy:   resolver.StrategyName,
		},
	}, nil
}

func Test_SyncFiles_KeepsInputOrder(t *testing.T) {
	files := make([]string, 20)
	for i := range files {
		files[i] = fmt.Sprintf("/work/app/f%02d.py", i)
	}
	s := &countingSyncer{failures: map[string]error{"/work/app/f07.py": errors.New("boom")}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reports := syncFiles(context.Background(), s, files, 4, logger)

	if len(s.paths) != len(files) {
		t.Fatalf("expected %d syncs, got %d", len(files), len(s.paths))
	}
	for i, r := range reports {
		if r.path != files[i] {
			t.Fatalf("report %d is for %s, want %s", i, r.path, files[i])
		}
	}
	if reports[7].err == nil {
		t.Error("expected failure to be reported for f07.py")
	}
}

func Test_SyncFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &countingSyncer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reports := syncFiles(ctx, s, []string{"/a", "/b"}, 2, logger)

	if len(s.paths) != 0 {
		t.Errorf("no file should be synced after cancellation, got %v", s.paths)
	}
	for _, r := range reports {
		if !errors.Is(r.err, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", r.path, r.err)
		}
	}
}

func Test_PrintReports(t *testing.T) {
	file := resolver.ChangedFile{RelativePath: "app/views.py"}
	reports := []fileReport{
		{path: "/w/app/views.py", result: syncer.Result{Outcome: journal.OutcomeSynced, Resolution: resolver.Resolution{File: file, RemotePath: "/srv/app/views.py", Strategy: "map"}}},
		{path: "/w/app/views.py", result: syncer.Result{Outcome: journal.OutcomeResolved, Resolution: resolver.Resolution{File: file, RemotePath: "/srv/app/views.py", Strategy: "diff"}}},
		{path: "/w/gone.py", result: syncer.Result{Skipped: true}},
		{path: "/w/app/views.py", result: syncer.Result{Resolution: resolver.Resolution{File: file}}, err: resolver.ErrAmbiguityUnresolved},
		{path: "/w/app/views.py", result: syncer.Result{Resolution: resolver.Resolution{File: file}}, err: fmt.Errorf("manual strategy: %w", resolver.ErrUserCancelled)},
		{path: "/w/app/views.py", err: errors.New("remote unavailable")},
	}

	var out bytes.Buffer
	failed := printReports(&out, reports)

	if failed != 3 {
		t.Errorf("failed = %d, want 3", failed)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	prefixes := []string{"uploaded", "resolved", "skipped", "unresolved", "cancelled", "error"}
	if len(lines) != len(prefixes) {
		t.Fatalf("expected %d lines, got:\n%s", len(prefixes), out.String())
	}
	for i, prefix := range prefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func Test_App_ReindexFailureKeepsListing(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "name_cache.json")
	cache, err := store.OpenNameCache(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	fake := transport.NewFake(map[string]string{"/srv/app/views.py": "", "/srv/app/urls.py": ""})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	remote, err := index.NewRemoteIndex(fake, index.Options{Cache: cache, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	a := &app{
		cfg:    &config.Config{Repositories: []config.RepositoryConfig{{ID: "app", Roots: []string{"/srv/app"}}}},
		repo:   gitrepo.Repository{ID: "app", Root: t.TempDir()},
		logger: logger,
		index:  remote,
	}
	ctx := context.Background()

	files, _, err := a.reindex(ctx)
	if err != nil || files != 2 {
		t.Fatalf("reindex() = %d, %v", files, err)
	}

	fake.ListErrors["/srv/app"] = fmt.Errorf("ssh: %w", transport.ErrRemoteUnavailable)
	if _, _, err := a.reindex(ctx); !errors.Is(err, transport.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}

	if stats := remote.Stats("app"); !stats.Loaded || stats.Files != 2 {
		t.Errorf("failed reindex dropped the loaded entry: %+v", stats)
	}
	reopened, err := store.OpenNameCache(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if listing, ok := reopened.Get("app"); !ok || len(listing.Paths) != 2 {
		t.Errorf("failed reindex dropped the cached listing: %+v", listing)
	}
}

func Test_SetupLogger_WritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "missile.log")
	logger := setupLogger("warn", logFile)

	logger.Info("hidden")
	logger.Warn("shown", "file", "app/views.py")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(text, "msg=shown") || !strings.Contains(text, "file=app/views.py") {
		t.Errorf("unexpected log content: %s", text)
	}
}
