package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexandro/missile/compare"
	"github.com/lexandro/missile/index"
	"github.com/lexandro/missile/selector"
	"github.com/lexandro/missile/store"
	"github.com/lexandro/missile/transport"
)

const sixLines = "import os\nimport sys\n\ndef main():\n    print('hi')\n    return 0\n"

const sixOtherLines = "a = 1\nb = 2\nc = 3\nd = 4\ne = 5\nf = 6\n"

// stubSelector answers every prompt with a fixed choice or error.
type stubSelector struct {
	choice     string
	err        error
	calls      int
	candidates []string
}

func (s *stubSelector) Select(ctx context.Context, filename string, candidates []string) (string, error) {
	s.calls++
	s.candidates = candidates
	return s.choice, s.err
}

type testEnv struct {
	fake     *transport.Fake
	mappings *store.MapStore
	index    *index.RemoteIndex
	selector *stubSelector
	chain    *Chain
	root     string
}

func newTestEnv(t *testing.T, remote map[string]string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	mappings := store.NewMapStore(filepath.Join(dir, "config", "file_map.json"))
	if err := mappings.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if err := mappings.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	fake := transport.NewFake(remote)
	remoteIndex, err := index.NewRemoteIndex(fake, index.Options{})
	if err != nil {
		t.Fatalf("NewRemoteIndex() error: %v", err)
	}
	t.Cleanup(func() { remoteIndex.Close() })

	sel := &stubSelector{}
	comparator := compare.NewComparator(fake, compare.Options{TempDir: t.TempDir()})
	roots := func(repo string) []string { return []string{"/srv/" + repo} }
	chain := NewChain(roots, nil,
		NewMapStrategy(mappings),
		NewNameStrategy(remoteIndex),
		NewDiffStrategy(remoteIndex, comparator, nil),
		NewManualStrategy(remoteIndex, sel, mappings, nil),
	)

	root := filepath.Join(dir, "app")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		fake:     fake,
		mappings: mappings,
		index:    remoteIndex,
		selector: sel,
		chain:    chain,
		root:     root,
	}
}

// writeLocal creates a file in the local checkout and returns its descriptor.
func (e *testEnv) writeLocal(t *testing.T, rel string, content string) ChangedFile {
	t.Helper()
	abs := filepath.Join(e.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	file, err := NewChangedFile("app", e.root, abs)
	if err != nil {
		t.Fatalf("NewChangedFile() error: %v", err)
	}
	return file
}

func Test_Chain_MapPrecedence(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/server.py": sixLines})
	file := env.writeLocal(t, "server.py", sixLines)
	if err := env.mappings.Set("app", "server.py", "/srv/custom/server.py"); err != nil {
		t.Fatal(err)
	}

	res, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.RemotePath != "/srv/custom/server.py" || res.Strategy != StrategyMap {
		t.Errorf("Resolve() = %+v", res)
	}
	if lists, downloads := env.fake.Calls(); lists != 0 || downloads != 0 {
		t.Errorf("map hit must not touch the transport, got %d lists %d downloads", lists, downloads)
	}
}

func Test_Chain_UniqueNameShortcut(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"/srv/app/server.py": sixLines,
		"/srv/app/utils.py":  sixLines,
	})
	file := env.writeLocal(t, "server.py", "totally different\n")

	res, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.RemotePath != "/srv/app/server.py" || res.Strategy != StrategyName {
		t.Errorf("Resolve() = %+v", res)
	}
	if _, downloads := env.fake.Calls(); downloads != 0 {
		t.Errorf("unique candidate must not be diffed, got %d downloads", downloads)
	}
	if res.ID == "" {
		t.Error("expected a resolution id")
	}
}

func Test_Chain_DiffPicksIdenticalCandidate(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"/srv/app/lib/utils.py":   sixOtherLines,
		"/srv/app/tools/utils.py": sixLines,
	})
	file := env.writeLocal(t, "tools/utils.py", sixLines)

	res, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.RemotePath != "/srv/app/tools/utils.py" || res.Strategy != StrategyDiff {
		t.Errorf("Resolve() = %+v", res)
	}
	if env.selector.calls != 0 {
		t.Error("selector must not be asked when diff finds a match")
	}
	if _, ok := env.mappings.Get("app", "tools/utils.py"); ok {
		t.Error("automatic strategies must not record mappings")
	}
}

func Test_Chain_DiffRefreshesStaleIndex(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/server.py": sixLines})
	first := env.writeLocal(t, "server.py", sixLines)
	if _, err := env.chain.Resolve(context.Background(), first); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	env.fake.Files["/srv/app/jobs/worker.py"] = sixLines
	file := env.writeLocal(t, "jobs/worker.py", sixLines)

	res, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.RemotePath != "/srv/app/jobs/worker.py" || res.Strategy != StrategyDiff {
		t.Errorf("Resolve() = %+v", res)
	}
	if lists, _ := env.fake.Calls(); lists != 2 {
		t.Errorf("expected one forced refresh, got %d listings", lists)
	}
}

func Test_Chain_FirstListingIsNotRepeated(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/server.py": sixLines})
	env.selector.err = selector.ErrNoSelection
	file := env.writeLocal(t, "jobs/worker.py", sixLines)

	_, err := env.chain.Resolve(context.Background(), file)
	if !errors.Is(err, ErrAmbiguityUnresolved) {
		t.Fatalf("expected ErrAmbiguityUnresolved, got %v", err)
	}
	if lists, _ := env.fake.Calls(); lists != 1 {
		t.Errorf("index built by this resolution must not be listed again, got %d listings", lists)
	}
}

func Test_Chain_FullRewriteEscalatesToManual(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"/srv/app/utils.py":       sixOtherLines,
		"/srv/app/other/utils.py": "x\ny\n",
		"/srv/app/renamed.py":     sixLines,
	})
	file := env.writeLocal(t, "utils.py", sixLines)
	env.selector.choice = "/srv/app/renamed.py"

	res, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.RemotePath != "/srv/app/renamed.py" || res.Strategy != StrategyManual {
		t.Errorf("Resolve() = %+v", res)
	}
	if len(env.selector.candidates) != 3 {
		t.Errorf("manual prompt must offer the full listing, got %v", env.selector.candidates)
	}
	if got, _ := env.mappings.Get("app", "utils.py"); got != "/srv/app/renamed.py" {
		t.Errorf("expected manual choice to be recorded, got %q", got)
	}
}

func Test_Chain_LearningRoundTrip(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/deploy/settings.py": sixOtherLines})
	file := env.writeLocal(t, "config/settings_local.py", sixLines)
	env.selector.choice = "/srv/app/deploy/settings.py"

	first, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first.Strategy != StrategyManual {
		t.Fatalf("expected manual resolution, got %+v", first)
	}

	lists, downloads := env.fake.Calls()
	second, err := env.chain.Resolve(context.Background(), file)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if second.RemotePath != first.RemotePath || second.Strategy != StrategyMap {
		t.Errorf("second Resolve() = %+v", second)
	}
	if l, d := env.fake.Calls(); l != lists || d != downloads {
		t.Error("learned mapping must resolve without transport calls")
	}

	reopened := store.NewMapStore(env.mappings.Path())
	if err := reopened.Load(); err != nil {
		t.Fatal(err)
	}
	if got, _ := reopened.Get("app", "config/settings_local.py"); got != first.RemotePath {
		t.Errorf("mapping was not persisted, got %q", got)
	}
}

func Test_Chain_UserCancelLeavesStoreUnchanged(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/a.py": sixOtherLines})
	file := env.writeLocal(t, "b.py", sixLines)
	env.selector.err = selector.ErrCancelled

	before, _ := os.ReadFile(env.mappings.Path())
	res, err := env.chain.Resolve(context.Background(), file)
	if !errors.Is(err, ErrUserCancelled) || !IsUnresolved(err) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
	if res.RemotePath != "" {
		t.Errorf("expected no remote path, got %q", res.RemotePath)
	}
	after, _ := os.ReadFile(env.mappings.Path())
	if string(before) != string(after) || env.mappings.Count("app") != 0 {
		t.Error("cancelled prompt must leave the store unchanged")
	}
}

func Test_Chain_UnparseableSelectionIsUnresolved(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/a.py": sixOtherLines})
	file := env.writeLocal(t, "b.py", sixLines)
	env.selector.err = selector.ErrNoSelection

	_, err := env.chain.Resolve(context.Background(), file)
	if !errors.Is(err, ErrAmbiguityUnresolved) {
		t.Errorf("expected ErrAmbiguityUnresolved, got %v", err)
	}
}

func Test_Chain_WithoutManualIsAmbiguous(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/utils.py": sixOtherLines})
	file := env.writeLocal(t, "utils.py", sixLines)
	comparator := compare.NewComparator(env.fake, compare.Options{TempDir: t.TempDir()})
	chain := NewChain(func(string) []string { return []string{"/srv/app"} }, nil,
		NewMapStrategy(env.mappings),
		NewNameStrategy(env.index),
		NewDiffStrategy(env.index, comparator, nil),
	)

	// The only candidate shares no line with the local file, so the name
	// strategy returns it; diff would have refused it.
	res, err := chain.Resolve(context.Background(), file)
	if err != nil || res.Strategy != StrategyName {
		t.Fatalf("Resolve() = %+v, %v", res, err)
	}

	file = env.writeLocal(t, "missing.py", sixLines)
	_, err = chain.Resolve(context.Background(), file)
	if !errors.Is(err, ErrAmbiguityUnresolved) {
		t.Errorf("expected ErrAmbiguityUnresolved, got %v", err)
	}
}

func Test_Chain_ListingFailurePropagates(t *testing.T) {
	env := newTestEnv(t, map[string]string{"/srv/app/server.py": sixLines})
	env.fake.ListErrors["/srv/app"] = &transport.RemoteCommandError{Command: "find /srv/app -type f", ExitStatus: 1}
	file := env.writeLocal(t, "server.py", sixLines)

	_, err := env.chain.Resolve(context.Background(), file)
	if !errors.Is(err, transport.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if IsUnresolved(err) {
		t.Error("a transport failure is not an unresolved outcome")
	}
	if env.selector.calls != 0 {
		t.Error("selector must not run after a transport failure")
	}
}

func Test_NewChangedFile(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "pkg", "server.py")

	file, err := NewChangedFile("app", root, abs)
	if err != nil {
		t.Fatalf("NewChangedFile() error: %v", err)
	}
	if file.RelativePath != "pkg/server.py" || file.Name() != "server.py" {
		t.Errorf("unexpected file %+v", file)
	}

	for _, outside := range []string{filepath.Dir(root), root, filepath.Join(filepath.Dir(root), "elsewhere.py")} {
		if _, err := NewChangedFile("app", root, outside); err == nil {
			t.Errorf("expected %s to be rejected", outside)
		}
	}
}

func Test_ChangedFile_ContentRereads(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "a.py")
	os.WriteFile(abs, []byte("one\n"), 0o644)
	file, _ := NewChangedFile("app", root, abs)

	lines, _ := file.Lines()
	os.WriteFile(abs, []byte("one\ntwo\n"), 0o644)
	again, err := file.Lines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || len(again) != 2 || !strings.HasPrefix(again[1], "two") {
		t.Errorf("expected fresh content, got %q then %q", lines, again)
	}
}
