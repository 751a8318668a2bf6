package compare

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/lexandro/missile/transport"
)

func Test_Lines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"trailing newline", "a\nb\n", []string{"a\n", "b\n"}},
		{"no trailing newline", "a\nb", []string{"a\n", "b"}},
		{"blank lines kept", "a\n\nb\n", []string{"a\n", "\n", "b\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines([]byte(tt.content))
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Lines(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func Test_Score(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		remote string
		want   int
	}{
		{"identical", "a\nb\nc\n", "a\nb\nc\n", 0},
		{"one line changed", "a\nb\nc\n", "a\nX\nc\n", 2},
		{"one line added", "a\nb\n", "a\nb\nc\n", 1},
		{"one line removed", "a\nb\nc\n", "a\nc\n", 1},
		{"nothing shared", "a\nb\n", "x\ny\nz\n", 5},
		{"both empty", "", "", 0},
		{"remote empty", "a\nb\n", "", 2},
		{"duplicate lines", "x\nx\nx\n", "x\nx\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(Lines([]byte(tt.local)), Lines([]byte(tt.remote)))
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func Test_IsFullRewrite(t *testing.T) {
	tests := []struct {
		score, local, remote int
		want                 bool
	}{
		{5, 2, 3, true},
		{4, 2, 3, false},
		{0, 0, 0, false},
		{2, 2, 0, true},
	}
	for _, tt := range tests {
		if got := IsFullRewrite(tt.score, tt.local, tt.remote); got != tt.want {
			t.Errorf("IsFullRewrite(%d, %d, %d) = %v, want %v", tt.score, tt.local, tt.remote, got, tt.want)
		}
	}
}

const sixLines = "import os\nimport sys\n\ndef main():\n    print('hi')\n    return 0\n"

func sixOtherLines() string {
	return "a = 1\nb = 2\nc = 3\nd = 4\ne = 5\nf = 6\n"
}

func Test_Comparator_RankCandidates(t *testing.T) {
	fake := transport.NewFake(map[string]string{
		"/srv/a/utils.py": sixOtherLines(),
		"/srv/b/utils.py": sixLines,
	})
	c := NewComparator(fake, Options{TempDir: t.TempDir()})

	ranked, err := c.RankCandidates(context.Background(), []byte(sixLines), []string{"/srv/a/utils.py", "/srv/b/utils.py"})
	if err != nil {
		t.Fatalf("RankCandidates() error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(ranked))
	}
	if ranked[0].Path != "/srv/b/utils.py" || ranked[0].Score != 0 {
		t.Errorf("expected identical candidate first, got %+v", ranked[0])
	}
	if ranked[1].Score != 12 || !ranked[1].FullRewrite {
		t.Errorf("expected unrelated candidate scored 12 as full rewrite, got %+v", ranked[1])
	}

	best, ok := Best(ranked)
	if !ok || best.Path != "/srv/b/utils.py" {
		t.Errorf("Best() = %+v, %v", best, ok)
	}
}

func Test_Comparator_TiesKeepInputOrder(t *testing.T) {
	local := "a\nb\nc\n"
	fake := transport.NewFake(map[string]string{
		"/srv/1/x.py": "a\nb\nX\n",
		"/srv/2/x.py": "a\nY\nc\n",
		"/srv/3/x.py": "Z\nb\nc\n",
	})
	c := NewComparator(fake, Options{TempDir: t.TempDir(), Workers: 3})
	inputs := [][]string{
		{"/srv/2/x.py", "/srv/1/x.py", "/srv/3/x.py"},
		{"/srv/3/x.py", "/srv/2/x.py", "/srv/1/x.py"},
	}

	for _, input := range inputs {
		for run := 0; run < 5; run++ {
			ranked, err := c.RankCandidates(context.Background(), []byte(local), input)
			if err != nil {
				t.Fatalf("RankCandidates() error: %v", err)
			}
			for i := range ranked {
				if ranked[i].Path != input[i] {
					t.Fatalf("run %d: expected input order %v, got %+v", run, input, ranked)
				}
			}
		}
	}
}

func Test_Comparator_OnlyCandidateFullRewrite(t *testing.T) {
	fake := transport.NewFake(map[string]string{"/srv/a/utils.py": sixOtherLines()})
	c := NewComparator(fake, Options{TempDir: t.TempDir()})

	ranked, err := c.RankCandidates(context.Background(), []byte(sixLines), []string{"/srv/a/utils.py"})
	if err != nil {
		t.Fatalf("RankCandidates() error: %v", err)
	}
	if _, ok := Best(ranked); ok {
		t.Error("a full rewrite must never be picked, even as the only candidate")
	}
}

func Test_Comparator_BestSkipsShortUnrelatedCandidate(t *testing.T) {
	// The unrelated file is short enough to outrank the edited one.
	local := "l1\nl2\nl3\nl4\n"
	fake := transport.NewFake(map[string]string{
		"/srv/tiny.py":   "zzz\n",
		"/srv/edited.py": "l1\nl2\nl3\nl4\nm1\nm2\nm3\nm4\nm5\nm6\n",
	})
	c := NewComparator(fake, Options{TempDir: t.TempDir()})

	ranked, err := c.RankCandidates(context.Background(), []byte(local), []string{"/srv/tiny.py", "/srv/edited.py"})
	if err != nil {
		t.Fatalf("RankCandidates() error: %v", err)
	}
	if ranked[0].Path != "/srv/tiny.py" || !ranked[0].FullRewrite {
		t.Fatalf("expected the unrelated file to rank first as a full rewrite, got %+v", ranked)
	}
	best, ok := Best(ranked)
	if !ok || best.Path != "/srv/edited.py" {
		t.Errorf("Best() = %+v, %v", best, ok)
	}
}

func Test_Comparator_BinaryContent(t *testing.T) {
	blob := "\x00\x01\x02binary\n"
	fake := transport.NewFake(map[string]string{
		"/srv/same.bin":  blob,
		"/srv/other.bin": "\x00\x09other\n",
	})
	c := NewComparator(fake, Options{TempDir: t.TempDir()})

	ranked, err := c.RankCandidates(context.Background(), []byte(blob), []string{"/srv/other.bin", "/srv/same.bin"})
	if err != nil {
		t.Fatalf("RankCandidates() error: %v", err)
	}
	if ranked[0].Path != "/srv/same.bin" || ranked[0].Score != 0 {
		t.Errorf("expected identical binary first, got %+v", ranked[0])
	}
	if !ranked[1].FullRewrite {
		t.Errorf("differing binary must be a full rewrite, got %+v", ranked[1])
	}
}

func Test_Comparator_DownloadFailureAborts(t *testing.T) {
	fake := transport.NewFake(map[string]string{"/srv/a.py": "a\n", "/srv/b.py": "b\n"})
	fake.DownloadErrors["/srv/b.py"] = &transport.RemoteCommandError{Command: "get", ExitStatus: 1}
	tempDir := t.TempDir()
	c := NewComparator(fake, Options{TempDir: tempDir})

	_, err := c.RankCandidates(context.Background(), []byte("a\n"), []string{"/srv/a.py", "/srv/b.py"})
	if !errors.Is(err, transport.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("expected temp files to be released, found %d", len(entries))
	}
}

func Test_Comparator_ReleasesTempFiles(t *testing.T) {
	fake := transport.NewFake(map[string]string{"/srv/a.py": "a\n", "/srv/b.py": "b\n"})
	tempDir := t.TempDir()
	c := NewComparator(fake, Options{TempDir: tempDir})

	if _, err := c.RankCandidates(context.Background(), []byte("a\n"), []string{"/srv/a.py", "/srv/b.py"}); err != nil {
		t.Fatalf("RankCandidates() error: %v", err)
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("expected temp files to be released, found %d", len(entries))
	}
}
