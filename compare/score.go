package compare

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Lines splits content into lines, each keeping its trailing newline.
// A final line without a newline is kept as is.
func Lines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Score returns the number of lines that must be inserted or deleted to turn
// local into remote. Zero means identical content.
func Score(local []string, remote []string) int {
	localRunes, remoteRunes := internLines(local, remote)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(localRunes, remoteRunes, false)

	score := 0
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			score += utf8.RuneCountInString(d.Text)
		}
	}
	return score
}

// IsFullRewrite reports whether score means the two files share no line.
func IsFullRewrite(score int, localLines int, remoteLines int) bool {
	total := localLines + remoteLines
	return total > 0 && score == total
}

// internLines maps every distinct line to one rune so the diff runs line by line.
func internLines(a []string, b []string) ([]rune, []rune) {
	table := make(map[string]rune)
	encode := func(lines []string) []rune {
		out := make([]rune, len(lines))
		for i, line := range lines {
			r, ok := table[line]
			if !ok {
				r = lineRune(len(table))
				table[line] = r
			}
			out[i] = r
		}
		return out
	}
	return encode(a), encode(b)
}

// lineRune returns a valid rune for the n-th distinct line, skipping surrogates.
func lineRune(n int) rune {
	r := rune(n + 1)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}
