package ignore

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides whether a local path is left out of syncing.
// It combines default patterns, .gitignore, .missileignore and configured patterns.
// Thread-safe: Reload() acquires a write lock, ShouldIgnore()/ShouldIgnoreDir() acquire a read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	ruleFiles        []gitignore.GitIgnore
	customPatterns   []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir        string
	CustomPatterns []string
	// MaxFileSizeBytes of zero disables the size limit.
	MaxFileSizeBytes int64
}

// NewMatcher creates a matcher for the repository rooted at options.RootDir.
func NewMatcher(options MatcherOptions) *Matcher {
	return &Matcher{
		rootDir:          options.RootDir,
		ruleFiles:        loadRuleFiles(options.RootDir),
		customPatterns:   options.CustomPatterns,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
}

// ShouldIgnore returns true if the given path must not be synced.
// The path should be an absolute path inside the root directory.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)

	if matchesDefaultPatterns(relativePath) {
		return true
	}

	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}

	// Relative() does not require the file to exist, which matters for removed files
	for _, rules := range m.ruleFiles {
		if match := rules.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return m.matchesCustomPatterns(relativePath)
}

// ShouldIgnoreDir returns true if a directory should not be watched at all.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	switch filepath.Base(absolutePath) {
	case ".git", ".svn", ".hg", "node_modules", "__pycache__",
		".idea", ".vscode", ".venv", "venv", ".pytest_cache", ".mypy_cache", ".cache":
		return true
	}
	return m.ShouldIgnore(absolutePath)
}

// IsFileTooLarge returns true if the file exceeds the size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return m.maxFileSizeBytes > 0 && fileSize > m.maxFileSizeBytes
}

// IsRuleFile reports whether path is one of the ignore files the matcher reads.
func (m *Matcher) IsRuleFile(absolutePath string) bool {
	if filepath.Dir(absolutePath) != filepath.Clean(m.rootDir) {
		return false
	}
	return slices.Contains(IgnoreFileNames, filepath.Base(absolutePath))
}

// Reload re-reads the ignore files from disk.
func (m *Matcher) Reload() {
	ruleFiles := loadRuleFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ruleFiles = ruleFiles
}

// matchesDefaultPatterns checks every path component against the defaults.
func matchesDefaultPatterns(relativePath string) bool {
	parts := strings.Split(strings.ToLower(relativePath), "/")
	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		literal := !strings.ContainsAny(pattern, "*?[")
		for _, part := range parts {
			if literal {
				if part == pattern {
					return true
				}
				continue
			}
			if matched, err := filepath.Match(pattern, part); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// matchesCustomPatterns checks configured patterns against the relative path and the basename.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if matched, err := filepath.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

func loadRuleFiles(rootDir string) []gitignore.GitIgnore {
	var rules []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			rules = append(rules, gi)
		}
	}
	return rules
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
