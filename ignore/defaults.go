package ignore

// DefaultIgnorePatterns are local paths that are never pushed to the remote host.
var DefaultIgnorePatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Local dependency trees
	"node_modules",
	".venv",
	"venv",

	// Editor swap, backup and lock files
	".idea",
	".vscode",
	"*.swp",
	"*.swo",
	"*.swx",
	"*~",
	".#*",
	"#*#",
	"4913",

	// OS files
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",

	// Interpreter caches
	"__pycache__",
	"*.pyc",
	"*.pyo",
	".pytest_cache",
	".mypy_cache",
	".cache",

	// Temp files written by tools doing atomic saves
	"*.tmp",
	"*.part",
	"*.crdownload",

	// Local sync rules
	".missileignore",
}

// IgnoreFileNames are the per-repository rule files read by the matcher.
var IgnoreFileNames = []string{".gitignore", ".missileignore"}
