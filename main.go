package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexandro/missile/config"
)

var (
	configDir string
	workDir   string
)

var rootCmd = &cobra.Command{
	Use:   "missile",
	Short: "Sync locally edited files to the matching path on a remote host",
	Long: `missile watches a git checkout and uploads every saved file to the remote path
it belongs to. The remote path is found by, in order:

  1. a mapping recorded earlier (missile map, or a previous manual choice)
  2. the only remote file with the same name under the configured roots
  3. the remote candidate whose content differs least from the local file
  4. an interactive prompt listing every remote file

Connection settings come from flags, REMOTE_HOST / REMOTE_PORT / REMOTE_USERNAME /
REMOTE_PASSWORD, or config.yaml in the config directory.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", "", "Directory holding config.yaml and persisted state (default ~/.config/missile)")
	flags.StringVar(&workDir, "workdir", "", "Directory inside the git checkout to work on (default: current working directory)")
	config.RegisterFlags(flags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogger creates an slog.Logger writing to stderr or a file.
// stdout is never used; it carries MCP traffic in serve mode.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
