package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	logger  *slog.Logger
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "highwin",
		Short:        "Find the highest win-rate policy per environment and opponent",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; only the process environment is required.
			_ = godotenv.Load()
			logger = newLogger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file path (built-in defaults when empty)")
	root.AddCommand(newFindCmd())
	root.AddCommand(newReportCmd())
	return root
}

// newLogger honours HIGHWIN_LOG_LEVEL (debug, info, warn, error) and
// HIGHWIN_LOG_FORMAT (text, json).
func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("HIGHWIN_LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(os.Getenv("HIGHWIN_LOG_FORMAT"), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
