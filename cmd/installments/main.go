package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "installments",
	Short: "Extract installment schedules from PDF payment plans",
	Long: `Extract installment schedules (rate) from PDF payment plans.

Documents are read from their text layer first; when that yields too few
rows the pages are rendered and recognised with OCR and the two results
are merged by due date.

Examples:
  installments extract plan.pdf
  installments extract plan.pdf --expected-total 1250,00 --export plan.xlsx
  installments profiles import profiles.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "env files to load before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (default $LOG_LEVEL or info)")
}

func main() {
	// Interrupt cancels between pages; a page already in OCR finishes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if _, werr := fmt.Fprintln(os.Stderr, "Error:", err); werr != nil {
			fmt.Println("Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

// newLogger writes JSON to stderr so stdout stays free for results.
func newLogger(level string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
