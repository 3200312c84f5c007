package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/core/async"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
	"github.com/joseph-ayodele/installments-tracker/internal/health"
	"github.com/joseph-ayodele/installments-tracker/internal/ingest"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir...>",
	Short: "Watch directories and extract every PDF that appears in them",
	Long: `Watch directories recursively and extract each new or rewritten PDF.
One JSON result per document is printed on stdout. With --out-dir the
schedule is also written there as <name>.<format>.

Examples:
  installments watch ./inbox
  installments watch ./inbox --initial-scan --out-dir ./schedules --format csv`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("initial-scan", false, "extract documents already present in the directories")
	watchCmd.Flags().Duration("debounce", 2*time.Second, "wait for writes to settle before extracting")
	watchCmd.Flags().String("out-dir", "", "write each schedule into this directory")
	watchCmd.Flags().String("format", "xlsx", "schedule format for --out-dir: xlsx, csv or json")
	watchCmd.Flags().Int("workers", 2, "documents extracted concurrently")
	watchCmd.Flags().Duration("timeout", 10*time.Minute, "per-document extraction timeout")
	watchCmd.Flags().String("health-addr", "", "serve the gRPC health service on this address (e.g. :8081)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	initial, _ := cmd.Flags().GetBool("initial-scan")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	outDir, _ := cmd.Flags().GetString("out-dir")
	format, _ := cmd.Flags().GetString("format")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	healthAddr, _ := cmd.Flags().GetString("health-addr")

	format = constants.NormalizeExt(format)
	if !slices.Contains(constants.ExportFormats, format) {
		return fmt.Errorf("unsupported --format %q (want %s)", format, strings.Join(constants.ExportFormats, ", "))
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create out dir: %w", err)
		}
	}

	if err := a.withProfiles(ctx); err != nil {
		a.logger.Warn("profile store unavailable, using built-in profiles", "error", err)
	}
	collector := a.startMetrics(ctx)
	ex, err := a.extractor(collector)
	if err != nil {
		return err
	}

	var hs *health.Server
	if healthAddr != "" {
		hs, err = health.Listen(healthAddr, a.logger)
		if err != nil {
			return err
		}
		hctx, cancel := context.WithCancel(ctx)
		a.cleanups = append(a.cleanups, cancel)
		go func() {
			if err := hs.Serve(hctx); err != nil {
				a.logger.Error("health.failed", "error", err)
			}
		}()
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: initial,
		SkipHidden:  true,
		Debounce:    debounce,
	}, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("watch.started", "roots", args, "initial_scan", initial)
	if hs != nil {
		hs.SetServing(true)
		defer hs.SetServing(false)
	}

	q := async.NewExtractQueue(ctx, ex, a.logger, async.WithWorkers(workers), async.WithProcessTimeout(timeout))
	go func() {
		defer q.Shutdown(ctx)
		i := 0
		for path := range events {
			job := async.Job{
				Index: i,
				RunID: uuid.NewString(),
				Path:  path,
				Options: extract.Options{
					MinExpected: a.cfg.Extraction.MinExpected,
					Profile:     profile.ID(a.cfg.Extraction.DefaultProfile),
				},
			}
			i++
			if err := q.Enqueue(ctx, job); err != nil {
				a.logger.Warn("enqueue failed", "path", path, "error", err)
				return
			}
		}
	}()
	go func() {
		for err := range errs {
			a.logger.Warn("watch.error", "error", err)
		}
	}()

	enc := json.NewEncoder(os.Stdout)
	for o := range q.Results() {
		out := a.report(ctx, o, nil, a.cfg.Extraction.Currency, scheduleFile(outDir, o.Job.Path, format))
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	a.logger.Info("watch.stopped")
	return nil
}

// scheduleFile names the export written for a watched document, or "" when
// no output directory is set.
func scheduleFile(outDir, docPath, format string) string {
	if outDir == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return filepath.Join(outDir, base+"."+format)
}
