package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/core/async"
	"github.com/joseph-ayodele/installments-tracker/internal/export"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
	"github.com/joseph-ayodele/installments-tracker/internal/ingest"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
	"github.com/joseph-ayodele/installments-tracker/internal/validate"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file|dir...]",
	Short: "Extract and validate the installment schedule of PDF documents",
	Long: `Extract the installment schedule of each PDF and print it as JSON with
the validation report.

Examples:
  installments extract plan.pdf
  installments extract ./statements
  installments extract plan.pdf --profile ader --min-expected 24
  installments extract plan.pdf --expected-total 3.600,00 --export plan.xlsx`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runExtract,
}

var exportCmd = &cobra.Command{
	Use:   "export <file> <out>",
	Short: "Extract one document and write its schedule as xlsx, csv or json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Set("export", args[1]); err != nil {
			return err
		}
		if err := cmd.Flags().Set("quiet", "true"); err != nil {
			return err
		}
		return runExtract(cmd, args[:1])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(extractCmd, exportCmd)

	for _, c := range []*cobra.Command{extractCmd, exportCmd} {
		c.Flags().String("profile", "", "force a parsing profile instead of detecting it")
		c.Flags().Int("min-expected", 0, "rows the text layer must yield to skip OCR (default $EXTRACT_MIN_EXPECTED or 10)")
		c.Flags().String("expected-total", "", "total the amounts must sum to (e.g. 1250.00 or 1.250,00)")
		c.Flags().String("currency", "", "ISO 4217 code used in warnings (default $EXTRACT_CURRENCY)")
		c.Flags().String("export", "", "also write the schedule to this .xlsx, .csv or .json file")
		c.Flags().Bool("quiet", false, "do not print the JSON result")
		c.Flags().Int("workers", 2, "documents extracted concurrently")
		c.Flags().Duration("timeout", 10*time.Minute, "per-document extraction timeout")
	}
}

type extractOutput struct {
	Path     string           `json:"path"`
	RunID    string           `json:"run_id"`
	Result   *extract.Result  `json:"result,omitempty"`
	Report   *validate.Report `json:"report,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
	Rejected bool             `json:"rejected,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	profileKey, _ := cmd.Flags().GetString("profile")
	minExpected, _ := cmd.Flags().GetInt("min-expected")
	totalStr, _ := cmd.Flags().GetString("expected-total")
	currency, _ := cmd.Flags().GetString("currency")
	exportPath, _ := cmd.Flags().GetString("export")
	quiet, _ := cmd.Flags().GetBool("quiet")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if minExpected <= 0 {
		minExpected = a.cfg.Extraction.MinExpected
	}
	if profileKey == "" {
		profileKey = a.cfg.Extraction.DefaultProfile
	}
	if currency == "" {
		currency = a.cfg.Extraction.Currency
	}
	var expected *decimal.Decimal
	if totalStr != "" {
		d, ok := layout.ParseAmount(totalStr)
		if !ok {
			return fmt.Errorf("invalid --expected-total %q", totalStr)
		}
		expected = &d
	}

	if err := a.withProfiles(ctx); err != nil {
		a.logger.Warn("profile store unavailable, using built-in profiles", "error", err)
	}
	if profileKey != "" {
		if _, ok := a.registry.Get(profile.ID(profileKey)); !ok {
			return fmt.Errorf("unknown profile %q (known: %s)", profileKey, joinIDs(a.registry.IDs()))
		}
	}

	collector := a.startMetrics(ctx)
	ex, err := a.extractor(collector)
	if err != nil {
		return err
	}

	docs, err := ingest.Collect(args, true)
	if err != nil {
		return err
	}
	var paths []string
	for _, path := range docs {
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			a.logger.Warn("skipping unsupported file", "path", path)
			continue
		}
		paths = append(paths, path)
	}
	if exportPath != "" && len(paths) > 1 {
		return errors.New("--export takes a single document")
	}

	q := async.NewExtractQueue(ctx, ex, a.logger, async.WithWorkers(workers), async.WithProcessTimeout(timeout))
	go func() {
		defer q.Shutdown(ctx)
		for i, path := range paths {
			opts := extract.Options{
				MinExpected: minExpected,
				Profile:     profile.ID(profileKey),
				OnPhase: func(p constants.Phase) {
					a.logger.Debug("extract.phase", "path", path, "phase", string(p))
				},
				OnProgress: func(pct int) {
					a.logger.Debug("extract.progress", "path", path, "percent", pct)
				},
			}
			if err := q.Enqueue(ctx, async.Job{Index: i, RunID: uuid.NewString(), Path: path, Options: opts}); err != nil {
				a.logger.Error("enqueue failed", "path", path, "error", err)
				return
			}
		}
	}()

	outputs := make([]*extractOutput, len(paths))
	for o := range q.Results() {
		outputs[o.Job.Index] = a.report(ctx, o, expected, currency, exportPath)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed, rejected := 0, 0
	for i, out := range outputs {
		if out == nil {
			failed++
			out = &extractOutput{Path: paths[i], Error: "not processed"}
		} else if out.Error != "" {
			failed++
			if out.Rejected {
				rejected++
			}
		}
		if !quiet || out.Error != "" {
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
	}
	if failed > 0 {
		if rejected > 0 {
			return fmt.Errorf("%d of %d documents failed (%d unreadable)", failed, len(paths), rejected)
		}
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

// report validates a finished extraction and writes the export file, if any.
func (a *app) report(ctx context.Context, o async.Outcome, expected *decimal.Decimal, currency, exportPath string) *extractOutput {
	out := &extractOutput{Path: o.Job.Path, RunID: o.Job.RunID}
	if o.Err != nil {
		out.Error, out.Code, out.Rejected = o.Err.Error(), common.CodeOf(o.Err), o.Rejected
		return out
	}
	rep := validate.Validate(o.Result.Installments, expected, validate.WithCurrency(currency))
	out.Result, out.Report = o.Result, &rep
	if exportPath == "" {
		return out
	}

	runCtx := common.WithLogger(common.WithRunID(ctx, o.Job.RunID), a.logger)
	sch := export.Schedule{
		Document:     o.Job.Path,
		Currency:     currency,
		Installments: o.Result.Installments,
		Warnings:     append(append([]string(nil), o.Result.Warnings...), rep.Warnings...),
	}
	if err := export.NewService(common.LoggerFromContext(runCtx, a.logger)).WriteFile(runCtx, exportPath, sch); err != nil {
		out.Error = fmt.Sprintf("export %s: %v", exportPath, err)
	}
	return out
}

func joinIDs(ids []profile.ID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}
