package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/installments-tracker/constants"
	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

// Options are per-call settings for Orchestrator.Extract.
type Options struct {
	MinExpected int        // default constants.DefaultMinExpected
	Profile     profile.ID // optional override; empty = auto-detect
	OnPhase     func(constants.Phase)
	OnProgress  func(percent int) // OCR pass progress over pages
}

// Result is the merged schedule plus what a reviewer needs to judge it.
type Result struct {
	Installments []entity.Installment `json:"installments"`
	Warnings     []string             `json:"warnings,omitempty"`
	Profile      profile.ID           `json:"profile"`
	Pages        int                  `json:"pages"`
	OCRUsed      bool                 `json:"ocr_used"`

	// Degraded is set when OCR was needed but no engine could be acquired
	// and the text-layer rows are returned on their own.
	Degraded bool `json:"degraded,omitempty"`
}

// Outcome labels reported to the Observer.
const (
	OutcomeText     = "text"
	OutcomeMerged   = "merged"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Observer receives extraction telemetry.
type Observer interface {
	PhaseDuration(phase constants.Phase, d time.Duration)
	Pages(source constants.Source, pages, failed int)
	Rows(source constants.Source, rows int)
	Outcome(outcome string)
}

type noopObserver struct{}

func (noopObserver) PhaseDuration(constants.Phase, time.Duration) {}
func (noopObserver) Pages(constants.Source, int, int)             {}
func (noopObserver) Rows(constants.Source, int)                   {}
func (noopObserver) Outcome(string)                               {}

// Orchestrator runs the TEXT -> OCR -> DONE state machine. It holds no
// per-document state, so one instance serves concurrent calls.
type Orchestrator struct {
	opener   pdfdoc.Opener
	text     Pass
	ocr      Pass
	observer Observer
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewOrchestrator(opener pdfdoc.Opener, text, ocrPass Pass, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		opener:   opener,
		text:     text,
		ocr:      ocrPass,
		observer: noopObserver{},
		tracer:   otel.Tracer("github.com/joseph-ayodele/installments-tracker/internal/extract"),
		logger:   logger,
	}
}

// WithObserver attaches a telemetry sink.
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	if obs != nil {
		o.observer = obs
	}
	return o
}

// Extract opens path and returns the best-effort schedule. Input failures
// are returned immediately. An unavailable OCR engine, or a cancellation
// during the OCR pass, is fatal only when the text layer produced nothing.
func (o *Orchestrator) Extract(ctx context.Context, path string, opts Options) (*Result, error) {
	if opts.MinExpected <= 0 {
		opts.MinExpected = constants.DefaultMinExpected
	}
	logger := common.LoggerFromContext(ctx, o.logger)
	phase := func(p constants.Phase) {
		if opts.OnPhase != nil {
			opts.OnPhase(p)
		}
	}

	ctx, span := o.tracer.Start(ctx, "extract.document", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Int("min_expected", opts.MinExpected),
	))
	defer span.End()

	doc, err := o.opener.Open(ctx, path)
	if err != nil {
		o.observer.Outcome(OutcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		logger.Error("extract.open_failed", "path", path, "error", err)
		return nil, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			logger.Warn("extract.close_failed", "path", path, "error", err)
		}
	}()

	phase(constants.PhaseText)
	text, err := o.runPass(ctx, o.text, constants.PhaseText, constants.SourceText, doc, PassOptions{Profile: opts.Profile})
	if err != nil {
		o.observer.Outcome(OutcomeFailed)
		span.RecordError(err)
		return nil, err
	}

	res := &Result{
		Installments: text.Installments,
		Warnings:     text.Warnings,
		Profile:      text.Profile,
		Pages:        doc.PageCount(),
	}
	if len(text.Installments) >= opts.MinExpected {
		logger.Info("extract.done", "path", path, "rows", len(res.Installments), "ocr", false)
		o.observer.Outcome(OutcomeText)
		phase(constants.PhaseDone)
		return res, nil
	}

	logger.Info("extract.text.insufficient", "path", path, "rows", len(text.Installments), "min_expected", opts.MinExpected)
	phase(constants.PhaseOCR)
	res.OCRUsed = true
	scanned, err := o.runPass(ctx, o.ocr, constants.PhaseOCR, constants.SourceOCR, doc, PassOptions{Profile: opts.Profile, OnProgress: opts.OnProgress})
	if err != nil {
		unavailable := errors.Is(err, ocr.ErrEngineUnavailable)
		cancelled := ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
		if !unavailable && !cancelled {
			o.observer.Outcome(OutcomeFailed)
			span.RecordError(err)
			return nil, err
		}
		if len(text.Installments) == 0 {
			o.observer.Outcome(OutcomeFailed)
			span.RecordError(err)
			if cancelled {
				return nil, err
			}
			span.SetStatus(codes.Error, "ocr unavailable")
			return nil, common.NewAppError(common.CodeOCRUnavailable, path, err)
		}
		logger.Warn("extract.degraded", "path", path, "rows", len(text.Installments), "cancelled", cancelled, "error", err)
		res.Degraded = true
		if cancelled {
			res.Warnings = append(res.Warnings, fmt.Sprintf("ocr cancelled, text layer only: %v", err))
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("ocr unavailable, text layer only: %v", err))
		}
		o.observer.Outcome(OutcomeDegraded)
		phase(constants.PhaseDone)
		return res, nil
	}

	res.Installments = Merge(text.Installments, scanned.Installments)
	res.Warnings = append(res.Warnings, scanned.Warnings...)
	if opts.Profile == "" && text.Profile == profile.Default {
		res.Profile = scanned.Profile
	}
	if len(res.Installments) < opts.MinExpected {
		logger.Warn("extract.below_threshold",
			"path", path,
			"rows", len(res.Installments),
			"min_expected", opts.MinExpected,
		)
	}
	logger.Info("extract.done",
		"path", path,
		"rows", len(res.Installments),
		"text_rows", len(text.Installments),
		"ocr_rows", len(scanned.Installments),
		"ocr", true,
	)
	o.observer.Outcome(OutcomeMerged)
	phase(constants.PhaseDone)
	return res, nil
}

func (o *Orchestrator) runPass(ctx context.Context, pass Pass, ph constants.Phase, src constants.Source, doc pdfdoc.Document, opts PassOptions) (PassResult, error) {
	ctx, span := o.tracer.Start(ctx, "extract."+string(ph))
	defer span.End()

	start := time.Now()
	res, err := pass.Extract(ctx, doc, opts)
	o.observer.PhaseDuration(ph, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	o.observer.Pages(src, res.Pages, res.FailedPages)
	o.observer.Rows(src, len(res.Installments))
	span.SetAttributes(
		attribute.Int("pages", res.Pages),
		attribute.Int("rows", len(res.Installments)),
		attribute.String("profile", string(res.Profile)),
	)
	return res, nil
}
