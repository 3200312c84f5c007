package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultAttempts is the ordered list of configurations tried when acquiring an engine.
func DefaultAttempts() []EngineConfig {
	return []EngineConfig{
		{Languages: []string{"ita", "eng"}, PSM: 6, PreserveSpaces: true},
		{Languages: []string{"ita"}, PSM: 6, PreserveSpaces: true},
		{Languages: []string{"eng"}, PSM: 4, PreserveSpaces: true},
	}
}

// AttemptsFor puts a configured language set and PSM ahead of the defaults.
func AttemptsFor(languages []string, psm int) []EngineConfig {
	defaults := DefaultAttempts()
	if len(languages) == 0 {
		return defaults
	}
	if psm <= 0 {
		psm = 6
	}
	first := EngineConfig{Languages: languages, PSM: psm, PreserveSpaces: true}
	out := []EngineConfig{first}
	for _, a := range defaults {
		if a.String() != first.String() {
			out = append(out, a)
		}
	}
	return out
}

// Acquire walks attempts in order and returns the first engine the factory
// can create. Each failure is logged; when all fail the joined causes are
// wrapped under ErrEngineUnavailable.
func Acquire(ctx context.Context, factory Factory, attempts []EngineConfig, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(attempts) == 0 {
		attempts = DefaultAttempts()
	}

	var errs []error
	for i, cfg := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eng, err := factory(ctx, cfg)
		if err == nil {
			logger.Info("ocr.engine.acquired", "engine", eng.Name(), "config", cfg.String(), "attempt", i+1)
			return eng, nil
		}
		logger.Warn("ocr.engine.attempt_failed", "config", cfg.String(), "attempt", i+1, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", cfg, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, errors.Join(errs...))
}
