package rules

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

// Runner evaluates rules concurrently over one sealed graph.
type Runner struct {
	logger      *zap.Logger
	concurrency int
}

// NewRunner creates a runner. concurrency <= 0 uses GOMAXPROCS.
func NewRunner(logger *zap.Logger, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		logger:      logger.With(zap.String("component", "rule_runner")),
		concurrency: concurrency,
	}
}

// Run evaluates every rule and concatenates the results in rule order. Rules
// that read patched values wait for in.Latch. A failing rule becomes a Logic
// error diagnostic; only cancellation of ctx fails the run.
func (r *Runner) Run(ctx context.Context, in *Input, rules []Rule) ([]diagnostics.ReportItem, error) {
	if in == nil || in.Graph == nil {
		return nil, errors.New("rule input has no graph")
	}
	if !in.Graph.Sealed() {
		return nil, errors.New("rules need a sealed graph")
	}

	results := make([][]diagnostics.ReportItem, len(rules))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)

	r.logger.Debug("Running rules", zap.Int("rules", len(rules)), zap.Int("concurrency", r.concurrency))
	for i, rule := range rules {
		eg.Go(func() error {
			if rule.NeedsPatches() && in.Latch != nil {
				if err := in.Latch.Wait(egCtx); err != nil {
					return err
				}
			}
			if err := egCtx.Err(); err != nil {
				return err
			}

			start := time.Now()
			items, err := rule.Check(egCtx, in)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				r.logger.Warn("Rule failed", zap.String("rule", rule.Name()), zap.Error(err))
				items = append(items, diagnostics.ReportItem{
					ProjectName:    in.Graph.ProjectName,
					Message:        fmt.Sprintf("Rule %s failed:\n%s", rule.Name(), diagnostics.FormatErrorChain(err)),
					ValidationType: diagnostics.ValidationLogic,
					Severity:       diagnostics.SeverityError,
					Source:         rule.Name(),
				})
			}
			results[i] = items
			r.logger.Debug("Rule finished",
				zap.String("rule", rule.Name()),
				zap.Int("diagnostics", len(items)),
				zap.Duration("took", time.Since(start)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []diagnostics.ReportItem
	for _, items := range results {
		out = append(out, items...)
	}
	return out, nil
}
