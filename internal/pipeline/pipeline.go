// Package pipeline runs loader, feature builder, scoring engine and
// artifact writer in sequence for one configuration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/dshills/tenantmix/internal/artifact"
	"github.com/dshills/tenantmix/internal/config"
	"github.com/dshills/tenantmix/internal/diag"
	"github.com/dshills/tenantmix/internal/feature"
	"github.com/dshills/tenantmix/internal/logging"
	"github.com/dshills/tenantmix/internal/metrics"
	"github.com/dshills/tenantmix/internal/model"
	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/score"
	"github.com/dshills/tenantmix/internal/source"
)

// ErrInput marks failures caused by unreadable or unusable input tables.
var ErrInput = errors.New("invalid input")

// now is replaced in tests.
var now = time.Now

// Run executes the pipeline described by cfg and returns the run summary.
// The artifact is only replaced when every stage succeeded.
func Run(ctx context.Context, cfg *config.Config) (*diag.Summary, error) {
	sum := diag.NewSummary(uuid.NewString())
	sum.StartedAt = now().UTC()
	sum.ArtifactPath = cfg.Artifact.Path
	sum.Options = cfg.Flatten()

	log := logging.With().Str("run_id", sum.RunID).Logger()
	log.Info().Str("malls", cfg.Input.Malls).Str("stores", cfg.Input.Stores).Str("sales", cfg.Input.Sales).Msg("pipeline started")

	tables, events, err := source.Load(source.Paths{
		Malls:  cfg.Input.Malls,
		Stores: cfg.Input.Stores,
		Sales:  cfg.Input.Sales,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInput, err)
	}
	sum.Add(events...)
	sum.Sources = tables.Files
	sum.Totals.Malls = len(tables.Malls)
	sum.Totals.SalesRows = len(tables.Sales)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := feature.Build(tables, feature.Options{Imputation: cfg.Features.Imputation})
	if err != nil {
		return nil, fmt.Errorf("building features: %w", err)
	}
	sum.Totals.Stores = len(tbl.Rows)
	log.Debug().Int("stores", len(tbl.Rows)).Int("malls", len(tbl.Mix)).Msg("feature table built")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := score.Score(tbl, ScoreOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("scoring stores: %w", err)
	}
	sum.Add(res.Events...)
	sum.Model = res.Model
	sum.Totals.Flagged = res.Flagged()
	sum.Totals.Recommendations = res.Recommendations()
	sum.Totals.Scored = sum.Totals.Flagged - sum.Skipped()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := artifact.BuildRows(tbl, res, cfg.Artifact.IncludeAllStores)
	if err := artifact.Write(cfg.Artifact.Path, rows, cfg.Artifact.Precision); err != nil {
		return nil, err
	}
	sum.Totals.ArtifactRows = len(rows)
	sum.FinishedAt = now().UTC()

	for _, kc := range sum.NonZero() {
		log.Warn().Str("kind", string(kc.Kind)).Int("count", kc.Count).Msg("rows affected")
	}
	for _, e := range sum.Events {
		log.Debug().Str("kind", string(e.Kind)).Str("table", e.Table).Int("line", e.Line).Str("id", e.ID).Msg(e.Detail)
	}

	if err := writeSideOutputs(cfg, sum); err != nil {
		return nil, err
	}

	log.Info().
		Str("artifact", cfg.Artifact.Path).
		Int("stores", sum.Totals.Stores).
		Int("flagged", sum.Totals.Flagged).
		Int("recommendations", sum.Totals.Recommendations).
		Int("dropped", sum.Dropped()).
		Int("skipped", sum.Skipped()).
		Dur("elapsed", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("pipeline finished")
	return sum, nil
}

// ScoreOptions maps the configuration onto the scoring engine's options.
func ScoreOptions(cfg *config.Config) score.Options {
	return score.Options{
		ThresholdPercentile: cfg.Scoring.ThresholdPercentile,
		PeerGroup:           schema.PeerGroup(cfg.Scoring.PeerGroup),
		MaxCandidates:       cfg.Scoring.MaxCandidates,
		MinUplift:           cfg.Scoring.MinUplift,
		MinCategorySupport:  cfg.Scoring.MinCategorySupport,
		Model: model.Options{
			Seed:    cfg.Model.Seed,
			Folds:   cfg.Model.Folds,
			Lambdas: cfg.Model.Lambdas,
		},
	}
}

// writeSideOutputs writes the summary and metrics files. Both are
// replaced atomically and both are optional.
func writeSideOutputs(cfg *config.Config, sum *diag.Summary) error {
	if p := cfg.Output.SummaryPath; p != "" {
		data, err := sum.MarshalIndent()
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(p, data, 0o644); err != nil {
			return fmt.Errorf("%w: %s: %w", artifact.ErrWriteFailed, p, err)
		}
	}
	if p := cfg.Output.MetricsPath; p != "" {
		rec := metrics.New()
		rec.Observe(sum)
		rec.MarkSuccess(sum.FinishedAt)
		if err := rec.WriteFile(p); err != nil {
			return fmt.Errorf("%w: %w", artifact.ErrWriteFailed, err)
		}
	}
	return nil
}
