package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/ocr"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/internal/review"
	"github.com/sells-group/recon-cli/internal/store"
	"github.com/sells-group/recon-cli/internal/verify"
	"github.com/sells-group/recon-cli/pkg/anthropic"
	"github.com/sells-group/recon-cli/pkg/notion"
)

// initStore opens and migrates the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// pipelineEnv holds the verification pipeline and what it owns.
type pipelineEnv struct {
	Pipeline *verify.Pipeline
	Store    store.Store
}

// Close releases the store.
func (e *pipelineEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initPipeline wires the model client, retry policy, text extraction, run
// store and the optional Notion review queue.
func initPipeline(ctx context.Context, withStore bool) (*pipelineEnv, error) {
	if err := cfg.Validate("verify"); err != nil {
		return nil, err
	}
	opts, err := cfg.ReconcileOptions(time.Now())
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.Options{
		BaseURL: cfg.Anthropic.BaseURL,
		Timeout: time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
	})
	r := cfg.Resilience
	policy := resilience.NewPolicy("anthropic", r.MaxAttempts, r.InitialBackoffMS, r.MaxBackoffMS,
		r.Multiplier, r.JitterFraction, r.FailureThreshold, r.ResetTimeoutSecs)

	env := &pipelineEnv{}
	env.Pipeline = &verify.Pipeline{
		Text:     ocr.NewExtractor(cfg.OCR),
		Verifier: verify.New(client, policy, cfg.Anthropic, verify.PricingFromConfig(cfg.Pricing)),
		Options:  &opts,
	}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "init store")
		}
		env.Store = st
		env.Pipeline.Store = st

		if cfg.Notion.Token != "" && cfg.Notion.ReviewDB != "" {
			env.Pipeline.Reviewer = newFiler()
			zap.L().Debug("review queue enabled", zap.String("database", cfg.Notion.ReviewDB))
		}
	}
	return env, nil
}

func newFiler() *review.Filer {
	db := notion.NewDatabase(notion.NewAPI(cfg.Notion.Token), cfg.Notion.ReviewDB, cfg.Notion.RPS)
	return review.NewFiler(db, cfg.Reconcile.ReviewBelow)
}
