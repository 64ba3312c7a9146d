package verify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/ocr"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/store"
)

// Reviewer files reconciled runs that need a human look.
type Reviewer interface {
	Submit(ctx context.Context, run *model.Run, res *reconcile.Result) (bool, error)
}

// Pipeline runs one document through text extraction, model extraction,
// model verification and reconciliation, persisting the run as it goes.
type Pipeline struct {
	Text     ocr.Extractor
	Verifier *Verifier
	Store    store.Store        // optional
	Reviewer Reviewer           // optional
	Options  *reconcile.Options // nil uses the defaults
}

// Outcome is what Process produces for one document.
type Outcome struct {
	Run      *model.Run        `json:"run,omitempty"`
	Document model.Document    `json:"document"`
	Result   *reconcile.Result `json:"result"`
	Usage    Usage             `json:"usage"`
	Reviewed bool              `json:"reviewed"`
}

// Process reconciles the document at path. A verification failure is not
// fatal: the extracted record is reconciled without a report and gets
// unknown confidence.
func (p *Pipeline) Process(ctx context.Context, path string, shape model.Shape) (*Outcome, error) {
	source, err := p.Text.ExtractText(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "verify: read document")
	}
	return p.ProcessText(ctx, path, source, shape)
}

// ProcessText is Process for text already in memory. name labels the run.
func (p *Pipeline) ProcessText(ctx context.Context, name, source string, shape model.Shape) (*Outcome, error) {
	log := zap.L().With(zap.String("source", name), zap.String("shape", string(shape)))
	out := &Outcome{}

	if p.Store != nil {
		run, err := p.Store.CreateRun(ctx, name, shape)
		if err != nil {
			return nil, eris.Wrap(err, "verify: create run")
		}
		out.Run = run
	}

	p.setStatus(ctx, out.Run, model.RunStatusExtracting)
	doc, err := p.Verifier.Extract(ctx, source, shape, &out.Usage)
	if err != nil {
		p.fail(ctx, out.Run, err)
		return nil, err
	}
	out.Document = doc
	if out.Run != nil {
		out.Run.Shape = doc.Shape
	}

	p.setStatus(ctx, out.Run, model.RunStatusVerifying)
	reportText, err := p.Verifier.Verify(ctx, source, doc, &out.Usage)
	if err != nil {
		if ctx.Err() != nil {
			p.fail(ctx, out.Run, err)
			return nil, err
		}
		log.Warn("verify: verification failed, reconciling without report", zap.Error(err))
		reportText = ""
	}

	opts := reconcile.DefaultOptions(time.Now())
	if p.Options != nil {
		opts = p.Options.At(time.Now())
	}
	out.Result = reconcile.ReconcileRaw(doc, reportText, opts)

	if out.Run != nil {
		if err := p.complete(ctx, out); err != nil {
			p.fail(ctx, out.Run, err)
			return nil, err
		}
	}

	if p.Reviewer != nil && out.Run != nil {
		filed, err := p.Reviewer.Submit(ctx, out.Run, out.Result)
		if err != nil {
			log.Warn("verify: review filing failed", zap.Error(err))
		}
		out.Reviewed = filed
	}

	log.Info("verify: document reconciled",
		zap.String("recommendation", out.Result.Assessment.Recommendation),
		zap.Int("applied", len(out.Result.Corrections.Applied)),
		zap.Int("calls", out.Usage.Calls),
		zap.Float64("cost_usd", out.Usage.Cost),
	)
	return out, nil
}

func (p *Pipeline) complete(ctx context.Context, out *Outcome) error {
	payload, err := json.Marshal(out.Result)
	if err != nil {
		return eris.Wrap(err, "verify: marshal result")
	}
	out.Run.Status = model.RunStatusComplete
	out.Run.Confidence = out.Result.Assessment.Confidence
	out.Run.Recommendation = out.Result.Assessment.Recommendation
	out.Run.Result = payload
	return eris.Wrap(p.Store.SaveRun(ctx, out.Run), "verify: save run")
}

func (p *Pipeline) setStatus(ctx context.Context, run *model.Run, status model.RunStatus) {
	if run == nil {
		return
	}
	run.Status = status
	if err := p.Store.SaveRun(ctx, run); err != nil {
		zap.L().Warn("verify: update run status", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (p *Pipeline) fail(ctx context.Context, run *model.Run, cause error) {
	if run == nil {
		return
	}
	run.Status = model.RunStatusFailed
	run.Error = cause.Error()
	// The request context may already be done; the failure still gets recorded.
	if err := p.Store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Warn("verify: record failure", zap.String("run_id", run.ID), zap.Error(err))
	}
}
