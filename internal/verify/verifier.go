// Package verify drives the external model collaborator: it extracts a
// structured record from document text and asks a second pass to check it.
package verify

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/pkg/anthropic"
)

// Usage aggregates token usage and cost across the calls of one document.
type Usage struct {
	model.TokenUsage
	Calls int `json:"calls"`
}

func (u *Usage) add(resp *anthropic.MessageResponse, modelName, phase string, pricing map[string]anthropic.Pricing) {
	cost := resp.Usage.LogCost(modelName, phase, pricing)
	u.Calls++
	u.Add(model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
		Cost:                cost,
	})
}

// Verifier runs extraction and verification calls.
type Verifier struct {
	client  anthropic.Client
	policy  *resilience.Policy
	cfg     config.AnthropicConfig
	pricing map[string]anthropic.Pricing
}

// New creates a Verifier. policy may be nil to call the client directly.
func New(client anthropic.Client, policy *resilience.Policy, cfg config.AnthropicConfig, pricing map[string]anthropic.Pricing) *Verifier {
	return &Verifier{client: client, policy: policy, cfg: cfg, pricing: pricing}
}

// PricingFromConfig converts configured pricing into client pricing.
func PricingFromConfig(cfg config.PricingConfig) map[string]anthropic.Pricing {
	out := make(map[string]anthropic.Pricing, len(cfg.Anthropic))
	for name, p := range cfg.Anthropic {
		out[name] = anthropic.Pricing{Input: p.Input, Output: p.Output, CacheWriteMul: p.CacheWriteMul, CacheReadMul: p.CacheReadMul}
	}
	return out
}

// Extract asks the model for a record of the given shape. An invalid shape is
// detected from the decoded output.
func (v *Verifier) Extract(ctx context.Context, source string, shape model.Shape, usage *Usage) (model.Document, error) {
	text, err := v.call(ctx, v.cfg.ExtractModel, "extract", extractSystem, extractPrompt(shape, v.truncate(source)), usage)
	if err != nil {
		return model.Document{}, err
	}

	var record any
	if err := json.Unmarshal([]byte(reconcile.CleanJSON(text)), &record); err != nil {
		return model.Document{}, eris.Wrap(err, "verify: decode extracted record")
	}
	if !shape.Valid() {
		shape = model.DetectShape(record)
	}
	return model.Document{Shape: shape, Record: record}, nil
}

// Verify asks the model to check doc against source and returns the raw
// report text. Parsing is left to reconcile.ReconcileRaw.
func (v *Verifier) Verify(ctx context.Context, source string, doc model.Document, usage *Usage) (string, error) {
	extracted, err := json.MarshalIndent(doc.Record, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "verify: marshal extracted record")
	}
	return v.call(ctx, v.cfg.VerifyModel, "verify", verifySystem, verifyPrompt(v.truncate(source), extracted), usage)
}

func (v *Verifier) call(ctx context.Context, modelName, phase, system, prompt string, usage *Usage) (string, error) {
	req := anthropic.MessageRequest{
		Model:     modelName,
		MaxTokens: v.cfg.MaxTokens,
		System:    anthropic.CachedSystem(system),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}
	resp, err := resilience.Run(ctx, v.policy, "anthropic."+phase, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return v.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", eris.Wrapf(err, "verify: %s call", phase)
	}
	if usage != nil {
		usage.add(resp, modelName, phase, v.pricing)
	}
	if resp.StopReason == "max_tokens" {
		zap.L().Warn("verify: model output truncated", zap.String("phase", phase), zap.Int64("max_tokens", v.cfg.MaxTokens))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.Errorf("verify: %s returned no text", phase)
	}
	return text, nil
}

func (v *Verifier) truncate(source string) string {
	if v.cfg.MaxSourceChars <= 0 || len(source) <= v.cfg.MaxSourceChars {
		return source
	}
	cut := v.cfg.MaxSourceChars
	for cut > 0 && !utf8.RuneStart(source[cut]) {
		cut--
	}
	zap.L().Debug("verify: source truncated", zap.Int("chars", len(source)), zap.Int("kept", cut))
	return source[:cut]
}
