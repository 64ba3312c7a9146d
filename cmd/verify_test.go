package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
	"github.com/sells-group/recon-cli/internal/resilience"
	"github.com/sells-group/recon-cli/internal/verify"
	"github.com/sells-group/recon-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type stubText map[string]string

func (s stubText) ExtractText(_ context.Context, path string) (string, error) {
	text, ok := s[path]
	if !ok {
		return "", errors.New("no such document")
	}
	return text, nil
}

func reply(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 500, OutputTokens: 100},
	}
}

func onModel(name string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool { return req.Model == name })
}

func testPipeline(client anthropic.Client, text stubText) *verify.Pipeline {
	acfg := config.AnthropicConfig{ExtractModel: "extract-model", VerifyModel: "verify-model", MaxTokens: 1024}
	policy := resilience.NewPolicy("test", 1, 1, 1, 1, 0, 5, 1)
	opts := reconcile.DefaultOptions(time.Now())
	return &verify.Pipeline{
		Text:     text,
		Verifier: verify.New(client, policy, acfg, nil),
		Options:  &opts,
	}
}

func TestProcessBatch(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, onModel("extract-model")).Return(reply(westpark), nil)
	client.On("CreateMessage", mock.Anything, onModel("verify-model")).Return(reply(westparkReport), nil)

	p := testPipeline(client, stubText{"a.pdf": "Westpark A", "b.pdf": "Westpark B"})
	results := processBatch(context.Background(), p, []string{"a.pdf", "missing.pdf", "b.pdf"}, model.ShapeComposite, 2)

	require.Len(t, results, 3)
	assert.Equal(t, "a.pdf", results[0].Path)
	require.NotNil(t, results[0].Outcome)
	assert.Len(t, results[0].Outcome.Result.Corrections.Applied, 1)

	assert.Nil(t, results[1].Outcome)
	assert.Contains(t, results[1].Error, "no such document")

	require.NotNil(t, results[2].Outcome)
	assert.Equal(t, model.ShapeComposite, results[2].Outcome.Result.Shape)
	client.AssertNumberOfCalls(t, "CreateMessage", 4)
}

func TestFormatBatch(t *testing.T) {
	conf := 66.7
	results := []batchResult{
		{
			Path: "/data/westpark.pdf",
			Outcome: &verify.Outcome{
				Result: &reconcile.Result{
					Shape:       model.ShapeComposite,
					Corrections: &reconcile.CorrectionResult{Applied: []reconcile.Correction{{Path: "metrics.landAreaSqm"}}},
					Assessment:  reconcile.Assessment{Confidence: &conf, Recommendation: reconcile.RecLowConfidence},
				},
				Reviewed: true,
			},
		},
		{Path: "/data/scan.pdf", Error: "no text layer"},
	}

	var buf bytes.Buffer
	formatBatch(&buf, results)

	out := buf.String()
	assert.Contains(t, out, "DOCUMENT")
	assert.Contains(t, out, "westpark.pdf")
	assert.NotContains(t, out, "/data/")
	assert.Contains(t, out, "66.7%")
	assert.Contains(t, out, "filed")
	assert.Contains(t, out, "ERROR: no text layer")
	assert.Contains(t, out, "2 documents, 1 failed")
}

func TestVerifyCmd_RequiresAnthropicKey(t *testing.T) {
	useTestConfig(t)
	verifyCmd.SetContext(context.Background())
	defer verifyCmd.SetContext(nil)

	err := verifyCmd.RunE(verifyCmd, []string{"westpark.pdf"})
	assert.ErrorContains(t, err, "anthropic.key is required")
}

func TestBatchCmd_RejectsUnknownShape(t *testing.T) {
	useTestConfig(t)
	batchCmd.SetContext(context.Background())
	defer batchCmd.SetContext(nil)

	shapeFlag = "tower"
	err := batchCmd.RunE(batchCmd, []string{"a.pdf"})
	assert.ErrorContains(t, err, "unknown --shape")
}

func TestInitPipeline_WiresStore(t *testing.T) {
	useTestConfig(t)
	cfg.Anthropic.Key = "sk-test"
	cfg.OCR = config.OCRConfig{PdfToTextPath: "pdftotext", TimeoutSecs: 5}
	cfg.Resilience = config.ResilienceConfig{MaxAttempts: 1, InitialBackoffMS: 1, MaxBackoffMS: 1, Multiplier: 1, FailureThreshold: 5, ResetTimeoutSecs: 1}

	env, err := initPipeline(context.Background(), true)
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.Same(t, env.Store, env.Pipeline.Store)
	assert.Nil(t, env.Pipeline.Reviewer)
	require.NotNil(t, env.Pipeline.Options)
}

func TestInitPipeline_NoStore(t *testing.T) {
	useTestConfig(t)
	cfg.Anthropic.Key = "sk-test"
	cfg.Notion = config.NotionConfig{Token: "secret", ReviewDB: "db-1", RPS: 3}

	env, err := initPipeline(context.Background(), false)
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.Store)
	assert.Nil(t, env.Pipeline.Store)
	// Reviews are tied to stored runs.
	assert.Nil(t, env.Pipeline.Reviewer)
}
