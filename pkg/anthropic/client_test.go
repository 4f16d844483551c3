package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKTypeConversion_toSDKMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there"},
	}

	sdkMsgs := toSDKMessages(msgs)
	require.Len(t, sdkMsgs, 2)
}

func TestSDKTypeConversion_toSDKSystemBlocks(t *testing.T) {
	blocks := []SystemBlock{
		{Text: "Voce e o Renderer do laudo."},
		{Text: "Regras fixas.", CacheControl: &CacheControl{TTL: "1h"}},
	}

	sdkBlocks := toSDKSystemBlocks(blocks)
	require.Len(t, sdkBlocks, 2)
	assert.Equal(t, "Voce e o Renderer do laudo.", sdkBlocks[0].Text)
	assert.Equal(t, "Regras fixas.", sdkBlocks[1].Text)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "{\"a\":"},
		{Type: "tool_use"},
		{Type: "text", Text: "1}"},
	}}
	assert.Equal(t, "{\"a\":1}", resp.Text())
	assert.Empty(t, (&MessageResponse{}).Text())
}

func TestEstimateCost_Haiku(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// input: 1M * $1.00/MTok = $1.00
	// output: 1M * $5.00/MTok = $5.00
	assert.InDelta(t, 6.00, cost, 0.001)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 18.00, cost, 0.001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              500_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     300_000,
	}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// input: 0.5M * $1.00 = $0.50
	// output: 0.1M * $5.00 = $0.50
	// cacheWrite: 0.2M * $1.00 * 1.25 = $0.25
	// cacheRead: 0.3M * $1.00 * 0.10 = $0.03
	assert.InDelta(t, 1.28, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Equal(t, 0.0, usage.EstimateCost("unknown-model"))
}

func TestCost_WithOverrides(t *testing.T) {
	pricing := DefaultPricing().Merge(Pricing{"custom-model": {2.0, 8.0}})
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}

	assert.InDelta(t, 6.0, usage.Cost("custom-model", pricing), 0.001)
	assert.InDelta(t, 3.5, usage.Cost("claude-haiku-4-5-20251001", pricing), 0.001)
	assert.NotContains(t, DefaultPricing(), "custom-model")
}

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 1}
	b := TokenUsage{InputTokens: 3, OutputTokens: 2, CacheCreationInputTokens: 7}
	assert.Equal(t, TokenUsage{InputTokens: 13, OutputTokens: 7, CacheCreationInputTokens: 7, CacheReadInputTokens: 1}, a.Add(b))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		usage := TokenUsage{InputTokens: 100, OutputTokens: 50}
		usage.LogCost("claude-haiku-4-5-20251001", "findings", DefaultPricing())
	})

	assert.NotPanics(t, func() {
		usage := TokenUsage{}
		usage.LogCost("unknown-model", "", nil)
	})
}
