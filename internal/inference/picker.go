package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/matching"
	"github.com/skuforge/catalog-engine/pkg/errors"
)

const systemPrompt = "You match incoming supplier product records against an " +
	"existing product catalog. Always answer with valid JSON and nothing else."

// chatClient is the slice of the OpenAI client the picker needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Picker is the LLM-backed fallback for records that slipped through the
// deterministic matchers. It is strictly best-effort: callers treat every
// error as "no match" and carry on.
type Picker struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// NewPicker builds a picker against the OpenAI API. model defaults to
// gpt-4o-mini and timeout to 8 seconds.
func NewPicker(apiKey, model string, timeout time.Duration) *Picker {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Picker{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

type pickResponse struct {
	Match      *int    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// PickCandidate asks the model which candidate, if any, the record belongs
// to. The candidate list is numbered so the model answers with an index
// instead of free text.
func (p *Picker) PickCandidate(ctx context.Context, record catalog.ProductRecord, candidates []matching.Candidate) (matching.Pick, error) {
	if len(candidates) == 0 {
		return matching.Pick{Index: -1}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(record, candidates)},
		},
		Temperature: 0,
		MaxTokens:   128,
	})
	if err != nil {
		return matching.Pick{}, errors.Wrap(errors.CodeDependency, err, "inference: chat completion")
	}
	if len(resp.Choices) == 0 {
		return matching.Pick{}, errors.New(errors.CodeDependency, "inference: empty completion")
	}

	return parsePick(resp.Choices[0].Message.Content, len(candidates))
}

func buildPrompt(record catalog.ProductRecord, candidates []matching.Candidate) string {
	var b strings.Builder
	b.WriteString("Incoming record:\n")
	fmt.Fprintf(&b, "  name: %s\n", record.Name)
	fmt.Fprintf(&b, "  manufacturer: %s\n", record.Manufacturer)
	if record.CategoryPath != "" {
		fmt.Fprintf(&b, "  category: %s\n", record.CategoryPath)
	}
	if record.Description != "" {
		fmt.Fprintf(&b, "  description: %s\n", truncate(record.Description, 400))
	}

	b.WriteString("\nExisting products of the same manufacturer:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "  %d. %s\n", i, c.Name)
	}

	b.WriteString("\nIs the incoming record the same product as one of the " +
		"numbered candidates? Variations in size or packaging still count as " +
		"the same product.\n" +
		`Answer with JSON: {"match": <index or null>, "confidence": <0..1>}`)
	return b.String()
}

// parsePick tolerates the fenced code blocks some models wrap JSON in.
func parsePick(content string, candidateCount int) (matching.Pick, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed pickResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return matching.Pick{}, errors.Wrap(errors.CodeDependency, err, "inference: malformed completion")
	}
	if parsed.Match == nil || *parsed.Match < 0 || *parsed.Match >= candidateCount {
		return matching.Pick{Index: -1}, nil
	}
	return matching.Pick{Index: *parsed.Match, Confidence: parsed.Confidence}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
