package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Completer is the AI gateway: one prompt in, raw model text out.
// Implementations send the study system prompt, never retry, and report
// every failure as an error matching ErrInferenceFailure.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIGateway calls any OpenAI-compatible chat-completion endpoint (Groq by default).
type OpenAIGateway struct {
	client      *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
}

// NewOpenAIGateway builds a gateway from cfg. A missing API key is not an error here;
// the provider rejects the call and the caller sees an InferenceError.
func NewOpenAIGateway(cfg Config) *OpenAIGateway {
	oc := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMAPIBase != "" {
		oc.BaseURL = cfg.LLMAPIBase
	}
	oc.HTTPClient = cfg.HTTPClient
	if oc.HTTPClient == nil {
		timeout := cfg.LLMTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		oc.HTTPClient = &http.Client{Timeout: timeout}
	}
	topP := cfg.LLMTopP
	if topP <= 0 {
		topP = 1
	}
	return &OpenAIGateway{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.LLMModel,
		temperature: float32(cfg.LLMTemperature),
		topP:        float32(topP),
		maxTokens:   cfg.LLMMaxTokens,
	}
}

// Complete sends prompt as the user message and returns choices[0].message.content.
func (g *OpenAIGateway) Complete(ctx context.Context, prompt string) (string, error) {
	metrics.LLMCalls.Add(1)
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: studySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		TopP:        g.topP,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", inferenceFailed(normalizeOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", inferenceFailed(&InferenceError{Detail: "response has no choices"})
	}
	return resp.Choices[0].Message.Content, nil
}

func normalizeOpenAIError(err error) *InferenceError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &InferenceError{StatusCode: apiErr.HTTPStatusCode, Detail: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &InferenceError{StatusCode: reqErr.HTTPStatusCode, Detail: err.Error(), Err: err}
	}
	return &InferenceError{Detail: err.Error(), Err: err}
}

// CompleteFunc matches go-kit's llm.Client.Complete with its chat options bound.
type CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

// KitGateway adapts a go-kit llm client, which rotates through fallback API keys.
type KitGateway struct {
	complete CompleteFunc
}

func NewKitGateway(fn CompleteFunc) *KitGateway {
	return &KitGateway{complete: fn}
}

func (g *KitGateway) Complete(ctx context.Context, prompt string) (string, error) {
	metrics.LLMCalls.Add(1)
	raw, err := g.complete(ctx, studySystemPrompt, prompt)
	if err != nil {
		var ie *InferenceError
		if !errors.As(err, &ie) {
			ie = &InferenceError{Detail: err.Error(), Err: err}
		}
		return "", inferenceFailed(ie)
	}
	return raw, nil
}

func inferenceFailed(ie *InferenceError) error {
	metrics.LLMErrors.Add(1)
	slog.Warn("llm: completion failed", slog.Int("status", ie.StatusCode), slog.String("detail", ie.Detail))
	return ie
}

// SummaryPrompt renders the summary-generation prompt. title may be empty.
func SummaryPrompt(transcript, title string) string {
	titleLine := ""
	if title != "" {
		titleLine = fmt.Sprintf(summaryTitleLine, title)
	}
	return fmt.Sprintf(summaryPrompt, titleLine, transcript)
}

// QuestionsPrompt renders the question-generation prompt. excerpt should
// already be cut to the question-prompt budget.
func QuestionsPrompt(n int, summary, excerpt string) string {
	return fmt.Sprintf(questionsPrompt, n, summary, excerpt)
}
