package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/dramaturge/dramaturge/pkg/parsing"
)

// maxAttempts bounds transient-failure retries per completion call.
const maxAttempts = 3

// AnyLLM implements Client on top of github.com/mozilla-ai/any-llm-go.
type AnyLLM struct {
	backend  anyllmlib.Provider
	provider string
	model    string
}

// New creates a client for the named provider and model. providerName is
// one of: openai, anthropic, gemini, ollama, deepseek, mistral, groq,
// llamacpp, llamafile. Without an explicit API key option, the backend
// reads the provider's conventional environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*AnyLLM, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llm: provider name must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", providerName, err)
	}
	return &AnyLLM{backend: backend, provider: providerName, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", providerName)
	}
}

// Complete implements Client.
func (a *AnyLLM) Complete(ctx context.Context, req Request) (string, error) {
	params := a.buildParams(req)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := a.backend.Completion(ctx, params)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			slog.Warn("LLM completion attempt failed",
				"provider", a.provider,
				"model", a.model,
				"attempt", attempt,
				"error", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty choices in response")
			continue
		}
		return resp.Choices[0].Message.ContentString(), nil
	}
	return "", &CallError{Provider: a.provider, Model: a.model, Err: lastErr}
}

// CompleteStructured implements Client. The schema derived from out's type
// is appended to the user prompt; the response is parsed tolerantly, with
// one corrective retry before giving up.
func (a *AnyLLM) CompleteStructured(ctx context.Context, req Request, out any) error {
	schemaText, err := SchemaText(out)
	if err != nil {
		return &StructureError{Provider: a.provider, Model: a.model, Err: err}
	}

	structured := req
	structured.User = req.User + formatInstructions(schemaText)
	structured.JSONMode = true

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		text, err := a.Complete(ctx, structured)
		if err != nil {
			return &StructureError{Provider: a.provider, Model: a.model, Err: err}
		}
		if err := parsing.ParseInto(text, out); err != nil {
			lastErr = err
			slog.Warn("Structured completion parse failed",
				"provider", a.provider,
				"model", a.model,
				"attempt", attempt,
				"error", err)
			continue
		}
		return nil
	}
	return &StructureError{Provider: a.provider, Model: a.model, Err: lastErr}
}

func (a *AnyLLM) buildParams(req Request) anyllmlib.CompletionParams {
	var messages []anyllmlib.Message
	if req.System != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.System,
		})
	}
	user := req.User
	if req.JSONMode {
		user += "\n\nRespond with valid JSON only. No prose, no code fences."
	}
	messages = append(messages, anyllmlib.Message{
		Role:    "user",
		Content: user,
	})

	params := anyllmlib.CompletionParams{
		Model:    a.model,
		Messages: messages,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}
