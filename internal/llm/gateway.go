package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nbenliogludev/go-nav-guide/internal/credentials"
)

const (
	BackendGroq   = "groq"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"

	DefaultBackend = BackendGroq
)

// BackendFactory builds a backend for one call with an already resolved key.
type BackendFactory func(ctx context.Context, apiKey string) (Backend, error)

// CredentialSource is the read side of the credential store.
type CredentialSource interface {
	Key(ctx context.Context, backend string) (credentials.Credential, error)
	SelectedBackend(ctx context.Context) (string, bool, error)
}

// DefaultFactories wires the known backends. models overrides the model
// name per backend.
func DefaultFactories(models map[string]string) map[string]BackendFactory {
	return map[string]BackendFactory{
		BackendGroq: func(_ context.Context, apiKey string) (Backend, error) {
			return NewChatBackend(ChatConfig{
				Name:    BackendGroq,
				APIKey:  apiKey,
				Model:   orDefault(models[BackendGroq], DefaultGroqModel),
				BaseURL: GroqBaseURL,
			}), nil
		},
		BackendOpenAI: func(_ context.Context, apiKey string) (Backend, error) {
			return NewChatBackend(ChatConfig{
				Name:   BackendOpenAI,
				APIKey: apiKey,
				Model:  models[BackendOpenAI],
			}), nil
		},
		BackendGemini: func(ctx context.Context, apiKey string) (Backend, error) {
			return NewGeminiBackend(ctx, apiKey, models[BackendGemini])
		},
	}
}

// Gateway resolves the selected backend and its key from the store on every
// call, then forwards the prompt untouched.
type Gateway struct {
	store          CredentialSource
	factories      map[string]BackendFactory
	defaultBackend string
	logger         *slog.Logger
}

func NewGateway(store CredentialSource, factories map[string]BackendFactory, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		store:          store,
		factories:      factories,
		defaultBackend: DefaultBackend,
		logger:         logger,
	}
}

func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	backend, err := g.selected(ctx)
	if err != nil {
		return "", err
	}

	cred, err := g.store.Key(ctx, backend)
	if err != nil {
		return "", fmt.Errorf("read credential for %s: %w", backend, err)
	}
	if !cred.Present() {
		return "", &MissingCredentialError{Backend: backend}
	}

	factory, ok := g.factories[backend]
	if !ok {
		return "", &InvocationError{Backend: backend, Err: ErrUnknownBackend}
	}

	client, err := factory(ctx, cred.APIKey)
	if err != nil {
		return "", &InvocationError{Backend: backend, Err: err}
	}

	start := time.Now()
	text, err := client.Generate(ctx, prompt)
	elapsed := time.Since(start)

	if err != nil {
		modelCalls.WithLabelValues(backend, "error").Inc()
		g.logger.Warn("model invocation failed", "backend", backend, "duration", elapsed, "error", err)
		return "", &InvocationError{Backend: backend, Err: err}
	}

	modelCalls.WithLabelValues(backend, "ok").Inc()
	modelLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
	g.logger.Debug("model responded", "backend", backend, "duration", elapsed, "chars", len(text))

	return text, nil
}

func (g *Gateway) selected(ctx context.Context) (string, error) {
	backend, ok, err := g.store.SelectedBackend(ctx)
	if err != nil {
		return "", fmt.Errorf("read selected backend: %w", err)
	}
	if !ok || backend == "" {
		return g.defaultBackend, nil
	}
	return backend, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
