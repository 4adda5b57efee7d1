// Package llm is the generation collaborator: it turns a (system, user)
// prompt pair into a reply from a text-generation backend.
//
// Hosted providers (openai, anthropic, cohere, azure, gemini, huggingface)
// are reached through their OpenAI-compatible chat endpoints with go-openai;
// ollama uses its native /api/generate endpoint. Every failure is returned
// as a *GenerationError classified for user guidance.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Request is one generation call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Generator produces a commit message for a prompt pair.
type Generator interface {
	Generate(ctx context.Context, r Request) (string, error)
}

// Completer is one backend transport. Errors are unclassified.
type Completer interface {
	Complete(ctx context.Context, model string, r Request) (string, error)
}

type provider struct {
	name         string
	keyVars      []string
	baseURL      string
	defaultModel string
}

// providers lists backends in auto-detection order.
var providers = []provider{
	{name: "openai", keyVars: []string{"OPENAI_API_KEY"}, defaultModel: "gpt-4o-mini"},
	{name: "anthropic", keyVars: []string{"ANTHROPIC_API_KEY"}, baseURL: "https://api.anthropic.com/v1/", defaultModel: "claude-haiku-4-5"},
	{name: "cohere", keyVars: []string{"COHERE_API_KEY"}, baseURL: "https://api.cohere.ai/compatibility/v1", defaultModel: "command-light"},
	{name: "azure", keyVars: []string{"AZURE_API_KEY"}, defaultModel: "gpt-4o-mini"},
	{name: "gemini", keyVars: []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, baseURL: "https://generativelanguage.googleapis.com/v1beta/openai/", defaultModel: "gemini/gemini-flash-lite-latest"},
	{name: "huggingface", keyVars: []string{"HUGGINGFACE_API_KEY", "HF_TOKEN"}, baseURL: "https://router.huggingface.co/v1"},
	{name: "ollama", keyVars: []string{"OLLAMA_HOST"}},
}

func lookup(name string) (provider, bool) {
	i := slices.IndexFunc(providers, func(p provider) bool { return p.name == name })
	if i < 0 {
		return provider{}, false
	}
	return providers[i], true
}

// KeyVar is one credential environment variable and whether it is set.
type KeyVar struct {
	Provider string
	Name     string
	Set      bool
}

// KeyVars reports every credential variable a provider can be detected from.
func KeyVars(getenv func(string) string) []KeyVar {
	var out []KeyVar
	for _, p := range providers {
		for _, v := range p.keyVars {
			out = append(out, KeyVar{Provider: p.name, Name: v, Set: getenv(v) != ""})
		}
	}
	return out
}

// DetectProvider picks a provider from credential variables in priority
// order: OPENAI_API_KEY, ANTHROPIC_API_KEY, COHERE_API_KEY, AZURE_API_KEY,
// GEMINI_API_KEY or GOOGLE_API_KEY. A model naming gemini selects gemini;
// OLLAMA_HOST selects ollama last.
func DetectProvider(getenv func(string) string, model string) (string, error) {
	for _, p := range providers[:5] {
		for _, v := range p.keyVars {
			if getenv(v) != "" {
				return p.name, nil
			}
		}
	}
	if strings.Contains(strings.ToLower(model), "gemini") {
		return "gemini", nil
	}
	if getenv("OLLAMA_HOST") != "" {
		return "ollama", nil
	}
	return "", &GenerationError{
		Kind: KindSetup,
		msg:  "No LLM provider API key configured.",
		hint: "Set an environment variable for your provider:\n" +
			"  export OPENAI_API_KEY='sk-...'\n" +
			"  export ANTHROPIC_API_KEY='sk-ant-...'\n\n" +
			"Or configure in config.toml:\n" +
			"  provider = 'ollama'\n" +
			"  model = 'llama3.2'",
	}
}

// ResolveModel returns model when set, else the provider's default.
func ResolveModel(providerName, model string) (string, error) {
	if model != "" {
		return model, nil
	}
	if p, ok := lookup(providerName); ok && p.defaultModel != "" {
		return p.defaultModel, nil
	}
	return "", &GenerationError{
		Kind:     KindSetup,
		Provider: providerName,
		msg:      fmt.Sprintf("No default model configured for provider '%s'.", providerName),
		hint: "Please specify a model explicitly:\n" +
			"  export GITMSG_MODEL='<model-name>'\n" +
			"  gitmsg msg --model '<model-name>'\n\n" +
			"Or configure in config.toml:\n" +
			"  model = '<model-name>'",
	}
}

// Settings selects and configures a backend.
type Settings struct {
	Provider   string // "" = detect
	Model      string // "" = provider default
	Timeout    int    // seconds
	Getenv     func(string) string
	HTTPClient *http.Client
	Log        *slog.Logger
}

// Client is a Generator bound to one provider and model.
type Client struct {
	Provider string
	Model    string

	timeout int
	backend Completer
	log     *slog.Logger
}

// New resolves provider and model and builds the matching backend. Base
// URLs can be overridden with <PROVIDER>_API_BASE (AZURE_API_BASE is
// required for azure; AZURE_API_VERSION is honored when set).
func New(s Settings) (*Client, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	log := s.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	name := s.Provider
	if name == "" {
		var err error
		if name, err = DetectProvider(getenv, s.Model); err != nil {
			return nil, err
		}
	}
	p, ok := lookup(name)
	if !ok {
		return nil, &GenerationError{Kind: KindSetup, Provider: name, msg: fmt.Sprintf("Unknown provider '%s'.", name)}
	}
	model, err := ResolveModel(name, s.Model)
	if err != nil {
		return nil, err
	}
	backend, err := newBackend(p, getenv, s.HTTPClient)
	if err != nil {
		return nil, err
	}
	log.Debug("generation backend ready", "provider", name, "model", model)
	return &Client{Provider: name, Model: model, timeout: s.Timeout, backend: backend, log: log}, nil
}

// NewWithBackend binds an existing transport; used by tests and callers with custom endpoints.
func NewWithBackend(providerName, model string, timeout int, backend Completer) *Client {
	return &Client{Provider: providerName, Model: model, timeout: timeout, backend: backend, log: slog.New(slog.DiscardHandler)}
}

func newBackend(p provider, getenv func(string) string, hc *http.Client) (Completer, error) {
	envBase := getenv(strings.ToUpper(p.name) + "_API_BASE")
	if p.name == "ollama" {
		base := getenv("OLLAMA_HOST")
		if envBase != "" {
			base = envBase
		}
		return NewOllama(base, hc), nil
	}

	key := ""
	for _, v := range p.keyVars {
		if key = getenv(v); key != "" {
			break
		}
	}
	if key == "" {
		return nil, &GenerationError{
			Kind:     KindSetup,
			Provider: p.name,
			msg:      fmt.Sprintf("No API key configured for provider '%s'.", p.name),
			hint:     fmt.Sprintf("  export %s='...'", p.keyVars[0]),
		}
	}

	var cfg openai.ClientConfig
	if p.name == "azure" {
		if envBase == "" {
			return nil, &GenerationError{
				Kind:     KindSetup,
				Provider: p.name,
				msg:      "AZURE_API_BASE is not set.",
				hint:     "  export AZURE_API_BASE='https://<resource>.openai.azure.com'",
			}
		}
		cfg = openai.DefaultAzureConfig(key, envBase)
		if v := getenv("AZURE_API_VERSION"); v != "" {
			cfg.APIVersion = v
		}
	} else {
		cfg = openai.DefaultConfig(key)
		switch {
		case envBase != "":
			cfg.BaseURL = envBase
		case p.baseURL != "":
			cfg.BaseURL = p.baseURL
		}
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return NewOpenAI(cfg), nil
}

// Generate calls the backend under the configured timeout. The reply is
// trimmed; an empty reply is a KindEmpty failure. A cancelled parent
// context is returned as context.Canceled.
func (c *Client) Generate(ctx context.Context, r Request) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(c.timeout)*time.Second)
		defer cancel()
	}
	c.log.Debug("generating", "provider", c.Provider, "model", c.Model, "temperature", r.Temperature, "max_tokens", r.MaxTokens)
	start := time.Now()
	out, err := c.backend.Complete(callCtx, wireModel(c.Provider, c.Model), r)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", ctx.Err()
		}
		c.log.Debug("generation failed", "error", err, "elapsed", time.Since(start))
		return "", Classify(err, c.Provider, c.timeout)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &GenerationError{Kind: KindEmpty, Provider: c.Provider, Timeout: c.timeout}
	}
	c.log.Debug("generated", "chars", len(out), "elapsed", time.Since(start))
	return out, nil
}

// wireModel strips a "<provider>/" routing prefix the endpoint does not expect.
func wireModel(providerName, model string) string {
	return strings.TrimPrefix(model, providerName+"/")
}
