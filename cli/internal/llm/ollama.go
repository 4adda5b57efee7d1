package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	// DefaultOllamaURL is used when OLLAMA_HOST is unset.
	DefaultOllamaURL = "http://localhost:11434"

	_ollamaCheckTimeout = 10 * time.Second
)

// ErrUnreachable indicates the Ollama server could not be reached (connection refused, timeout, or non-2xx).
var ErrUnreachable = errors.New("ollama server unreachable")

// Ollama calls a local Ollama server. Zero value is not valid; use NewOllama.
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

// CheckResult is the result of a health/model check.
type CheckResult struct {
	Reachable    bool     // Server responded with 200.
	ModelPresent bool     // Requested model name appears in the tags list.
	ModelNames   []string // All model names from /api/tags (for diagnostics).
}

// NewOllama builds an Ollama client. baseURL is the API root (e.g. http://localhost:11434);
// a bare host:port from OLLAMA_HOST gets an http:// scheme. If httpClient is nil,
// http.DefaultClient is used and requests are bounded by their context.
func NewOllama(baseURL string, httpClient *http.Client) *Ollama {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Ollama{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Check verifies the server is reachable and whether model is present.
// It GETs /api/tags. Connection and HTTP failures wrap ErrUnreachable.
func (c *Ollama) Check(ctx context.Context, model string) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, _ollamaCheckTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: %w: HTTP %d", ErrUnreachable, resp.StatusCode)
	}
	var body tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama tags: parse response: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		names = append(names, m.Name)
	}
	return &CheckResult{
		Reachable:    true,
		ModelPresent: slices.Contains(names, model),
		ModelNames:   names,
	}, nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Complete POSTs a non-streaming request to /api/generate and returns the reply text.
func (c *Ollama) Complete(ctx context.Context, model string, r Request) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  model,
		System: r.System,
		Prompt: r.User,
		Options: generateOptions{
			Temperature: r.Temperature,
			NumPredict:  r.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ollama generate: %w", ctx.Err())
		}
		return "", fmt.Errorf("ollama generate: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama generate: %w", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))})
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama generate: parse response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", out.Error)
	}
	return out.Response, nil
}
