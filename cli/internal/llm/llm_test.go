package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDetectProvider(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		env   map[string]string
		model string
		want  string
	}{
		{"openai", map[string]string{"OPENAI_API_KEY": "sk"}, "", "openai"},
		{"openai_beats_anthropic", map[string]string{"ANTHROPIC_API_KEY": "a", "OPENAI_API_KEY": "o"}, "", "openai"},
		{"anthropic", map[string]string{"ANTHROPIC_API_KEY": "a", "COHERE_API_KEY": "c"}, "", "anthropic"},
		{"cohere", map[string]string{"COHERE_API_KEY": "c"}, "", "cohere"},
		{"azure", map[string]string{"AZURE_API_KEY": "z"}, "", "azure"},
		{"gemini_key", map[string]string{"GEMINI_API_KEY": "g"}, "", "gemini"},
		{"google_key", map[string]string{"GOOGLE_API_KEY": "g"}, "", "gemini"},
		{"gemini_model", nil, "Gemini/gemini-pro", "gemini"},
		{"ollama_host", map[string]string{"OLLAMA_HOST": "localhost:11434"}, "llama3.2", "ollama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DetectProvider(envMap(tt.env), tt.model)
			if err != nil {
				t.Fatalf("DetectProvider: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectProvider = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectProvider_none(t *testing.T) {
	t.Parallel()
	_, err := DetectProvider(envMap(nil), "gpt-4o")
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
	if ge.Kind != KindSetup {
		t.Errorf("Kind = %v, want setup", ge.Kind)
	}
	if !strings.Contains(ge.Error(), "No LLM provider API key configured") {
		t.Errorf("Error() = %q", ge.Error())
	}
	if !strings.Contains(ge.Hint(), "OPENAI_API_KEY") {
		t.Errorf("Hint() = %q", ge.Hint())
	}
}

func TestResolveModel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		provider, model, want string
	}{
		{"openai", "", "gpt-4o-mini"},
		{"anthropic", "", "claude-haiku-4-5"},
		{"cohere", "", "command-light"},
		{"azure", "", "gpt-4o-mini"},
		{"gemini", "", "gemini/gemini-flash-lite-latest"},
		{"openai", "gpt-4o", "gpt-4o"},
		{"ollama", "llama3.2", "llama3.2"},
	}
	for _, tt := range tests {
		got, err := ResolveModel(tt.provider, tt.model)
		if err != nil {
			t.Errorf("ResolveModel(%q, %q): %v", tt.provider, tt.model, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveModel(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
	for _, p := range []string{"ollama", "huggingface", "bogus"} {
		if _, err := ResolveModel(p, ""); err == nil {
			t.Errorf("ResolveModel(%q, \"\") want error", p)
		}
	}
}

func TestKeyVars(t *testing.T) {
	t.Parallel()
	vars := KeyVars(envMap(map[string]string{"GOOGLE_API_KEY": "g"}))
	set := 0
	for _, v := range vars {
		if v.Set {
			set++
			if v.Provider != "gemini" || v.Name != "GOOGLE_API_KEY" {
				t.Errorf("unexpected set var %+v", v)
			}
		}
	}
	if set != 1 {
		t.Errorf("set = %d, want 1", set)
	}
}

func chatServer(t *testing.T, status int, body string, check func(r *http.Request, body string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if check != nil {
			check(r, string(raw))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const chatOK = `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"  feat: add login \n"},"finish_reason":"stop"}]}`

func TestClient_Generate_openAICompatible(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth, gotBody, gotUA string
	srv := chatServer(t, http.StatusOK, chatOK, func(r *http.Request, body string) {
		gotPath, gotAuth, gotBody, gotUA = r.URL.Path, r.Header.Get("Authorization"), body, r.Header.Get("User-Agent")
	})
	c, err := New(Settings{
		Provider: "gemini",
		Timeout:  5,
		Getenv: envMap(map[string]string{
			"GEMINI_API_KEY":  "secret",
			"GEMINI_API_BASE": srv.URL + "/v1",
		}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Model != "gemini/gemini-flash-lite-latest" {
		t.Errorf("Model = %q", c.Model)
	}
	got, err := c.Generate(context.Background(), Request{System: "sys", User: "usr", Temperature: 0.5, MaxTokens: 64})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "feat: add login" {
		t.Errorf("Generate = %q, want trimmed reply", got)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.HasPrefix(gotUA, "gitmsg/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
	for _, want := range []string{`"model":"gemini-flash-lite-latest"`, `"content":"sys"`, `"content":"usr"`, `"max_tokens":64`} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("request body missing %s: %s", want, gotBody)
		}
	}
}

func TestClient_Generate_errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, KindAuth},
		{"rate_limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`, KindRateLimit},
		{"server_error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, KindGeneric},
		{"empty_reply", http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"   "}}]}`, KindEmpty},
		{"no_choices", http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[]}`, KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := chatServer(t, tt.status, tt.body, nil)
			cfg := openai.DefaultConfig("k")
			cfg.BaseURL = srv.URL
			c := NewWithBackend("openai", "gpt-4o-mini", 5, NewOpenAI(cfg))
			_, err := c.Generate(context.Background(), Request{System: "s", User: "u"})
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("err = %v, want *GenerationError", err)
			}
			if ge.Kind != tt.want {
				t.Errorf("Kind = %v, want %v (err %v)", ge.Kind, tt.want, ge.Err)
			}
		})
	}
}

func TestClient_Generate_timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()
	c := NewWithBackend("ollama", "llama3.2", 1, NewOllama(srv.URL, nil))
	_, err := c.Generate(context.Background(), Request{User: "u"})
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Kind != KindTimeout {
		t.Fatalf("err = %v, want timeout GenerationError", err)
	}
	if !strings.Contains(ge.Error(), "1 seconds") {
		t.Errorf("Error() = %q", ge.Error())
	}
	if !strings.Contains(ge.Hint(), "GITMSG_TIMEOUT=2") {
		t.Errorf("Hint() = %q", ge.Hint())
	}
}

type stubBackend struct {
	reply string
	err   error
}

func (s stubBackend) Complete(context.Context, string, Request) (string, error) {
	return s.reply, s.err
}

func TestClient_Generate_parentCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewWithBackend("openai", "m", 30, stubBackend{err: fmt.Errorf("request: %w", context.Canceled)})
	_, err := c.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		t.Error("cancellation should not be classified")
	}
}

func TestNew_setupErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		s    Settings
	}{
		{"no_provider", Settings{}},
		{"missing_key", Settings{Provider: "anthropic"}},
		{"azure_without_base", Settings{Provider: "azure", Getenv: envMap(map[string]string{"AZURE_API_KEY": "k"})}},
		{"ollama_without_model", Settings{Provider: "ollama"}},
		{"unknown_provider", Settings{Provider: "bedrock", Model: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.s)
			var ge *GenerationError
			if !errors.As(err, &ge) || ge.Kind != KindSetup {
				t.Fatalf("err = %v, want setup GenerationError", err)
			}
		})
	}
}

func TestNew_ollamaFromHost(t *testing.T) {
	t.Parallel()
	c, err := New(Settings{Model: "llama3.2", Getenv: envMap(map[string]string{"OLLAMA_HOST": "127.0.0.1:11434"})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Provider != "ollama" {
		t.Errorf("Provider = %q", c.Provider)
	}
	o, ok := c.backend.(*Ollama)
	if !ok {
		t.Fatalf("backend = %T, want *Ollama", c.backend)
	}
	if o.baseURL != "http://127.0.0.1:11434" {
		t.Errorf("baseURL = %q", o.baseURL)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want Kind
	}{
		{errors.New("Invalid API key"), KindAuth},
		{errors.New("AuthenticationError: bad token"), KindAuth},
		{errors.New("request timed out"), KindTimeout},
		{fmt.Errorf("post: %w", context.DeadlineExceeded), KindTimeout},
		{errors.New("Rate limit reached for requests"), KindRateLimit},
		{errors.New("dial tcp: connection refused"), KindNetwork},
		{fmt.Errorf("x: %w", ErrUnreachable), KindNetwork},
		{&openai.APIError{HTTPStatusCode: http.StatusForbidden, Message: "nope"}, KindAuth},
		{&openai.RequestError{HTTPStatusCode: http.StatusGatewayTimeout, Err: errors.New("bad gateway")}, KindTimeout},
		{errors.New("something odd"), KindGeneric},
	}
	for _, tt := range tests {
		err := Classify(tt.err, "openai", 30)
		var ge *GenerationError
		if !errors.As(err, &ge) {
			t.Errorf("Classify(%v) = %v, want *GenerationError", tt.err, err)
			continue
		}
		if ge.Kind != tt.want {
			t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, ge.Kind, tt.want)
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("Classify(%v) should wrap the cause", tt.err)
		}
	}
	if Classify(nil, "openai", 30) != nil {
		t.Error("Classify(nil) should be nil")
	}
	if err := Classify(context.Canceled, "openai", 30); err != context.Canceled {
		t.Errorf("Classify(Canceled) = %v", err)
	}
}

func TestGenerationError_genericHint(t *testing.T) {
	t.Parallel()
	e := &GenerationError{Kind: KindGeneric, Err: errors.New("x")}
	if !strings.Contains(e.Hint(), "Provider status page") {
		t.Errorf("Hint() = %q", e.Hint())
	}
	if e.Error() != "Failed to generate commit message" {
		t.Errorf("Error() = %q", e.Error())
	}
}
