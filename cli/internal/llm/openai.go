package llm

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"gitmsg/cli/internal/version"
)

// OpenAI generates through any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds a generator from a go-openai client config. Requests sent
// through an *http.Client carry the gitmsg User-Agent.
func NewOpenAI(cfg openai.ClientConfig) *OpenAI {
	switch hc := cfg.HTTPClient.(type) {
	case nil:
		cfg.HTTPClient = &http.Client{Transport: userAgent{base: http.DefaultTransport}}
	case *http.Client:
		var c http.Client
		if hc != nil {
			c = *hc
		}
		base := c.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.Transport = userAgent{base: base}
		cfg.HTTPClient = &c
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Complete sends one system+user exchange and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, model string, r Request) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.System},
			{Role: openai.ChatMessageRoleUser, Content: r.User},
		},
		Temperature: float32(r.Temperature),
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type userAgent struct {
	base http.RoundTripper
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.UserAgent())
	return u.base.RoundTrip(req)
}
