package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	lerrors "lingo/lingo/errors"
	httputils "lingo/lingo/utils/http"
	"lingo/lingo/utils/logging"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// GPTClient talks to any OpenAI-compatible chat completions endpoint.
type GPTClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

func NewGPTClient(baseURL, apiKey, model string, temperature float64) *GPTClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &GPTClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		// no client timeout: a stream lasts as long as the provider keeps it open
		httpClient: &http.Client{},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *GPTClient) WithHTTPClient(hc *http.Client) *GPTClient {
	c.httpClient = hc
	return c
}

// StreamTranslate opens a streaming completion and hands back the raw
// line-framed body. Reading and closing it is up to the caller.
func (c *GPTClient) StreamTranslate(ctx context.Context, systemPrompt, content string) (io.ReadCloser, error) {
	defer logging.LogDuration(ctx, "gpt_stream_open")()

	req := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Temperature: c.temperature,
		Stream:      true,
	}
	body, err := httputils.PostStreamWithAuth(ctx, c.httpClient, c.baseURL+"/chat/completions", c.apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lerrors.ErrProvider, err)
	}
	return body, nil
}
