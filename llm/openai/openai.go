// Package openai implements the LLM capability against an OpenAI compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/juju/errors"

	"github.com/warriorguo/hyperbuild/types"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	chatCompletionsEndpoint = "/chat/completions"
)

var (
	_ types.LLM = &Client{}
)

type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New reads OPENAI_API_KEY, OPENAI_API_BASE_URL and OPENAI_MODEL; the With
// methods override them.
func New() *Client {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

func (c *Client) WithAPIKey(apiKey string) *Client {
	c.apiKey = apiKey
	return c
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = baseURL
	}
	return c
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.client = client
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, prompt *types.Prompt) (string, error) {
	if c.apiKey == "" {
		return "", errors.Unauthorizedf("API key is not set")
	}

	req := &chatRequest{Model: c.model}
	if prompt.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: prompt.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt.User})
	if prompt.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Trace(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.baseURL, "/")+chatCompletionsEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Trace(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.Annotatef(err, "chat completion request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Annotatef(err, "read chat completion")
	}

	out := &chatResponse{}
	if err := json.Unmarshal(b, out); err != nil {
		return "", errors.Annotatef(err, "decode chat completion (%s)", resp.Status)
	}
	if out.Error != nil {
		return "", errors.Errorf("chat completion failed: %s: %s", out.Error.Type, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("chat completion failed: %s", resp.Status)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in chat completion")
	}
	return out.Choices[0].Message.Content, nil
}
