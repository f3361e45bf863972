package ai

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/go-resty/resty/v2"
)

// OpenAI calls any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	http *resty.Client
}

// OpenAIOpts configures an OpenAI client.
type OpenAIOpts struct {
	BaseURL string // e.g. https://api.openai.com/v1
	APIKey  string
}

// NewOpenAI builds a client. Retries are left to the caller.
func NewOpenAI(opts OpenAIOpts) *OpenAI {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	c := resty.New().
		SetBaseURL(base).
		SetRetryCount(0).
		SetHeaders(map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		})
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}
	return &OpenAI{http: c}
}

// Name implements Client.
func (o *OpenAI) Name() string { return "openai" }

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float32          `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate implements Client.
func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	body := chatRequest{Model: req.Model}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.Image != nil {
		url := "data:" + req.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: []chatPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &chatImageURL{URL: url}},
		}})
	} else {
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	}
	if req.JSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}

	result := &chatResponse{}
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &StatusError{Provider: "openai", Code: res.StatusCode(), Body: truncate(res.String(), 300)}
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{
		Text: result.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
