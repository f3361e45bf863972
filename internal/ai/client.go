// Package ai is a thin, provider-neutral layer over the generative model
// APIs used by the label pipeline. Callers build a Request; providers turn
// it into a Gemini or OpenAI-compatible call and return the raw text.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Image is an inline image attached to a request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is one single-turn generation.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Image       *Image
	JSON        bool    // ask the provider for a JSON object response
	Temperature float32 // zero leaves the provider default
}

// Usage reports token counts when the provider returns them.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is the text produced by the model.
type Response struct {
	Text  string
	Usage Usage
}

// Client generates text. Implementations must honour ctx cancellation and
// be safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("empty response from model")

// StatusError is a non-2xx answer from a provider API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: request failed (status: %d): %s", e.Provider, e.Code, e.Body)
}

// IsPermanent reports whether retrying err cannot help: bad requests and
// auth failures. Timeouts, throttling and 5xx are transient.
func IsPermanent(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusUnprocessableEntity:
			return true
		}
	}
	return false
}

// ExtractJSON returns the outermost JSON object in text, tolerating markdown
// fences and prose around it.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %.200s", text)
	}
	return text[start : end+1], nil
}

// DecodeJSON extracts the JSON object from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	s, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}
