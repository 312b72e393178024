package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when a structured judgment is not a JSON object
var ErrMalformedOutput = errors.New("model output is not a JSON object")

// Format selects how a provider is asked to answer
type Format int

const (
	// FormatText returns the model's reply as written
	FormatText Format = iota
	// FormatStructured asks for JSON mode and requires a JSON object reply
	FormatStructured
)

func (f Format) String() string {
	switch f {
	case FormatStructured:
		return "structured"
	default:
		return "text"
	}
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge sends a prompt and returns the model's answer
	Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// JudgeRequest contains the input for one model call
type JudgeRequest struct {
	// Prompt is the full user prompt
	Prompt string

	// System overrides the provider's default system message
	System string

	// Format controls JSON mode and output validation
	Format Format

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// JudgeResponse contains the model's answer
type JudgeResponse struct {
	// Text is the trimmed reply
	Text string

	// Output holds the extracted JSON object for FormatStructured
	Output json.RawMessage

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "mock", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; judgments default to 0
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   60,
		MaxTokens: 512,
	}
}

// DefaultSystemPrompt frames every judgment
const DefaultSystemPrompt = "You are a careful fact-checking assistant. Answer only from the content you are given."

func systemPrompt(req JudgeRequest) string {
	if req.System != "" {
		return req.System
	}
	return DefaultSystemPrompt
}

// finish builds the response for a raw reply, enforcing the requested format
func finish(req JudgeRequest, reply, model string, tokens int) (*JudgeResponse, error) {
	text := strings.TrimSpace(reply)
	resp := &JudgeResponse{
		Text:       text,
		Model:      model,
		TokensUsed: tokens,
	}
	if req.Format != FormatStructured {
		return resp, nil
	}

	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	resp.Output = obj
	return resp, nil
}

// ExtractJSONObject returns the JSON object in a model reply. Replies that
// wrap the object in prose or code fences fall back to the outermost braces.
func ExtractJSONObject(reply string) (json.RawMessage, error) {
	if obj, ok := asObject(reply); ok {
		return obj, nil
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		if obj, ok := asObject(reply[start : end+1]); ok {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, preview(reply, 120))
}

func asObject(s string) (json.RawMessage, bool) {
	b := bytes.TrimSpace([]byte(s))
	if len(b) == 0 || b[0] != '{' || !json.Valid(b) {
		return nil, false
	}
	return json.RawMessage(b), true
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", s[:n])
}
