// Package llm is the generative-service client used by the enrichment stages.
// It builds ADK model.LLM instances per model id, resolves fallback chains and
// decodes strict JSON replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"venue_enrichment_backend/platform/ai/moonshot"
	"venue_enrichment_backend/platform/config"
)

// ErrEmptyReply is returned when the model yields no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

// Request is a single-turn prompt.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for application/json output. Ignored when Search is set,
	// since grounded Gemini calls reject a response MIME type.
	JSON bool
	// Search attaches the Google Search grounding tool (Gemini only).
	Search      bool
	Temperature *float32
}

// Generator produces text for a prompt on a named model.
type Generator interface {
	Generate(ctx context.Context, modelName string, req Request) (string, error)
}

// ModelFactory builds a model.LLM for a model id.
type ModelFactory func(ctx context.Context, modelName string) (model.LLM, error)

// GeminiFactory returns a factory backed by google.golang.org/adk/model/gemini.
func GeminiFactory(apiKey string) ModelFactory {
	return func(ctx context.Context, modelName string) (model.LLM, error) {
		return gemini.NewModel(ctx, modelName, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	}
}

// MoonshotFactory returns a factory backed by the Moonshot adapter.
func MoonshotFactory(apiKey, baseURL string) ModelFactory {
	return func(_ context.Context, modelName string) (model.LLM, error) {
		return moonshot.NewModel(moonshot.Config{
			APIKey:          apiKey,
			BaseURL:         baseURL,
			Model:           modelName,
			DisableThinking: true,
		}), nil
	}
}

// FactoryFromConfig picks the provider configured by AI_PROVIDER.
func FactoryFromConfig(cfg config.AIConfig) (ModelFactory, error) {
	switch cfg.GetAIProvider() {
	case "gemini":
		return GeminiFactory(cfg.GetGeminiAPIKey()), nil
	case "moonshot":
		return MoonshotFactory(cfg.GetMoonshotAPIKey(), cfg.GetMoonshotBaseURL()), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.GetAIProvider())
	}
}

// Client caches one model.LLM per model id.
type Client struct {
	factory ModelFactory

	mu     sync.Mutex
	models map[string]model.LLM
}

func NewClient(factory ModelFactory) *Client {
	return &Client{
		factory: factory,
		models:  make(map[string]model.LLM),
	}
}

func (c *Client) model(ctx context.Context, modelName string) (model.LLM, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[modelName]; ok {
		return m, nil
	}
	m, err := c.factory(ctx, modelName)
	if err != nil {
		return nil, classify(modelName, err)
	}
	c.models[modelName] = m
	return m, nil
}

// Generate sends req to modelName and returns the concatenated reply text.
// Provider errors are wrapped in *ModelError.
func (c *Client) Generate(ctx context.Context, modelName string, req Request) (string, error) {
	m, err := c.model(ctx, modelName)
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	llmReq := &model.LLMRequest{
		Model:    modelName,
		Contents: []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		Config:   cfg,
	}

	var out strings.Builder
	for resp, err := range m.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return "", classify(modelName, err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			out.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", &ModelError{Model: modelName, Err: ErrEmptyReply}
	}
	return text, nil
}
