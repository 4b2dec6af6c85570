// Package textgen produces structured JSON from a chat model under a strict schema.
package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"storyreel/config"
)

// Generator is what prompt construction depends on
type Generator interface {
	Generate(ctx context.Context, system, user, name string, schema any, out any) error
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() any {
	// Structured Outputs uses a subset of JSON schema
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	client      openai.Client
	model       string
	temperature float64
}

func New(cfg config.TextConfig, opts ...option.RequestOption) (*Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", cfg.APIKeyEnv)
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:      openai.NewClient(append(base, opts...)...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate asks for a response matching schema and decodes it into out
func (c *Client) Generate(ctx context.Context, system, user, name string, schema any, out any) error {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return fmt.Errorf("no response from OpenAI")
	}

	raw := cleanJSON(chatCompletion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w\nraw content: %s", name, err, raw[:min(200, len(raw))])
	}
	return nil
}

// Structured is the typed form of Generator.Generate
func Structured[T any](ctx context.Context, g Generator, system, user, name string) (*T, error) {
	var out T
	if err := g.Generate(ctx, system, user, name, GenerateSchema[T](), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// cleanJSON strips markdown fences if the model wraps the response in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
