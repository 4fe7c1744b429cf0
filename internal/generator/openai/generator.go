package openai

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/aryannaik/cellar/internal/generator"
)

type openAIGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, g.options.Model, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: g.options.Prompt(prompt),
	})
}

func (g *openAIGenerator) GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	model := g.options.VisionModel
	if model == "" {
		model = g.options.Model
	}
	return g.complete(ctx, model, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: g.options.Prompt(prompt)},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	})
}

func (g *openAIGenerator) complete(ctx context.Context, model string, msg openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: g.options.MaxTokens,
		Messages:  []openai.ChatCompletionMessage{msg},
	}
	if g.options.JSONOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", generator.ErrNoResponse
	}

	return rsp.Choices[0].Message.Content, nil
}

func NewGenerator(opts ...generator.Option) generator.VisionGenerator {
	options := generator.NewOptions(opts...)

	cfg := openai.DefaultConfig(options.ApiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: options.Timeout}

	return &openAIGenerator{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}
}
