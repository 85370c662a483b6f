package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/minios-linux/transync/translate"
)

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	jsonMode    bool
}

// NewOpenAI creates a chat-completions translator for p. An empty API key
// is allowed for local servers.
func NewOpenAI(p Provider) (*OpenAI, error) {
	if p.Model == "" {
		return nil, fmt.Errorf("%s: no model configured", p.Name)
	}
	cfg := openai.DefaultConfig(p.APIKey)
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	cfg.HTTPClient = makeHTTPClient(p.Proxy, p.Timeout)
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       p.Model,
		temperature: p.Temperature,
		jsonMode:    p.ID != ProviderOllama,
	}, nil
}

// Translate sends req as one chat completion and parses the JSON answer.
func (o *OpenAI) Translate(ctx context.Context, req translate.Request) (translate.Response, error) {
	system, user := translate.BuildPrompt(req)
	chat := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: o.temperature,
	}
	if o.jsonMode {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return nil, openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &translate.MalformedError{Err: errors.New("no choices in response")}
	}
	return translate.ParseResponse(resp.Choices[0].Message.Content, req)
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &translate.QuotaError{Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &translate.QuotaError{Err: err}
	}
	return fmt.Errorf("OpenAI API error: %w", err)
}
