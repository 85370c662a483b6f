package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/minios-linux/transync/translate"
)

// Gemini calls the Google AI generateContent API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini translator for p.
func NewGemini(ctx context.Context, p Provider) (*Gemini, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", p.Name, ErrNoAPIKey)
	}
	cfg := &genai.ClientConfig{
		APIKey:     p.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: makeHTTPClient(p.Proxy, p.Timeout),
	}
	if p.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &Gemini{client: client, model: p.Model, temperature: p.Temperature}, nil
}

// Translate sends req as one generateContent call and parses the JSON
// answer.
func (g *Gemini) Translate(ctx context.Context, req translate.Request) (translate.Response, error) {
	system, user := translate.BuildPrompt(req)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	})
	if err != nil {
		return nil, geminiError(err)
	}
	return translate.ParseResponse(resp.Text(), req)
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return &translate.QuotaError{Err: err}
	}
	return fmt.Errorf("Gemini API error: %w", err)
}
