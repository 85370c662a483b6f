package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Credentials are the provider secrets read from the environment.
type Credentials struct {
	APIKey        string `env:"TRANSYNC_API_KEY"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GoogleAPIKey  string `env:"GOOGLE_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	GroqAPIKey    string `env:"GROQ_API_KEY"`

	// stored is the on-disk credential store.
	stored Store
}

// LoadCredentials reads root/.env (when present) into the process
// environment without overriding variables already set, then parses the
// environment. The XDG credential store is consulted last by KeyFor.
func LoadCredentials(root string) (*Credentials, error) {
	if root != "" {
		if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var c Credentials
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.stored = Load()
	return &c, nil
}

// KeyFor returns the API key for providerID, or "" when none is set.
func (c *Credentials) KeyFor(providerID string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	var key string
	switch providerID {
	case "google":
		key = firstNonEmpty(c.GeminiAPIKey, c.GoogleAPIKey)
	case "openai", "custom-openai":
		key = c.OpenAIAPIKey
	case "groq":
		key = c.GroqAPIKey
	}
	if key != "" {
		return key
	}
	if info := c.stored[providerID]; info != nil {
		return info.Key
	}
	return ""
}

// BaseURLFor returns the configured endpoint override for providerID.
func (c *Credentials) BaseURLFor(providerID string) string {
	if (providerID == "openai" || providerID == "custom-openai") && c.OpenAIBaseURL != "" {
		return c.OpenAIBaseURL
	}
	if info := c.stored[providerID]; info != nil {
		return info.BaseURL
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
