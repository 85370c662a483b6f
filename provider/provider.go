// Package provider implements translate.Translator on top of hosted
// text-generation services: Google AI (Gemini) through the genai SDK, any
// OpenAI-compatible chat endpoint (OpenAI, Groq, Ollama, custom) through
// go-openai, and an offline backend that never answers.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/minios-linux/transync/translate"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle       = "google"
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
	ProviderOffline      = "offline"
)

// ErrNoAPIKey is returned when a hosted provider has no API key.
var ErrNoAPIKey = errors.New("no API key configured")

// ErrUnknownProvider is returned for an unrecognized provider ID.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider holds the configuration for a text-generation service.
type Provider struct {
	// ID is the provider identifier (google, openai, groq, ...).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL; empty uses the SDK default.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
	// Temperature is the sampling temperature.
	Temperature float32
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:          ProviderGoogle,
			Name:        "Google AI (Gemini)",
			Model:       "gemini-2.5-flash-lite",
			Timeout:     120 * time.Second,
			Temperature: 0.3,
		},
		ProviderOpenAI: {
			ID:          ProviderOpenAI,
			Name:        "OpenAI",
			Model:       "gpt-4o-mini",
			Timeout:     120 * time.Second,
			Temperature: 0.3,
		},
		ProviderGroq: {
			ID:          ProviderGroq,
			Name:        "Groq",
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Timeout:     60 * time.Second,
			Temperature: 0.3,
		},
		ProviderOllama: {
			ID:          ProviderOllama,
			Name:        "Ollama",
			BaseURL:     "http://localhost:11434/v1",
			Model:       "llama3.1",
			Timeout:     300 * time.Second,
			Temperature: 0.3,
		},
		ProviderCustomOpenAI: {
			ID:          ProviderCustomOpenAI,
			Name:        "Custom OpenAI",
			Timeout:     60 * time.Second,
			Temperature: 0.3,
		},
		ProviderOffline: {
			ID:   ProviderOffline,
			Name: "Offline (no translation)",
		},
	}
}

// IDs returns the known provider IDs, sorted.
func IDs() []string {
	var ids []string
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve fills the zero fields of p from the defaults for p.ID.
func Resolve(p Provider) (Provider, error) {
	def, ok := DefaultProviders()[p.ID]
	if !ok {
		return p, fmt.Errorf("%w %q (known: %v)", ErrUnknownProvider, p.ID, IDs())
	}
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.BaseURL == "" {
		p.BaseURL = def.BaseURL
	}
	if p.Model == "" {
		p.Model = def.Model
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.Temperature == 0 {
		p.Temperature = def.Temperature
	}
	return p, nil
}

// Options configures New.
type Options struct {
	// Breaker enables the circuit breaker around hosted providers.
	Breaker bool
	// OnLog emits log messages.
	OnLog func(format string, args ...any)
}

// New builds the translator for p. Hosted providers are wrapped in a
// circuit breaker when opts.Breaker is set.
func New(ctx context.Context, p Provider, opts Options) (translate.Translator, error) {
	p, err := Resolve(p)
	if err != nil {
		return nil, err
	}

	var tr translate.Translator
	switch p.ID {
	case ProviderOffline:
		return Offline{}, nil
	case ProviderGoogle:
		tr, err = NewGemini(ctx, p)
	case ProviderOllama:
		tr, err = NewOpenAI(p)
	default:
		if p.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrNoAPIKey)
		}
		if p.BaseURL == "" && p.ID == ProviderCustomOpenAI {
			return nil, fmt.Errorf("%s: base URL is required", p.Name)
		}
		tr, err = NewOpenAI(p)
	}
	if err != nil {
		return nil, err
	}
	if opts.Breaker {
		tr = NewBreaker(p.Name, tr, BreakerSettings{OnLog: opts.OnLog})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// Offline
// ---------------------------------------------------------------------------

// Offline never returns candidates, so every key resolves through the
// fallback rules.
type Offline struct{}

// Translate returns an empty response.
func (Offline) Translate(ctx context.Context, req translate.Request) (translate.Response, error) {
	return translate.Response{}, ctx.Err()
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
