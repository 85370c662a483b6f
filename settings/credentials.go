// Package settings resolves provider credentials.
//
// Lookup order for an API key:
//  1. --api-key flag (highest priority)
//  2. TRANSYNC_API_KEY, then the provider variable (GEMINI_API_KEY,
//     OPENAI_API_KEY, GROQ_API_KEY), read from the environment or from a
//     .env file in the project root
//  3. The credential store in the XDG data directory:
//
//	$XDG_DATA_HOME/transync/auth.json  (default: ~/.local/share/transync/)
//
// auth.json is a JSON object keyed by provider ID. File permissions are
// 0600 (owner read/write only).
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	dataDirName = "transync"
	fileName    = "auth.json"
)

// Info is the stored entry for one provider.
type Info struct {
	Key string `json:"key,omitempty"`
	// BaseURL is the endpoint of custom OpenAI-compatible servers.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// IDs returns the stored provider IDs, sorted.
func (s Store) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// dataDir returns the XDG data directory for transync.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	dir, err := dataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, fileName)
}

// Load reads the credential store from disk. A missing or invalid file
// yields an empty store.
func Load() Store {
	path := FilePath()
	if path == "" {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store to disk with 0600 permissions.
func Save(store Store) error {
	path := FilePath()
	if path == "" {
		return fmt.Errorf("cannot determine data directory")
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// SetAPIKey stores an API key (and optional base URL) for a provider.
func SetAPIKey(providerID, key, baseURL string) error {
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL}
	return Save(store)
}

// Remove deletes credentials for a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
