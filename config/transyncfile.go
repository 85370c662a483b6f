// Package config handles .transync.yaml project configuration.
//
// Values are layered: built-in defaults, then .transync.yaml in the project
// root, then TRANSYNC_* environment variables (TRANSYNC_CHUNK_SIZE,
// TRANSYNC_LANGUAGES=en,ru, ...). Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/transync/extract"
	"github.com/minios-linux/transync/locale"
	"github.com/minios-linux/transync/merge"
	"github.com/minios-linux/transync/policy"
	"github.com/minios-linux/transync/provider"
	"github.com/minios-linux/transync/store"
	"github.com/minios-linux/transync/translate"
)

// FileName is the default config file name.
const FileName = ".transync.yaml"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .transync.yaml structure.
type File struct {
	// Languages are the target languages.
	Languages []string `mapstructure:"languages" yaml:"languages"`
	// SourceLang is the reference language (default "en").
	SourceLang string `mapstructure:"source_lang" yaml:"source_lang"`
	// Targets are the applications to scan. The first target, or the one
	// marked main, owns the main origin.
	Targets []Target `mapstructure:"targets" yaml:"targets,omitempty"`
	// ModulesDir holds one module per subdirectory; each becomes a target.
	ModulesDir string `mapstructure:"modules_dir" yaml:"modules_dir,omitempty"`
	// ConsolidateModules writes every module's keys into the main store.
	ConsolidateModules bool `mapstructure:"consolidate_modules" yaml:"consolidate_modules"`

	Extensions   []string `mapstructure:"extensions" yaml:"extensions"`
	Exclude      []string `mapstructure:"exclude" yaml:"exclude"`
	PatternsFile string   `mapstructure:"patterns_file" yaml:"patterns_file,omitempty"`

	// Format is the dotted namespace file format: json, yaml or toml.
	Format string `mapstructure:"format" yaml:"format"`
	// Mode is the sync policy: full-sync, append-missing or refresh-existing.
	Mode string `mapstructure:"mode" yaml:"mode"`
	// BootstrapDefaults writes missing framework default keys into the
	// reference language before translating.
	BootstrapDefaults bool `mapstructure:"bootstrap_defaults" yaml:"bootstrap_defaults"`

	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Proxy       string        `mapstructure:"proxy" yaml:"proxy,omitempty"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"-"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature,omitempty"`
	Breaker     bool          `mapstructure:"breaker" yaml:"breaker"`

	ChunkSize    int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	Driver       string        `mapstructure:"driver" yaml:"driver"`
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" yaml:"-"`
	RequestDelay time.Duration `mapstructure:"request_delay" yaml:"-"`
	StopKey      string        `mapstructure:"stop_key" yaml:"stop_key"`

	// Context is free-form project context inserted into the prompt.
	Context    string `mapstructure:"context" yaml:"context,omitempty"`
	EchoPolicy string `mapstructure:"echo_policy" yaml:"echo_policy"`

	ExtractionLog string `mapstructure:"extraction_log" yaml:"extraction_log"`
	FailedLog     string `mapstructure:"failed_log" yaml:"failed_log"`

	// path is the file the values were read from, empty for defaults.
	path string
}

// MarshalYAML renders durations as strings ("3s") instead of nanoseconds.
func (f File) MarshalYAML() (any, error) {
	type plain File
	return struct {
		plain        `yaml:",inline"`
		Timeout      string `yaml:"timeout,omitempty"`
		RetryDelay   string `yaml:"retry_delay"`
		RequestDelay string `yaml:"request_delay,omitempty"`
	}{
		plain:        plain(f),
		Timeout:      durationString(f.Timeout),
		RetryDelay:   f.RetryDelay.String(),
		RequestDelay: durationString(f.RequestDelay),
	}, nil
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// Target describes one application root with its translation store.
type Target struct {
	// Name is a human-readable label shown in logs and prompts.
	Name string `mapstructure:"name" yaml:"name"`
	// Origin identifies the target's keys (default "main" for the main
	// target, the lowercased name otherwise).
	Origin string `mapstructure:"origin" yaml:"origin,omitempty"`
	// Root is the source directory relative to the project root.
	Root string `mapstructure:"root" yaml:"root,omitempty"`
	// LangDir is the translation store directory relative to Root.
	LangDir string `mapstructure:"lang_dir" yaml:"lang_dir,omitempty"`
	// Main marks the main application.
	Main bool `mapstructure:"main" yaml:"main,omitempty"`
	// Exclude adds target-specific exclusions.
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"languages":           []string{"en", "ru", "uz"},
		"source_lang":         "en",
		"modules_dir":         "",
		"consolidate_modules": false,
		"extensions":          extract.DefaultExtensions,
		"exclude":             extract.DefaultExclude,
		"patterns_file":       "",
		"format":              "json",
		"mode":                "full-sync",
		"bootstrap_defaults":  false,
		"provider":            provider.ProviderGoogle,
		"model":               "",
		"base_url":            "",
		"proxy":               "",
		"timeout":             time.Duration(0),
		"temperature":         float32(0),
		"breaker":             true,
		"chunk_size":          translate.DefaultChunkSize,
		"driver":              "concurrent",
		"concurrency":         15,
		"max_retries":         5,
		"retry_delay":         3 * time.Second,
		"request_delay":       time.Duration(0),
		"stop_key":            "q",
		"context":             "",
		"echo_policy":         "fallback",
		"extraction_log":      "translation_extraction_log.json",
		"failed_log":          "failed_translation_keys.json",
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the configuration for the project at rootDir. configPath
// overrides the default rootDir/.transync.yaml. A missing default file is
// not an error: defaults and environment apply.
func Load(rootDir, configPath string) (*File, error) {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("TRANSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := configPath
	if path == "" {
		path = filepath.Join(rootDir, FileName)
	}
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case configPath != "" || !os.IsNotExist(statErr):
		return nil, fmt.Errorf("reading %s: %w", path, statErr)
	default:
		path = ""
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	f.path = path
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Path returns the file the configuration was read from, or "" when only
// defaults and the environment were used.
func (f *File) Path() string { return f.path }

func (f *File) label() string {
	if f.path != "" {
		return f.path
	}
	return FileName
}

// Validate fills target defaults and checks every value.
func (f *File) Validate() error {
	where := f.label()
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalid, where, fmt.Sprintf(format, args...))
	}

	if f.SourceLang == "" {
		f.SourceLang = "en"
	}
	if !locale.Valid(f.SourceLang) {
		return invalid("source_lang %q is not a language code", f.SourceLang)
	}
	if len(f.Languages) == 0 {
		return invalid("no languages configured")
	}
	for _, l := range f.Languages {
		if !locale.Valid(l) {
			return invalid("language %q is not a language code", l)
		}
	}

	if len(f.Targets) == 0 {
		f.Targets = []Target{{Name: "Main Application", Main: true}}
	}
	hasMain := false
	for _, t := range f.Targets {
		hasMain = hasMain || t.Main
	}
	origins := make(map[string]bool)
	for i := range f.Targets {
		t := &f.Targets[i]
		if t.Name == "" {
			return invalid("target #%d has no name", i+1)
		}
		if !hasMain && i == 0 {
			t.Main = true
		}
		if t.Root == "" {
			t.Root = "."
		}
		if t.LangDir == "" {
			t.LangDir = "lang"
		}
		if t.Origin == "" {
			t.Origin = originFor(t.Name)
			if t.Main {
				t.Origin = "main"
			}
		}
		if origins[t.Origin] {
			return invalid("target %q reuses origin %q", t.Name, t.Origin)
		}
		origins[t.Origin] = true
	}

	checks := []struct {
		name string
		err  error
	}{
		{"format", second(store.ParseFormat(f.Format))},
		{"mode", second(policy.ParseMode(f.Mode))},
		{"driver", second(translate.ParseDispatch(f.Driver))},
		{"echo_policy", second(merge.ParseEchoPolicy(f.EchoPolicy))},
		{"provider", second(provider.Resolve(provider.Provider{ID: f.Provider}))},
	}
	for _, c := range checks {
		if c.err != nil {
			return invalid("%s: %v", c.name, c.err)
		}
	}

	switch {
	case f.ChunkSize <= 0:
		return invalid("chunk_size must be positive, got %d", f.ChunkSize)
	case f.Concurrency <= 0:
		return invalid("concurrency must be positive, got %d", f.Concurrency)
	case f.MaxRetries <= 0:
		return invalid("max_retries must be positive, got %d", f.MaxRetries)
	case f.RetryDelay < 0:
		return invalid("retry_delay must not be negative")
	}
	return nil
}

func second[T any](_ T, err error) error { return err }

func originFor(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// ---------------------------------------------------------------------------
// Resolving targets
// ---------------------------------------------------------------------------

// ResolvedTarget is a target with absolute paths.
type ResolvedTarget struct {
	Target
	AbsRoot    string
	AbsLangDir string
	// Module is set for targets discovered under ModulesDir.
	Module bool
}

// Resolve returns the configured targets plus one target per module
// directory, main first. The main target's scan excludes the modules
// directory.
func (f *File) Resolve(projectRoot string) ([]ResolvedTarget, error) {
	absProjectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}

	var main, others []ResolvedTarget
	for _, t := range f.Targets {
		absRoot := filepath.Join(absProjectRoot, t.Root)
		rt := ResolvedTarget{
			Target:     t,
			AbsRoot:    absRoot,
			AbsLangDir: filepath.Join(absRoot, t.LangDir),
		}
		if t.Main {
			if f.ModulesDir != "" {
				rel, err := filepath.Rel(absRoot, filepath.Join(absProjectRoot, f.ModulesDir))
				if err == nil && !strings.HasPrefix(rel, "..") {
					rt.Exclude = append(append([]string(nil), rt.Exclude...), filepath.ToSlash(rel))
				}
			}
			main = append(main, rt)
		} else {
			others = append(others, rt)
		}
	}

	if f.ModulesDir != "" {
		modules, err := DetectModules(filepath.Join(absProjectRoot, f.ModulesDir))
		if err != nil {
			return nil, err
		}
		for _, m := range modules {
			if containsOrigin(main, m.Origin) || containsOrigin(others, m.Origin) {
				continue
			}
			others = append(others, m)
		}
	}
	return append(main, others...), nil
}

func containsOrigin(targets []ResolvedTarget, origin string) bool {
	for _, t := range targets {
		if t.Origin == origin {
			return true
		}
	}
	return false
}

// Main returns the main target of resolved.
func Main(resolved []ResolvedTarget) (ResolvedTarget, bool) {
	for _, rt := range resolved {
		if rt.Main {
			return rt, true
		}
	}
	return ResolvedTarget{}, false
}

// ---------------------------------------------------------------------------
// Starter file
// ---------------------------------------------------------------------------

// ErrExists is returned by WriteDefault when the file is already present.
var ErrExists = errors.New("config file already exists")

// WriteDefault writes a starter .transync.yaml into rootDir.
func WriteDefault(rootDir string, langs []string) (string, error) {
	path := filepath.Join(rootDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s: %w", path, ErrExists)
	}

	d := Defaults()
	f := File{
		Languages:     d["languages"].([]string),
		SourceLang:    "en",
		Targets:       []Target{{Name: "Main Application", Root: ".", LangDir: "lang"}},
		Extensions:    extract.DefaultExtensions,
		Exclude:       extract.DefaultExclude,
		Format:        "json",
		Mode:          "full-sync",
		Provider:      provider.ProviderGoogle,
		Breaker:       true,
		ChunkSize:     translate.DefaultChunkSize,
		Driver:        "concurrent",
		Concurrency:   15,
		MaxRetries:    5,
		RetryDelay:    3 * time.Second,
		StopKey:       "q",
		EchoPolicy:    "fallback",
		ExtractionLog: d["extraction_log"].(string),
		FailedLog:     d["failed_log"].(string),
	}
	if len(langs) > 0 {
		f.Languages = langs
	}
	if dir := detectModulesDir(rootDir); dir != "" {
		f.ModulesDir = dir
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	header := "# transync project configuration\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// Detection
// ---------------------------------------------------------------------------

var moduleDirCandidates = []string{"Modules", "modules"}

func detectModulesDir(rootDir string) string {
	for _, c := range moduleDirCandidates {
		if info, err := os.Stat(filepath.Join(rootDir, c)); err == nil && info.IsDir() {
			return c
		}
	}
	return ""
}

// DetectModules returns one target per subdirectory of modulesDir. A
// module's lang directory is "lang", or "resources/lang" when only that
// exists. A missing modulesDir yields no modules.
func DetectModules(modulesDir string) ([]ResolvedTarget, error) {
	entries, err := os.ReadDir(modulesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading modules directory: %w", err)
	}

	var out []ResolvedTarget
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		root := filepath.Join(modulesDir, e.Name())
		langDir := "lang"
		if !isDir(filepath.Join(root, langDir)) && isDir(filepath.Join(root, "resources", "lang")) {
			langDir = filepath.Join("resources", "lang")
		}
		out = append(out, ResolvedTarget{
			Target: Target{
				Name:    e.Name() + " Module",
				Origin:  e.Name(),
				Root:    root,
				LangDir: langDir,
			},
			AbsRoot:    root,
			AbsLangDir: filepath.Join(root, langDir),
			Module:     true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out, nil
}

// DetectLanguages lists the languages that have files in langDir: flat
// "<lang>.json" files and "<lang>/" directories.
func DetectLanguages(langDir string) []string {
	entries, err := os.ReadDir(langDir)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		lang := name
		if !entry.IsDir() {
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			lang = strings.TrimSuffix(name, ".json")
		}
		if !isLangCode(lang) || seen[lang] {
			continue
		}
		seen[lang] = true
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// isLangCode checks if s looks like a language code (en, ru, pt_BR,
// pt-BR, sr_Latn).
func isLangCode(s string) bool {
	base, region, _ := strings.Cut(strings.ReplaceAll(s, "-", "_"), "_")
	if len(base) < 2 || len(base) > 3 || !lowerASCII(base) {
		return false
	}
	return region == "" || len(region) >= 2 && len(region) <= 4 && locale.Valid(s)
}

func lowerASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
