// transync keeps an application's translation files in sync with the keys
// its source code uses, translating what is missing with an AI provider.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/transync/config"
	"github.com/minios-linux/transync/i18n"
	"github.com/minios-linux/transync/locale"
	"github.com/minios-linux/transync/merge"
	"github.com/minios-linux/transync/operator"
	"github.com/minios-linux/transync/pipeline"
	"github.com/minios-linux/transync/policy"
	"github.com/minios-linux/transync/provider"
	"github.com/minios-linux/transync/runlog"
	"github.com/minios-linux/transync/settings"
	"github.com/minios-linux/transync/store"
	"github.com/minios-linux/transync/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

var logOut io.Writer = os.Stderr

func logInfo(format string, args ...any) {
	fmt.Fprintf(logOut, "%s %s\n", blue("[INFO]"), fmt.Sprintf(i18n.T(format), args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(logOut, "%s %s\n", green("[OK]"), fmt.Sprintf(i18n.T(format), args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(logOut, "%s %s\n", yellow("[WARN]"), fmt.Sprintf(i18n.T(format), args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(logOut, "%s %s\n", red("[ERROR]"), fmt.Sprintf(i18n.T(format), args...))
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transync",
		Short: i18n.T("Keep translation files in sync with the keys used in code"),
		Long: `transync scans an application's source code for translation keys, merges
them with the existing translation stores and the built-in framework
defaults, and translates whatever is missing with an AI provider.

Stores follow the Laravel layout: lang/<lang>.json for plain-text keys and
lang/<lang>/<namespace>.(json|yaml|toml) for dotted keys.

Commands:
  init        Write a starter .transync.yaml
  scan        Extract keys from code and write the extraction log
  status      Show targets, languages and missing translations
  unused      List stored keys no longer referenced in code
  translate   Translate missing keys and update the stores
  auth        Manage provider credentials

AI Providers:
  google         Google AI (Gemini): API key
  openai         OpenAI: API key
  groq           Groq: API key
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint
  offline        No backend; every key falls back to its source text`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/"+config.FileName+")")

	root.AddCommand(
		newInitCmd(),
		newScanCmd(),
		newStatusCmd(),
		newUnusedCmd(),
		newTranslateCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "transync version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var langs string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + config.FileName,
		Long: `Write a starter config file into the project root.

Languages default to those already present in lang/, or en,ru,uz when
there are none. A Modules/ directory is picked up automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := splitList(langs)
			if len(list) == 0 {
				list = config.DetectLanguages(filepath.Join(rootDir, "lang"))
			}
			path, err := config.WriteDefault(rootDir, list)
			if errors.Is(err, config.ErrExists) {
				logWarning("%s already exists, leaving it alone", path)
				return nil
			}
			if err != nil {
				return err
			}
			logSuccess("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&langs, "langs", "", "Target languages (comma-separated)")
	return cmd
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Extract keys from code and write the extraction log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			report, err := pipeline.Run(cmd.Context(), pipeline.Options{
				Root:      rootDir,
				Config:    cfg,
				ScanOnly:  true,
				Verbose:   verbose,
				OnLog:     logInfo,
				OnWarning: logWarning,
			})
			if errors.Is(err, pipeline.ErrNoKeys) {
				logWarning("Nothing to do: no translation keys found")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%s\n", i18n.T("Namespaces"))
			for _, ref := range sortedRefs(report.Selected) {
				fmt.Fprintf(out, "  %-32s %5d\n", ref, len(report.Selected[ref]))
			}
			byOrigin := report.Scan.ByOrigin()
			origins := make([]string, 0, len(byOrigin))
			for o := range byOrigin {
				origins = append(origins, o)
			}
			sort.Strings(origins)
			fmt.Fprintf(out, "\n%s\n", i18n.T("Keys found in code"))
			for _, o := range origins {
				fmt.Fprintf(out, "  %-32s %5d\n", o, len(byOrigin[o]))
				if !verbose {
					continue
				}
				for _, k := range byOrigin[o] {
					fmt.Fprintf(out, "    %s  %s\n", k, cyan(strings.Join(report.Scan.Keys[k], ", ")))
				}
			}
			if cfg.ExtractionLog != "" {
				logSuccess("Extraction log: %s", cfg.ExtractionLog)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "List every key with the files it occurs in")
	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show targets, languages and missing translations",
		Long: `Show project configuration and per-language translation coverage.
Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

func runStatus(ctx context.Context, out io.Writer, cfg *config.File) error {
	source := cfg.Path()
	if source == "" {
		source = i18n.T("built-in defaults")
	}
	fmt.Fprintf(out, "%s %s\n", blue(i18n.T("Config:")), source)
	fmt.Fprintf(out, "%s %s\n", blue(i18n.T("Source language:")), describeLang(cfg.SourceLang))
	fmt.Fprintf(out, "%s %s, %s %s\n", blue(i18n.T("Provider:")), cfg.Provider, i18n.T("mode"), cfg.Mode)
	if cfg.ExtractionLog != "" {
		logPath := cfg.ExtractionLog
		if !filepath.IsAbs(logPath) {
			logPath = filepath.Join(rootDir, logPath)
		}
		if last, err := runlog.LoadExtraction(logPath); err == nil {
			fmt.Fprintf(out, "%s %s (%d %s)\n", blue(i18n.T("Last scan:")), last.ScanTimestamp,
				last.TotalKeys, i18n.N("key", "keys", last.TotalKeys))
		}
	}

	report, err := pipeline.Run(ctx, pipeline.Options{
		Root:      rootDir,
		Config:    cfg,
		ScanOnly:  true,
		DryRun:    true,
		OnWarning: logWarning,
	})
	if errors.Is(err, pipeline.ErrNoKeys) {
		logWarning("Nothing to do: no translation keys found")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", i18n.T("Targets"))
	for _, t := range report.Targets {
		kind := "app"
		if t.Module {
			kind = "module"
		}
		langs := config.DetectLanguages(t.AbsLangDir)
		fmt.Fprintf(out, "  %-20s %-7s %s  [%s]\n", t.Origin, kind, relPath(t.AbsLangDir), strings.Join(langs, " "))
	}

	total := 0
	for _, keys := range report.Selected {
		total += len(keys)
	}
	fmt.Fprintf(out, "\n%s %d\n", i18n.T("Stored namespaces:"), len(report.Existing.Refs()))
	fmt.Fprintf(out, "\n%s (%d %s)\n", i18n.T("Coverage"), total, i18n.N("key", "keys", total))
	missing := policy.Missing(report.Selected, report.Existing, cfg.Languages)
	for _, lang := range cfg.Languages {
		n := 0
		for _, byLang := range missing {
			n += len(byLang[lang])
		}
		percent := 100
		if total > 0 {
			percent = (total - n) * 100 / total
		}
		fmt.Fprintf(out, "  %-8s %s  %s\n", lang, coverageBar(percent, 20), describeMissing(n))
	}
	return nil
}

// ---------------------------------------------------------------------------
// unused (read-only)
// ---------------------------------------------------------------------------

func newUnusedCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "unused",
		Short: "List stored keys no longer referenced in code",
		Long: `List keys present in the translation stores that no source file and no
built-in default refers to. Nothing is removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid --format %q (want text or json)", format)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			report, err := pipeline.Run(cmd.Context(), pipeline.Options{
				Root:      rootDir,
				Config:    cfg,
				ScanOnly:  true,
				DryRun:    true,
				OnWarning: logWarning,
			})
			if errors.Is(err, pipeline.ErrNoKeys) {
				logWarning("Nothing to do: no translation keys found")
				return nil
			}
			if err != nil {
				return err
			}
			return printUnused(cmd.OutOrStdout(), report.Unused, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}

func printUnused(out io.Writer, keys []string, format string) error {
	if format == "json" {
		if keys == nil {
			keys = []string{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}
	if len(keys) == 0 {
		fmt.Fprintln(out, i18n.T("No unused keys found."))
		return nil
	}
	fmt.Fprintf(out, i18n.N("Found %d unused key:", "Found %d unused keys:", len(keys))+"\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(out, "  %s\n", k)
	}
	return nil
}

func describeLang(code string) string {
	if native := locale.Native(code); native != "" && native != code {
		return fmt.Sprintf("%s (%s)", code, native)
	}
	return code
}

func describeMissing(n int) string {
	if n == 0 {
		return green(i18n.T("complete"))
	}
	return yellow(fmt.Sprintf(i18n.N("%d missing", "%d missing", n), n))
}

// coverageBar renders percent as a colored bar of width cells.
func coverageBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case percent >= 100:
		bar = green(bar)
	case percent >= 50:
		bar = yellow(bar)
	default:
		bar = red(bar)
	}
	return fmt.Sprintf("%s %3d%%", bar, percent)
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	langs, sourceLang         string
	provider, apiKey, model   string
	baseURL, proxy            string
	timeout                   time.Duration
	mode, format, driver      string
	chunkSize, concurrency    int
	maxRetries                int
	retryDelay, requestDelay  time.Duration
	context, echo, stopKey    string
	modulesDir                string
	consolidate, bootstrap    bool
	offline, dryRun, selectNS bool
	retryFailed, verbose      bool
	noBreaker                 bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate missing keys and update the stores",
		Long: `Scan the code, plan the work under the sync mode and translate it in
batches. Results are validated (placeholders, echoes, plural strings)
before they are merged into the stores.

Sync modes:
  full-sync         retranslate every selected key (default)
  append-missing    translate only keys missing from some language
  refresh-existing  retranslate only keys that already have a translation

Examples:
  # Translate everything missing into the configured languages
  transync translate --mode append-missing

  # Pick namespaces interactively and translate one batch at a time
  transync translate --select --driver serial

  # Retry only the keys that failed last time
  transync translate --retry-failed

  # Show which files would change without calling a provider
  transync translate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := applyTranslateFlags(cmd.Flags(), cfg, a); err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cfg, a)
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.langs, "langs", "", "Target languages (comma-separated)")
	f.StringVar(&a.sourceLang, "source-lang", "", "Reference language")
	f.StringVar(&a.provider, "provider", "", "AI provider: "+strings.Join(provider.IDs(), ", "))
	f.StringVar(&a.model, "model", "", "Model name (default: provider default)")
	f.StringVar(&a.apiKey, "api-key", "", "API key (or TRANSYNC_API_KEY env var)")
	f.StringVar(&a.baseURL, "base-url", "", "Custom API base URL")
	f.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	f.DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	f.BoolVar(&a.noBreaker, "no-breaker", false, "Disable the circuit breaker")

	f.StringVar(&a.mode, "mode", "", "Sync mode: full-sync, append-missing, refresh-existing")
	f.StringVar(&a.format, "format", "", "Format of new namespace files: json, yaml, toml")
	f.StringVar(&a.driver, "driver", "", "Dispatch: concurrent or serial")
	f.IntVar(&a.chunkSize, "chunk-size", 0, "Keys per request")
	f.IntVar(&a.concurrency, "concurrency", 0, "Maximum concurrent requests")
	f.IntVar(&a.maxRetries, "max-retries", 0, "Attempts per batch")
	f.DurationVar(&a.retryDelay, "retry-delay", 0, "Base backoff delay")
	f.DurationVar(&a.requestDelay, "request-delay", 0, "Delay between concurrent requests")
	f.StringVar(&a.context, "context", "", "Project context added to the prompt")
	f.StringVar(&a.echo, "echo", "", "Echoed keys: fallback or accept")
	f.StringVar(&a.stopKey, "stop-key", "", "Line that stops a serial run after the current batch")

	f.StringVar(&a.modulesDir, "modules-dir", "", "Directory with one module per subdirectory")
	f.BoolVar(&a.consolidate, "consolidate-modules", false, "Write module keys into the main store")
	f.BoolVar(&a.bootstrap, "bootstrap-defaults", false, "Add missing framework defaults to the reference language")

	f.BoolVar(&a.offline, "offline", false, "Do not call a provider; fall back to source texts")
	f.BoolVar(&a.dryRun, "dry-run", false, "Show what would be written without calling a provider")
	f.BoolVar(&a.selectNS, "select", false, "Choose namespaces interactively")
	f.BoolVar(&a.retryFailed, "retry-failed", false, "Only translate keys from the failed-keys log")
	f.BoolVar(&a.verbose, "verbose", false, "Log retries and validation fallbacks")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		defaults := provider.DefaultProviders()
		var out []string
		for _, id := range provider.IDs() {
			out = append(out, id+"\t"+defaults[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"full-sync", "append-missing", "refresh-existing"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// applyTranslateFlags copies every flag the user set onto cfg and
// validates the result.
func applyTranslateFlags(flags *pflag.FlagSet, cfg *config.File, a translateArgs) error {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "langs":
			cfg.Languages = splitList(a.langs)
		case "source-lang":
			cfg.SourceLang = a.sourceLang
		case "provider":
			cfg.Provider = a.provider
		case "model":
			cfg.Model = a.model
		case "base-url":
			cfg.BaseURL = a.baseURL
		case "proxy":
			cfg.Proxy = a.proxy
		case "timeout":
			cfg.Timeout = a.timeout
		case "no-breaker":
			cfg.Breaker = !a.noBreaker
		case "mode":
			cfg.Mode = a.mode
		case "format":
			cfg.Format = a.format
		case "driver":
			cfg.Driver = a.driver
		case "chunk-size":
			cfg.ChunkSize = a.chunkSize
		case "concurrency":
			cfg.Concurrency = a.concurrency
		case "max-retries":
			cfg.MaxRetries = a.maxRetries
		case "retry-delay":
			cfg.RetryDelay = a.retryDelay
		case "request-delay":
			cfg.RequestDelay = a.requestDelay
		case "context":
			cfg.Context = a.context
		case "echo":
			cfg.EchoPolicy = a.echo
		case "stop-key":
			cfg.StopKey = a.stopKey
		case "modules-dir":
			cfg.ModulesDir = a.modulesDir
		case "consolidate-modules":
			cfg.ConsolidateModules = a.consolidate
		case "bootstrap-defaults":
			cfg.BootstrapDefaults = a.bootstrap
		}
	})
	if a.offline {
		cfg.Provider = provider.ProviderOffline
	}
	return cfg.Validate()
}

func runTranslate(parent context.Context, cfg *config.File, a translateArgs) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	tr, prov, err := buildTranslator(ctx, cfg, a.apiKey, a.dryRun)
	if err != nil {
		return err
	}
	if a.dryRun {
		logInfo("Dry run: no provider calls, no writes")
	} else {
		logInfo("Provider: %s (%s), model: %s", prov.Name, prov.ID, displayModel(prov.Model))
	}
	logInfo("Languages: %s (source %s)", strings.Join(cfg.Languages, ", "), cfg.SourceLang)

	mode, _ := policy.ParseMode(cfg.Mode)
	dispatch, _ := translate.ParseDispatch(cfg.Driver)
	serial := dispatch == translate.Serial
	var stop operator.Stop

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	stop.WatchSignals(ctx, sigCh, cancel, func() {
		if !serial {
			logWarning("Interrupted, finishing batches already sent...")
			cancel()
			return
		}
		logWarning("Interrupted, stopping after the current batch (Ctrl+C again to abort)")
	})

	var selector operator.Selector = operator.All{}
	if a.selectNS {
		selector = operator.Prompt{In: os.Stdin, Out: os.Stderr, Title: i18n.T("Namespaces")}
	}

	var bar *operator.Progress
	opts := pipeline.Options{
		Root:        rootDir,
		Config:      cfg,
		Translator:  tr,
		Selector:    selector,
		Stop:        stop.Requested,
		RetryFailed: a.retryFailed,
		DryRun:      a.dryRun,
		Verbose:     a.verbose,
		OnLog:       logInfo,
		OnWarning:   logWarning,
		OnPlan: func(r *pipeline.Report) {
			if mode != policy.RefreshExisting {
				printMissing(r.Missing)
			}
			if len(r.Batches) == 0 {
				return
			}
			if serial && cfg.StopKey != "" {
				logInfo("Type %q and press Enter to stop after the current batch", cfg.StopKey)
				stop.WatchInput(ctx, os.Stdin, cfg.StopKey, func() {
					logWarning("Stop requested, remaining batches will be skipped")
				})
			}
			if !a.verbose {
				bar = operator.NewProgress(os.Stderr, len(r.Batches), i18n.T("batches"))
			}
		},
		OnProgress: func(done, total int) { bar.Update(done, total) },
	}
	if a.verbose {
		opts.OnEvent = func(e merge.Event) { logWarning("fallback: %s", e) }
	}

	report, err := pipeline.Run(ctx, opts)
	bar.Finish()
	if errors.Is(err, pipeline.ErrNoKeys) {
		logWarning("Nothing to do: no translation keys found")
		return nil
	}
	if report != nil && report.Summary.Batches > 0 {
		printSummary(report, a.dryRun, cfg.FailedLog)
	} else if err == nil {
		logSuccess("All translations are up to date")
	}
	return err
}

func buildTranslator(ctx context.Context, cfg *config.File, apiKey string, dryRun bool) (translate.Translator, provider.Provider, error) {
	id := cfg.Provider
	if dryRun {
		id = provider.ProviderOffline
	}
	creds, err := settings.LoadCredentials(rootDir)
	if err != nil {
		return nil, provider.Provider{}, err
	}
	if apiKey == "" {
		apiKey = creds.KeyFor(id)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = creds.BaseURLFor(id)
	}

	p, err := provider.Resolve(provider.Provider{
		ID:          id,
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       cfg.Model,
		Proxy:       cfg.Proxy,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, p, err
	}
	tr, err := provider.New(ctx, p, provider.Options{Breaker: cfg.Breaker, OnLog: logWarning})
	if errors.Is(err, provider.ErrNoAPIKey) {
		return nil, p, fmt.Errorf("%w\n\n  Set one with: transync auth login --provider %s\n  or export TRANSYNC_API_KEY", err, p.ID)
	}
	return tr, p, err
}

func displayModel(model string) string {
	if model == "" {
		return "-"
	}
	return model
}

func printMissing(r policy.Report) {
	if r.Empty() {
		return
	}
	logInfo("Missing translations: %d", r.Total())
	for _, ref := range r.Refs() {
		langs := make([]string, 0, len(r[ref]))
		for l := range r[ref] {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		parts := make([]string, len(langs))
		for i, l := range langs {
			parts[i] = fmt.Sprintf("%s: %d", l, len(r[ref][l]))
		}
		fmt.Fprintf(logOut, "  %-32s %s\n", ref, strings.Join(parts, ", "))
	}
}

func printSummary(r *pipeline.Report, dryRun bool, failedLog string) {
	s := r.Summary
	for _, p := range r.Written {
		if dryRun {
			logInfo("Would write %s", relPath(p))
		} else {
			logSuccess("Wrote %s", relPath(p))
		}
	}
	if n := len(r.Events); n > 0 {
		logWarning("%d values fell back to their source text", n)
	}
	logInfo("Batches: %d attempted, %d succeeded, %d failed, %d not attempted",
		s.Attempted(), s.Succeeded, s.Failed, s.NotAttempted)
	logInfo("Keys: %d succeeded, %d failed, %d not attempted", s.KeysSucceeded, s.KeysFailed, s.KeysNotAttempted)
	if (s.Failed > 0 || s.NotAttempted > 0) && failedLog != "" && !dryRun {
		logWarning("Failed and unattempted keys saved to %s; rerun with --retry-failed", failedLog)
	}
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
		Long: `Manage API keys for the hosted providers. Keys are stored in
` + settings.FilePath() + ` with 0600 permissions.

Environment variables (TRANSYNC_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY,
GROQ_API_KEY), also read from a .env file in the project root, take
precedence over stored keys.

Examples:
  transync auth login --provider google
  transync auth login --provider custom-openai
  transync auth logout --provider groq
  transync auth list`,
	}
	cmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthListCmd())
	return cmd
}

// keyProviders are the providers that take a stored API key.
var keyProviders = []string{
	provider.ProviderGoogle,
	provider.ProviderOpenAI,
	provider.ProviderGroq,
	provider.ProviderCustomOpenAI,
}

func newAuthLoginCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !contains(keyProviders, id) {
				return fmt.Errorf("provider %q does not take an API key (choose from %s)", id, strings.Join(keyProviders, ", "))
			}
			return authLogin(cmd.InOrStdin(), id)
		},
	}
	cmd.Flags().StringVar(&id, "provider", provider.ProviderGoogle, "Provider: "+strings.Join(keyProviders, ", "))
	return cmd
}

func authLogin(in io.Reader, id string) error {
	scanner := bufio.NewScanner(in)
	existing := settings.Load()[id]

	var baseURL string
	if id == provider.ProviderCustomOpenAI {
		if existing != nil && existing.BaseURL != "" {
			fmt.Fprintf(logOut, "  Current endpoint: %s\n  Enter new endpoint URL, or press Enter to keep: ", yellow(existing.BaseURL))
		} else {
			fmt.Fprintf(logOut, "  Enter endpoint URL (e.g., https://api.example.com/v1): ")
		}
		if !scanner.Scan() {
			return errors.New("no input received")
		}
		baseURL = strings.TrimSpace(scanner.Text())
		if baseURL == "" && existing != nil {
			baseURL = existing.BaseURL
		}
		if baseURL == "" {
			return errors.New("endpoint URL is required")
		}
	}

	if existing != nil && existing.Key != "" {
		fmt.Fprintf(logOut, "  Current key: %s\n  Enter new key to replace, or press Enter to keep: ", yellow(settings.MaskKey(existing.Key)))
	} else {
		fmt.Fprintf(logOut, "  Enter API key: ")
	}
	if !scanner.Scan() {
		return errors.New("no input received")
	}
	key := strings.TrimSpace(scanner.Text())
	if key == "" && existing != nil {
		key = existing.Key
	}
	if key == "" && id != provider.ProviderCustomOpenAI {
		return errors.New("no API key provided")
	}

	if err := settings.SetAPIKey(id, key, baseURL); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	logSuccess("%s credentials saved", id)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials (all providers when --provider is not set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := keyProviders
			if id != "" {
				ids = []string{id}
			}
			for _, pid := range ids {
				if err := settings.Remove(pid); err != nil {
					return fmt.Errorf("removing %s credentials: %w", pid, err)
				}
			}
			if id != "" {
				logSuccess("%s credentials removed", id)
			} else {
				logSuccess("All stored credentials removed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "provider", "", "Provider to log out (default: all)")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := settings.LoadCredentials(rootDir)
			if err != nil {
				return err
			}
			printCredentials(cmd.OutOrStdout(), settings.Load(), creds)
			return nil
		},
	}
}

func printCredentials(out io.Writer, stored settings.Store, creds *settings.Credentials) {
	fmt.Fprintf(out, "\n%s\n", blue(i18n.T("Stored Credentials")))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for _, id := range keyProviders {
		status := red(i18n.T("not configured"))
		if info := stored[id]; info != nil && (info.Key != "" || info.BaseURL != "") {
			status = green(i18n.T("configured"))
			if info.Key != "" {
				status += " (" + settings.MaskKey(info.Key) + ")"
			}
			if info.BaseURL != "" {
				status += fmt.Sprintf("\n  %14s endpoint: %s", "", info.BaseURL)
			}
		} else if key := creds.KeyFor(id); key != "" {
			status = green(i18n.T("from environment")) + " (" + settings.MaskKey(key) + ")"
		}
		fmt.Fprintf(out, "  %-14s %s\n", id, status)
	}
	fmt.Fprintln(out)
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func loadConfig() (*config.File, error) {
	return config.Load(rootDir, configPath)
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedRefs(m map[store.Ref][]string) []store.Ref {
	refs := make([]store.Ref, 0, len(m))
	for r := range m {
		refs = append(refs, r)
	}
	return store.SortRefs(refs)
}

func relPath(p string) string {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return p
	}
	if rel, err := filepath.Rel(abs, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}
