package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hashtrails/trailscan/internal/adapter"
	"github.com/hashtrails/trailscan/internal/alert"
	"github.com/hashtrails/trailscan/internal/config"
	"github.com/hashtrails/trailscan/internal/diagnostics"
	"github.com/hashtrails/trailscan/internal/logger"
	"github.com/hashtrails/trailscan/internal/resolver"
	"github.com/hashtrails/trailscan/internal/scraper"
	"github.com/hashtrails/trailscan/internal/storage"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitFindings = 2
)

var (
	flagConfig      string
	flagDataDir     string
	flagFormat      string
	flagSource      string
	flagDays        int
	flagConcurrency int
	flagVerbose     bool
	flagListenAddr  string
	flagInterval    time.Duration
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trailscan",
		Short: "Scrape and normalize trail announcements from community sites",
		Long: `Scrapes upcoming trail announcements from a registry of community
sites, calendars, spreadsheets, and signup pages, normalizes them into a
common shape, and tracks per-source extraction health across runs.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env for local development; absence is fine.
			godotenv.Load()
			if flagVerbose {
				logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "sources.yaml", "Source registry file")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (overrides registry setting)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAlertsCmd())
	cmd.AddCommand(newGroupsCmd())

	return cmd
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape all enabled sources and report the batch result",
		RunE:  runScrape,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagSource, "source", "", "Scrape a single source by name")
	cmd.Flags().IntVar(&flagDays, "days", 0, "Days ahead to look (overrides registry setting)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "Concurrent source scrapes")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run one source live without persisting state",
		Long: `Runs a single source through the full pipeline and prints the
extracted events, fill rates, and errors. Nothing is written to the data
directory, so a candidate config can be iterated on safely.`,
		Args: cobra.ExactArgs(1),
		RunE: runPreview,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().IntVar(&flagDays, "days", 0, "Days ahead to look (overrides registry setting)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the source registry without any network access",
		RunE:  runValidate,
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Scrape on an interval and export prometheus metrics",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&flagListenAddr, "listen", ":9290", "Metrics listen address")
	cmd.Flags().DurationVar(&flagInterval, "interval", 6*time.Hour, "Scrape interval")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "Concurrent source scrapes")
	cmd.Flags().IntVar(&flagDays, "days", 0, "Days ahead to look (overrides registry setting)")
	return cmd
}

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and manage open alerts",
		RunE:  runAlertsList,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionAlert(args[0], alert.StatusAcknowledged)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionAlert(args[0], alert.StatusResolved)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "snooze <alert-id>",
		Short: "Snooze an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transitionAlert(args[0], alert.StatusSnoozed)
		},
	})
	return cmd
}

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage the group directory the resolver matches against",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <short-id> <name>",
		Short: "Register a canonical group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(nil)
			if err != nil {
				return err
			}
			return store.AddGroup(resolver.Group{ID: args[0], ShortID: args[1], Name: args[2]})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "alias <alias> <group-id>",
		Short: "Map an alias to a canonical group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(nil)
			if err != nil {
				return err
			}
			if err := store.AddAlias(args[0], args[1]); err != nil {
				return err
			}
			return maybeAutoResolve(store)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "suggest <tag>",
		Short: "Show fuzzy-match suggestions for an unresolvable tag",
		Args:  cobra.ExactArgs(1),
		RunE:  runSuggest,
	})
	return cmd
}

// loadRegistry reads the registry file and applies flag overrides.
func loadRegistry() (*config.Registry, error) {
	reg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		reg.DataDir = flagDataDir
	}
	if flagDays > 0 {
		reg.DaysAhead = flagDays
	}
	return reg, nil
}

func openStore(reg *config.Registry) (*storage.Store, error) {
	if reg == nil {
		var err error
		reg, err = loadRegistry()
		if err != nil {
			return nil, err
		}
	}
	store, err := storage.New(reg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// buildPipeline assembles the orchestrator from the registry.
func buildPipeline(reg *config.Registry, collector *diagnostics.Collector) (*scraper.Orchestrator, error) {
	store, err := openStore(reg)
	if err != nil {
		return nil, err
	}
	res, err := resolver.New(store)
	if err != nil {
		return nil, fmt.Errorf("initializing resolver: %w", err)
	}
	orch := scraper.New(adapter.BuildRegistry(scraper.NewClient()), res, store)
	orch.Collector = collector
	return orch, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	orch, err := buildPipeline(reg, nil)
	if err != nil {
		return err
	}

	sources := reg.Enabled()
	if flagSource != "" {
		src, ok := reg.FindSource(flagSource)
		if !ok {
			return fmt.Errorf("unknown source %q", flagSource)
		}
		sources = []config.Source{*src}
	}
	if len(sources) == 0 {
		return fmt.Errorf("no enabled sources in %s", flagConfig)
	}

	ctx := cmd.Context()
	opts := scraper.Options{Days: reg.DaysAhead}
	results := orch.ScrapeAll(ctx, sources, opts, flagConcurrency)

	out := NewBatchOutput(results)
	if err := WriteOutput(os.Stdout, out, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if out.TotalErrors > 0 {
		os.Exit(ExitFindings)
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	src, ok := reg.FindSource(args[0])
	if !ok {
		return fmt.Errorf("unknown source %q", args[0])
	}

	// The orchestrator runs storeless so preview never touches persisted
	// baselines or alerts; the store is opened only for the group directory.
	store, err := openStore(reg)
	if err != nil {
		return err
	}
	res, err := resolver.New(store)
	if err != nil {
		return fmt.Errorf("initializing resolver: %w", err)
	}
	orch := scraper.New(adapter.BuildRegistry(scraper.NewClient()), res, nil)

	result := orch.ScrapeSource(cmd.Context(), *src, scraper.Options{Days: reg.DaysAhead})
	out := NewBatchOutput([]*scraper.Result{result})
	if err := WriteOutput(os.Stdout, out, format, true); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if result.Failed() {
		os.Exit(ExitFindings)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	problems := config.ValidateAll(reg)
	if len(problems) == 0 {
		fmt.Printf("%d sources OK\n", len(reg.Sources))
		return nil
	}
	names := make([]string, 0, len(problems))
	for name := range problems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, p := range problems[name] {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, p)
		}
	}
	os.Exit(ExitFindings)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	collector, promReg := diagnostics.NewCollector()
	orch, err := buildPipeline(reg, collector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go serveMetrics(ctx, flagListenAddr, promReg)

	logger.Info("serve started", logger.Fields{
		"listen":   flagListenAddr,
		"interval": flagInterval.String(),
		"sources":  len(reg.Enabled()),
	})

	ticker := time.NewTicker(flagInterval)
	defer ticker.Stop()
	for {
		results := orch.ScrapeAll(ctx, reg.Enabled(), scraper.Options{Days: reg.DaysAhead}, flagConcurrency)
		out := NewBatchOutput(results)
		logger.Info("batch complete", logger.Fields{
			"sources": len(results),
			"events":  out.TotalEvents,
			"errors":  out.TotalErrors,
		})
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runAlertsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(nil)
	if err != nil {
		return err
	}
	alerts, err := store.LoadAlerts()
	if err != nil {
		return err
	}
	open := 0
	for _, a := range alerts {
		if !a.Open() {
			continue
		}
		open++
		fmt.Printf("%s  %-18s %-14s %s\n", a.ID, a.Type, a.Status, a.Source)
	}
	if open == 0 {
		fmt.Println("No open alerts.")
	}
	return nil
}

func transitionAlert(id string, to alert.Status) error {
	store, err := openStore(nil)
	if err != nil {
		return err
	}
	alerts, err := store.LoadAlerts()
	if err != nil {
		return err
	}
	for _, a := range alerts {
		if a.ID == id {
			if err := a.Transition(to); err != nil {
				return err
			}
			return store.SaveAlerts(alerts)
		}
	}
	return fmt.Errorf("unknown alert %q", id)
}

// maybeAutoResolve closes open unmatched-tag alerts whose tags now
// resolve through the updated directory.
func maybeAutoResolve(store *storage.Store) error {
	res, err := resolver.New(store)
	if err != nil {
		return err
	}
	alerts, err := store.LoadAlerts()
	if err != nil {
		return err
	}
	changed := false
	for _, a := range alerts {
		resolved, err := alert.AutoResolve(a, res)
		if err != nil {
			return err
		}
		changed = changed || resolved
	}
	if changed {
		return store.SaveAlerts(alerts)
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	store, err := openStore(nil)
	if err != nil {
		return err
	}
	res, err := resolver.New(store)
	if err != nil {
		return err
	}
	suggestions, err := res.Suggest(args[0])
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		fmt.Printf("No groups similar to %q.\n", args[0])
		return nil
	}
	for _, s := range suggestions {
		fmt.Printf("%.2f  %s (%s)\n", s.Similarity, s.Name, s.GroupID)
	}
	fmt.Println("\nSuggestions only; run 'trailscan groups alias' to map the tag.")
	return nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

func parseFormat(raw string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(raw))
	if f != FormatText && f != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", raw)
	}
	return f, nil
}
