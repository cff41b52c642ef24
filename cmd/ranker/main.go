// ranker scores, compares and ranks profile content using a trained
// pairwise model with a deterministic heuristic fallback.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/optiprofile/ranker/builtin"
	"github.com/optiprofile/ranker/internal/bootstrap"
	"github.com/optiprofile/ranker/internal/config"
	"github.com/optiprofile/ranker/internal/embedding"
	"github.com/optiprofile/ranker/internal/export"
	"github.com/optiprofile/ranker/internal/metrics"
	"github.com/optiprofile/ranker/internal/scoring"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/internal/trainer"
	"github.com/optiprofile/ranker/pkg/plugin/host"
	"github.com/optiprofile/ranker/pkg/provider"
	"github.com/optiprofile/ranker/pkg/types"
)

var (
	version     = "0.1.0"
	projectRoot string
	logLevel    string
	logFormat   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ranker",
	Short: "Profile content ranking service",
	Long: `ranker maintains a dataset of profile content items and labeled
preference pairs, exports training datasets, drives an external trainer
and serves scoring/comparison with a trained model or a deterministic
heuristic fallback.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ranker %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in the project root",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		runInit(force)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigShow()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigValidate()
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Seed the dataset from benchmark content",
	Long: `Read benchmark content, extract feature metrics, create rank items
and generate labeled pairs ordered by benchmark quality.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		platform, _ := cmd.Flags().GetString("platform")
		embed, _ := cmd.Flags().GetBool("embed")
		runBootstrap(file, platform, embed, cmd.Flags().Changed("embed"))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the training dataset",
	Long:  `Write dataset.jsonl and metadata.json for the external trainer.`,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")
		source, _ := cmd.Flags().GetString("source")
		dim, _ := cmd.Flags().GetInt("embedding-dim")
		runExport(out, source, dim)
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Export the dataset and run the external trainer",
	Run: func(cmd *cobra.Command, args []string) {
		smoke, _ := cmd.Flags().GetBool("smoke")
		runTrain(smoke)
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score <item-id>",
	Short: "Score a single rank item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runScore(args[0])
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <a-item-id> <b-item-id>",
	Short: "Compare two rank items",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCompare(args[0], args[1])
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <text>",
	Short: "Find items similar to a query text or an existing item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		byItem, _ := cmd.Flags().GetBool("item")
		runSimilar(args[0], limit, byItem)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset and model status",
	Run: func(cmd *cobra.Command, args []string) {
		runStatus()
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete rank items and their pairs",
	Run: func(cmd *cobra.Command, args []string) {
		platform, _ := cmd.Flags().GetString("platform")
		force, _ := cmd.Flags().GetBool("force")
		runPurge(platform, force)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Serve scoring and reload the model on activation changes",
	Long: `Initialize the scoring service and watch the models directory for
active-model pointer changes, re-initializing on each change. Runs
until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWatch()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "root", "r", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	initCmd.Flags().BoolP("force", "f", false, "overwrite existing configuration")

	bootstrapCmd.Flags().StringP("file", "f", "", "benchmark content file (JSONL), overrides config")
	bootstrapCmd.Flags().StringP("platform", "p", "", "restrict to one platform (linkedin, github, resume)")
	bootstrapCmd.Flags().Bool("embed", false, "embed items during bootstrap")

	exportCmd.Flags().StringP("out", "o", "", "output directory, overrides config")
	exportCmd.Flags().StringP("source", "s", "", "restrict to pairs from one source")
	exportCmd.Flags().Int("embedding-dim", 0, "embedding width override for the manifest")

	trainCmd.Flags().Bool("smoke", false, "run a scoring smoke check after training")

	similarCmd.Flags().IntP("limit", "l", 10, "maximum results")
	similarCmd.Flags().Bool("item", false, "treat the argument as an item ID instead of query text")

	purgeCmd.Flags().StringP("platform", "p", "", "restrict to one platform")
	purgeCmd.Flags().BoolP("force", "f", false, "skip confirmation")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(watchCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// resolveRoot returns the absolute project root.
func resolveRoot() string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		slog.Error("failed to resolve project root", "error", err)
		os.Exit(1)
	}
	return abs
}

// loadConfig loads config for the project root, applying log settings
// from the config file unless overridden on the command line.
func loadConfig(root string) *config.Config {
	cfg, warnings, err := config.Load(root)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}

	if logLevel == "" && cfg.Logging.Level != "" {
		logLevel = cfg.Logging.Level
		logFormat = cfg.Logging.Format
		setupLogging()
	}
	return cfg
}

func openStore(cfg *config.Config, root string) *store.Store {
	st, err := store.Open(cfg.StorePath(root))
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	return st
}

// createEmbedder builds the configured embedding provider wrapped in
// the content-hash cache.
func createEmbedder(cfg *config.Config) (*embedding.CachedProvider, error) {
	backend, err := provider.CreateEmbedding(cfg.Embedding.Provider, provider.EmbeddingConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.Endpoint,
		APIKey:    cfg.Embedding.APIKey,
		BatchSize: cfg.Embedding.BatchSize,
	})
	if err != nil {
		return nil, err
	}

	var cache embedding.Cache
	switch cfg.Cache.Backend {
	case "redis":
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		cache, err = embedding.NewRedisCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, ttl)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
	default:
		cache = embedding.NewMemoryCache(cfg.Cache.MaxSize)
	}

	return embedding.NewCachedProvider(backend, cache), nil
}

// createService wires the scoring service. The returned cleanup unloads
// any scorer plugins; it is safe to call when no plugin was loaded.
func createService(cfg *config.Config, root string, st *store.Store) (*scoring.Service, func()) {
	var loader scoring.RuntimeLoader
	cleanup := func() {}

	if cfg.Models.ScorerPlugin != "" {
		manager := host.NewManager(cfg.PluginsDir(root))
		loader = scoring.NewPluginLoader(manager, cfg.Models.ScorerPlugin)
		cleanup = manager.UnloadAll
	}

	svc := scoring.NewService(st, cfg.ModelsDir(root), loader, slog.Default())
	return svc, cleanup
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	return ctx, cancel
}

func runInit(force bool) {
	root := resolveRoot()
	configPath := config.ConfigPath(root)

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Printf("Configuration already exists at %s (use --force to overwrite)\n", configPath)
		return
	}

	cfg := config.DefaultConfig()
	if err := config.Save(root, cfg); err != nil {
		slog.Error("failed to write config", "error", err)
		os.Exit(1)
	}

	for _, dir := range []string{cfg.ModelsDir(root), cfg.PluginsDir(root), cfg.DatasetDir(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Initialized configuration at %s\n", configPath)
}

func runConfigShow() {
	root := resolveRoot()
	cfg := loadConfig(root)

	fmt.Printf("Config file: %s\n\n", config.ConfigPath(root))
	fmt.Printf("Store:     %s\n", cfg.StorePath(root))
	fmt.Printf("Embedding: %s/%s (batch %d)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BatchSize)
	fmt.Printf("Cache:     %s\n", cfg.Cache.Backend)
	fmt.Printf("Models:    %s\n", cfg.ModelsDir(root))
	fmt.Printf("Plugins:   %s\n", cfg.PluginsDir(root))
	if cfg.Models.ScorerPlugin != "" {
		fmt.Printf("Scorer:    %s\n", cfg.Models.ScorerPlugin)
	} else {
		fmt.Println("Scorer:    (none, heuristic only)")
	}
	fmt.Printf("Trainer:   %s %s\n", cfg.Trainer.PythonBin, cfg.Trainer.Script)
	fmt.Printf("Dataset:   %s\n", cfg.DatasetDir(root))
	if cfg.Metrics.Enabled {
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Addr)
	}
}

func runConfigValidate() {
	root := resolveRoot()
	cfg := loadConfig(root)

	errs := config.Validate(cfg)
	if len(errs) == 0 {
		fmt.Println("Configuration is valid")
		return
	}
	for _, err := range errs {
		fmt.Printf("  - %v\n", err)
	}
	os.Exit(1)
}

func runBootstrap(file, platform string, embed, embedSet bool) {
	root := resolveRoot()
	cfg := loadConfig(root)

	if platform != "" && !types.ValidPlatform(types.Platform(platform)) {
		fmt.Fprintf(os.Stderr, "unknown platform: %s\n", platform)
		os.Exit(1)
	}

	if file == "" {
		file = cfg.Bootstrap.ContentFile
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}

	doEmbed := cfg.Bootstrap.Embed
	if embedSet {
		doEmbed = embed
	}

	var embedder *embedding.CachedProvider
	if doEmbed {
		var err error
		embedder, err = createEmbedder(cfg)
		if err != nil {
			slog.Error("failed to create embedding provider", "error", err)
			os.Exit(1)
		}
		defer embedder.Close()
	}

	st := openStore(cfg, root)
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	b := bootstrap.New(st, bootstrap.NewFileSource(file), embedder, slog.Default())
	report, err := b.Run(ctx, types.Platform(platform))
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Items created:  %d\n", report.ItemsCreated)
	fmt.Printf("Items skipped:  %d\n", report.ItemsSkipped)
	fmt.Printf("Items embedded: %d\n", report.ItemsEmbedded)
	fmt.Printf("Pairs created:  %d\n", report.PairsCreated)
	fmt.Printf("Pairs skipped:  %d\n", report.PairsSkipped)
}

func runExport(out, source string, dim int) {
	root := resolveRoot()
	cfg := loadConfig(root)

	if out == "" {
		out = cfg.DatasetDir(root)
	}

	st := openStore(cfg, root)
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	meta, err := export.New(st, slog.Default()).Export(ctx, export.Options{
		OutDir:       out,
		Source:       types.PairSource(source),
		EmbeddingDim: dim,
	})
	if err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d pairs over %d items to %s\n", meta.PairCount, meta.ItemCount, out)
	if meta.SkippedPairs > 0 {
		fmt.Printf("Skipped %d pairs with missing items\n", meta.SkippedPairs)
	}
	fmt.Printf("Dataset hash: %s\n", meta.DatasetHash)
	fmt.Printf("Labels: %v\n", meta.LabelDistribution)
}

func runTrain(smoke bool) {
	root := resolveRoot()
	cfg := loadConfig(root)

	script := cfg.Trainer.Script
	if !filepath.IsAbs(script) {
		script = filepath.Join(root, script)
	}

	st := openStore(cfg, root)
	defer st.Close()

	t, err := trainer.New(st, trainer.Config{
		PythonBin:  cfg.Trainer.PythonBin,
		Script:     script,
		DatasetDir: cfg.DatasetDir(root),
		ModelsDir:  cfg.ModelsDir(root),
		ExtraArgs:  cfg.Trainer.ExtraArgs,
	}, slog.Default())
	if err != nil {
		slog.Error("invalid trainer configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := t.Train(ctx)
	if err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Training run %s complete\n", result.Run.ID)
	fmt.Printf("Model:        %s\n", result.Run.ModelPath)
	fmt.Printf("Dataset hash: %s\n", result.Run.DatasetHash)
	fmt.Printf("Val accuracy: %.4f\n", result.Metadata.TrainMetrics.ValAccuracy)
	if result.Activated {
		fmt.Println("Model activated")
	}

	if smoke {
		svc, cleanup := createService(cfg, root, st)
		defer cleanup()
		defer svc.Close()

		if err := svc.Initialize(ctx); err != nil {
			slog.Error("scoring service initialization failed", "error", err)
			os.Exit(1)
		}
		if err := trainer.Smoke(ctx, st, svc); err != nil {
			slog.Error("smoke check failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("Smoke check passed")
	}
}

func runScore(itemID string) {
	root := resolveRoot()
	cfg := loadConfig(root)

	st := openStore(cfg, root)
	defer st.Close()

	svc, cleanup := createService(cfg, root, st)
	defer cleanup()
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := svc.Initialize(ctx); err != nil {
		slog.Error("scoring service initialization failed", "error", err)
		os.Exit(1)
	}

	result, err := svc.ScoreItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "item not found: %s\n", itemID)
		} else {
			slog.Error("scoring failed", "error", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Score:      %.4f\n", result.Score)
	fmt.Printf("Provenance: %s\n", result.Provenance)
}

func runCompare(aID, bID string) {
	root := resolveRoot()
	cfg := loadConfig(root)

	st := openStore(cfg, root)
	defer st.Close()

	svc, cleanup := createService(cfg, root, st)
	defer cleanup()
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := svc.Initialize(ctx); err != nil {
		slog.Error("scoring service initialization failed", "error", err)
		os.Exit(1)
	}

	result, err := svc.Compare(ctx, aID, bID)
	if err != nil {
		slog.Error("comparison failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("A score:    %.4f\n", result.AScore)
	fmt.Printf("B score:    %.4f\n", result.BScore)
	switch result.Preference {
	case 1:
		fmt.Println("Preferred:  A")
	case -1:
		fmt.Println("Preferred:  B")
	default:
		fmt.Println("Preferred:  (tie)")
	}
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	fmt.Printf("Provenance: %s\n", result.Provenance)
}

func runSimilar(query string, limit int, byItem bool) {
	root := resolveRoot()
	cfg := loadConfig(root)

	st := openStore(cfg, root)
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var vec []float32
	if byItem {
		item, err := st.GetItem(ctx, query)
		if err != nil {
			slog.Error("failed to load item", "id", query, "error", err)
			os.Exit(1)
		}
		if item.EmbeddingID == "" {
			fmt.Fprintf(os.Stderr, "item %s has no embedding\n", query)
			os.Exit(1)
		}
		rec, err := st.GetEmbedding(ctx, item.EmbeddingID)
		if err != nil {
			slog.Error("failed to load embedding", "error", err)
			os.Exit(1)
		}
		vec = rec.Vector
	} else {
		embedder, err := createEmbedder(cfg)
		if err != nil {
			slog.Error("failed to create embedding provider", "error", err)
			os.Exit(1)
		}
		defer embedder.Close()

		vecs, err := embedder.Embed(ctx, []string{query})
		if err != nil {
			slog.Error("failed to embed query", "error", err)
			os.Exit(1)
		}
		vec = vecs[0]
	}

	matches, err := st.SimilarItems(ctx, vec, limit)
	if err != nil {
		slog.Error("similarity search failed", "error", err)
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Println("No indexed embeddings")
		return
	}

	for i, m := range matches {
		ref := m.Item.SourceRef
		if len(ref) > 60 {
			ref = ref[:60] + "..."
		}
		ref = strings.ReplaceAll(ref, "\n", " ")
		fmt.Printf("%2d. %.4f  %s  [%s/%s]  %s\n", i+1, m.Score, m.Item.ID, m.Item.Platform, m.Item.Section, ref)
	}
}

func runStatus() {
	root := resolveRoot()
	cfg := loadConfig(root)

	st := openStore(cfg, root)
	defer st.Close()

	svc, cleanup := createService(cfg, root, st)
	defer cleanup()
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := st.GetStats(ctx)
	if err != nil {
		slog.Error("failed to read store stats", "error", err)
		os.Exit(1)
	}

	fmt.Println("=== Dataset ===")
	fmt.Printf("Items:      %d\n", stats.Items)
	fmt.Printf("Pairs:      %d\n", stats.Pairs)
	fmt.Printf("Runs:       %d\n", stats.Runs)
	fmt.Printf("Embeddings: %d\n", stats.Embeddings)
	fmt.Printf("DB size:    %.2f MB\n", float64(stats.DBSizeBytes)/(1024*1024))

	if err := svc.Initialize(ctx); err != nil {
		slog.Error("scoring service initialization failed", "error", err)
		os.Exit(1)
	}
	status := svc.Status()

	fmt.Println("\n=== Model ===")
	if status.ModelActive {
		fmt.Printf("Active:     %s (version %s)\n", status.ModelPath, status.ModelVersion)
	} else {
		fmt.Println("Active:     (none, heuristic fallback)")
	}
	fmt.Printf("Provenance: %s\n", status.Provenance)

	run, err := st.LatestRun(ctx)
	switch {
	case errors.Is(err, types.ErrNotFound):
		fmt.Println("\nNo training runs recorded")
	case err != nil:
		slog.Error("failed to read training runs", "error", err)
		os.Exit(1)
	default:
		fmt.Println("\n=== Latest run ===")
		fmt.Printf("ID:           %s\n", run.ID)
		fmt.Printf("Created:      %s\n", run.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Dataset hash: %s\n", run.DatasetHash)
		if acc, ok := run.TrainMetrics["valAccuracy"]; ok {
			fmt.Printf("Val accuracy: %.4f\n", acc)
		}
	}
}

func runPurge(platform string, force bool) {
	root := resolveRoot()
	cfg := loadConfig(root)

	if platform != "" && !types.ValidPlatform(types.Platform(platform)) {
		fmt.Fprintf(os.Stderr, "unknown platform: %s\n", platform)
		os.Exit(1)
	}

	if !force {
		scope := "ALL items"
		if platform != "" {
			scope = platform + " items"
		}
		fmt.Printf("This will delete %s and their pairs. Continue? [y/N] ", scope)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted")
			return
		}
	}

	st := openStore(cfg, root)
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	deleted, err := st.PurgeItems(ctx, types.Platform(platform))
	if err != nil {
		slog.Error("purge failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %d items\n", deleted)
}

func runWatch() {
	root := resolveRoot()
	cfg := loadConfig(root)

	st := openStore(cfg, root)
	defer st.Close()

	svc, cleanup := createService(cfg, root, st)
	defer cleanup()
	defer svc.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := svc.Initialize(ctx); err != nil {
		slog.Error("scoring service initialization failed", "error", err)
		os.Exit(1)
	}
	status := svc.Status()
	slog.Info("scoring service ready",
		"modelActive", status.ModelActive,
		"provenance", status.Provenance,
	)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			slog.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	watcher, err := scoring.NewWatcher(svc, cfg.ModelsDir(root), slog.Default())
	if err != nil {
		slog.Error("failed to start model watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}
