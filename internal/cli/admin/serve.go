package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quayside-labs/deskrag/internal/api/handlers"
	"github.com/quayside-labs/deskrag/internal/config"
	"github.com/quayside-labs/deskrag/internal/domain"
	"github.com/quayside-labs/deskrag/internal/jobs"
	"github.com/quayside-labs/deskrag/internal/llm"
	"github.com/quayside-labs/deskrag/internal/prices"
	"github.com/quayside-labs/deskrag/internal/repository"
	"github.com/quayside-labs/deskrag/internal/server"
	"github.com/quayside-labs/deskrag/internal/service"
	"github.com/quayside-labs/deskrag/internal/storage"
	"github.com/quayside-labs/deskrag/internal/telemetry"
	"github.com/quayside-labs/deskrag/internal/watch"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the deskrag API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is configured
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	deps, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}

	// A missing corpus is a cold start, not a failure; the first ingest
	// creates it.
	if err := deps.Ingest.LoadExisting(); err != nil {
		if errors.Is(err, domain.ErrCorpusMissing) {
			log.Println("no corpus yet; POST /ingest or run 'deskragd ingest' to build one")
		} else {
			log.Printf("failed to load existing corpus (continuing without it): %v", err)
		}
	}

	routerCfg := server.RouterConfig{
		AnswerHandler: handlers.NewAnswerHandler(deps.Agent),
		IngestHandler: handlers.NewIngestHandler(deps.Ingest),
	}
	router := server.NewRouter(routerCfg)

	reindex := jobs.ReindexFunc(func(ctx context.Context) error {
		_, err := deps.Ingest.Run(ctx)
		return err
	})

	var reindexWorker *jobs.Worker
	if cfg.ReindexInterval > 0 {
		reindexWorker = jobs.NewWorker(reindex, cfg.ReindexInterval)
		go reindexWorker.Start(ctx)
	}

	var watcher *watch.Watcher
	if cfg.Watch {
		if cfg.HasS3() {
			log.Println("watch mode ignored: documents come from S3, use DESKRAG_REINDEX_INTERVAL instead")
		} else {
			watcher, err = watch.New(cfg.DataDir, cfg.WatchDebounce, reindex)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			go func() {
				if err := watcher.Start(ctx); err != nil {
					log.Printf("watcher stopped: %v", err)
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if watcher != nil {
		watcher.Close()
	}
	if reindexWorker != nil {
		reindexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// serviceDeps bundles the services both the HTTP surface and the offline
// ingest command are assembled from.
type serviceDeps struct {
	Ingest *service.IngestService
	Agent  *service.AgentService
}

func buildServices(ctx context.Context, cfg *config.Config) (*serviceDeps, error) {
	corpusRepo := repository.NewCorpusRepository(cfg.CorpusPath)
	metricsRepo := repository.NewMetricsRepository(cfg.MetricsPath)

	var source service.DocumentSource
	if cfg.HasS3() {
		s3Source, err := storage.NewS3Source(ctx, storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		log.Printf("reading documents from s3 bucket %q", cfg.S3Bucket)
		source = s3Source
	} else {
		source = storage.NewFSSource(cfg.DataDir)
		log.Printf("reading documents from %s", cfg.DataDir)
	}

	chunkCfg := service.ChunkConfig{
		Window:  cfg.ChunkWindow,
		Overlap: cfg.ChunkOverlap,
	}
	retCfg := service.RetrieverConfig{
		Alpha: cfg.HybridAlpha,
		K1:    cfg.BM25K1,
		B:     cfg.BM25B,
	}

	handle := service.NewRetrieverHandle()
	ingestSvc := service.NewIngestService(source, corpusRepo, metricsRepo, handle, chunkCfg, retCfg)

	// The price book is optional; without it price questions degrade to
	// retrieval.
	var priceBook service.PriceBook
	if book, err := prices.Load(cfg.PricesPath); err != nil {
		log.Printf("price table unavailable (price questions will degrade): %v", err)
	} else {
		priceBook = book
		log.Printf("loaded price table with %d symbols", len(book.Symbols()))
	}

	gen, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}

	agentCfg := service.AgentConfig{
		DefaultK:       cfg.DefaultK,
		MaxK:           cfg.MaxK,
		MaxAnswerChars: cfg.MaxAnswerChars,
		SystemPrompt:   loadSystemPrompt(cfg.PromptPath),
	}
	agentSvc := service.NewAgentService(handle, priceBook, gen, metricsRepo, agentCfg)

	return &serviceDeps{Ingest: ingestSvc, Agent: agentSvc}, nil
}

func buildGenerator(cfg *config.Config) (service.Generator, error) {
	switch cfg.LLMProvider {
	case llm.ProviderOllama:
		gen := llm.NewOllama(llm.OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		log.Printf("generation enabled via %s", gen.Name())
		return gen, nil
	case llm.ProviderOpenAI:
		gen, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.LLMModel,
			BaseURL:           cfg.OpenAIBaseURL,
			Timeout:           cfg.LLMTimeout,
			RequestsPerMinute: cfg.LLMRequestsPerMinute,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai generator: %w", err)
		}
		log.Printf("generation enabled via %s", gen.Name())
		return gen, nil
	default:
		log.Println("generation disabled; answers are extractive")
		return nil, nil
	}
}

// loadSystemPrompt reads the prompt override file, falling back to the
// built-in prompt when the file is absent.
func loadSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
