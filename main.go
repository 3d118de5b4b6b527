package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cbarlow/newsbrief/analysis"
	"github.com/cbarlow/newsbrief/api"
	"github.com/cbarlow/newsbrief/datastore"
	"github.com/cbarlow/newsbrief/delivery"
	"github.com/cbarlow/newsbrief/ingestion"
	"github.com/cbarlow/newsbrief/llm"
	"github.com/cbarlow/newsbrief/logging"
	"github.com/cbarlow/newsbrief/processing"
	rh "github.com/cbarlow/newsbrief/route-handlers"
	"github.com/cbarlow/newsbrief/scheduler"
	"github.com/joho/godotenv"
)

const (
	defaultPort           = "8080"
	defaultDataDir        = "./data"
	defaultModel          = "gpt-4o-mini"
	defaultDigestTitle    = "AI News Digest"
	defaultRecencyDays    = 7
	defaultCacheDays      = 7
	defaultLedgerDays     = 30
	defaultReportDays     = 7
	defaultMaxPerSource   = 2
	defaultBatchSize      = 5
	defaultRequestsPerMin = 30
	defaultScheduleHours  = 24
	defaultSMTPPort       = 587
	shutdownTimeout       = 15 * time.Second
)

const (
	cacheFileName  = "summary_cache.json"
	ledgerFileName = "sent_ledger.json"
	reportsDirName = "reports"
	logsDirName    = "logs"
)

type config struct {
	port                 string
	dataDir              string
	sourcesFile          string
	digestTitle          string
	llmAPIKey            string
	llmBaseURL           string
	llmModel             string
	llmRequestsPerMinute int
	recencyWindow        time.Duration
	cacheRetention       time.Duration
	ledgerRetention      time.Duration
	reportRetention      time.Duration
	maxPerSource         int
	batchSize            int
	scheduleInterval     time.Duration
	smtp                 delivery.SMTPConfig
}

func main() {
	cfg := loadConfig()

	if err := logging.Setup(filepath.Join(cfg.dataDir, logsDirName)); err != nil {
		log.Printf("WARNING: File logging unavailable: %v", err)
	}

	cache := datastore.NewSummaryCache(
		datastore.NewFileBackend(filepath.Join(cfg.dataDir, cacheFileName)), cfg.cacheRetention)
	if err := cache.Load(); err != nil {
		log.Fatalf("Summary cache setup failed: %v", err)
	}
	ledger := datastore.NewSentLedger(
		datastore.NewFileBackend(filepath.Join(cfg.dataDir, ledgerFileName)), cfg.ledgerRetention)
	if err := ledger.Load(); err != nil {
		log.Fatalf("Sent ledger setup failed: %v", err)
	}

	catalog, err := ingestion.LoadCatalog(cfg.sourcesFile)
	if err != nil {
		log.Fatalf("Source catalog setup failed: %v", err)
	}
	log.Printf("INFO: Loaded %d sources across %d categories", len(catalog.All()), len(catalog.ByCategory()))

	llmClient := llm.NewClient(llm.Config{
		APIKey:            cfg.llmAPIKey,
		BaseURL:           cfg.llmBaseURL,
		Model:             cfg.llmModel,
		RequestsPerMinute: float64(cfg.llmRequestsPerMinute),
	})

	reports := datastore.NewReportRepository(filepath.Join(cfg.dataDir, reportsDirName))
	deliveryService := setupDelivery(cfg)
	collector := ingestion.NewCollector(cfg.recencyWindow, cfg.maxPerSource)

	status := processing.NewRunStatus()
	processor := &processing.DigestProcessor{
		Config: processing.RunConfig{
			DigestTitle:     cfg.digestTitle,
			ReportRetention: cfg.reportRetention,
		},
		Catalog:    catalog,
		Collector:  collector,
		Extractor:  ingestion.NewExtractor(),
		Summarizer: analysis.NewSummarizer(llmClient, cache, cfg.batchSize),
		Filter:     analysis.NewQualityFilter(llmClient),
		Trends:     analysis.NewTrendAnalyzer(llmClient),
		Cache:      cache,
		Ledger:     ledger,
		Reports:    reports,
		Delivery:   deliveryService,
		Status:     status,
	}

	statusHandler := rh.NewStatusHandler(status)
	reportHandler := rh.NewReportHandler(processor, reports, catalog)
	sourceHandler := rh.NewSourceHandler(catalog, collector)

	digestScheduler := scheduler.New(processor, cfg.scheduleInterval)

	router := api.SetupRoutes(statusHandler, reportHandler, sourceHandler, digestScheduler)

	startServer(cfg.port, router)

	// Persist anything still buffered before exiting.
	if err := cache.Flush(); err != nil {
		log.Printf("WARNING: Failed to flush summary cache on shutdown: %v", err)
	}
	if err := ledger.Flush(); err != nil {
		log.Printf("WARNING: Failed to flush sent ledger on shutdown: %v", err)
	}
}

func loadConfig() config {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, relying on the process environment")
	}

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		log.Fatal("LLM_API_KEY not set. Summarization cannot run without a model API key.")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
		log.Printf("WARNING: DATA_DIR not set, using %s", defaultDataDir)
	}

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = defaultModel
		log.Printf("WARNING: LLM_MODEL not set, using %s", defaultModel)
	}

	return config{
		port:                 envDefault("PORT", defaultPort),
		dataDir:              dataDir,
		sourcesFile:          os.Getenv("SOURCES_FILE"),
		digestTitle:          envDefault("DIGEST_TITLE", defaultDigestTitle),
		llmAPIKey:            apiKey,
		llmBaseURL:           os.Getenv("LLM_BASE_URL"),
		llmModel:             model,
		llmRequestsPerMinute: envInt("LLM_REQUESTS_PER_MINUTE", defaultRequestsPerMin),
		recencyWindow:        time.Duration(envInt("RECENCY_WINDOW_DAYS", defaultRecencyDays)) * 24 * time.Hour,
		cacheRetention:       time.Duration(envInt("CACHE_RETENTION_DAYS", defaultCacheDays)) * 24 * time.Hour,
		ledgerRetention:      time.Duration(envInt("LEDGER_RETENTION_DAYS", defaultLedgerDays)) * 24 * time.Hour,
		reportRetention:      time.Duration(envInt("REPORT_RETENTION_DAYS", defaultReportDays)) * 24 * time.Hour,
		maxPerSource:         envInt("MAX_ARTICLES_PER_SOURCE", defaultMaxPerSource),
		batchSize:            envInt("SUMMARY_BATCH_SIZE", defaultBatchSize),
		scheduleInterval:     time.Duration(envInt("SCHEDULE_INTERVAL_HOURS", defaultScheduleHours)) * time.Hour,
		smtp: delivery.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", defaultSMTPPort),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			To:       splitList(os.Getenv("SMTP_TO")),
		},
	}
}

func setupDelivery(cfg config) *delivery.Service {
	if cfg.smtp.Host == "" || cfg.smtp.From == "" || len(cfg.smtp.To) == 0 {
		log.Println("WARNING: SMTP not configured. Digests will be available through the API only.")
		return delivery.NewService()
	}
	log.Printf("INFO: Email delivery enabled via %s for %d recipients", cfg.smtp.Host, len(cfg.smtp.To))
	return delivery.NewService(delivery.NewEmailProvider(cfg.smtp))
}

func envDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a number, using %d", name, raw, fallback)
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
