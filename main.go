package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"policywatch/api"
	"policywatch/backup"
	"policywatch/config"
	"policywatch/fetch"
	"policywatch/notify"
	"policywatch/pipeline"
	"policywatch/storage"
	"policywatch/summarize"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfgPath := config.GetEnvOrDefault("CONFIG_FILE", "config.json")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	log.Printf("Loaded %d sources from %s", len(cfg.Sources), cfgPath)

	dataDir := config.GetEnvOrDefault("DATA_DIR", "data")
	store := storage.NewStore(filepath.Join(dataDir, "cache", "cache.json"))

	ctx := context.Background()
	cacheBackup, err := backup.FromEnv(ctx)
	if err != nil {
		log.Printf("Warning: backup disabled: %v", err)
	}
	if cacheBackup != nil {
		restoreIfMissing(ctx, store, cacheBackup)
	}

	summaries := newSummaryStore(dataDir)

	fetcher := fetch.NewClient(fetch.ClientConfig{
		Timeout: time.Duration(config.GetEnvInt("FETCH_TIMEOUT_SEC", 30)) * time.Second,
		Retries: config.GetEnvInt("FETCH_RETRIES", 3),
		Backoff: time.Duration(config.GetEnvInt("FETCH_RETRY_BACKOFF_MS", 1200)) * time.Millisecond,
		Delay:   time.Duration(config.GetEnvInt("FETCH_DELAY_MS", 2000)) * time.Millisecond,
	})

	var summarizer summarize.Summarizer = summarize.Fallback{}
	if cohere := summarize.NewCohereFromEnv(); cohere != nil {
		log.Println("Summarizer: Cohere")
		summarizer = cohere
	} else {
		log.Println("Summarizer: rule-based fallback (COHERE_API_KEY not set)")
	}
	gate := summarize.NewGate(
		config.GetEnvInt("LLM_MAX_CONCURRENCY", 2),
		time.Duration(config.GetEnvInt("LLM_MIN_INTERVAL_MS", 300))*time.Millisecond,
	)

	publisher, err := notify.FromEnv()
	if err != nil {
		log.Printf("Warning: report publishing disabled: %v", err)
	}

	p := pipeline.New(pipeline.Options{
		Config:       cfg,
		Store:        store,
		Summaries:    summaries,
		Fetcher:      fetcher,
		Summarizer:   summarize.NewThrottled(summarizer, gate),
		Backup:       backupOrNil(cacheBackup),
		Publisher:    publisherOrNil(publisher),
		PruneRemoved: config.GetEnvBool("PRUNE_REMOVED_SOURCES", true),
	})

	go runScheduler(p)

	addr := ":" + config.GetEnvOrDefault("PORT", "8080")
	r := api.NewRouter(api.Deps{
		Runner:            p,
		Stats:             store,
		SourcesConfigured: len(cfg.Sources),
		PageSize:          cfg.PageSize,
		MaxCache:          cfg.MaxItemsTotal,
	})
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  GET  /api/stats")
	log.Println("  POST /api/run")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// runScheduler triggers a run every RUN_INTERVAL_HOURS (default 24),
// optionally once at startup. Runs never overlap: the ticker fires into
// the same goroutine.
func runScheduler(p *pipeline.Pipeline) {
	interval := time.Duration(config.GetEnvInt("RUN_INTERVAL_HOURS", 24)) * time.Hour

	if config.GetEnvBool("RUN_ON_START", false) {
		runOnce(p)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		runOnce(p)
	}
}

func runOnce(p *pipeline.Pipeline) {
	log.Println("=== Detection run starting ===")
	report, err := p.RunUpdate(context.Background())
	if err != nil {
		log.Printf("run failed: %v", err)
		return
	}
	log.Printf("Run complete: %d page(s) changed, %d section change(s), %d error(s)",
		report.Changed, report.SectionsChanged, len(report.Errors))
}

// restoreIfMissing pulls the backed-up cache when no local file exists,
// for hosts without a durable volume.
func restoreIfMissing(ctx context.Context, store *storage.Store, b *backup.Backup) {
	if _, err := os.Stat(store.Path()); err == nil {
		return
	}
	data, err := b.Restore(ctx)
	if err != nil {
		log.Printf("Warning: cache restore failed: %v", err)
		return
	}
	if data == nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0o755); err != nil {
		log.Printf("Warning: cache restore failed: %v", err)
		return
	}
	if err := os.WriteFile(store.Path(), data, 0o644); err != nil {
		log.Printf("Warning: cache restore failed: %v", err)
		return
	}
	log.Println("Cache restored from backup")
}

func newSummaryStore(dataDir string) storage.SummaryStore {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		s, err := storage.NewRedisSummaryStore(
			addr,
			os.Getenv("REDIS_PASSWORD"),
			config.GetEnvInt("REDIS_DB", 0),
			time.Duration(config.GetEnvInt("SUMMARY_TTL_HOURS", 0))*time.Hour,
		)
		if err == nil {
			log.Printf("Summary cache: redis at %s", addr)
			return s
		}
		log.Printf("Warning: redis summary cache unavailable, using file store: %v", err)
	}
	return storage.NewFileSummaryStore(filepath.Join(dataDir, "trans_cache.json"))
}

// backupOrNil avoids storing a typed nil in the pipeline's interface field.
func backupOrNil(b *backup.Backup) pipeline.CacheBackup {
	if b == nil {
		return nil
	}
	return b
}

func publisherOrNil(p *notify.KafkaPublisher) notify.Publisher {
	if p == nil {
		return nil
	}
	return p
}
