package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/browser"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/config"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/fetch"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/observability"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/patterns"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/repository/postgres"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/repository/redis"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/schemacheck"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/services/extraction"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/storage"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
)

// domHasher fingerprints the provider's current page for cache lookups
type domHasher interface {
	DOMHash(ctx context.Context) (string, error)
}

func main() {
	godotenv.Load()

	url := flag.String("url", "", "Target form URL (default from EXTRACTOR_TARGET_URL)")
	output := flag.String("output", "", "Output file for the schema JSON (empty for stdout)")
	headless := flag.Bool("headless", true, "Run browser in headless mode")
	timeout := flag.Duration("timeout", 2*time.Minute, "Extraction timeout")
	workers := flag.Int("workers", 0, "Hint lookup workers (0 = config default)")
	noBrowser := flag.Bool("no-browser", false, "Use a static HTML fetch instead of a browser")
	overlay := flag.String("patterns", "", "YAML file overriding canonical validation patterns")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		red.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Extractor.TargetURL = *url
	}
	if *workers > 0 {
		cfg.Extractor.HintWorkers = *workers
	}
	cfg.Extractor.Headless = *headless
	if *overlay != "" {
		cfg.Extractor.PatternOverlay = *overlay
	}

	var logger *zap.Logger
	if *verbose || cfg.Debug {
		logger, _ = zap.NewDevelopment()
	} else {
		zapCfg := zap.NewProductionConfig()
		zapCfg.OutputPaths = []string{"/dev/null"}
		logger, _ = zapCfg.Build()
	}
	defer logger.Sync()

	library, err := loadLibrary(cfg.Extractor.PatternOverlay)
	if err != nil {
		red.Printf("loading pattern overlay: %v\n", err)
		os.Exit(1)
	}

	validator, err := schemacheck.NewValidator()
	if err != nil {
		red.Printf("compiling schema validator: %v\n", err)
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		go serveMetrics(cfg.Metrics.Addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cyan.Printf("Extracting form schema: %s\n", cfg.Extractor.TargetURL)
	fmt.Printf("Steps: %v, workers: %d, browser: %v\n",
		cfg.Extractor.Steps, cfg.Extractor.HintWorkers, !*noBrowser)
	fmt.Println("---")

	provider, closeProvider, err := buildProvider(ctx, logger, cfg, *noBrowser)
	if err != nil {
		red.Printf("starting snapshot provider: %v\n", err)
		os.Exit(1)
	}
	defer closeProvider()

	var cache *redis.Cache
	if cfg.Features.EnableCache {
		cache, err = redis.New(cfg.Redis)
		if err != nil {
			yellow.Printf("schema cache unavailable: %v\n", err)
		} else {
			defer cache.Close()
		}
	}

	// an unchanged page serves the cached document without a full run
	var domHash string
	if hasher, ok := provider.(domHasher); ok {
		if domHash, err = hasher.DOMHash(ctx); err != nil {
			logger.Debug("dom hash unavailable", zap.Error(err))
		}
	}
	if cache != nil && domHash != "" {
		last, err := cache.GetLastDOMHash(ctx, cfg.Extractor.TargetURL)
		if err == nil && last != "" && last != domHash {
			yellow.Println("page changed since last run, dropping cached schemas")
			if err := cache.InvalidateSchema(ctx, cfg.Extractor.TargetURL); err != nil {
				logger.Debug("invalidating stale schemas failed", zap.Error(err))
			}
		}
		cached, err := cache.GetSchema(ctx, cfg.Extractor.TargetURL, domHash)
		if err == nil && cached != nil {
			green.Println("✓ page unchanged since last run, serving cached schema")
			writeSchema(cached, *output)
			return
		}
	}

	var store *storage.MinIOClient
	if cfg.Features.EnableUpload {
		store, err = storage.NewMinIOClient(storage.MinIOConfig{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
			BucketName:      cfg.S3.Bucket,
		})
		if err != nil {
			yellow.Printf("artifact storage unavailable: %v\n", err)
			store = nil
		} else if err := store.EnsureBucket(ctx); err != nil {
			yellow.Printf("artifact bucket unavailable: %v\n", err)
			store = nil
		}
	}

	service := extraction.NewService(logger, library, validator, store, metrics).
		WithConfig(extraction.Config{
			SchemaVersion: cfg.Extractor.SchemaVersion,
			HintWorkers:   cfg.Extractor.HintWorkers,
			HintTimeout:   cfg.Extractor.HintTimeout,
		})

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("   extracting..."),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSpinnerType(14),
	)

	out, err := service.Extract(ctx, provider, extraction.ExtractInput{
		SourceURL: cfg.Extractor.TargetURL,
		Steps:     cfg.Extractor.Steps,
	}, func(status string) {
		bar.Describe("   " + status)
		bar.Add(1)
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		red.Printf("extraction failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(out)

	if cache != nil && domHash != "" {
		if err := cache.SetSchema(ctx, cfg.Extractor.TargetURL, domHash, out.Schema); err != nil {
			logger.Debug("caching schema failed", zap.Error(err))
		}
		if err := cache.SetLastDOMHash(ctx, cfg.Extractor.TargetURL, domHash); err != nil {
			logger.Debug("recording dom hash failed", zap.Error(err))
		}
	}

	if cfg.Features.EnableSnapshotStore {
		if err := persistSnapshot(ctx, cfg, out, domHash); err != nil {
			yellow.Printf("snapshot store unavailable: %v\n", err)
		} else {
			green.Println("✓ snapshot recorded")
		}
	}

	writeSchema(out.Schema, *output)
}

func buildProvider(ctx context.Context, logger *zap.Logger, cfg *config.Config, noBrowser bool) (extraction.SnapshotProvider, func(), error) {
	if noBrowser {
		fetchCfg := fetch.DefaultConfig()
		fetchCfg.TargetURL = cfg.Extractor.TargetURL
		fetchCfg.Timeout = cfg.Extractor.Timeout
		return fetch.New(logger, fetchCfg), func() {}, nil
	}

	browserCfg := browser.Config{
		TargetURL: cfg.Extractor.TargetURL,
		Headless:  cfg.Extractor.Headless,
		Timeout:   cfg.Extractor.Timeout,
		RateLimit: cfg.Extractor.RateLimit,
	}
	provider, err := browser.New(logger, browserCfg)
	if err != nil {
		return nil, nil, err
	}
	if err := provider.Navigate(ctx); err != nil {
		provider.Close()
		return nil, nil, err
	}
	return provider, func() { provider.Close() }, nil
}

func loadLibrary(overlayPath string) (*patterns.Library, error) {
	if overlayPath == "" {
		return patterns.Default(), nil
	}
	return patterns.Load(overlayPath)
}

func persistSnapshot(ctx context.Context, cfg *config.Config, out *extraction.ExtractOutput, domHash string) error {
	db, err := postgres.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewSnapshotRepository(db.DB)
	return repo.Create(ctx, &domain.SchemaSnapshot{
		Source:      out.Schema.SourceIdentifier,
		Version:     out.Schema.Version,
		DOMHash:     domHash,
		FieldsFound: out.FieldsFound,
		Schema:      out.Schema,
	})
}

func printSummary(out *extraction.ExtractOutput) {
	schema := out.Schema

	fmt.Println("---")
	green.Println("Extraction complete:")
	fmt.Printf("├── Steps: %d\n", schema.Metadata.TotalSteps)
	fmt.Printf("├── Fields: %d\n", out.FieldsFound)
	for step, count := range schema.Metadata.StepFieldCounts {
		fmt.Printf("│   ├── %s (%s): %d\n", step, schema.Metadata.StepDescriptions[step], count)
	}
	fmt.Printf("├── Rules: %d required, %d pattern, %d length\n",
		schema.Statistics.RulesByType[domain.RuleRequired],
		schema.Statistics.RulesByType[domain.RulePattern],
		schema.Statistics.RulesByType[domain.RuleLength],
	)
	if out.SchemaURI != "" {
		fmt.Printf("├── Artifact: %s\n", out.SchemaURI)
	}
	fmt.Printf("└── Duration: %s\n", out.Duration.Round(time.Millisecond))
}

func writeSchema(schema *domain.FormSchema, output string) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		red.Printf("marshaling schema: %v\n", err)
		os.Exit(1)
	}

	if output == "" {
		fmt.Println(string(data))
		return
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		red.Printf("writing %s: %v\n", output, err)
		os.Exit(1)
	}
	green.Printf("✓ schema saved to %s\n", output)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	http.ListenAndServe(addr, mux)
}
