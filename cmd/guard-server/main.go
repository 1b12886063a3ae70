package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samijaber1/aegis-guard/internal/adapter/memory"
	natstransport "github.com/samijaber1/aegis-guard/internal/adapter/nats"
	"github.com/samijaber1/aegis-guard/internal/api"
	"github.com/samijaber1/aegis-guard/internal/config"
	"github.com/samijaber1/aegis-guard/internal/dispatch"
	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/events"
	"github.com/samijaber1/aegis-guard/internal/guard"
	"github.com/samijaber1/aegis-guard/internal/ingest"
	"github.com/samijaber1/aegis-guard/internal/metrics"
	"github.com/samijaber1/aegis-guard/internal/scheduler"
	"github.com/samijaber1/aegis-guard/internal/service"
	"github.com/samijaber1/aegis-guard/internal/storage/sqlite"
	"github.com/samijaber1/aegis-guard/internal/window"
)

const schemaPath = "schemas/service_v1.json"

func main() {
	cfg := parseFlags()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting aegis-guard server...")
	log.Printf("Config: port=%d, service-dir=%s, transport=%s, tick=%s",
		cfg.Port, cfg.ServiceDirectory, cfg.TransportType, cfg.TickInterval)

	// Load and validate service definitions
	defs, loadErrors := service.LoadFromDirectory(cfg.ServiceDirectory)
	if len(loadErrors) > 0 {
		for _, e := range loadErrors {
			log.Printf("Error: %v", e)
		}
		log.Fatalf("Failed to load service definitions: %d errors", len(loadErrors))
	}
	if len(defs) == 0 {
		log.Fatalf("No service definitions found in %s", cfg.ServiceDirectory)
	}

	validator, err := service.NewValidator(schemaPath)
	if err != nil {
		log.Fatalf("Failed to create validator: %v", err)
	}
	if validationErrors := validator.ValidateDirectory(cfg.ServiceDirectory); len(validationErrors) > 0 {
		for _, e := range validationErrors {
			log.Printf("Error: %v", e)
		}
		log.Fatalf("Service definition validation failed: %d errors", len(validationErrors))
	}
	log.Printf("Loaded %d service definitions", len(defs))

	// Outbound transport
	var publisher events.Publisher
	var transport *natstransport.Transport
	switch cfg.TransportType {
	case "nats":
		transport, err = natstransport.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer transport.Close()
		publisher = transport
		log.Printf("Using NATS transport: %s", cfg.NATSURL)
	case "memory":
		publisher = memory.NewPublisher()
		log.Printf("Using in-memory transport (no external collaborators)")
	}

	// Core wiring
	registry, err := window.NewRegistry(defs)
	if err != nil {
		log.Fatalf("Failed to build window registry: %v", err)
	}

	collector := metrics.NewCollector()
	flap := dispatch.NewFlapLimiter(defs, cfg.GlobalFailoversPerHour)
	dispatcher := dispatch.NewDispatcher(publisher, collector, flap)
	manager := guard.NewManager(defs, dispatcher, publisher, collector)
	ingestor := ingest.NewIngestor(registry, manager)

	if transport != nil {
		if err := transport.SubscribeSamples(ingestor); err != nil {
			log.Fatalf("Failed to subscribe sample subjects: %v", err)
		}
	}

	evaluator := eval.NewEvaluator()
	loop := scheduler.NewLoop(registry, evaluator, manager, collector, publisher,
		cfg.TickInterval, cfg.MaxParallelEval)

	// Optional audit storage
	if cfg.AuditDBPath != "" {
		store, err := sqlite.NewStore(cfg.AuditDBPath)
		if err != nil {
			log.Fatalf("Failed to open audit storage: %v", err)
		}
		defer store.Close()
		for _, defWithFile := range defs {
			if err := store.StoreDefinition(defWithFile.Definition); err != nil {
				log.Printf("Warning: failed to store definition %s: %v", defWithFile.Definition.Metadata.ID, err)
			}
		}
		loop.SetAuditStorage(store)
		log.Printf("Audit storage enabled: %s", cfg.AuditDBPath)
	}

	if err := loop.Start(); err != nil {
		log.Fatalf("Failed to start evaluation loop: %v", err)
	}

	// Periodic metrics emission
	metricsDone := make(chan struct{})
	emitter := metrics.NewEmitter(collector, publisher, cfg.MetricsInterval)
	go emitter.Run(metricsDone)

	// HTTP API
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	apiServer := api.NewServer(loop, manager, defs, addr)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- apiServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
		defer cancel()

		log.Println("Shutting down server...")
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}

		log.Println("Stopping evaluation loop...")
		loop.Stop()

		// Final metrics snapshot goes out before the transport closes
		close(metricsDone)
		time.Sleep(100 * time.Millisecond)

		log.Println("Shutdown complete")
	}
}

func parseFlags() config.Config {
	cfg := config.DefaultConfig()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "HTTP server host")
	flag.StringVar(&cfg.ServiceDirectory, "service-dir", cfg.ServiceDirectory, "Directory containing service definition YAML files")
	flag.StringVar(&cfg.TransportType, "transport", cfg.TransportType, "Sample/event transport (nats|memory)")
	flag.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL (required for nats transport)")
	flag.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Evaluation tick interval")
	flag.DurationVar(&cfg.MetricsInterval, "metrics-interval", cfg.MetricsInterval, "Periodic metrics emission interval")
	flag.Int64Var(&cfg.MaxParallelEval, "max-parallel", cfg.MaxParallelEval, "Maximum concurrent per-service evaluations")
	flag.IntVar(&cfg.GlobalFailoversPerHour, "max-failovers-per-hour", cfg.GlobalFailoversPerHour, "Global failover rate cap")
	flag.StringVar(&cfg.AuditDBPath, "audit-db", cfg.AuditDBPath, "SQLite audit database path (empty disables persistence)")

	flag.Parse()

	return cfg
}
