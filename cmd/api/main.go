package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"

	"container-health/internal/config"
	"container-health/internal/domain"
	"container-health/internal/monitor"
	"container-health/internal/repository"
	"container-health/internal/router"
	"container-health/internal/source"
	"container-health/internal/stream"
	"container-health/internal/util"
)

var (
	configPath = flag.String("config", "", "Path to the YAML config file. Defaults apply when empty.")
	port       = flag.Int("port", 0, "Listen port. Overrides server.port when non-zero.")
)

func LoggerInitialize(cfg config.LogConfig) (*util.ServiceLogger, error) {

	logger := &util.ServiceLogger{}

	if err := logger.Init(cfg.Options()); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		return nil, err
	}

	logger.LogEvent(util.LOG_LEVEL_INFO, "Service started")

	currentTime := time.Now().Format(time.RFC3339)

	fmt.Fprintf(os.Stderr, "\n%s: ContainerHealth Agent started \n", currentTime)

	return logger, nil
}

const storeInitTimeout = 10 * time.Second

func newSnapshotStore(ctx context.Context, cfg config.StorageConfig) (domain.SnapshotStore, error) {
	var store domain.SnapshotStore

	switch cfg.Backend {
	case config.BackendSQLite:
		if err := util.CheckAndCreateLogFolder(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
		store = repository.NewSQLiteStore(cfg.Path)
	case config.BackendMemory:
		store = repository.NewMemoryStore()
	case config.BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}

	if err := repository.InitWithRetry(ctx, store, storeInitTimeout); err != nil {
		return nil, err
	}
	return store, nil
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not parse env args")

	cfg, err := config.Load(*configPath)
	rtx.Must(err, "Failed to load config")
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := LoggerInitialize(cfg.Log)
	if err != nil {
		fmt.Println("Error while initializing the logger..", err)
		return
	}
	defer logger.DeInit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.New(ctx, cfg.Source.Kind, source.Options{
		CgroupRoot: cfg.Source.CgroupRoot,
		StubSeed:   cfg.Source.StubSeed,
	})
	rtx.Must(err, "Failed to create metric source")
	logger.LogEvent(util.LOG_LEVEL_INFO, "Using metric source", src.Name())

	store, err := newSnapshotStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize snapshot store: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	mon := monitor.New(monitor.Options{
		Source:          src,
		Store:           store,
		Logger:          logger,
		Policy:          cfg.Scoring.Policy(),
		HistoryCapacity: cfg.History.Capacity,
	})

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, logger, func(next *config.Config) {
				mon.SetPolicy(next.Scoring.Policy())
				logger.LogEvent(util.LOG_LEVEL_INFO, "Scoring policy reloaded:", next.Scoring.UptimeBonus, "strict:", next.Scoring.Strict)
			})
			if err != nil {
				logger.LogEvent(util.LOG_LEVEL_ERROR, "Config watcher stopped:", err)
			}
		}()
	}

	hub := stream.New(mon, cfg.Stream.Interval, logger)
	go hub.Run(ctx)

	server := router.NewServer(cfg.Server.Addr(), router.NewRouter(mon, store, hub, logger), cfg.Server)
	log.Printf("Listening on %s", server.Addr)

	if err := router.Run(ctx, server, cfg.Server.ShutdownTimeout, logger); err != nil {
		log.Printf("Server stopped with error: %s", err.Error())
		return
	}
	log.Println("Server stopped gracefully.")
}
