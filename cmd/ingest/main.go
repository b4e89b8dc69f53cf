package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"

	"container-health/internal/config"
	"container-health/internal/monitor"
	"container-health/internal/repository"
	"container-health/internal/source"
	"container-health/internal/util"
)

var (
	sourceKind = flag.String("source", string(source.KindAuto), "Metric source: auto, os, cgroup-v1, cgroup-v2, loadavg or stub.")
	cgroupRoot = flag.String("cgroup-root", source.DefaultCgroupRoot, "Root of the cgroup filesystem.")
	count      = flag.Int("count", 30, "Number of samples to take.")
	interval   = flag.Duration("interval", 10*time.Second, "Delay between samples.")
	dbPath     = flag.String("db", config.DefaultDBPath, "SQLite database file.")
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not parse env args")

	rtx.Must(util.CheckAndCreateLogFolder(filepath.Dir(*dbPath)), "Failed to create database folder")

	sqliteStore := repository.NewSQLiteStore(*dbPath)
	if err := sqliteStore.Init(); err != nil {
		log.Fatalf("Failed to initialize SQLite store for ingestion: %v", err)
	}
	defer sqliteStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := source.New(ctx, source.Kind(*sourceKind), source.Options{CgroupRoot: *cgroupRoot})
	rtx.Must(err, "Failed to create metric source")

	mon := monitor.New(monitor.Options{Source: src, Store: sqliteStore})

	ingest(ctx, mon, *count, *interval)
}

func ingest(ctx context.Context, mon *monitor.Monitor, samples int, every time.Duration) {
	log.Printf("Ingesting %d samples from %s every %s...", samples, mon.SourceName(), every)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for i := 0; i < samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				log.Println("Ingestion interrupted.")
				return
			case <-ticker.C:
			}
		}

		report, err := mon.Sample(ctx)
		if err != nil {
			log.Printf("Error sampling at %d: %v", i, err)
			continue
		}
		log.Printf("cpu=%.2f%% memory=%.2f%% score=%d (%s)", report.CPU.Current, report.Memory.Current, report.Score, report.Level)
	}

	log.Println("Data ingestion complete.")
}
