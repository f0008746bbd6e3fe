package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/jobs"
	"vehicle-counter-go/internal/services/messaging"
	"vehicle-counter-go/internal/services/pipeline"
	"vehicle-counter-go/internal/services/store"
	"vehicle-counter-go/internal/services/video"
)

func main() {
	var (
		jobFile    = flag.String("config", "", "YAML job file; flags given explicitly override it")
		recordPath = flag.String("record-detections", "", "Record per-frame detections as JSONL for later replay")
		jobFlags   = config.RegisterJobFlags(flag.CommandLine)
	)
	flag.Parse()

	cfg := config.Load()
	logging.Setup(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	var req models.JobRequest
	if *jobFile != "" {
		loaded, err := config.LoadJobFile(*jobFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load job file")
		}
		req = loaded
	}

	req = jobFlags.Apply(req, *jobFile != "")

	if req.VideoPath == "" && req.DetectionsPath == "" {
		fmt.Fprintln(os.Stderr, "one of --video, --detections or --config is required")
		flag.Usage()
		os.Exit(2)
	}

	report, err := count(cfg, req, *recordPath)
	if err != nil {
		log.Error().Err(err).Msg("Counting failed")
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode report")
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func count(cfg *config.Config, req models.JobRequest, recordPath string) (models.Report, error) {
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to open run store %s: %w", cfg.DBPath, err)
	}
	defer db.Close()

	var publisher models.MessagePublisher = messaging.Noop{}
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, events will not be published")
		} else {
			defer svc.Shutdown(context.Background())
			publisher = svc
		}
	}

	runner := jobs.NewRunner(cfg, db, publisher, video.NewFactory(cfg, logging.NewServiceLogger(cfg, "video")), logging.NewServiceLogger(cfg, "jobs"))

	var extra []pipeline.FrameObserver
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return models.Report{}, fmt.Errorf("failed to create detections recording: %w", err)
		}
		defer f.Close()
		extra = append(extra, pipeline.NewRecordingObserver(f, logging.NewServiceLogger(cfg, "recorder")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runner.Run(ctx, req, extra...)
}
