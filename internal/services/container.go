package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/jobs"
	"vehicle-counter-go/internal/services/live"
	"vehicle-counter-go/internal/services/messaging"
	"vehicle-counter-go/internal/services/store"
)

// PreviewStreamer serves the annotated frames of the running job
type PreviewStreamer interface {
	StreamMJPEG(w http.ResponseWriter, r *http.Request)
}

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	DB        *store.DB
	Messaging *messaging.Service
	Hub       *live.Hub
	Runner    *jobs.Runner
	Preview   PreviewStreamer
	StartedAt time.Time
}

// NewServiceContainer creates all services. videos opens decoded videos;
// when nil only detection replays can be processed. preview may be nil.
func NewServiceContainer(cfg *config.Config, videos jobs.SourceFactory, preview PreviewStreamer) (*ServiceContainer, error) {
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	sc := &ServiceContainer{Config: cfg, DB: db, Preview: preview, StartedAt: time.Now()}

	publishers := messaging.Fanout{}
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			// counting works without NATS
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, events will not be published")
		} else {
			sc.Messaging = svc
			publishers = append(publishers, svc)
		}
	}

	sc.Hub = live.NewHub(map[string]string{
		cfg.CrossingsSubject: live.TypeCount,
		cfg.ProgressSubject:  live.TypeProgress,
		cfg.ReportsSubject:   live.TypeReport,
	}, logging.NewServiceLogger(cfg, "live"))
	publishers = append(publishers, sc.Hub)

	var publisher models.MessagePublisher = publishers
	sc.Runner = jobs.NewRunner(cfg, db, publisher, videos, logging.NewServiceLogger(cfg, "jobs"))

	return sc, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.Hub != nil {
		sc.Hub.Close()
	}
	if sc.Messaging != nil {
		errs = append(errs, sc.Messaging.Shutdown(ctx))
	}
	if sc.DB != nil {
		errs = append(errs, sc.DB.Close())
	}

	return errors.Join(errs...)
}
