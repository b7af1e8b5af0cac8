package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mercatale/story-engine/internal/httpapi"
	repositories "github.com/mercatale/story-engine/internal/repositories/fx"
	"github.com/mercatale/story-engine/internal/stories"
	"github.com/mercatale/story-engine/internal/stories/storiesimpl"
	"github.com/mercatale/story-engine/internal/upload"
	"github.com/mercatale/story-engine/internal/upload/uploadimpl"
	"github.com/mercatale/story-engine/internal/viewtracker"
	"github.com/mercatale/story-engine/internal/viewtracker/viewtrackerimpl"
	"github.com/mercatale/story-engine/pkg/config"
	"github.com/mercatale/story-engine/pkg/logger"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		httpapi.New,
	),
	fx.Provide(
		fx.Annotate(
			viewtrackerimpl.New,
			fx.As(new(viewtracker.Tracker)),
		), fx.Annotate(
			uploadimpl.New,
			fx.As(new(upload.Pipeline)),
		), fx.Annotate(
			storiesimpl.New,
			fx.As(new(stories.Service)),
		),
	),
	repositories.Module,
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, svc stories.Service) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go startHttpServer(log, cfg)

			if err := svc.ScheduleRefresh(ctx); err != nil {
				log.Error("Failed to start story refresh schedule", "error", err)
				return err
			}

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			sentry.Flush(2 * time.Second)
			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheckHandler(w, r, log)
	})

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), nil); err != nil {
		log.Error("Server failed to start: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request, logger logger.Logger) {
	logger.Info("Health check request received", "Method", r.Method, "URL", r.URL.String())
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Error("Failed to write response", "Error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
