package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/cinegraph/internal/bootstrap"
	"github.com/kirillkom/cinegraph/internal/config"
	"github.com/kirillkom/cinegraph/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	m := metrics.NewWorkerMetrics("worker")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Events.SubscribeModelRefresh(ctx, func(handlerCtx context.Context, artifact string) error {
		m.StartRefresh()
		start := time.Now()
		refreshErr := refreshArtifact(app, artifact)
		m.FinishRefresh("worker", artifact, time.Since(start), refreshErr)
		return refreshErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// refreshArtifact drops the named in-memory model so its next read
// rebuilds from storage. Unknown artifact names refresh everything.
func refreshArtifact(app *bootstrap.App, artifact string) error {
	switch artifact {
	case "cbf":
		app.ContentModel.Invalidate()
	case "cf":
		app.RatingModel.Invalidate()
	default:
		app.ContentModel.Invalidate()
		app.RatingModel.Invalidate()
	}
	return nil
}
