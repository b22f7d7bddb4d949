package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-ingest/internal/config"
	"github.com/jonathan/job-ingest/internal/ingestion"
	"github.com/jonathan/job-ingest/internal/pipeline"
	"github.com/jonathan/job-ingest/internal/server"
	"github.com/jonathan/job-ingest/internal/server/middleware"
	"github.com/jonathan/job-ingest/internal/server/ratelimit"
	"github.com/jonathan/job-ingest/internal/workflow"
)

const workflowStopTimeout = 2 * time.Minute

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  "Start an HTTP server exposing ingestion, background workflows and lookups.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// tokenValidator returns nil when JWT_SECRET is unset, which disables auth.
func tokenValidator(logger *slog.Logger) middleware.TokenValidator {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		logger.Warn("authentication disabled", slog.String("reason", err.Error()))
		return nil
	}
	return server.NewJWTService(jwtCfg).AsTokenValidator()
}

func logRun[O any](logger *slog.Logger) func(pipeline.RunContext, pipeline.Result[O]) {
	return func(rc pipeline.RunContext, res pipeline.Result[O]) {
		name, _ := rc.Metadata("workflow")
		attrs := []any{
			slog.String("run_id", res.RunID),
			slog.String("workflow", name),
			slog.Int64("duration_ms", res.DurationMs),
		}
		if res.Err != nil {
			logger.Error("workflow run failed", append(attrs, slog.Any("error", res.Err))...)
			return
		}
		logger.Info("workflow run finished", attrs...)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configPath, useMemory)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	discovery := workflow.New[workflow.DiscoveryRequest, *workflow.DiscoveryReport](
		workflow.DiscoveryWorkflowName, a.discovery, a.cfg.WorkflowQueueSize)
	discovery.OnSuccess = logRun[*workflow.DiscoveryReport](a.logger)
	discovery.OnFailure = discovery.OnSuccess

	statusCheck := workflow.New[ingestion.StatusCheckRequest, *ingestion.StatusCheckReport](
		workflow.StatusCheckWorkflowName, a.statusCheck, a.cfg.WorkflowQueueSize)
	statusCheck.OnSuccess = logRun[*ingestion.StatusCheckReport](a.logger)
	statusCheck.OnFailure = statusCheck.OnSuccess

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}
	srv := server.New(server.Config{Port: port}, server.Deps{
		Ingest:      a.router,
		Discovery:   discovery,
		StatusCheck: statusCheck,
		Lookups:     a.store,
		Tokens:      tokenValidator(a.logger),
		Limiter:     ratelimit.NewLimiter(ratelimit.LoadConfig()),
	})

	g, gctx := errgroup.WithContext(ctx)
	discovery.Start(gctx)
	statusCheck.Start(gctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), workflowStopTimeout)
		defer cancel()
		return errors.Join(discovery.Stop(stopCtx), statusCheck.Stop(stopCtx))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
