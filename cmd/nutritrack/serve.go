package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nutritrack/internal/calculator"
	"nutritrack/internal/common/camunda"
	"nutritrack/internal/common/config"
	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/recommendation"
	generatemenurecommendation "nutritrack/internal/workers/recommendation/generate-menu-recommendation"
)

const (
	shutdownTimeout  = 15 * time.Second
	readinessTimeout = 3 * time.Second
	maxRequestBytes  = 1 << 16
)

func newServeCmd(configPath *string) *cobra.Command {
	var flushCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, when enabled, the workflow job worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := initTracing(cfg)
			if err != nil {
				return err
			}
			defer shutdownTracing(context.Background())

			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.close()

			if flushCache {
				if err := app.flushMenuCache(ctx); err != nil {
					return err
				}
			}
			return serve(ctx, app)
		},
	}
	cmd.Flags().BoolVar(&flushCache, "flush-menu-cache", false, "drop cached menu queries before serving")
	return cmd
}

func serve(ctx context.Context, app *application) error {
	cfg, log := app.cfg, app.logger
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress)
		if err != nil {
			return err
		}
		app.checks["zeebe"] = zc.HealthCheck

		taskType := generatemenurecommendation.TaskType
		if config.GetWorkerConfig(cfg, taskType).Enabled {
			wcfg := generatemenurecommendation.LoadConfig(cfg)
			handler := generatemenurecommendation.NewHandler(wcfg, app.recommender, log)
			w := camunda.NewWorker(zc.GetClient(), taskType, wcfg.MaxJobsActive, handler, log)
			g.Go(func() error {
				<-gctx.Done()
				w.Stop()
				return zc.Close()
			})
		} else {
			log.Info("Worker disabled", map[string]interface{}{"taskType": taskType})
			g.Go(func() error {
				<-gctx.Done()
				return zc.Close()
			})
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newMux(app.recommender, app.checks, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info("HTTP server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received, stopping server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type recommender interface {
	Recommend(ctx context.Context, req recommendation.Request) (*recommendation.Result, error)
}

func newMux(rec recommender, checks map[string]readinessCheck, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/api/calculate", calculator.NewHandler(log))
	mux.HandleFunc("/api/recommendations", recommendHandler(rec, log))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			names := make([]string, 0, len(failed))
			for name := range failed {
				names = append(names, name)
			}
			sort.Strings(names)
			log.Warn("Readiness check failed", map[string]interface{}{"components": names})
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failed": failed})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func recommendHandler(rec recommender, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
				"error": errors.NewValidationError("method not allowed"),
			})
			return
		}

		var req recommendation.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": errors.NewValidationError("malformed JSON body: " + err.Error()),
			})
			return
		}

		res, err := rec.Recommend(r.Context(), req)
		if err != nil {
			stdErr := errors.AsStandardError(err)
			log.Warn("Recommendation request failed", map[string]interface{}{
				"userId":    req.UserID,
				"errorCode": string(stdErr.Code),
			})
			writeJSON(w, statusFor(stdErr.Code), map[string]interface{}{"error": stdErr})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidationFailed, errors.ErrCodeUnknownActivityLevel:
		return http.StatusBadRequest
	case errors.ErrCodeUserNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUpstreamUnavailable, errors.ErrCodeUpstreamMalformedResponse:
		return http.StatusBadGateway
	case errors.ErrCodeUpstreamTimeout, errors.ErrCodeQueryTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeStoreUnavailable, errors.ErrCodeQueryExecutionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
