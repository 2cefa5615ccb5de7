package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"arisan/internal/events/relay"
	jwttoken "arisan/internal/jwt_token"
	"arisan/internal/platform/config"
	"arisan/internal/platform/httpserver"
	"arisan/internal/platform/logger"
	httpmetrics "arisan/internal/platform/metrics"
	poolhandler "arisan/internal/pool/handler"
	poolmetrics "arisan/internal/pool/metrics"
	poolservice "arisan/internal/pool/service"
	registryhandler "arisan/internal/registry/handler"
	registrymetrics "arisan/internal/registry/metrics"
	registrymodels "arisan/internal/registry/models"
	ratelimitmetrics "arisan/internal/ratelimit/metrics"
	ratelimitmw "arisan/internal/ratelimit/middleware"
	ratelimitmodels "arisan/internal/ratelimit/models"
	registryservice "arisan/internal/registry/service"
	"arisan/internal/token"
	tokenhandler "arisan/internal/token/handler"
	trusthandler "arisan/internal/trust/handler"
	trustmetrics "arisan/internal/trust/metrics"
	trustmodels "arisan/internal/trust/models"
	trustservice "arisan/internal/trust/service"
	"arisan/pkg/platform/httputil"
	"arisan/pkg/platform/middleware/auth"
	"arisan/pkg/platform/middleware/metadata"
	"arisan/pkg/platform/middleware/request"
	"arisan/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "arisan:", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until a signal arrives or a component fails.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer b.close(log)

	router, err := buildRouter(cfg, b, reg, log)
	if err != nil {
		return err
	}
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting arisan", "addr", cfg.Addr, "env", cfg.Environment, "postgres", cfg.UsePostgres())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if b.outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		client, err := relay.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer client.Close()
		r, err := relay.New(b.outbox, client, cfg.Kafka.Topic,
			relay.WithLogger(log),
			relay.WithMetrics(relay.NewMetrics(reg)),
			relay.WithInterval(cfg.Kafka.RelayInterval),
			relay.WithBatchSize(cfg.Kafka.RelayBatch),
		)
		if err != nil {
			return err
		}
		g.Go(func() error { return r.Run(gctx) })
	} else if b.outbox != nil {
		log.Warn("KAFKA_BROKERS not set; outbox events will accumulate unrelayed")
	}

	return g.Wait()
}

func buildRouter(cfg config.Server, b *backends, reg *prometheus.Registry, log *slog.Logger) (http.Handler, error) {
	p := cfg.Params

	tokens, err := token.NewService(b.ledger, b.seq,
		token.WithLogger(log),
		token.WithFaucet(cfg.FaucetEnabled, cfg.FaucetAmount),
	)
	if err != nil {
		return nil, err
	}
	trust, err := trustservice.New(b.vouches, b.seq,
		trustservice.WithLogger(log),
		trustservice.WithPublisher(b.publisher),
		trustservice.WithMetrics(trustmetrics.New(reg)),
		trustservice.WithParams(trustmodels.Params{
			MinWeight:             p.MinVouchWeight,
			MaxWeight:             p.MaxVouchWeight,
			VerificationThreshold: p.VerificationThreshold,
		}),
	)
	if err != nil {
		return nil, err
	}
	pools, err := poolservice.New(b.pools, trust, b.ledger, b.seq,
		poolservice.WithLogger(log),
		poolservice.WithPublisher(b.publisher),
		poolservice.WithMetrics(poolmetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}
	registry, err := registryservice.New(b.pools, b.settings, b.ledger, b.seq, cfg.RegistryAddress,
		registryservice.WithLogger(log),
		registryservice.WithPublisher(b.publisher),
		registryservice.WithMetrics(registrymetrics.New(reg)),
		registryservice.WithParams(registrymodels.Params{
			MinMembers:  p.MinMembers,
			MaxMembers:  p.MaxMembers,
			MaxUjrahBps: p.MaxUjrahBps,
		}),
	)
	if err != nil {
		return nil, err
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	requireCaller := auth.RequireCaller(jwttoken.NewJWTServiceAdapter(jwtService), log)

	limits := newRateLimiter(cfg.RateLimit, b.buckets, reg, log)

	tokenH := tokenhandler.New(tokens, log)
	trustH := trusthandler.New(trust, log)
	poolH := poolhandler.New(pools, log)
	registryH := registryhandler.New(registry, log)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(httpmetrics.New(reg).Middleware)

	r.Get("/healthz", healthHandler(b.checks()))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(limits.Limit(ratelimitmodels.ClassRead))
		tokenH.RegisterPublic(r)
		trustH.RegisterPublic(r)
		poolH.RegisterPublic(r)
		registryH.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireCaller)
		r.Use(limits.Limit(ratelimitmodels.ClassWrite))
		tokenH.Register(r, limits.Limit(ratelimitmodels.ClassFaucet))
		trustH.Register(r)
		poolH.Register(r)
		registryH.Register(r)
	})
	return r, nil
}

func newRateLimiter(cfg config.RateLimitConfig, store ratelimitmw.Store, reg prometheus.Registerer, log *slog.Logger) *ratelimitmw.Middleware {
	policies := map[ratelimitmodels.Class]ratelimitmodels.Policy{
		ratelimitmodels.ClassRead:   {Limit: cfg.ReadPerMinute, Window: time.Minute},
		ratelimitmodels.ClassWrite:  {Limit: cfg.WritePerMinute, Window: time.Minute},
		ratelimitmodels.ClassFaucet: {Limit: cfg.FaucetPerHour, Window: time.Hour},
	}
	return ratelimitmw.New(store, policies, log,
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithDisabled(!cfg.Enabled),
	)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Time   time.Time         `json:"time"`
}

// healthHandler reports 503 when any backend probe fails.
func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}, Time: time.Now().UTC()}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
