package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	claimservice "lofo/internal/claim/service"
	claimstore "lofo/internal/claim/store"
	"lofo/internal/evidence"
	"lofo/internal/identity"
	"lofo/internal/lifecycle"
	lifecyclehandler "lofo/internal/lifecycle/handler"
	"lofo/internal/notify"
	notifyhandler "lofo/internal/notify/handler"
	notifyservice "lofo/internal/notify/service"
	notifystore "lofo/internal/notify/store"
	"lofo/internal/platform/config"
	"lofo/internal/platform/httpserver"
	"lofo/internal/platform/kafka"
	"lofo/internal/platform/logger"
	"lofo/internal/platform/metrics"
	"lofo/internal/platform/middleware"
	"lofo/internal/platform/postgres"
	"lofo/internal/platform/redis"
	postingservice "lofo/internal/posting/service"
	postingstore "lofo/internal/posting/store"
)

// main wires dependencies and runs the HTTP server plus the notification
// consumer. Business logic lives in the internal services; everything here is
// assembly. With no Postgres DSN, Redis URL, or Kafka brokers configured the
// process runs self-contained on in-memory stores, which is the dev mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		postingStore postingservice.Store
		claimStore   claimservice.Store
		claimSweep   postingservice.ClaimSweeper
		postings     claimservice.PostingReader
		notifyStore  notifyservice.Store
	)
	if db != nil {
		pg := postingstore.NewPostgres(db)
		cs := claimstore.NewPostgres(db)
		postingStore, postings = pg, pg
		claimStore, claimSweep = cs, cs
		notifyStore = notifystore.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		mem := postingstore.NewMemory()
		cs := claimstore.NewMemory(mem)
		postingStore, postings = mem, mem
		claimStore, claimSweep = cs, cs
		notifyStore = notifystore.NewMemory()
	}

	var verifier evidence.Verifier
	if cfg.S3.Endpoint != "" || cfg.S3.AccessKey != "" {
		s3Verifier, err := evidence.NewS3Verifier(ctx, cfg.S3)
		if err != nil {
			return err
		}
		verifier = s3Verifier
	} else {
		log.Warn("no object storage configured, evidence refs are shape-checked only")
		verifier = evidence.RefOnlyVerifier{}
	}
	verifier = evidence.NewCachedVerifier(verifier, redisClient, config.EvidenceCacheTTL, log)

	notifySvc := notifyservice.New(notifyStore, notifyservice.WithLogger(log))

	var (
		sink     lifecycle.Sink
		producer *kafka.Producer
		consumer *kafka.Consumer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic, 3); err != nil {
			return err
		}
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		consumer, err = kafka.NewConsumer(cfg.Kafka.Brokers, "lofo-notifications", cfg.Kafka.NotificationsTopic, log)
		if err != nil {
			return err
		}
		sink = notify.NewKafkaSink(producer, cfg.Kafka.NotificationsTopic, log, m)
	} else {
		log.Warn("no kafka brokers configured, delivering notifications in-process")
		sink = notify.NewDirectSink(notifySvc, log)
	}

	postingSvc := postingservice.New(postingStore, claimSweep,
		postingservice.WithLogger(log),
		postingservice.WithMetrics(m),
		postingservice.WithModeration(cfg.Server.RequireModeration))
	claimSvc := claimservice.New(claimStore, postings, verifier,
		claimservice.WithLogger(log),
		claimservice.WithMetrics(m))
	coordinator := lifecycle.New(postingSvc, claimSvc, sink)

	codec := identity.NewTokenCodec(cfg.Server.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(m))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	lh := lifecyclehandler.New(coordinator, log)
	nh := notifyhandler.New(notifySvc, log)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(codec, log))
		lh.Register(r)
		nh.Register(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(identity.RoleAdmin), log))
			lh.RegisterAdmin(r)
		})
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(ctx, notify.EventHandler(notifySvc))
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if producer != nil {
			_ = producer.Flush(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
