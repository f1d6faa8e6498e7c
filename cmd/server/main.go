// Command server runs the registrar and resolver as one HTTP process.
// Dependency wiring lives here; business logic lives in internal packages.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"hvn/internal/audit"
	"hvn/internal/chain"
	"hvn/internal/dns"
	dnshandler "hvn/internal/dns/handler"
	namehandler "hvn/internal/name/handler"
	namemetrics "hvn/internal/name/metrics"
	"hvn/internal/name/service"
	"hvn/internal/name/store"
	"hvn/internal/platform/config"
	"hvn/internal/platform/httpserver"
	"hvn/internal/platform/logger"
	httptransport "hvn/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration invalid", "path", *configPath, "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		st     store.Store
		health []httptransport.HealthChecker
	)
	if cfg.Database.DSN != "" {
		pg, err := store.OpenPostgres(cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.DB().Close()
		st = pg
		health = append(health, pingFunc(pg.DB().PingContext))
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("no database.dsn configured, using the in-memory store")
	}

	offchain, onchain := cfg.Catalog()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(namemetrics.New(registry)),
	}

	if cfg.Chain.RPCURL != "" {
		client, err := chain.Dial(cfg.Chain.RPCURL, cfg.Chain.RegistrarAddr, cfg.Chain.CallTimeout.Std())
		if err != nil {
			log.Error("chain rpc unavailable", "url", cfg.Chain.RPCURL, "error", err)
			os.Exit(1)
		}
		svcOpts = append(svcOpts, service.WithChainReader(client))
	}

	var auditWorker *audit.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka unavailable", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		auditWorker = audit.NewWorker(sink, cfg.Kafka.Buffer, log)
		go auditWorker.Run(ctx)
		svcOpts = append(svcOpts, service.WithAudit(auditWorker))
		log.Info("audit pipeline enabled", "topic", cfg.Kafka.Topic)
	}

	svc := service.New(st, service.Catalog{Offchain: offchain, Onchain: onchain}, svcOpts...)

	dnsOpts := []dns.Option{
		dns.WithLogger(log),
		dns.WithMetrics(dns.NewMetrics(registry)),
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		dnsOpts = append(dnsOpts, dns.WithCache(dns.NewRedisCache(rdb, log)))
		health = append(health, pingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		log.Info("dns response cache enabled", "addr", cfg.Redis.Addr)
	}
	resolver := dns.NewResolver(st, offchain, dns.Config{
		TTLPositive: cfg.DNS.TTLPositive.Std(),
		TTLNegative: cfg.DNS.TTLNegative.Std(),
		GatewayIPs:  cfg.DNS.GatewayIPs,
	}, dnsOpts...)

	router := httptransport.NewRouter(httptransport.Deps{
		Names:     namehandler.New(svc, log),
		DNS:       dnshandler.New(resolver, log),
		DNSSecret: cfg.DNS.BearerSecret,
		Registry:  registry,
		Health:    health,
	})

	srv := httpserver.New(cfg.Addr(), router)
	go func() {
		log.Info("listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	if err := httpserver.Shutdown(srv, cfg.Server.ShutdownTimeout.Std()); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if auditWorker != nil {
		if err := auditWorker.Close(); err != nil {
			log.Warn("audit flush failed", "error", err)
		}
	}
}

// pingFunc adapts a dependency's ping to the router's health check.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
