package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/claidex/risk-engine/internal/application/riskscore"
	"github.com/claidex/risk-engine/internal/config"
	"github.com/claidex/risk-engine/internal/domain/ownership"
	neo4jdriver "github.com/claidex/risk-engine/internal/infrastructure/database/neo4j"
	neo4jrepos "github.com/claidex/risk-engine/internal/infrastructure/database/neo4j/repositories"
	"github.com/claidex/risk-engine/internal/infrastructure/database/postgres"
	pgrepos "github.com/claidex/risk-engine/internal/infrastructure/database/postgres/repositories"
	"github.com/claidex/risk-engine/internal/infrastructure/database/redis"
	"github.com/claidex/risk-engine/internal/infrastructure/messaging/kafka"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/logging"
	"github.com/claidex/risk-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/claidex/risk-engine/internal/infrastructure/storage/minio"
)

// runtime holds the wired infrastructure for a scoring run. Close releases
// everything in reverse acquisition order.
type runtime struct {
	orchestrator *riskscore.Orchestrator
	lock         *redis.RunLock

	pg        *postgres.Connection
	graph     *neo4jdriver.Driver
	cache     *redis.Client
	producer  *kafka.Producer
	metricsSv *http.Server

	logger logging.Logger
}

// buildRuntime connects every configured backend and assembles the
// orchestrator. The ownership graph is the only optional backend: a
// connection failure degrades ownership signals to zero instead of aborting,
// so a graph outage cannot block a scheduled run.
func buildRuntime(ctx context.Context, cfg *config.Config, log logging.Logger) (*runtime, error) {
	rt := &runtime{logger: log}

	pg, err := postgres.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to reference store: %w", err)
	}
	rt.pg = pg

	refs := pgrepos.NewReferenceRepository(pg.Pool(), cfg.Scoring.WindowYears, log)
	results := pgrepos.NewRiskScoreRepository(pg.Pool(), log)

	cache, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("connecting to partition store: %w", err)
	}
	rt.cache = cache
	parts := redis.NewPartitionStore(cache, cfg.Redis.KeyPrefix, cfg.Redis.PartitionTTL, log)
	rt.lock = redis.NewRunLock(cache, cfg.Redis.KeyPrefix, 0, log)

	collector := prometheus.NewCollector()
	metrics := prometheus.NewRunMetrics(collector.Registry())
	if cfg.Run.MetricsAddr != "" {
		rt.metricsSv = startMetricsServer(cfg.Run.MetricsAddr, collector, log)
	}

	var resolver riskscore.ChainResolver
	graph, err := neo4jdriver.NewDriver(cfg.Neo4j, log)
	if err != nil {
		log.Warn("ownership graph unavailable, scoring without ownership signals",
			logging.Err(err))
	} else {
		rt.graph = graph
		adjacency := neo4jrepos.NewOwnershipRepository(graph, log)
		resolver = ownership.NewResolver(adjacency,
			cfg.Scoring.MaxOwnershipHops, cfg.Scoring.MaxFrontier, log)
	}

	var events riskscore.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("connecting to event broker: %w", err)
		}
		rt.producer = producer
		events = kafka.NewLifecyclePublisher(producer, kafka.TopicsFor(cfg.Kafka.TopicPrefix))
	}

	var snaps riskscore.SnapshotWriter
	if cfg.MinIO.Enabled && cfg.Run.EnableSnapshot {
		store, err := minio.NewClient(cfg.MinIO, log)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("connecting to snapshot store: %w", err)
		}
		snaps = minio.NewSnapshotStore(store, log)
	}

	pipeline := riskscore.NewPipeline(resolver, metrics, log)
	rt.orchestrator = riskscore.NewOrchestrator(
		refs, pipeline, parts, results, events, snaps, metrics, log)

	return rt, nil
}

// startMetricsServer exposes /metrics for the duration of the run.
func startMetricsServer(addr string, collector *prometheus.Collector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", logging.Err(err))
		}
	}()
	log.Info("metrics server listening", logging.String("addr", addr))
	return srv
}

// Close shuts down all backends. Safe on a partially built runtime.
func (rt *runtime) Close(ctx context.Context) {
	if rt.metricsSv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = rt.metricsSv.Shutdown(shutdownCtx)
		cancel()
	}
	if rt.producer != nil {
		if err := rt.producer.Close(); err != nil {
			rt.logger.Warn("closing event producer", logging.Err(err))
		}
	}
	if rt.graph != nil {
		_ = rt.graph.Close()
	}
	if rt.cache != nil {
		_ = rt.cache.Close()
	}
	if rt.pg != nil {
		rt.pg.Close()
	}
}
