package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dittofs/clusterstate/internal/logger"
	"github.com/dittofs/clusterstate/pkg/clustertask"
	"github.com/dittofs/clusterstate/pkg/clustertopic"
	"github.com/dittofs/clusterstate/pkg/config"
	"github.com/dittofs/clusterstate/pkg/filestate"
	"github.com/dittofs/clusterstate/pkg/metrics"
	_ "github.com/dittofs/clusterstate/pkg/metrics/prometheus"
	"github.com/dittofs/clusterstate/pkg/nearcache"
	"github.com/dittofs/clusterstate/pkg/partition"
	"github.com/dittofs/clusterstate/pkg/pernode"
	"github.com/dittofs/clusterstate/pkg/statecache"
)

const rpcTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this process as one node of the cluster",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry(nil)
	}

	selfAddr, ok := cfg.Cluster.Peers[cfg.Cluster.SelfNode]
	if !ok {
		return fmt.Errorf("cluster.peers has no entry for cluster.self_node %q", cfg.Cluster.SelfNode)
	}
	bindAddr, err := hostPort(selfAddr)
	if err != nil {
		return fmt.Errorf("invalid address for self_node %q: %w", cfg.Cluster.SelfNode, err)
	}

	shard := partition.NewMap()
	ring := partition.NewRing()
	for node := range cfg.Cluster.Peers {
		ring.AddNode(node)
	}

	near := nearcache.Disabled()
	if !cfg.NearCache.Disable {
		near = nearcache.New(time.Duration(cfg.NearCache.TimeoutSeconds) * time.Second)
	}
	perNode := pernode.NewTable()
	peers := newPeerTable(cfg.Cluster.Peers)

	taskTransport := clustertask.NewHTTPTransport(peers, rpcTimeout)
	runtime := clustertask.NewRuntime(cfg.Cluster.SelfNode, shard, ring, taskTransport)
	taskServer := clustertask.NewServer(runtime)

	var topic clustertopic.Topic
	var httpTopic *clustertopic.HTTPTopic
	switch cfg.Transport.Kind {
	case "kafka":
		kafkaTopic, err := clustertopic.NewKafkaTopic(clustertopic.KafkaConfig{
			Brokers:   cfg.Transport.Kafka.Brokers,
			TopicName: cfg.Transport.Kafka.Topic,
			GroupID:   cfg.Transport.Kafka.GroupID,
			Version:   cfg.Transport.Kafka.Version,
		}, cfg.Cluster.SelfNode)
		if err != nil {
			return fmt.Errorf("failed to initialize kafka topic: %w", err)
		}
		topic = kafkaTopic
	default:
		httpTopic = clustertopic.NewHTTPTopic(cfg.Cluster.SelfNode, peers, rpcTimeout)
		topic = httpTopic
	}

	host := newStandaloneHost()
	cache := statecache.New(statecache.Options{
		SelfNode:      cfg.Cluster.SelfNode,
		Shard:         shard,
		NearCache:     near,
		PerNode:       perNode,
		Runtime:       runtime,
		Topic:         topic,
		OpLockManager: host,
		Notify:        host,
		Pool:          host,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	taskServer.Mount(r)
	if httpTopic != nil {
		httpTopic.Mount(r)
	}
	newDiagServer(cfg.Cluster.SelfNode, ring, near, cfg.NearCache.TimeoutSeconds, cache).Mount(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if kafkaTopic, ok := topic.(*clustertopic.KafkaTopic); ok {
		go func() {
			if err := kafkaTopic.Run(ctx); err != nil {
				logger.Error("kafka topic consumer stopped", "error", err)
			}
		}()
	}

	noVeto := func(path string, s *filestate.State) bool { return false }
	if err := cache.StartCluster(ctx, time.Duration(cfg.Reaper.IntervalSeconds)*time.Second, time.Duration(cfg.NearCache.TimeoutSeconds)*time.Second, noVeto); err != nil {
		return fmt.Errorf("failed to start cluster subsystems: %w", err)
	}

	srv := &http.Server{Addr: bindAddr, Handler: r}
	serverDone := make(chan error, 1)
	go func() {
		logger.Info("clusterstated listening", "addr", bindAddr, "node", cfg.Cluster.SelfNode, "transport", cfg.Transport.Kind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mr := chi.NewRouter()
		mr.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mr}
		go func() {
			logger.Info("metrics listening", "port", cfg.Metrics.Port)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("node is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := cache.ShutdownCluster(shutdownCtx); err != nil {
		logger.Error("cluster shutdown error", "error", err)
	}

	logger.Info("clusterstated stopped")
	return nil
}

func hostPort(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Host
	if host == "" {
		host = rawURL
	}
	_, port, err := net.SplitHostPort(host)
	if err != nil {
		return "", err
	}
	return ":" + port, nil
}
