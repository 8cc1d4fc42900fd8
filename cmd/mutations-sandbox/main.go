// Command mutations-sandbox serves the mutation API from memory so the SDK
// and the CLI can be exercised without a backend.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/parseq/mutation_sdk_go/internal/config"
	"github.com/parseq/mutation_sdk_go/internal/devseed"
	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/internal/metrics"
	"github.com/parseq/mutation_sdk_go/pkg/mutations/mock"
)

func main() {
	config.LoadDotEnv()

	cfgPath := flag.String("config", "", "path to YAML config")
	addr := flag.String("addr", "", "listen address (overrides sandbox.addr)")
	seed := flag.String("seed", "", "path to YAML/JSON seed (overrides mock.seed)")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	withMetrics := flag.Bool("metrics", false, "expose /metrics")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Sandbox.Addr = *addr
		case "seed":
			cfg.Mock.Seed = *seed
		case "latency":
			cfg.Sandbox.Latency = *latency
		case "fail":
			cfg.Sandbox.Fail = *fail
		case "metrics":
			cfg.Metrics.Enabled = *withMetrics
		}
	})

	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "mutations-sandbox"})
	defer logger.Sync()
	log := logger.L()

	api := mock.New()
	if cfg.Mock.Seed != "" {
		s, err := devseed.Load(cfg.Mock.Seed)
		if err != nil {
			log.Fatal("load seed", zap.Error(err))
		}
		if err := api.Seed(s); err != nil {
			log.Fatal("apply seed", zap.Error(err))
		}
		log.Info("seed applied", zap.Int("mutations", api.MutationCount()), zap.Int("lists", len(s.Lists)))
	}

	failCfg, err := parseFailConfig(cfg.Sandbox.Fail)
	if err != nil {
		log.Fatal("parse fail flag", zap.Error(err))
	}
	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Fatal("register metrics", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr: cfg.Sandbox.Addr,
		Handler: newRouter(api, serverOptions{
			latency: cfg.Sandbox.Latency,
			fail:    failCfg,
			metrics: cfg.Metrics.Enabled,
			log:     log,
		}),
	}

	log.Info("mutations-sandbox listening", zap.String("addr", cfg.Sandbox.Addr))
	host := cfg.Sandbox.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export MUTATIONS_RUNTIME_MODE=http")
	fmt.Printf("export MUTATIONS_API_URL=http://%s\n", host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}
