package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rm-hull/blur-overlay/internal"
	"github.com/rm-hull/blur-overlay/internal/blur"
	"github.com/rm-hull/blur-overlay/internal/server"
	"github.com/rm-hull/blur-overlay/internal/service"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"
)

func ApiServer(port, workers int, accelerator string, debug bool) {
	internal.ShowVersion()
	if debug {
		internal.UserInfo()
		internal.EnvironmentVars()
		blur.SetLogger(slog.Default())
	}

	defaults, err := ParamsFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	defaults.Debug = debug

	acc := blur.Lookup(accelerator)
	if acc == nil {
		log.Fatalf("Error: unknown accelerator %q (available: %v)", accelerator, blur.Accelerators())
	}

	svc := service.New(service.WithAccelerator(acc), service.WithLogger(slog.Default()))
	pool, err := service.NewPool(svc, workers)
	if err != nil {
		log.Fatal(err)
	}
	pool.Start()

	r, err := newRouter(pool, defaults, debug)
	if err != nil {
		log.Fatal(err)
	}

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting HTTP API Server on port %d (workers=%d, accelerator=%s)...", port, workers, acc.Name())
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP API Server failed to start on port %d: %v", port, err)
	}

	pool.Shutdown()
}

func newRouter(pool *service.Pool, defaults service.Params, debug bool) (*gin.Engine, error) {
	r := gin.New()

	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
	)

	if debug {
		log.Println("WARNING: pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	err := healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{poolCheck{pool}})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize healthcheck: %w", err)
	}

	server.New(pool, defaults).Register(r)
	return r, nil
}

// poolCheck fails once the blur pool stops accepting requests.
type poolCheck struct {
	pool *service.Pool
}

func (c poolCheck) Pass() bool {
	return !c.pool.Closed()
}

func (c poolCheck) Name() string {
	return "blur-pool"
}
