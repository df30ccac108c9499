/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppguide/site/httpclient"
	"github.com/ppguide/site/httpserver"
	"github.com/ppguide/site/httpserver/middleware"
	"github.com/ppguide/site/internal/kit"
	"github.com/ppguide/site/internal/libinfo"
	"github.com/ppguide/site/internal/ratelimit"
	"github.com/ppguide/site/internal/site"
	"github.com/ppguide/site/internal/subscribe"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/lrucache"
	"github.com/ppguide/site/profserver"
	"github.com/ppguide/site/restapi"
	"github.com/ppguide/site/service"
)

// HealthComponentRedis is the health check component of the Redis rate limit store.
const HealthComponentRedis = "redis"

const healthCheckTimeout = 3 * time.Second

const rateLimitCacheName = "rate_limit"

// Opts represents options for creating App.
type Opts struct {
	// Forwarder replaces the Kit client.
	Forwarder subscribe.Forwarder
	// RateLimitStore replaces the store described by the configuration.
	RateLimitStore ratelimit.Store
	// Now is the clock of the rate limiter and the sitemap. time.Now is used if nil.
	Now func() time.Time
	// Listener is passed to the HTTP server.
	Listener net.Listener
}

type metricsCollector interface {
	MustRegister()
	Unregister()
}

// App is the site backend: the HTTP server with its routes, the rate limit store maintenance
// and the optional profiling server.
// It implements service.Unit and service.MetricsRegisterer interfaces.
type App struct {
	Config     *Config
	Logger     log.FieldLogger
	HTTPServer *httpserver.HTTPServer

	now        func() time.Time
	store      ratelimit.Store
	redisStore *ratelimit.RedisStore
	limiter    ratelimit.Limiter
	subscribe  *subscribe.Handler
	units      *service.CompositeUnit

	rateLimitMetrics *middleware.RateLimitPrometheusMetrics
	collectors       []metricsCollector
	buildInfo        prometheus.Gauge
}

var _ service.Unit = (*App)(nil)
var _ service.MetricsRegisterer = (*App)(nil)

// New creates the App. With the Redis store configured it blocks until Redis answers or
// the connection attempts are exhausted.
func New(ctx context.Context, cfg *Config, logger log.FieldLogger, opts Opts) (*App, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &App{
		Config:           cfg,
		Logger:           logger,
		now:              opts.Now,
		rateLimitMetrics: middleware.NewRateLimitPrometheusMetrics(""),
		buildInfo:        libinfo.NewBuildInfoGauge(""),
	}
	a.collectors = append(a.collectors, a.rateLimitMetrics)

	var units []service.Unit

	sweeper, err := a.initRateLimiting(ctx, opts)
	if err != nil {
		return nil, err
	}
	if sweeper != nil {
		units = append(units, sweeper)
	}

	forwarder := opts.Forwarder
	if forwarder == nil {
		if forwarder, err = a.newKitClient(); err != nil {
			a.closeStore()
			return nil, err
		}
	}
	subscribeMetrics := subscribe.NewPrometheusMetrics("")
	a.collectors = append(a.collectors, subscribeMetrics)
	a.subscribe = subscribe.NewHandler(forwarder, logger, subscribe.HandlerOpts{MetricsCollector: subscribeMetrics})

	a.HTTPServer = httpserver.New(cfg.Server, logger, httpserver.Opts{
		Routes:          a.routes,
		ResponseHeaders: site.SecurityHeaders(),
		HealthCheck:     a.healthCheck,
		Listener:        opts.Listener,
	})
	units = append([]service.Unit{a.HTTPServer}, units...)

	if cfg.ProfServer.Enabled {
		units = append(units, profserver.New(cfg.ProfServer, logger))
	}
	a.units = service.NewCompositeUnit(units...)
	return a, nil
}

func (a *App) initRateLimiting(ctx context.Context, opts Opts) (service.Unit, error) {
	cfg := a.Config.RateLimit
	var sweeper service.Unit
	a.store = opts.RateLimitStore
	if a.store == nil && (cfg.Alg == ratelimit.AlgFixedWindow || cfg.Alg == "") {
		switch cfg.Store {
		case ratelimit.StoreTypeRedis:
			redisStore, err := ratelimit.OpenRedisStore(ctx, &cfg.Redis, a.Logger, ratelimit.RedisStoreOpts{Now: opts.Now})
			if err != nil {
				return nil, fmt.Errorf("open rate limit store: %w", err)
			}
			a.store, a.redisStore = redisStore, redisStore
		default:
			cacheMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{CacheName: rateLimitCacheName})
			memoryStore, err := ratelimit.NewMemoryStore(ratelimit.MemoryStoreOpts{
				MaxKeys:          cfg.Memory.MaxKeys,
				Now:              opts.Now,
				MetricsCollector: cacheMetrics,
			})
			if err != nil {
				return nil, fmt.Errorf("create rate limit store: %w", err)
			}
			a.store = memoryStore
			a.collectors = append(a.collectors, cacheMetrics)
			sweeper = service.NewWorkerUnit(
				ratelimit.NewSweeper(memoryStore, time.Duration(cfg.Memory.SweepInterval), a.Logger))
		}
	}

	var err error
	if a.limiter, err = ratelimit.NewLimiterFromConfig(cfg, a.store, opts.Now); err != nil {
		a.closeStore()
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	return sweeper, nil
}

func (a *App) newKitClient() (*kit.Client, error) {
	clientMetrics := httpclient.NewPrometheusMetricsCollector("")
	httpClient, err := httpclient.NewWithOpts(a.Config.KitHTTP, httpclient.Opts{
		UserAgent:   libinfo.UserAgent(),
		RequestType: kit.RequestType,
		Collector:   clientMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create Kit HTTP client: %w", err)
	}
	a.collectors = append(a.collectors, clientMetrics)
	if err = a.Config.Kit.Validate(); err != nil {
		a.Logger.Warn("subscriptions will fail until Kit credentials are configured", log.Error(err))
	}
	return kit.NewClient(a.Config.Kit, httpClient), nil
}

func (a *App) routes(router chi.Router) {
	router.Route("/api", func(r chi.Router) {
		r.Use(httpserver.CORS(a.Config.Server.CORS))
		// Only submissions count against the quota; 405s and preflights do not.
		r.With(middleware.RateLimitWithOpts(a.limiter, middleware.RateLimitOpts{
			DryRun:           a.Config.RateLimit.DryRun,
			MetricsCollector: a.rateLimitMetrics,
		})).Method(http.MethodPost, "/subscribe", a.subscribe)
	})
	router.Method(http.MethodGet, "/sitemap.xml", site.NewSitemapHandler(a.Config.Site, a.now))
	router.Method(http.MethodGet, "/robots.txt", site.NewRobotsHandler(a.Config.Site))
}

func (a *App) healthCheck(ctx context.Context) (httpserver.HealthCheckResult, error) {
	result := httpserver.HealthCheckResult{}
	if a.redisStore == nil {
		return result, nil
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := a.redisStore.Ping(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		a.Logger.Warn("redis health check failed", log.Error(err))
		result[HealthComponentRedis] = httpserver.HealthCheckStatusFail
		return result, nil
	}
	result[HealthComponentRedis] = httpserver.HealthCheckStatusOK
	return result, nil
}

// Start starts all units in a blocking way.
func (a *App) Start(fatalError chan<- error) {
	a.units.Start(fatalError)
}

// Stop stops all units and closes the rate limit store.
func (a *App) Stop(gracefully bool) error {
	err := a.units.Stop(gracefully)
	a.closeStore()
	return err
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.Logger.Error("error while closing rate limit store", log.Error(err))
	}
}

// MustRegisterMetrics registers metrics of the application and its units in Prometheus.
func (a *App) MustRegisterMetrics() {
	restapi.MustInitAndRegisterMetrics("")
	for _, c := range a.collectors {
		c.MustRegister()
	}
	prometheus.MustRegister(a.buildInfo)
	a.buildInfo.Set(1)
	a.units.MustRegisterMetrics()
}

// UnregisterMetrics unregisters metrics of the application and its units.
func (a *App) UnregisterMetrics() {
	a.units.UnregisterMetrics()
	prometheus.Unregister(a.buildInfo)
	for _, c := range a.collectors {
		c.Unregister()
	}
	restapi.UnregisterMetrics()
}
