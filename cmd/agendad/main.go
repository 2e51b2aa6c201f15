package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda/viewmodel"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/api"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/config"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/customers"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/device"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/diag"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/modal"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/observability/metrics"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query/persist"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/realtime"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/users"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

func main() {
	// .env is a development convenience; absence is not an error
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agenda daemon",
		"env", cfg.Env,
		"api", cfg.APIBaseURL,
	)

	profile := device.Detect(device.Capabilities{
		MemoryGB:       cfg.DeviceMemoryGB,
		Cores:          cfg.DeviceCores,
		ConnectionType: cfg.DeviceConnection,
		ViewportWidth:  cfg.DeviceViewportWidth,
	})
	logger.Info("device profile",
		"tier", string(profile.Tier),
		"mobile", profile.Mobile,
		"slow_connection", profile.SlowConnection,
	)

	gateway := api.NewClient(cfg.APIBaseURL, logger,
		api.WithToken(cfg.APIToken),
		api.WithTimeout(cfg.RequestTimeout),
	)

	cacheMetrics := metrics.NewCacheMetrics(nil)
	cache := query.NewClient(profile, logger, query.WithMetrics(cacheMetrics))

	// Shared Redis snapshot when configured, local disk otherwise.
	var store persist.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		store = persist.NewRedisStore(rdb, "7pet", cfg.CacheMaxAge)
		logger.Info("snapshot store", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		store = persist.NewDiskStore(cfg.CacheDir)
		logger.Info("snapshot store", "backend", "disk", "dir", cfg.CacheDir)
	}

	persister := persist.NewPersister(cache, store, cfg.CacheBuster, cfg.CacheFlushInterval, logger,
		persist.WithMetrics(cacheMetrics),
		persist.WithMaxAge(cfg.CacheMaxAge),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persister.Restore(ctx)
	go persister.Run(ctx)

	agendaClient := agenda.NewClient(gateway, logger)
	customersClient := customers.NewClient(gateway, logger)
	usersClient := users.NewClient(gateway, logger)

	// Warm the lists the booking modal needs so the first open is
	// instant: customer search and the performer picker.
	go func() {
		opts := query.Options{StaleTime: query.StaleListWeb, Retries: 1}
		if _, err := cache.Fetch(ctx, query.CustomersListKey("active", nil), func(ctx context.Context) (any, error) {
			return customersClient.List(ctx)
		}, opts); err != nil {
			logger.Warn("customers warmup failed", "error", err)
		}
		if _, err := cache.Fetch(ctx, query.StaffUsersListKey("management", nil), func(ctx context.Context) (any, error) {
			return usersClient.ListManagementUsers(ctx)
		}, opts); err != nil {
			logger.Warn("staff warmup failed", "error", err)
		}
	}()

	bus := modal.NewBus(logger)
	notifier := logNotifier{logger.Named("notify")}
	confirmer := autoConfirmer{}
	prefs := viewmodel.NewDiskPrefs(cfg.CacheDir + "/prefs")

	surfaces := map[string]*viewmodel.VM{
		"SPA": viewmodel.New(agenda.DomainSPA, cache, agendaClient, notifier, confirmer, prefs, logger,
			viewmodel.WithUsers(usersClient)),
		"LOG": viewmodel.New(agenda.DomainLOG, cache, agendaClient, notifier, confirmer, prefs, logger,
			viewmodel.WithUsers(usersClient)),
	}
	for name, vm := range surfaces {
		vm.Activate(ctx)
		logger.Info("surface activated", "surface", name)
	}
	wireModals(bus, surfaces, logger)

	if cfg.RealtimeURL != "" {
		listener := realtime.NewListener(cfg.RealtimeURL, cache, logger,
			realtime.WithReconnectDelays(cfg.RealtimeReconnectBaseDelay, cfg.RealtimeReconnectMaxDelay))
		go listener.Run(ctx)
	}

	var srv *http.Server
	if cfg.DiagEnabled {
		srv = &http.Server{
			Addr: "127.0.0.1:" + cfg.DiagPort,
			Handler: diag.New(&diag.Config{
				Logger:   logger,
				Cache:    cache,
				Surfaces: surfaces,
			}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("diagnostics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("diagnostics server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	// Periodic cache GC keeps unobserved entries from accumulating.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cache.GC()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("diagnostics forced to shutdown", "error", err)
		}
	}
	if err := persister.Flush(shutdownCtx); err != nil {
		logger.Warn("final snapshot flush failed", "error", err)
	}
	logger.Info("stopped")
}

// wireModals registers the single host per modal channel. In the
// daemon the hosts are the surface view-models.
func wireModals(bus *modal.Bus, surfaces map[string]*viewmodel.VM, logger *logging.Logger) {
	spa := surfaces["SPA"]
	if spa == nil {
		return
	}
	_, err := bus.Subscribe(modal.ChannelAppointment, func(req modal.Request) {
		switch p := req.Payload.(type) {
		case agenda.Item:
			spa.OpenDetailsModal(p)
		case map[string]any:
			spa.OpenCreateModal(p)
		default:
			spa.OpenCreateModal(nil)
		}
	})
	if err != nil {
		logger.Error("modal wiring failed", "error", err)
	}
}

// logNotifier reports outcomes to the structured log; a graphical shell
// would replace it with toasts.
type logNotifier struct {
	logger *logging.Logger
}

func (n logNotifier) Success(msg string) { n.logger.Info(msg) }
func (n logNotifier) Error(msg string)   { n.logger.Warn(msg) }

// autoConfirmer approves bulk actions; the daemon has no interactive
// prompt surface.
type autoConfirmer struct{}

func (autoConfirmer) Confirm(string) bool { return true }
