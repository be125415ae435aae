package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/ssogate/internal/app"
	"github.com/dropDatabas3/ssogate/internal/config"
	"github.com/dropDatabas3/ssogate/internal/http/router"
	"github.com/dropDatabas3/ssogate/internal/idp"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/mgmt"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/orgs"
	"github.com/dropDatabas3/ssogate/internal/rate"
	"github.com/dropDatabas3/ssogate/internal/rbac"
	"github.com/dropDatabas3/ssogate/internal/session"
)

func main() {
	// .env es opcional; las env vars del sistema siempre ganan.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Logger todavía no inicializado: stderr directo.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "ssogate",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		log.Fatal("registering metrics failed", logger.Err(err))
	}

	container, err := buildContainer(cfg)
	if err != nil {
		log.Fatal("wiring failed", logger.Err(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.New(container, reg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", logger.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown incomplete", logger.Err(err))
	}
}

func buildContainer(cfg *config.Config) (*app.Container, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	base := idp.BaseURL(cfg.Provider.Domain)

	idpClient := idp.New(idp.Config{
		Domain:       cfg.Provider.Domain,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		CallbackURL:  cfg.Provider.CallbackURL,
	}, httpClient)

	tokens := mgmt.NewTokenProvider(base,
		cfg.Provider.Management.ClientID,
		cfg.Provider.Management.ClientSecret,
		cfg.Provider.Audience,
		httpClient)
	mgmtClient := mgmt.NewClient(base, cfg.Provider.ClientID, tokens, httpClient)

	sessions := session.NewManager(session.Options{
		CookieName: cfg.Session.CookieName,
		Domain:     cfg.Session.Domain,
		SameSite:   cfg.Session.SameSite,
		Secure:     cfg.SessionSecure(),
		TTL:        cfg.SessionTTL(),
		Secret:     []byte(cfg.Session.Secret),
	})

	seed := make([]rbac.Assignment, 0, len(cfg.RBAC.Seed))
	for _, s := range cfg.RBAC.Seed {
		seed = append(seed, rbac.Assignment{UserID: s.UserID, OrgID: s.OrgID, Role: rbac.Role(s.Role)})
	}

	c := &app.Container{
		Cfg:      cfg,
		Sessions: sessions,
		IdP:      idpClient,
		Mgmt:     mgmtClient,
		Roles:    rbac.NewStore(seed),
		Orgs:     orgs.NewResolver(mgmtClient),
	}

	if cfg.Rate.Enabled {
		var redisClient *rdb.Client
		if cfg.Cache.Kind == "redis" {
			redisClient = rdb.NewClient(&rdb.Options{
				Addr: cfg.Cache.Redis.Addr,
				DB:   cfg.Cache.Redis.DB,
			})
		}
		c.LoginLimiter = buildLimiter(redisClient, cfg.Cache.Redis.Prefix+"login:",
			cfg.Rate.Login.Limit, cfg.Rate.Login.Window, 10, time.Minute)
		c.InviteLimiter = buildLimiter(redisClient, cfg.Cache.Redis.Prefix+"invite:",
			cfg.Rate.Invite.Limit, cfg.Rate.Invite.Window, 20, time.Hour)
	}

	return c, nil
}

// buildLimiter arma un limiter redis o memoria según haya cliente, con
// defaults si el YAML no especifica límite/ventana.
func buildLimiter(client *rdb.Client, prefix string, limit int, window string, defLimit int, defWindow time.Duration) rate.Limiter {
	if limit <= 0 {
		limit = defLimit
	}
	w, err := time.ParseDuration(window)
	if err != nil || w <= 0 {
		w = defWindow
	}
	if client != nil {
		return rate.NewRedisLimiter(client, prefix, limit, w)
	}
	return rate.NewMemoryLimiter(limit, w)
}
