package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"forumhub/internal/app"
	"forumhub/internal/config"
	"forumhub/internal/ratelimit"
	"forumhub/internal/server"
	"forumhub/internal/util"
	"forumhub/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse JWT leeway: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		SessionTTL:    sessionTTL,
		JWTSecret:     cfg.JWTSecret,
		JWTIssuer:     cfg.JWTIssuer,
		JWTAudience:   cfg.JWTAudience,
		JWTLeeway:     jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if cfg.Seed {
		if err := store.Seed(appCore.Store(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("failed to seed data: %v", err)
		}
	}

	var registerLimiter, loginLimiter *ratelimit.FixedWindowLimiter
	if cfg.RegisterRateLimitPerMinute > 0 {
		registerLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "forumhub:ratelimit:register",
			cfg.RegisterRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			log.Fatalf("failed to init register rate limiter: %v", err)
		}
	}
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "forumhub:ratelimit:login",
			cfg.LoginRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
	}

	trustedProxies, err := util.NewTrustedProxies(config.ParseTrustedProxies(cfg.TrustedProxies))
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer := server.New(server.Config{
		App:             appCore,
		RegisterLimiter: registerLimiter,
		LoginLimiter:    loginLimiter,
		TrustedProxies:  trustedProxies,
	})

	handler := util.WithRequestID(
		util.WithRequestLog(
			util.WithSecurityHeaders(
				util.WithCORS(httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("forum server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
