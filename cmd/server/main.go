package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/harambee/welfare-idm/pkg/audit"
	"github.com/harambee/welfare-idm/pkg/config"
	"github.com/harambee/welfare-idm/pkg/login"
	"github.com/harambee/welfare-idm/pkg/loginflow"
	loginflowapi "github.com/harambee/welfare-idm/pkg/loginflow/api"
	"github.com/harambee/welfare-idm/pkg/notification"
	"github.com/harambee/welfare-idm/pkg/otp"
	"github.com/harambee/welfare-idm/pkg/pendinglogin"
	"github.com/harambee/welfare-idm/pkg/ratelimit"
	"github.com/harambee/welfare-idm/pkg/sessions"
	"github.com/harambee/welfare-idm/pkg/settings"
	tg "github.com/harambee/welfare-idm/pkg/tokengenerator"
)

type ServerConfig struct {
	Host string `env:"SERVER_HOST" env-default:"localhost"`
	Port uint16 `env:"SERVER_PORT" env-default:"4000"`
}

type Config struct {
	Server          ServerConfig
	Database        config.DatabaseConfig
	Email           config.EmailConfig
	Jwt             config.JwtConfig
	Session         config.SessionConfig
	TwoFactor       config.TwoFactorConfig
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	BaseURL         string `env:"BASE_URL" env-default:"http://localhost:4000"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.PersistenceType == "postgres" || cfg.PersistenceType == "postgresql" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("Failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
	}

	notificationManager, err := notification.NewNotificationManager(
		notification.WithSMTP(cfg.Email.ToSMTPConfig()),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed to create notification manager", "error", err)
		os.Exit(1)
	}

	loginRepo, err := login.NewLoginRepository(cfg.PersistenceType, login.RepositoryConfig{Pool: pool})
	if err != nil {
		slog.Error("Failed to create login repository", "error", err)
		os.Exit(1)
	}
	otpRepo, err := otp.NewOtpRepository(cfg.PersistenceType, otp.RepositoryConfig{Pool: pool})
	if err != nil {
		slog.Error("Failed to create otp repository", "error", err)
		os.Exit(1)
	}

	var settingsRepo settings.SettingsRepository
	var sessionRepo sessions.Repository
	if pool != nil {
		settingsRepo = settings.NewPostgresSettingsRepository(pool)
		sessionRepo = sessions.NewPostgresRepository(pool)
	} else {
		settingsRepo = settings.NewInMemorySettingsRepository()
		sessionRepo = sessions.NewInMemoryRepository()
	}

	settingsService := settings.NewSettingsService(settingsRepo,
		settings.WithTwoFactorDefaults(settings.TwoFactorSettings{
			Enabled:        cfg.TwoFactor.Enabled,
			CodeLifetime:   cfg.TwoFactor.CodeLifetime,
			ResendCooldown: cfg.TwoFactor.ResendCooldown,
		}),
	)

	loginService := login.NewLoginService(loginRepo)
	otpService := otp.NewOtpService(otpRepo, notificationManager,
		otp.WithCodeLength(cfg.TwoFactor.CodeLength),
		otp.WithCodeLifetime(cfg.TwoFactor.CodeLifetime),
		otp.WithResendCooldown(cfg.TwoFactor.ResendCooldown),
	)
	pendingStore := pendinglogin.NewInMemoryStore(pendinglogin.WithTTL(cfg.Session.PendingTTL))
	sessionService := sessions.NewService(sessionRepo, sessions.WithIdleTimeout(cfg.Session.IdleTimeout))

	tokenGenerator := tg.NewJwtTokenGenerator(cfg.Jwt.Secret, cfg.Jwt.Issuer, cfg.Jwt.Audience)
	jwtService := tg.NewJwtService(tokenGenerator,
		tg.WithAccessTokenExpiry(cfg.Jwt.AccessTokenExpiry),
		tg.WithRefreshTokenExpiry(cfg.Jwt.RefreshTokenExpiry),
		tg.WithCookieSetter(tg.NewCookieSetter(cfg.Jwt.CookieHttpOnly, cfg.Jwt.CookieSecure)),
	)

	recorder := audit.NewRecorder(audit.NewSlogSubscriber(logger))

	flow, err := loginflow.NewLoginFlowService(&loginflow.ServiceDependencies{
		LoginService:    loginService,
		OtpService:      otpService,
		PendingLogins:   pendingStore,
		SessionService:  sessionService,
		JwtService:      jwtService,
		SettingsService: settingsService,
		Audit:           recorder,
	})
	if err != nil {
		slog.Error("Failed to create login flow service", "error", err)
		os.Exit(1)
	}

	handle := loginflowapi.NewHandle(flow, jwtService,
		loginflowapi.WithPendingCookieName(cfg.Session.CookieName),
		loginflowapi.WithCookieSecure(cfg.Jwt.CookieSecure),
	)

	rateLimitConfig := ratelimit.DefaultConfig()
	rateLimitConfig.EndpointLimits = map[string]ratelimit.EndpointLimit{
		"POST /auth/login":      {Capacity: 10, RefillRate: 10.0 / 60.0},
		"POST /auth/2fa/verify": {Capacity: 10, RefillRate: 10.0 / 60.0},
		"POST /auth/2fa/resend": {Capacity: 3, RefillRate: 3.0 / 60.0},
	}
	rateLimiter := ratelimit.NewMiddleware(rateLimitConfig)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.Jwt.Secret), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rateLimiter.Handler)

	handle.Routes(r)

	// authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(sessionActivity(sessionService))

		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			render.JSON(w, r, map[string]interface{}{
				"user_id": claims["sub"],
				"email":   claims["email"],
				"name":    claims["name"],
				"role":    claims["role"],
			})
		})

		r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err == nil {
				if jti, ok := claims["jti"].(string); ok {
					if err := sessionService.RevokeSessionByJTI(r.Context(), jti); err != nil &&
						!errors.Is(err, sessions.ErrSessionNotFound) {
						slog.Error("Failed to revoke session", "error", err)
					}
				}
			}
			jwtService.ClearAuthCookies(w)
			render.JSON(w, r, map[string]string{"status": "logged_out"})
		})
	})

	go runMaintenance(ctx, otpService, sessionService, pendingStore)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

// sessionActivity rejects requests whose session record is revoked, expired
// or idle, and re-arms the idle timeout for live ones.
func sessionActivity(sessionService *sessions.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			jti, _ := claims["jti"].(string)
			if jti == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			valid, err := sessionService.IsSessionValid(r.Context(), jti)
			if err != nil {
				slog.Error("Failed to check session", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !valid {
				http.Error(w, "session expired", http.StatusUnauthorized)
				return
			}

			if err := sessionService.UpdateSessionActivity(r.Context(), jti); err != nil {
				slog.Warn("Failed to update session activity", "error", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// runMaintenance periodically drops expired challenges, sessions and
// pending logins.
func runMaintenance(ctx context.Context, otpService *otp.OtpService, sessionService *sessions.Service, pendingStore *pendinglogin.InMemoryStore) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := otpService.CleanupExpired(ctx); err != nil {
				slog.Error("Failed to clean up expired challenges", "error", err)
			} else if removed > 0 {
				slog.Info("Cleaned up expired challenges", "count", removed)
			}
			if err := sessionService.CleanupExpiredSessions(ctx); err != nil {
				slog.Error("Failed to clean up expired sessions", "error", err)
			}
			pendingStore.Cleanup()
		}
	}
}
