package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatforge-backend/internal/database"
	"chatforge-backend/internal/env"
	internaljwt "chatforge-backend/internal/jwt"
	"chatforge-backend/internal/logger"
	"chatforge-backend/internal/notification"
	"chatforge-backend/internal/queue"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Runtime holds the process wide dependencies every server binary starts with.
type Runtime struct {
	Config *env.Config
	Log    *zap.Logger
	DB     *database.Database
	Queue  *queue.RequestQueueManager
	Usage  *redis.Client

	refresh *internaljwt.RedisRefreshStore
}

// Start loads configuration, builds the logger, opens the table store and
// configures token signing. service names the binary in every log line.
func Start(ctx context.Context, service string) (*Runtime, error) {
	cfg := env.Load()
	if err := env.Require(env.UserSecretKey, env.AdminSecretKey, env.AWSRegion); err != nil {
		return nil, err
	}

	log, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: service,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewDatabase(ctx, database.Config{
		Region:       cfg.AWS.Region,
		AccessKey:    cfg.AWS.ID,
		SecretKey:    cfg.AWS.Secret,
		SessionToken: cfg.AWS.Token,
		Endpoint:     cfg.AWS.Endpoint,
		TablePrefix:  cfg.TablePrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("db init failed: %w", err)
	}

	var refresh *internaljwt.RedisRefreshStore
	if cfg.AuthRedis.Addr != "" {
		refresh = internaljwt.NewRedisRefreshStore(cfg.AuthRedis.Addr, cfg.AuthRedis.Password)
		if err := refresh.Ping(ctx); err != nil {
			log.Warn("auth redis unreachable, refresh tokens will fail", zap.Error(err))
		}
	} else {
		log.Warn("AUTH_REDIS_URL not set, refresh tokens are disabled")
	}
	var store internaljwt.RefreshStore
	if refresh != nil {
		store = refresh
	}
	internaljwt.Configure(cfg.JWT.UserSecret, cfg.JWT.AdminSecret, cfg.JWT.AccessTokenTTL, store)

	var usage *redis.Client
	if cfg.UsageRedis.Addr != "" {
		usage = redis.NewClient(&redis.Options{
			Addr:     cfg.UsageRedis.Addr,
			Password: cfg.UsageRedis.Password,
			DB:       0,
		})
	}

	return &Runtime{
		Config:  cfg,
		Log:     log,
		DB:      db,
		Queue:   queue.NewRequestQueueManager(cfg.QueueSize, cfg.QueueWorkers),
		Usage:   usage,
		refresh: refresh,
	}, nil
}

// Mailer builds the SMTP mailer, or a logging one when SMTP is not configured.
func (rt *Runtime) Mailer() notification.Mailer {
	if rt.Config.SMTP.Host == "" {
		rt.Log.Warn("SMTP_HOST not set, emails will only be logged")
	}
	return notification.NewMailer(notification.EmailConfig{
		Host:     rt.Config.SMTP.Host,
		Port:     rt.Config.SMTP.Port,
		User:     rt.Config.SMTP.User,
		Password: rt.Config.SMTP.Password,
		From:     rt.Config.SMTP.From,
		FromName: rt.Config.SMTP.FromName,
	})
}

var ErrNoUsageRedis = errors.New("USAGE_REDIS_URL is required for the usage feed")

// RequireUsage fails when the usage Redis client was not configured.
func (rt *Runtime) RequireUsage() error {
	if rt.Usage == nil {
		return ErrNoUsageRedis
	}
	return nil
}

// Close drains the request queue and releases Redis connections.
func (rt *Runtime) Close() {
	rt.Queue.Shutdown()
	if rt.Usage != nil {
		_ = rt.Usage.Close()
	}
	if rt.refresh != nil {
		_ = rt.refresh.Close()
	}
	_ = rt.Log.Sync()
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Fatal logs err and exits. It is used before the logger may exist.
func Fatal(msg string, err error) {
	if l := logger.Get(); l != nil {
		l.Error(msg, zap.Error(err))
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
