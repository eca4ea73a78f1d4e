// Command naimat-authd serves the passwordless auth API over HTTP.
//
// In development (no DATABASE_URL) it runs against an in-memory user
// directory and prints login codes to stdout instead of sending email.
package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	naimatauth "github.com/amnashah110/naimat-auth"
	"github.com/amnashah110/naimat-auth/adapters/directory"
	"github.com/amnashah110/naimat-auth/adapters/mail"
	transport "github.com/amnashah110/naimat-auth/transport/http"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var userDirectory naimatauth.UserDirectory
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		userDirectory = directory.NewPostgresDirectory(pool)
	} else {
		log.Println("no DATABASE_URL set, using in-memory user directory")
		userDirectory = directory.NewMemoryDirectory()
	}

	engineConfig := engineConfigFrom(cfg)

	builder := naimatauth.New().
		WithConfig(engineConfig).
		WithRedis(redisClient).
		WithUserDirectory(userDirectory).
		WithEmailSender(mail.NewWriterSender(os.Stdout))
	if cfg.AuditLog {
		builder = builder.WithAuditSink(naimatauth.NewJSONWriterSink(os.Stderr))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	router := transport.SetupRouter(engine)

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// engineConfigFrom overlays the env settings on the library defaults.
func engineConfigFrom(cfg *serverConfig) naimatauth.Config {
	out := naimatauth.DefaultConfig()

	out.Token.AccessSecret = []byte(cfg.AccessSecret)
	out.Token.RefreshSecret = []byte(cfg.RefreshSecret)
	if d := duration(cfg.AccessTTL); d > 0 {
		out.Token.AccessTTL = d
	}
	if d := duration(cfg.RefreshTTL); d > 0 {
		out.Token.RefreshTTL = d
	}

	if cfg.OTPDigits > 0 {
		out.OTP.Digits = cfg.OTPDigits
	}
	if d := duration(cfg.OTPTTL); d > 0 {
		out.OTP.TTL = d
	}
	if cfg.OTPMaxAttempts > 0 {
		out.OTP.MaxAttempts = cfg.OTPMaxAttempts
	}

	return out
}
