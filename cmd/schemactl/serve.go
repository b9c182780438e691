package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/danmuck/schemakit/internal/api"
	"github.com/danmuck/schemakit/internal/auth"
	"github.com/danmuck/schemakit/internal/config"
	"github.com/danmuck/schemakit/internal/logging"
	"github.com/danmuck/schemakit/internal/observability"
	"github.com/danmuck/schemakit/internal/ratelimit"
	"github.com/danmuck/schemakit/internal/schemas"
	"github.com/danmuck/schemakit/internal/store"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, flags)
		},
	}
}

func serve(ctx context.Context, flags *rootFlags) error {
	if err := config.LoadDotenv(flags.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("schemactl", loggerConfig(cfg.Log))
	logger.Info().Str("config", cfg.String()).Msg("config_loaded")

	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("store_open")

	limiter, closeLimiter, err := buildLimiter(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeLimiter()

	policy, err := schemas.ParsePatchPolicy(cfg.Schemas.PatchValidation)
	if err != nil {
		return err
	}
	svc := schemas.New(st,
		schemas.WithPatchPolicy(policy),
		schemas.WithTimeout(cfg.Store.Timeout()),
		schemas.WithLogger(logger),
	)

	rl := cfg.RateLimit
	srv := api.New(api.Options{
		ID:             "schemactl",
		Addr:           cfg.Server.Addr,
		CorsOrigins:    cfg.Server.CorsOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, api.Deps{
		Service: svc,
		Store:   st,
		Limiter: limiter,
		Auth:    buildResolver(cfg.Auth),
		Rules: api.Rules{
			Create:  rl.Rule(rl.Create),
			Read:    rl.Rule(rl.Read),
			Update:  rl.Rule(rl.Update),
			Render:  rl.Rule(rl.Render),
			Preview: rl.Rule(rl.Preview),
		},
		Logger: logger,
	})
	return srv.Serve(ctx)
}

// loggerConfig applies the [log] section, then SCHEMACTL_LOG_* overrides.
func loggerConfig(lc config.LogConfig) logging.Config {
	profile := logging.ProfileRuntime
	if lc.Format == logging.FormatJSON {
		profile = logging.ProfileProduction
	}
	out := logging.DefaultConfig(profile)
	if lvl, ok := logging.ParseLevel(lc.Level); ok {
		out.Level = lvl
	}
	logging.ApplyEnv(&out)
	return out
}

func buildLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, func(), error) {
	if cfg.Backend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return ratelimit.NewRedis(client, cfg.Prefix), func() { _ = client.Close() }, nil
	}
	mem := ratelimit.NewMemory(ratelimit.WithJanitor(cfg.Window()))
	return mem, func() { _ = mem.Close() }, nil
}

// buildResolver accepts static tokens first, then JWTs.
func buildResolver(cfg config.AuthConfig) auth.Resolver {
	var chain auth.Chain
	if len(cfg.Tokens) > 0 {
		chain = append(chain, auth.StaticTokens(cfg.Tokens))
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, auth.JWT{Secret: []byte(cfg.JWTSecret), Issuer: cfg.JWTIssuer})
	}
	return chain
}
