package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	researchgw "github.com/finsight-labs/research-gateway"
	"github.com/finsight-labs/research-gateway/internal/health"
	"github.com/finsight-labs/research-gateway/internal/logging"
	"github.com/finsight-labs/research-gateway/internal/version"
	"github.com/finsight-labs/research-gateway/providers"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway and its health/status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrDefaultConfig(configPath)
			if err != nil {
				return err
			}

			registry, err := registerFromEnv(cmd.Context(), *cfg)
			if err != nil {
				return err
			}

			// With no config file, chain every registered provider in
			// registration order.
			if len(cfg.Providers) == 0 {
				for i, name := range registry.List() {
					cfg.Providers = append(cfg.Providers, researchgw.ProviderTarget{ID: name, Priority: i + 1})
				}
			}

			eng, err := researchgw.New(*cfg, registry)
			if err != nil {
				return err
			}
			defer eng.Close()

			monitor := health.NewMonitor(eng.Chain(), eng.Breakers(), eng.CacheLen)
			addr := cfg.Listen
			if addr == "" {
				addr = researchgw.DefaultListen
			}
			srv := &http.Server{
				Addr:         addr,
				Handler:      health.NewRouter(monitor),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown on SIGINT / SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				logging.Logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logging.Logger.Error("shutdown error", "error", err)
				}
			}()

			logging.Logger.Info("research gateway listening",
				"version", version.Short(),
				"addr", addr,
				"providers", len(cfg.Providers))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (JSON/YAML)")
	return cmd
}

// loadOrDefaultConfig loads and validates the config file when a path is
// given (flag first, RESEARCHGW_CONFIG env second), otherwise returns an
// empty config for env-driven defaults.
func loadOrDefaultConfig(path string) (*researchgw.Config, error) {
	if path == "" {
		path = os.Getenv("RESEARCHGW_CONFIG")
	}
	if path == "" {
		return &researchgw.Config{}, nil
	}
	cfg, err := researchgw.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := researchgw.ValidateConfig(*cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// registerFromEnv builds the provider registry from environment
// credentials. Providers are resolved once here; a provider that later goes
// unhealthy is isolated by its breaker, never re-probed.
func registerFromEnv(ctx context.Context, cfg researchgw.Config) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	modelFor := func(id string) string {
		for _, t := range cfg.Providers {
			if t.ID == id {
				return t.Model
			}
		}
		return ""
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p, err := providers.NewOpenAI(key, os.Getenv("OPENAI_BASE_URL"), modelFor("openai"))
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		registry.Register(p)
		logging.Logger.Info("provider registered", "provider", "openai")
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		p, err := providers.NewAnthropic(key, os.Getenv("ANTHROPIC_BASE_URL"), modelFor("anthropic"))
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		registry.Register(p)
		logging.Logger.Info("provider registered", "provider", "anthropic")
	}

	// Ollama is local and needs no API key.
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		p, err := providers.NewOllama(host, modelFor("ollama"))
		if err != nil {
			return nil, fmt.Errorf("ollama provider: %w", err)
		}
		registry.Register(p)
		logging.Logger.Info("provider registered", "provider", "ollama")
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		p, err := providers.NewBedrock(ctx, region,
			os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"),
			modelFor("bedrock"))
		if err != nil {
			return nil, fmt.Errorf("bedrock provider: %w", err)
		}
		registry.Register(p)
		logging.Logger.Info("provider registered", "provider", "bedrock")
	}

	if len(registry.List()) == 0 {
		return nil, fmt.Errorf("no providers configured: set OPENAI_API_KEY, ANTHROPIC_API_KEY, OLLAMA_HOST, or AWS_REGION")
	}
	return registry, nil
}
