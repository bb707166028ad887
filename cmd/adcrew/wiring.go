package main

import (
	"fmt"
	"os"

	"github.com/jeanpaul/adcrew/internal/ads"
	"github.com/jeanpaul/adcrew/internal/agent"
	"github.com/jeanpaul/adcrew/internal/config"
	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/team"
	"github.com/jeanpaul/adcrew/internal/tools"
)

func makeProvider(cfg *config.Config, name, model string) (provider.Provider, error) {
	if name == "" {
		name = cfg.DefaultProvider
	}
	if baseURL := os.Getenv("ADCREW_BASE_URL"); baseURL != "" {
		p := provider.NewOpenAI(name, baseURL, os.Getenv("ADCREW_API_KEY"), modelOr(model, cfg.DefaultModel))
		return provider.WithRetry(p, cfg.Retries, provider.WithRetryLogger(logger)), nil
	}

	pcfg, ok := cfg.ProviderFor(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, configure it in ~/.config/adcrew/config.yaml", name)
	}
	model = modelOr(model, modelOr(pcfg.Model, cfg.DefaultModel))

	var p provider.Provider
	switch pcfg.Type {
	case "openai":
		p = provider.NewOpenAI(name, pcfg.BaseURL, pcfg.APIKey, model)
	case "anthropic":
		if pcfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic requires api_key (set ANTHROPIC_API_KEY)")
		}
		p = provider.NewAnthropic(pcfg.APIKey, model)
	case "google":
		if pcfg.APIKey == "" {
			return nil, fmt.Errorf("google requires api_key (set GEMINI_API_KEY)")
		}
		p = provider.NewGoogle(pcfg.APIKey, model)
	default:
		return nil, fmt.Errorf("unknown provider type %q", pcfg.Type)
	}
	return provider.WithRetry(p, cfg.Retries, provider.WithRetryLogger(logger)), nil
}

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// adsService returns the live ads client, or an in-memory account when
// dryRun is set or no ads endpoint is configured.
func adsService(cfg *config.Config, dryRun bool) ads.Service {
	if dryRun || cfg.Ads.BaseURL == "" {
		logger.Warn("using in-memory ads account, no changes reach the ads API")
		return ads.NewMemory(nil)
	}
	return ads.NewClient(cfg.Ads.BaseURL, cfg.Ads.Token)
}

func newFactory(cfg *config.Config, prov provider.Provider, svc ads.Service, human agent.HumanInput) *team.Factory {
	opts := []team.FactoryOption{
		team.WithToolset(func(string) []tools.Tool { return ads.Toolset(svc) }),
		team.WithCurrencyLookup(svc),
		team.WithMaxDepth(cfg.Team.MaxDepth),
		team.WithDefaults(team.Defaults{
			MaxRound:       cfg.Team.MaxRound,
			Seed:           cfg.Team.Seed,
			Temperature:    cfg.Team.Temperature,
			HumanInputMode: cfg.Team.HumanInputMode,
			WorkDir:        cfg.Team.WorkDir,
		}),
		team.WithLogger(logger),
	}
	if human != nil {
		opts = append(opts, team.WithHumanInput(human))
	}
	return team.NewFactory(prov, team.NewRegistry(), opts...)
}
