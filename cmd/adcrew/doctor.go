package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/adcrew/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the model provider and the ads, webhook and notification endpoints answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := providerName
		if name == "" {
			name = cfg.DefaultProvider
		}
		pcfg, ok := cfg.ProviderFor(name)
		if !ok {
			return fmt.Errorf("unknown provider %q", name)
		}

		targets := []health.Target{
			{Name: "provider " + name, Kind: pcfg.Type, URL: pcfg.BaseURL, APIKey: pcfg.APIKey},
			{Name: "ads", Kind: "http", URL: cfg.Ads.BaseURL, APIKey: cfg.Ads.Token},
			{Name: "webhook", Kind: "http", URL: cfg.Batch.WebhookURL},
			{Name: "notify", Kind: "http", URL: cfg.Notify.BaseURL, APIKey: cfg.Notify.APIKey},
		}
		statuses := health.CheckAll(cmd.Context(), &http.Client{Timeout: 15 * time.Second}, targets)

		failed := 0
		w := cmd.OutOrStdout()
		for i, s := range statuses {
			if i == 0 && s.Reachable {
				if err := health.CheckModel(s, modelOr(modelName, modelOr(pcfg.Model, cfg.DefaultModel))); err != nil {
					s.Reachable, s.Error = false, err.Error()
				}
			}
			if s.Reachable {
				fmt.Fprintf(w, "ok    %-18s %s (%s)\n", s.Name, s.URL, s.Latency.Round(time.Millisecond))
				continue
			}
			failed++
			fmt.Fprintf(w, "FAIL  %-18s %s\n", s.Name, s.Error)
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}
