package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/adcrew/internal/ads"
	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/team"
	"github.com/jeanpaul/adcrew/internal/types"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the function schema a top-level team is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := newFactory(cfg, provider.NewScripted(), ads.NewMemory(nil), nil)
		tm, err := f.Create(cmd.Context(), team.CreateParams{
			Name:  "schema",
			Task:  "list tools",
			Roles: []types.TeamRole{{Name: "account_manager", Description: "Manages the ads account."}},
		})
		if err != nil {
			return err
		}
		f.Store().Pop(tm.Name())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tm.Tools().ToolDefs())
	},
}
