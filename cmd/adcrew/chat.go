package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/ads"
	"github.com/jeanpaul/adcrew/internal/config"
	"github.com/jeanpaul/adcrew/internal/headless"
	"github.com/jeanpaul/adcrew/internal/team"
	"github.com/jeanpaul/adcrew/internal/types"
)

var (
	chatUser       string
	chatConv       string
	chatRoles      []string
	chatRolesFile  string
	chatSaveRoster string
	chatExport     string
	chatMaxRound   int
	chatDryRun     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [task]",
	Short: "Run a team on a task, answering its questions from stdin",
	Long: "Run a team on a task, answering its questions from stdin.\n\n" +
		"With --conv naming a conversation saved in team.work_dir, the paused team is\n" +
		"restored and the task argument may be omitted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		roles, err := chatRoster()
		if err != nil {
			return err
		}
		if chatSaveRoster != "" {
			if err := config.SaveRoster(chatSaveRoster, config.Roster{Roles: roles}); err != nil {
				return err
			}
		}
		prov, err := makeProvider(cfg, providerName, modelName)
		if err != nil {
			return err
		}

		console := headless.NewConsole(os.Stdin, cmd.OutOrStdout(), logger)
		svc := adsService(cfg, chatDryRun)
		f := newFactory(cfg, prov, svc, console)

		tm, err := openTeam(cmd, f, roles, strings.Join(args, " "))
		if err != nil {
			return err
		}
		runErr := console.Run(cmd.Context(), tm)
		if chatExport != "" {
			if err := tm.Conversation().Export(chatExport, tm.Name()); err != nil {
				logger.Warn("export transcript", zap.String("path", chatExport), zap.Error(err))
			}
		}
		if mem, ok := svc.(*ads.Memory); ok {
			for _, m := range mem.Mutations() {
				logger.Info("dry-run mutation", zap.String("endpoint", m.Endpoint), zap.Any("resource", m.Resource))
			}
		}
		return runErr
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "local", "User id the team works for")
	chatCmd.Flags().StringVar(&chatConv, "conv", "", "Conversation id; resumes a saved conversation (default: random)")
	chatCmd.Flags().StringArrayVarP(&chatRoles, "role", "r", nil, "Team role as name=description (repeatable)")
	chatCmd.Flags().StringVar(&chatRolesFile, "roles-file", "", "YAML roster file with a roles list")
	chatCmd.Flags().StringVar(&chatSaveRoster, "save-roster", "", "Write the roles in use to this YAML roster file")
	chatCmd.Flags().StringVar(&chatExport, "export", "", "Write a markdown transcript to this file when the chat stops")
	chatCmd.Flags().IntVar(&chatMaxRound, "max-round", 0, "Turn limit per chat call (default: team.max_round)")
	chatCmd.Flags().BoolVar(&chatDryRun, "dry-run", false, "Use an in-memory ads account")
}

// openTeam restores the conversation named by --conv when one was saved and
// creates a new team otherwise.
func openTeam(cmd *cobra.Command, f *team.Factory, roles []types.TeamRole, task string) (*team.Team, error) {
	params := team.CreateParams{
		Prefix:   "team",
		UserID:   chatUser,
		ConvID:   chatConv,
		Task:     task,
		Roles:    roles,
		MaxRound: chatMaxRound,
	}
	switch {
	case chatConv == "":
		params.ConvID = uuid.NewString()[:8]
	case cfg.Team.WorkDir != "":
		tm, err := f.Restore(cmd.Context(), params)
		if err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "resuming %s (%d messages)\n", tm.Name(), len(tm.Messages()))
			return tm, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if strings.TrimSpace(task) == "" {
		return nil, errors.New("a task is required to start a new conversation")
	}
	return f.Create(cmd.Context(), params)
}

func chatRoster() ([]types.TeamRole, error) {
	var roles []types.TeamRole
	if chatRolesFile != "" {
		r, err := config.LoadRoster(chatRolesFile)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r.Roles...)
	}
	for _, s := range chatRoles {
		r, err := config.ParseRole(s)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		roles = []types.TeamRole{{Name: "account_manager", Description: "Manages the ads account and talks to the client."}}
	}
	return roles, nil
}
