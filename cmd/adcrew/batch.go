package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/batch"
	"github.com/jeanpaul/adcrew/internal/notify"
)

var (
	batchDate    string
	batchDryRun  bool
	historyUser  string
	historyLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Daily account analysis",
}

var batchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily analysis once",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, closeJob, err := newJob()
		if err != nil {
			return err
		}
		defer closeJob()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		date := time.Now().In(loc)
		if batchDate != "" {
			if date, err = time.ParseInLocation("2006-01-02", batchDate, loc); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}

		sum, err := job.Run(cmd.Context(), date)
		fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s): %d succeeded, %d failed, %d skipped\n",
			sum.RunID, sum.Date, len(sum.Succeeded), len(sum.Failed), len(sum.Skipped))
		return err
	},
}

var batchScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily analysis on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		job, closeJob, err := newJob()
		if err != nil {
			return err
		}
		defer closeJob()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		s, err := batch.NewScheduler(cfg.Batch.Schedule, loc, job, logger)
		if err != nil {
			return err
		}
		s.Start(cmd.Context())
		return nil
	},
}

var batchHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the latest daily analysis outcomes of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Batch.HistoryDB == "" {
			return errors.New("batch.history_db is not configured")
		}
		h, err := batch.OpenHistory(cfg.Batch.HistoryDB)
		if err != nil {
			return err
		}
		defer h.Close()

		entries, err := h.Recent(cmd.Context(), historyUser, historyLimit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

func printHistory(w io.Writer, entries []batch.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSTATUS\tCHAT\tDURATION\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Status, e.ChatID,
			e.FinishedAt.Sub(e.StartedAt).Round(time.Second), e.Error)
	}
	_ = tw.Flush()
}

func init() {
	batchHistoryCmd.Flags().StringVarP(&historyUser, "user", "u", "", "User id to show")
	batchHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	_ = batchHistoryCmd.MarkFlagRequired("user")
	batchRunCmd.Flags().StringVar(&batchDate, "date", "", "Analysis date as YYYY-MM-DD (default: today)")
	batchCmd.PersistentFlags().BoolVar(&batchDryRun, "dry-run", false, "Use an in-memory ads account and log notifications")
	batchCmd.AddCommand(batchRunCmd, batchScheduleCmd, batchHistoryCmd)
}

func newJob() (*batch.Job, func(), error) {
	if cfg.Batch.RosterFile == "" {
		return nil, nil, errors.New("batch.roster_file is not configured")
	}
	if cfg.Batch.WebhookURL == "" {
		return nil, nil, errors.New("batch.webhook_url is not configured")
	}
	if len(cfg.Batch.AllowList) == 0 {
		logger.Warn("batch.allow_list is empty, every subject will be skipped")
	}

	prov, err := makeProvider(cfg, providerName, modelName)
	if err != nil {
		return nil, nil, err
	}

	var sender notify.Sender = notify.LogSender{Log: logger}
	if !batchDryRun && cfg.Notify.BaseURL != "" {
		sender = notify.NewHTTPSender(cfg.Notify.BaseURL, cfg.Notify.APIKey, cfg.Notify.From)
	}

	jobCfg := batch.Config{
		Factory:     newFactory(cfg, prov, adsService(cfg, batchDryRun), nil),
		Roster:      batch.FileRoster{Path: cfg.Batch.RosterFile},
		Allow:       batch.NewAllowList(cfg.Batch.AllowList...),
		Opener:      notify.NewWebhook(cfg.Batch.WebhookURL),
		Sender:      sender,
		MaxRound:    cfg.Batch.MaxRound,
		Concurrency: cfg.Batch.Concurrency,
		Log:         logger,
	}

	closeJob := func() {}
	if cfg.Batch.HistoryDB != "" {
		h, err := batch.OpenHistory(cfg.Batch.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		jobCfg.History = h
		closeJob = func() {
			if err := h.Close(); err != nil {
				logger.Warn("close history", zap.Error(err))
			}
		}
	}

	job, err := batch.NewJob(jobCfg)
	if err != nil {
		closeJob()
		return nil, nil, err
	}
	return job, closeJob, nil
}
