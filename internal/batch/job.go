// Package batch runs the daily account analysis for every subject of a
// roster and delivers the resulting reports.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeanpaul/adcrew/internal/notify"
	"github.com/jeanpaul/adcrew/internal/team"
	"github.com/jeanpaul/adcrew/internal/tools"
	"github.com/jeanpaul/adcrew/internal/types"
)

const (
	TeamPrefix = "daily_analysis"
	dateLayout = "2006-01-02"
)

// DefaultRoles is the roster of a daily analysis team.
var DefaultRoles = []types.TeamRole{
	{Name: "account_analyst", Description: "Reads campaign performance, compares it with the previous days and spots anomalies."},
	{Name: "report_writer", Description: "Turns the findings into a short report for the client and sends it with send_report."},
}

// SubjectError is the failure of one subject. A run returns one per failed
// subject, joined.
type SubjectError struct {
	UserID string
	Err    error
}

func (e *SubjectError) Error() string { return fmt.Sprintf("batch: subject %s: %v", e.UserID, e.Err) }
func (e *SubjectError) Unwrap() error { return e.Err }

// Config wires a Job.
type Config struct {
	Factory     *team.Factory
	Roster      RosterSource
	Allow       AllowList
	Opener      notify.ChatOpener
	Sender      notify.Sender
	History     Recorder
	Roles       []types.TeamRole
	MaxRound    int
	Concurrency int
	Log         *zap.Logger
}

// Job is one daily batch. It is safe to Run repeatedly.
type Job struct {
	cfg Config
	log *zap.Logger
}

func NewJob(cfg Config) (*Job, error) {
	if cfg.Factory == nil || cfg.Roster == nil || cfg.Opener == nil || cfg.Sender == nil {
		return nil, errors.New("batch: factory, roster, opener and sender are required")
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = DefaultRoles
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{cfg: cfg, log: log}, nil
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Date      string
	Succeeded []string
	Failed    []string
	Skipped   []string
}

// Run analyses every allowed subject for date. Subjects fail independently;
// the returned error joins every SubjectError.
func (j *Job) Run(ctx context.Context, date time.Time) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), Date: date.Format(dateLayout)}
	subjects, err := j.cfg.Roster.Subjects(ctx)
	if err != nil {
		return sum, err
	}

	log := j.log.With(zap.String("run_id", sum.RunID), zap.String("date", sum.Date))
	log.Info("batch run started", zap.Int("subjects", len(subjects)))

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(j.cfg.Concurrency)
	for _, s := range subjects {
		if !j.cfg.Allow.Allows(s.UserID) {
			sum.Skipped = append(sum.Skipped, s.UserID)
			continue
		}
		g.Go(func() error {
			err := j.runSubject(ctx, sum.RunID, s, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error("subject failed", zap.String("user_id", s.UserID), zap.Error(err))
				sum.Failed = append(sum.Failed, s.UserID)
				errs = append(errs, err)
				return nil
			}
			sum.Succeeded = append(sum.Succeeded, s.UserID)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("batch run finished",
		zap.Int("succeeded", len(sum.Succeeded)),
		zap.Int("failed", len(sum.Failed)),
		zap.Int("skipped", len(sum.Skipped)))
	return sum, errors.Join(errs...)
}

func (j *Job) runSubject(ctx context.Context, runID string, s Subject, date time.Time) (err error) {
	started := time.Now()
	name := team.Name(TeamPrefix, s.UserID, date.Format(dateLayout))
	var chatID string
	defer func() {
		j.record(ctx, Entry{
			RunID: runID, UserID: s.UserID, Date: date.Format(dateLayout), Team: name,
			Status: statusOf(err), ChatID: chatID, Error: errString(err),
			StartedAt: started, FinishedAt: time.Now(),
		})
	}()

	chatID, err = j.analyse(ctx, name, s, date)
	if err != nil {
		return &SubjectError{UserID: s.UserID, Err: err}
	}
	return nil
}

func (j *Job) analyse(ctx context.Context, name string, s Subject, date time.Time) (string, error) {
	store := j.cfg.Factory.Store()
	t, err := j.cfg.Factory.Create(ctx, team.CreateParams{
		Name:           name,
		Task:           Task(date, s),
		Roles:          j.cfg.Roles,
		MaxRound:       j.cfg.MaxRound,
		HumanInputMode: types.HumanInputNever,
		Tools:          []tools.Tool{NewReportTool()},
	})
	if err != nil {
		return "", err
	}
	defer store.Pop(name)

	if _, err := t.InitiateChat(ctx); err != nil {
		return "", err
	}
	report, err := extractReport(t.Messages(), t.Tools())
	if err != nil {
		return "", err
	}

	chatID, err := j.cfg.Opener.OpenChat(ctx, notify.ChatRequest{
		UserID:               s.UserID,
		Messages:             t.Messages(),
		InitialMessageInChat: report.Narrative,
		ProposedUserAction:   report.ProposedUserAction,
	})
	if err != nil {
		return "", err
	}
	if _, err := j.cfg.Sender.Send(ctx, s.Email, subjectLine(date), notificationBody(s, report, chatID)); err != nil {
		return chatID, err
	}
	return chatID, nil
}

func (j *Job) record(ctx context.Context, e Entry) {
	if j.cfg.History == nil {
		return
	}
	// The run context may already be cancelled; the outcome is still worth keeping.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := j.cfg.History.Record(rctx, e); err != nil {
		j.log.Warn("record history", zap.String("user_id", e.UserID), zap.Error(err))
	}
}

// Task is the deterministic instruction of a subject's daily analysis.
func Task(date time.Time, s Subject) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today is %s. Analyse the advertising account of customer %s", date.Format(dateLayout), s.CustomerID)
	if s.Name != "" {
		fmt.Fprintf(&sb, " (%s)", s.Name)
	}
	sb.WriteString(".\n\n")
	sb.WriteString("1. List the campaigns and read yesterday's performance.\n")
	sb.WriteString("2. Compare it with the previous seven days and note anything unusual.\n")
	sb.WriteString("3. Propose at most one concrete change for the client to approve. Do not modify anything.\n")
	fmt.Fprintf(&sb, "4. Finish by calling %s with the narrative and the proposed action.\n", ReportToolName)
	return sb.String()
}

func subjectLine(date time.Time) string {
	return "Your daily ads report for " + date.Format(dateLayout)
}

func notificationBody(s Subject, r Report, chatID string) string {
	var sb strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&sb, "Hi %s,\n\n", s.Name)
	}
	sb.WriteString(r.Narrative)
	if r.ProposedUserAction != "" {
		fmt.Fprintf(&sb, "\n\nProposed action: %s", r.ProposedUserAction)
	}
	fmt.Fprintf(&sb, "\n\nReply in chat %s to approve or discuss.", chatID)
	return sb.String()
}

func statusOf(err error) Status {
	if err != nil {
		return StatusFailed
	}
	return StatusSucceeded
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
