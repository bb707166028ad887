// Package headless drives a team from a terminal: team output goes to the
// writer, replies and human input are read line by line.
package headless

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeanpaul/adcrew/internal/team"
)

// Console is a line-oriented client. It also serves as the human input of
// teams running in ALWAYS or TERMINATE mode.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	log *zap.Logger
}

func NewConsole(in io.Reader, out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{in: bufio.NewReader(in), out: out, log: log}
}

// Ask prints prompt and returns the next input line. End of input yields an
// empty answer.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(c.out, "%s\n> ", strings.TrimSpace(prompt))
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("headless: read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Run initiates the chat of an idle team, or picks up a restored one that
// awaits a reply, and keeps answering its questions until the team
// completes, the input ends with an empty reply or an error occurs.
func (c *Console) Run(ctx context.Context, t *team.Team) error {
	var err error
	if t.State() == team.StateIdle {
		_, err = t.InitiateChat(ctx)
	}
	for {
		if err != nil {
			return err
		}
		if t.State() != team.StateAwaitingReply {
			fmt.Fprintln(c.out, t.LastMessage(true))
			return nil
		}

		var answer string
		if answer, err = c.Ask(ctx, t.LastMessage(true)); err != nil {
			return err
		}
		if answer == "" {
			c.log.Info("no reply, leaving team paused",
				zap.String("team", t.Name()),
				zap.Int("questions", len(t.QALog())))
			return nil
		}
		_, err = t.ContinueChat(ctx, answer)
	}
}
