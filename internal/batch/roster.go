package batch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Subject is one client account the daily job analyses.
type Subject struct {
	UserID     string `yaml:"user_id" json:"user_id"`
	Name       string `yaml:"name" json:"name"`
	Email      string `yaml:"email" json:"email"`
	CustomerID string `yaml:"customer_id" json:"customer_id"`
}

// RosterSource supplies the subjects of a run.
type RosterSource interface {
	Subjects(ctx context.Context) ([]Subject, error)
}

// StaticRoster is a fixed list of subjects.
type StaticRoster []Subject

func (s StaticRoster) Subjects(context.Context) ([]Subject, error) {
	return append([]Subject(nil), s...), nil
}

// FileRoster reads subjects from a YAML file on every run, so edits apply
// without a restart.
type FileRoster struct {
	Path string
}

func (f FileRoster) Subjects(context.Context) ([]Subject, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("batch: read roster: %w", err)
	}
	var doc struct {
		Subjects []Subject `yaml:"subjects"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("batch: parse roster %s: %w", f.Path, err)
	}
	for i, s := range doc.Subjects {
		if strings.TrimSpace(s.UserID) == "" {
			return nil, fmt.Errorf("batch: roster %s: subject %d has no user_id", f.Path, i)
		}
	}
	return doc.Subjects, nil
}

// AllowList restricts a run to the listed user ids. An empty list allows
// nobody.
type AllowList map[string]bool

func NewAllowList(userIDs ...string) AllowList {
	a := make(AllowList, len(userIDs))
	for _, id := range userIDs {
		a[strings.TrimSpace(id)] = true
	}
	return a
}

func (a AllowList) Allows(userID string) bool { return a[userID] }
