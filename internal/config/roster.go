package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeanpaul/adcrew/internal/types"
)

// Roster is a reusable set of team roles stored as YAML.
type Roster struct {
	Name  string           `yaml:"name,omitempty"`
	Roles []types.TeamRole `yaml:"roles"`
}

func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("roster %s not found", path)
		}
		return nil, err
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	if len(r.Roles) == 0 {
		return nil, fmt.Errorf("roster %s has no roles", path)
	}
	return &r, nil
}

func SaveRoster(path string, r Roster) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ParseRole parses "name=description".
func ParseRole(s string) (types.TeamRole, error) {
	name, desc, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return types.TeamRole{}, fmt.Errorf("role %q must look like name=description", s)
	}
	return types.TeamRole{Name: name, Description: strings.TrimSpace(desc)}, nil
}
