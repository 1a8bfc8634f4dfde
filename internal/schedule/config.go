package schedule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/riftlabs/healwatch/internal/domain"
)

// Entry is one recurring healing run definition.
type Entry struct {
	Name       string `yaml:"name"`
	Cron       string `yaml:"cron"`
	RepoURL    string `yaml:"repo_url"`
	TeamName   string `yaml:"team_name"`
	LeaderName string `yaml:"leader_name"`
}

// File holds all schedule entries.
type File struct {
	Schedules []Entry `yaml:"schedules"`
}

// Validate checks if the entry is usable.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if e.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return domain.ValidateSubmission(e.RepoURL, e.TeamName, e.LeaderName)
}

// LoadFile loads schedule entries from a YAML file. A missing file means
// no schedules.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	for i := range f.Schedules {
		if err := f.Schedules[i].Validate(); err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}
	}

	return &f, nil
}
