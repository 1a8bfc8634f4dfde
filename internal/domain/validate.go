package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)

// CommitPrefix is the prefix the agent puts on every commit it makes.
const CommitPrefix = "[AI-AGENT] "

// ValidateName checks a team or leader name: non-empty, alphanumeric and
// spaces only. The service rejects anything else with a 400, so we catch
// it before submitting.
func ValidateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !nameRegex.MatchString(value) {
		return fmt.Errorf("%s contains invalid characters (alphanumeric and spaces only)", field)
	}
	return nil
}

// ValidateSubmission checks the three submission fields the way the
// service does, so bad input fails locally instead of as a remote 400.
func ValidateSubmission(repoURL, teamName, leaderName string) error {
	if strings.TrimSpace(repoURL) == "" {
		return fmt.Errorf("repository URL is required")
	}
	if err := ValidateName("team name", teamName); err != nil {
		return err
	}
	return ValidateName("leader name", leaderName)
}

// BranchName returns the branch the agent will create for a submission:
// TEAM_LEADER_AI_Fix, upper-cased with spaces collapsed to underscores.
func BranchName(teamName, leaderName string) string {
	join := func(s string) string {
		return strings.Join(strings.Fields(strings.ToUpper(s)), "_")
	}
	return join(teamName) + "_" + join(leaderName) + "_AI_Fix"
}
