package domain

// FixRecord describes one fix the agent applied (or tried to apply).
// Records are immutable once received and keep the order the server
// returned them in.
type FixRecord struct {
	File          string    `json:"file"`
	BugType       BugType   `json:"bug_type"`
	LineNumber    int       `json:"line_number"`
	CommitMessage string    `json:"commit_message"`
	Status        FixStatus `json:"status"`
	StrictOutput  string    `json:"strict_output"`
}

// TimelineEntry is one CI verdict on the timeline, append-only and
// ordered by arrival.
type TimelineEntry struct {
	Iteration int       `json:"iteration"`
	Status    RunStatus `json:"status"`
	Timestamp string    `json:"timestamp"`
}

// Results is the server-reported snapshot for a run. It is replaced
// wholesale on every poll, never mutated field by field.
type Results struct {
	Repository           string          `json:"repository"`
	TeamName             string          `json:"team_name"`
	LeaderName           string          `json:"leader_name"`
	BranchName           string          `json:"branch_name"`
	TotalFailures        int             `json:"total_failures"`
	TotalFixes           int             `json:"total_fixes"`
	IterationsUsed       int             `json:"iterations_used"`
	RetryLimit           int             `json:"retry_limit"`
	Commits              int             `json:"commits"`
	FinalStatus          RunStatus       `json:"final_status"`
	ExecutionTimeSeconds int             `json:"execution_time_seconds"`
	Score                int             `json:"score"`
	ScoreBase            int             `json:"score_base"`
	ScoreTimeBonus       int             `json:"score_time_bonus"`
	ScoreCommitPenalty   int             `json:"score_commit_penalty"`
	Fixes                []FixRecord     `json:"fixes"`
	CITimeline           []TimelineEntry `json:"ci_timeline"`
}

// ScoreBreakdown decomposes a run's final score.
type ScoreBreakdown struct {
	Base          int `json:"base"`
	TimeBonus     int `json:"time_bonus"`
	CommitPenalty int `json:"commit_penalty"`
	Final         int `json:"final"`
}

// ComputeScore reproduces the service's scoring for display checks:
// base 100, +10 bonus under five minutes, -2 per commit over twenty,
// clamped at zero.
func ComputeScore(executionTimeSeconds, commits int) ScoreBreakdown {
	base := 100
	bonus := 0
	if executionTimeSeconds < 300 {
		bonus = 10
	}
	penalty := 0
	if commits > 20 {
		penalty = (commits - 20) * 2
	}
	final := base + bonus - penalty
	if final < 0 {
		final = 0
	}
	return ScoreBreakdown{Base: base, TimeBonus: bonus, CommitPenalty: penalty, Final: final}
}
