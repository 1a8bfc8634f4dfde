package runstore

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    repository TEXT NOT NULL,
    team_name TEXT NOT NULL,
    leader_name TEXT NOT NULL,
    branch_name TEXT,
    status TEXT NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    score_base INTEGER NOT NULL DEFAULT 0,
    score_time_bonus INTEGER NOT NULL DEFAULT 0,
    score_commit_penalty INTEGER NOT NULL DEFAULT 0,
    results TEXT,
    started_at TIMESTAMP,
    finished_at TIMESTAMP,
    recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs(recorded_at);
`
