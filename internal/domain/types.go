package domain

// RunStatus represents the lifecycle state of a run as reported by the
// healing agent service. StatusIdle is client-local and never appears on
// the wire.
type RunStatus string

const (
	StatusIdle    RunStatus = "idle"
	StatusRunning RunStatus = "running"
	StatusPassed  RunStatus = "PASSED"
	StatusFailed  RunStatus = "FAILED"
)

// Terminal reports whether no further status changes are expected for s.
func (s RunStatus) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// BugType classifies a failure the agent attempted to fix
type BugType string

const (
	BugLinting     BugType = "LINTING"
	BugSyntax      BugType = "SYNTAX"
	BugLogic       BugType = "LOGIC"
	BugTypeError   BugType = "TYPE_ERROR"
	BugImport      BugType = "IMPORT"
	BugIndentation BugType = "INDENTATION"
)

// KnownBugType reports whether t is one of the closed set the agent emits.
func KnownBugType(t BugType) bool {
	switch t {
	case BugLinting, BugSyntax, BugLogic, BugTypeError, BugImport, BugIndentation:
		return true
	}
	return false
}

// FixStatus is the outcome of a single fix attempt
type FixStatus string

const (
	FixApplied FixStatus = "FIXED"
	FixFailed  FixStatus = "FAILED"
)
