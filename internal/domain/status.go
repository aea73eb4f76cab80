package domain

import "fmt"

// SolverStatus is the lifecycle state of a solver request.
//
//	NOT_SOLVED -> ENQUEUED -> RUNNING -> TERMINATED
//
// NOT_SOLVED is also the state after a clear.
type SolverStatus int

const (
	StatusEnqueued SolverStatus = iota
	StatusNotSolved
	StatusRunning
	StatusTerminated
)

var statusNames = map[SolverStatus]string{
	StatusEnqueued:   "ENQUEUED",
	StatusNotSolved:  "NOT_SOLVED",
	StatusRunning:    "RUNNING",
	StatusTerminated: "TERMINATED",
}

func (s SolverStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SolverStatus(%d)", int(s))
}

// Active reports whether a request in this status still owns its problem.
func (s SolverStatus) Active() bool {
	return s == StatusEnqueued || s == StatusRunning
}

// ParseSolverStatus is the inverse of String.
func ParseSolverStatus(name string) (SolverStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("parse solver status: unknown status %q", name)
}

func (s SolverStatus) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("marshal solver status: unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *SolverStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseSolverStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
